package transcribe

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sid-Veeravalli/trim-pro/internal/runpod"
	"github.com/Sid-Veeravalli/trim-pro/internal/transcript"
)

// Compile-time check that RunPodEngine implements Engine.
var _ Engine = (*RunPodEngine)(nil)

// RunPodEngine adapts the RunPod whisper worker client to the Engine
// interface: it submits the audio once and polls until the job is terminal.
type RunPodEngine struct {
	client       runpod.Client
	opts         runpod.SubmitOptions
	pollInterval time.Duration
	maxWait      time.Duration
	logger       *slog.Logger
}

// RunPodOption configures a RunPodEngine.
type RunPodOption func(*RunPodEngine)

// WithSubmitOptions sets the worker options sent with every job.
func WithSubmitOptions(opts runpod.SubmitOptions) RunPodOption {
	return func(e *RunPodEngine) {
		e.opts = opts
	}
}

// WithPollInterval sets how often job status is checked.
func WithPollInterval(d time.Duration) RunPodOption {
	return func(e *RunPodEngine) {
		if d > 0 {
			e.pollInterval = d
		}
	}
}

// WithMaxWait bounds the time spent waiting for a single job.
func WithMaxWait(d time.Duration) RunPodOption {
	return func(e *RunPodEngine) {
		if d > 0 {
			e.maxWait = d
		}
	}
}

// WithRunPodLogger sets the logger.
func WithRunPodLogger(logger *slog.Logger) RunPodOption {
	return func(e *RunPodEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewRunPodEngine creates a new RunPod transcription engine.
func NewRunPodEngine(client runpod.Client, opts ...RunPodOption) *RunPodEngine {
	e := &RunPodEngine{
		client:       client,
		opts:         runpod.DefaultSubmitOptions(),
		pollInterval: 2 * time.Second,
		maxWait:      10 * time.Minute,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transcribe submits audio to the worker and waits for its segments.
func (e *RunPodEngine) Transcribe(ctx context.Context, audio []byte, name string) ([]transcript.Segment, error) {
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	ctx, cancel := context.WithTimeout(ctx, e.maxWait)
	defer cancel()

	jobID, err := e.client.Submit(ctx, base64.StdEncoding.EncodeToString(audio), e.opts)
	if err != nil {
		return nil, fmt.Errorf("runpod submit: %w", classifyRunPodError(err))
	}

	e.logger.Info("transcription job submitted",
		slog.String("job_id", jobID),
		slog.String("file", name),
		slog.String("model", e.opts.Model),
	)

	result, err := e.wait(ctx, jobID)
	if err != nil {
		return nil, err
	}

	segments := make([]transcript.Segment, 0, len(result.Segments))
	for _, s := range result.Segments {
		segments = append(segments, newSegment(s.Text, s.Start, s.End))
	}

	e.logger.Info("transcription job completed",
		slog.String("job_id", jobID),
		slog.String("language", result.Language),
		slog.Int("segments", len(segments)),
	)
	return segments, nil
}

// wait polls jobID until it reaches a terminal status.
func (e *RunPodEngine) wait(ctx context.Context, jobID string) (runpod.PollResult, error) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		result, err := e.client.Poll(ctx, jobID)
		if err != nil {
			return runpod.PollResult{}, fmt.Errorf("runpod poll %s: %w", jobID, classifyRunPodError(err))
		}

		switch result.Status {
		case runpod.StatusCompleted:
			return result, nil
		case runpod.StatusFailed, runpod.StatusCancelled:
			return runpod.PollResult{}, fmt.Errorf("%w: job %s %s: %s", ErrJobFailed, jobID, result.Status, result.Error)
		case runpod.StatusTimedOut:
			return runpod.PollResult{}, fmt.Errorf("%w: job %s timed out on worker", ErrTimeout, jobID)
		}

		e.logger.Debug("transcription job pending",
			slog.String("job_id", jobID),
			slog.String("status", string(result.Status)),
		)

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return runpod.PollResult{}, fmt.Errorf("%w: job %s not finished after %s", ErrTimeout, jobID, e.maxWait)
			}
			return runpod.PollResult{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// classifyRunPodError maps runpod client errors to the package sentinels.
// The client has already retried transient failures.
func classifyRunPodError(err error) error {
	switch {
	case errors.Is(err, runpod.ErrRateLimited):
		return fmt.Errorf("%w: %w", ErrRateLimit, err)
	case errors.Is(err, runpod.ErrServerError):
		return fmt.Errorf("%w: %w", ErrServerError, err)
	case errors.Is(err, runpod.ErrUnauthorized):
		return fmt.Errorf("%w: %w", ErrAuthFailed, err)
	case errors.Is(err, runpod.ErrRequestFailed), errors.Is(err, runpod.ErrSubmitFailed),
		errors.Is(err, runpod.ErrNoJobIDReturned):
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	default:
		return err
	}
}
