package transcribe

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sid-Veeravalli/trim-pro/internal/beam"
	"github.com/Sid-Veeravalli/trim-pro/internal/transcript"
)

// Compile-time check that BeamEngine implements Engine.
var _ Engine = (*BeamEngine)(nil)

// BeamEngine runs transcription on a Beam.cloud task queue. The worker
// writes its segments to an output file that is fetched once the task
// completes.
type BeamEngine struct {
	client       beam.Client
	opts         beam.SubmitOptions
	pollInterval time.Duration
	maxWait      time.Duration
	logger       *slog.Logger
}

// BeamOption configures a BeamEngine.
type BeamOption func(*BeamEngine)

// WithBeamSubmitOptions sets the task options sent with every submission.
func WithBeamSubmitOptions(opts beam.SubmitOptions) BeamOption {
	return func(e *BeamEngine) {
		e.opts = opts
	}
}

// WithBeamPollInterval sets how often task status is checked.
func WithBeamPollInterval(d time.Duration) BeamOption {
	return func(e *BeamEngine) {
		if d > 0 {
			e.pollInterval = d
		}
	}
}

// WithBeamMaxWait bounds the time spent on a single task.
func WithBeamMaxWait(d time.Duration) BeamOption {
	return func(e *BeamEngine) {
		if d > 0 {
			e.maxWait = d
		}
	}
}

// WithBeamLogger sets the logger.
func WithBeamLogger(logger *slog.Logger) BeamOption {
	return func(e *BeamEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewBeamEngine creates a new Beam transcription engine.
func NewBeamEngine(client beam.Client, opts ...BeamOption) *BeamEngine {
	e := &BeamEngine{
		client:       client,
		opts:         beam.DefaultSubmitOptions(),
		pollInterval: 3 * time.Second,
		maxWait:      10 * time.Minute,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transcribe submits audio to the task queue and returns the worker's segments.
func (e *BeamEngine) Transcribe(ctx context.Context, audio []byte, name string) ([]transcript.Segment, error) {
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	ctx, cancel := context.WithTimeout(ctx, e.maxWait)
	defer cancel()

	taskID, err := e.client.Submit(ctx, base64.StdEncoding.EncodeToString(audio), e.opts)
	if err != nil {
		return nil, fmt.Errorf("beam submit: %w", classifyBeamError(err))
	}

	e.logger.Info("transcription task submitted",
		slog.String("task_id", taskID),
		slog.String("file", name),
		slog.String("model", e.opts.Model),
	)

	outputURL, err := e.wait(ctx, taskID)
	if err != nil {
		return nil, err
	}

	tr, err := e.client.FetchTranscript(ctx, outputURL)
	if err != nil {
		return nil, fmt.Errorf("beam output %s: %w", taskID, classifyBeamError(err))
	}

	segments := make([]transcript.Segment, 0, len(tr.Segments))
	for _, s := range tr.Segments {
		segments = append(segments, newSegment(s.Text, s.Start, s.End))
	}

	e.logger.Info("transcription task completed",
		slog.String("task_id", taskID),
		slog.String("language", tr.Language),
		slog.Int("segments", len(segments)),
	)
	return segments, nil
}

// wait polls taskID until it is terminal and returns its output URL.
func (e *BeamEngine) wait(ctx context.Context, taskID string) (string, error) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		result, err := e.client.Poll(ctx, taskID)
		if err != nil {
			return "", fmt.Errorf("beam poll %s: %w", taskID, classifyBeamError(err))
		}

		switch result.Status {
		case beam.StatusCompleted, beam.StatusComplete:
			if result.OutputURL == "" {
				return "", fmt.Errorf("%w: task %s: %w", ErrJobFailed, taskID, beam.ErrNoOutputURL)
			}
			return result.OutputURL, nil
		case beam.StatusFailed, beam.StatusError, beam.StatusCanceled:
			return "", fmt.Errorf("%w: task %s %s: %s", ErrJobFailed, taskID, result.Status, result.Error)
		case beam.StatusTimeout:
			return "", fmt.Errorf("%w: task %s timed out on worker", ErrTimeout, taskID)
		}

		e.logger.Debug("transcription task pending",
			slog.String("task_id", taskID),
			slog.String("status", string(result.Status)),
		)

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", fmt.Errorf("%w: task %s not finished after %s", ErrTimeout, taskID, e.maxWait)
			}
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// classifyBeamError maps beam client errors to the package sentinels.
// The client has already retried transient failures.
func classifyBeamError(err error) error {
	switch {
	case errors.Is(err, beam.ErrRateLimited):
		return fmt.Errorf("%w: %w", ErrRateLimit, err)
	case errors.Is(err, beam.ErrServerError):
		return fmt.Errorf("%w: %w", ErrServerError, err)
	case errors.Is(err, beam.ErrUnauthorized):
		return fmt.Errorf("%w: %w", ErrAuthFailed, err)
	case errors.Is(err, beam.ErrRequestFailed), errors.Is(err, beam.ErrSubmitFailed),
		errors.Is(err, beam.ErrNoTaskIDReturned), errors.Is(err, beam.ErrInvalidOutput):
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	default:
		return err
	}
}
