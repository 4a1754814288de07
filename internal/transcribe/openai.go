package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Sid-Veeravalli/trim-pro/internal/transcript"
)

// DefaultOpenAIModel is the whisper model used by OpenAIEngine.
const DefaultOpenAIModel = openai.Whisper1

// audioTranscriber is the subset of *openai.Client used by OpenAIEngine.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Engine           = (*OpenAIEngine)(nil)
	_ audioTranscriber = (*openai.Client)(nil)
)

// OpenAIEngine transcribes through the OpenAI audio API (or any server
// speaking the same protocol) using the verbose_json response format,
// which carries per-segment timing.
type OpenAIEngine struct {
	client   audioTranscriber
	model    string
	language string
	retry    RetryConfig
	logger   *slog.Logger
}

// OpenAIOption configures an OpenAIEngine.
type OpenAIOption func(*OpenAIEngine)

// WithOpenAIModel sets the transcription model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(e *OpenAIEngine) {
		if model != "" {
			e.model = model
		}
	}
}

// WithLanguage pins the spoken language (ISO 639-1). Empty means auto-detect.
func WithLanguage(lang string) OpenAIOption {
	return func(e *OpenAIEngine) {
		e.language = lang
	}
}

// WithOpenAIRetry overrides the retry policy.
func WithOpenAIRetry(cfg RetryConfig) OpenAIOption {
	return func(e *OpenAIEngine) {
		e.retry = cfg
	}
}

// WithOpenAILogger sets the logger.
func WithOpenAILogger(logger *slog.Logger) OpenAIOption {
	return func(e *OpenAIEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewOpenAIClient builds a go-openai client. baseURL is optional and points
// the client at an OpenAI-compatible whisper server.
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return openai.NewClientWithConfig(cfg)
}

// NewOpenAIEngine creates an engine on top of client.
func NewOpenAIEngine(client *openai.Client, opts ...OpenAIOption) *OpenAIEngine {
	return newOpenAIEngine(client, opts...)
}

func newOpenAIEngine(client audioTranscriber, opts ...OpenAIOption) *OpenAIEngine {
	e := &OpenAIEngine{
		client: client,
		model:  DefaultOpenAIModel,
		retry:  DefaultRetryConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transcribe sends audio to the API and returns its segments in order.
// Rate limits, timeouts and 5xx responses are retried with backoff.
func (e *OpenAIEngine) Transcribe(ctx context.Context, audio []byte, name string) ([]transcript.Segment, error) {
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}
	if name == "" {
		name = "audio.wav"
	}

	resp, err := RetryWithBackoff(ctx, e.retry, func() (openai.AudioResponse, error) {
		resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
			Model:    e.model,
			FilePath: name,
			Reader:   bytes.NewReader(audio),
			Format:   openai.AudioResponseFormatVerboseJSON,
			Language: e.language,
		})
		if err != nil {
			err = classifyOpenAIError(err)
			if isRetryable(err) {
				e.logger.Warn("transcription attempt failed, retrying",
					slog.String("model", e.model),
					slog.String("error", err.Error()),
				)
			}
			return openai.AudioResponse{}, err
		}
		return resp, nil
	}, isRetryable)
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}

	segments := make([]transcript.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, newSegment(s.Text, s.Start, s.End))
	}

	e.logger.Debug("transcription complete",
		slog.String("model", e.model),
		slog.String("language", resp.Language),
		slog.Int("segments", len(segments)),
	)
	return segments, nil
}

// classifyOpenAIError maps go-openai errors to the package sentinels.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, reqErr.Error())
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", ErrTimeout)
	}

	return err
}

func classifyStatus(code int, msg string) error {
	switch code {
	case http.StatusTooManyRequests:
		// Quota exhaustion needs user action; a plain rate limit clears on its own.
		if strings.Contains(msg, "quota") || strings.Contains(msg, "billing") {
			return fmt.Errorf("%s: %w", msg, ErrQuotaExceeded)
		}
		return fmt.Errorf("%s: %w", msg, ErrRateLimit)
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", msg, ErrAuthFailed)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return fmt.Errorf("%s: %w", msg, ErrTimeout)
	case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%s: %w", msg, ErrBadRequest)
	}
	if code >= 500 {
		return fmt.Errorf("%s: %w", msg, ErrServerError)
	}
	return fmt.Errorf("HTTP %d: %s", code, msg)
}
