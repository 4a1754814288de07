package beam

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultAPIBaseURL is where task status is queried.
const DefaultAPIBaseURL = "https://api.beam.cloud"

// maxOutputBytes caps the transcript document downloaded from a task output.
const maxOutputBytes = 32 << 20

// Static errors for Beam client operations.
var (
	// ErrQueueURLRequired is returned when the queue URL is not provided.
	ErrQueueURLRequired = errors.New("beam: queue URL is required")
	// ErrTokenNotSet is returned when the BEAM_TOKEN is not provided.
	ErrTokenNotSet = errors.New("beam: token is required")
	// ErrAudioRequired is returned when Submit is called without audio.
	ErrAudioRequired = errors.New("beam: audio is required")
	// ErrTaskIDRequired is returned when the task ID is not provided.
	ErrTaskIDRequired = errors.New("beam: task ID is required")
	// ErrNoTaskIDReturned is returned when the submit response contains no task ID.
	ErrNoTaskIDReturned = errors.New("beam: submit failed: no task ID returned")
	// ErrSubmitFailed is returned when the submit operation fails.
	ErrSubmitFailed = errors.New("beam: submit failed")
	// ErrServerError is returned when the server returns a 5xx status code.
	ErrServerError = errors.New("beam: server error")
	// ErrRateLimited is returned when the server returns a 429 status code.
	ErrRateLimited = errors.New("beam: rate limited")
	// ErrUnauthorized is returned when the token is rejected.
	ErrUnauthorized = errors.New("beam: unauthorized")
	// ErrRequestFailed is returned when the request fails with a non-2xx status code.
	ErrRequestFailed = errors.New("beam: request failed")
	// ErrNoOutputURL is returned when a completed task has no output URL.
	ErrNoOutputURL = errors.New("beam: no output URL in completed task")
	// ErrInvalidOutput is returned when the task output is not a transcript document.
	ErrInvalidOutput = errors.New("beam: invalid transcript output")
)

// Client defines the interface for interacting with the Beam Task Queue API.
type Client interface {
	// Submit sends a transcription task to Beam and returns the task ID.
	Submit(ctx context.Context, audioB64 string, opts SubmitOptions) (taskID string, err error)

	// Poll checks the status of a task and returns the result.
	Poll(ctx context.Context, taskID string) (PollResult, error)

	// FetchTranscript downloads and decodes the transcript a task produced.
	FetchTranscript(ctx context.Context, outputURL string) (Transcript, error)
}

// HTTPClient is the HTTP implementation of the Beam Client interface.
type HTTPClient struct {
	token       string
	queueURL    string
	apiBaseURL  string
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithToken sets the API token for authentication.
func WithToken(token string) ClientOption {
	return func(hc *HTTPClient) {
		hc.token = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithAPIBaseURL sets the base URL of the task status API (useful for testing).
func WithAPIBaseURL(url string) ClientOption {
	return func(hc *HTTPClient) {
		hc.apiBaseURL = strings.TrimSuffix(url, "/")
	}
}

// WithMaxRetries sets the maximum number of retries for transient failures.
func WithMaxRetries(n int) ClientOption {
	return func(hc *HTTPClient) {
		hc.maxRetries = n
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseBackoff = d
	}
}

// NewClient creates a new Beam HTTP client.
// The token can be set via the WithToken option. If not provided,
// it is read from the environment variable BEAM_TOKEN.
// The queue URL must be provided.
func NewClient(queueURL string, opts ...ClientOption) (*HTTPClient, error) {
	if queueURL == "" {
		return nil, ErrQueueURLRequired
	}

	c := &HTTPClient{
		queueURL:    queueURL,
		apiBaseURL:  DefaultAPIBaseURL,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		maxRetries:  3,
		baseBackoff: 1 * time.Second,
	}

	// Apply options first to allow WithToken to set the token
	for _, opt := range opts {
		opt(c)
	}

	// If token was not set via option, try environment variable
	if c.token == "" {
		c.token = os.Getenv("BEAM_TOKEN")
	}

	if c.token == "" {
		return nil, ErrTokenNotSet
	}

	return c, nil
}

// Submit sends a transcription task to Beam and returns the task ID.
func (c *HTTPClient) Submit(ctx context.Context, audioB64 string, opts SubmitOptions) (string, error) {
	if audioB64 == "" {
		return "", ErrAudioRequired
	}

	reqBody := taskRequest{
		AudioBase64: audioB64,
		Model:       opts.Model,
		Language:    opts.Language,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("beam: marshal request: %w", err)
	}

	var resp taskResponse
	if err := c.doRequestWithRetry(ctx, http.MethodPost, c.queueURL, bodyBytes, true, &resp); err != nil {
		return "", err
	}

	if resp.TaskID == "" {
		if resp.Error != "" {
			return "", fmt.Errorf("%w: %s", ErrSubmitFailed, resp.Error)
		}
		return "", ErrNoTaskIDReturned
	}

	return resp.TaskID, nil
}

// Poll checks the status of a task and returns the result.
func (c *HTTPClient) Poll(ctx context.Context, taskID string) (PollResult, error) {
	if taskID == "" {
		return PollResult{}, ErrTaskIDRequired
	}

	url := fmt.Sprintf("%s/v2/task/%s/", c.apiBaseURL, taskID)

	var resp statusResponse
	if err := c.doRequestWithRetry(ctx, http.MethodGet, url, nil, true, &resp); err != nil {
		return PollResult{}, err
	}

	result := PollResult{Status: normalizeStatus(resp.Status)}

	switch result.Status {
	case StatusCompleted:
		for _, out := range resp.Outputs {
			if out.URL != "" {
				result.OutputURL = out.URL
				break
			}
		}
		if result.OutputURL == "" {
			result.Error = "no output URL available"
		}
	case StatusFailed, StatusCanceled, StatusTimeout:
		result.Error = resp.Error
	}

	return result, nil
}

// FetchTranscript downloads the transcript JSON from a task output URL.
// Output URLs are pre-signed, so no token is sent.
func (c *HTTPClient) FetchTranscript(ctx context.Context, outputURL string) (Transcript, error) {
	if outputURL == "" {
		return Transcript{}, ErrNoOutputURL
	}

	var out transcriptOutput
	if err := c.doRequestWithRetry(ctx, http.MethodGet, outputURL, nil, false, &out); err != nil {
		if errors.Is(err, ErrInvalidOutput) {
			return Transcript{}, err
		}
		return Transcript{}, fmt.Errorf("beam: download output: %w", err)
	}
	if out.Segments == nil {
		return Transcript{}, fmt.Errorf("%w: no segments field", ErrInvalidOutput)
	}

	return Transcript{Language: out.Language, Segments: out.Segments}, nil
}

// normalizeStatus maps Beam's status spellings onto the package constants.
func normalizeStatus(s string) Status {
	switch strings.ToUpper(s) {
	case "PENDING":
		return StatusPending
	case "RUNNING":
		return StatusRunning
	case "COMPLETED", "COMPLETE":
		return StatusCompleted
	case "FAILED", "ERROR":
		return StatusFailed
	case "CANCELED", "CANCELLED":
		return StatusCanceled
	case "TIMEOUT":
		return StatusTimeout
	default:
		return Status(s)
	}
}

// doRequestWithRetry performs an HTTP request with exponential backoff retry.
func (c *HTTPClient) doRequestWithRetry(ctx context.Context, method, url string, body []byte, auth bool, result any) error {
	var lastErr error
	backoff := c.baseBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("beam: context cancelled: %w", ctx.Err())
			case <-time.After(backoff):
				backoff *= 2 // Exponential backoff
			}
		}

		err := c.doRequest(ctx, method, url, body, auth, result)
		if err == nil {
			return nil
		}

		// Check if error is retryable
		if !IsRetryable(err) {
			return err
		}

		lastErr = err
	}

	return fmt.Errorf("beam: max retries exceeded: %w", lastErr)
}

// doRequest performs a single HTTP request.
func (c *HTTPClient) doRequest(ctx context.Context, method, url string, body []byte, auth bool, result any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("beam: create request: %w", err)
	}

	if auth {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("beam: request aborted: %w", ctx.Err())
		}
		return &retryableError{err: fmt.Errorf("beam: request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxOutputBytes))
	if err != nil {
		return &retryableError{err: fmt.Errorf("beam: read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			if _, ok := result.(*transcriptOutput); ok {
				return fmt.Errorf("%w: %w", ErrInvalidOutput, err)
			}
			return fmt.Errorf("beam: unmarshal response: %w", err)
		}
	}

	return nil
}

// statusError maps a non-2xx response to an error. 5xx and 429 are retryable.
func statusError(code int, body []byte) error {
	switch {
	case code >= 500:
		return &retryableError{err: fmt.Errorf("%w %d: %s", ErrServerError, code, string(body))}
	case code == http.StatusTooManyRequests:
		return &retryableError{err: fmt.Errorf("%w: %s", ErrRateLimited, string(body))}
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return fmt.Errorf("%w with status %d: %s", ErrUnauthorized, code, string(body))
	default:
		return fmt.Errorf("%w with status %d: %s", ErrRequestFailed, code, string(body))
	}
}

// retryableError wraps errors that should be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// IsRetryable returns true if the error should be retried.
func IsRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
