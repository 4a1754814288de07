// Package transcribe turns audio into timed transcript segments.
//
// Engines classify provider failures into the sentinels below at the adapter
// boundary, so callers check with errors.Is(err, transcribe.ErrRateLimit)
// without knowing which provider served the request.
package transcribe

import (
	"context"
	"errors"

	"github.com/Sid-Veeravalli/trim-pro/internal/transcript"
)

// Sentinel errors for transcription failures.
var (
	// ErrRateLimit indicates the provider rate limit was exceeded (retryable).
	ErrRateLimit = errors.New("transcribe: rate limit exceeded")

	// ErrQuotaExceeded indicates a billing or quota problem (not retryable).
	ErrQuotaExceeded = errors.New("transcribe: quota exceeded")

	// ErrTimeout indicates the request or the remote job timed out.
	ErrTimeout = errors.New("transcribe: request timeout")

	// ErrAuthFailed indicates the API key was rejected.
	ErrAuthFailed = errors.New("transcribe: authentication failed")

	// ErrBadRequest indicates a client error that is not otherwise classified.
	ErrBadRequest = errors.New("transcribe: bad request")

	// ErrServerError indicates a 5xx response from the provider (retryable).
	ErrServerError = errors.New("transcribe: server error")

	// ErrJobFailed indicates the remote job finished without a transcript.
	ErrJobFailed = errors.New("transcribe: job failed")

	// ErrEmptyAudio is returned when Transcribe is called without audio bytes.
	ErrEmptyAudio = errors.New("transcribe: empty audio")
)

// Engine produces the ordered segments of a recording.
// audio holds the normalised WAV bytes; name is a filename hint used by
// providers that require one.
type Engine interface {
	Transcribe(ctx context.Context, audio []byte, name string) ([]transcript.Segment, error)
}

// isRetryable reports whether err is a transient failure worth retrying.
func isRetryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, ErrRateLimit), errors.Is(err, ErrTimeout), errors.Is(err, ErrServerError):
		return true
	default:
		return false
	}
}

// newSegment keeps the provider's text verbatim, including the leading space
// whisper puts on most segments. Exact matching compares against what
// clients were shown, so the engine must not rewrite it.
func newSegment(text string, start, end float64) transcript.Segment {
	return transcript.Segment{Text: text, Start: start, End: end}
}
