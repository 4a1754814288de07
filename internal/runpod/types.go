// Package runpod provides an HTTP client for a RunPod serverless
// faster-whisper transcription worker.
package runpod

// Status represents the status of a RunPod job.
type Status string

// RunPod job statuses aligned with the RunPod API.
const (
	StatusInQueue    Status = "IN_QUEUE"
	StatusRunning    Status = "RUNNING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
	StatusTimedOut   Status = "TIMED_OUT"
)

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut:
		return true
	default:
		return false
	}
}

// SubmitOptions contains optional parameters for a transcription job.
type SubmitOptions struct {
	Model          string // Whisper model name (default: "base")
	Language       string // ISO 639-1 code; empty means auto-detect
	WordTimestamps bool   // Ask the worker for word-level timing
}

// DefaultSubmitOptions returns the default options for submitting a job.
func DefaultSubmitOptions() SubmitOptions {
	return SubmitOptions{
		Model:          "base",
		WordTimestamps: true,
	}
}

// runRequest represents the request body for RunPod's /run endpoint.
type runRequest struct {
	Input runInput `json:"input"`
}

// runInput represents the input field in a RunPod run request.
type runInput struct {
	AudioBase64    string `json:"audio_base64"`
	Model          string `json:"model"`
	Language       string `json:"language,omitempty"`
	WordTimestamps bool   `json:"word_timestamps"`
}

// runResponse represents the response from RunPod's /run endpoint.
type runResponse struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// statusResponse represents the response from RunPod's /status endpoint.
type statusResponse struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Output statusOutput `json:"output,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// statusOutput represents the output field in a status response.
type statusOutput struct {
	Segments         []Segment `json:"segments,omitempty"`
	DetectedLanguage string    `json:"detected_language,omitempty"`
}

// Segment is one timed utterance reported by the worker. Times are seconds.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// PollResult contains the result of polling a job's status.
type PollResult struct {
	Status   Status
	Segments []Segment // Only set when Status is StatusCompleted
	Language string    // Detected language (only set when Status is StatusCompleted)
	Error    string    // Error message (only set when Status is StatusFailed)
}
