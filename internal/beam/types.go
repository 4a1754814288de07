// Package beam provides an HTTP client for a whisper worker deployed as a
// Beam.cloud task queue.
package beam

// Status represents the status of a Beam task.
type Status string

// Beam task statuses aligned with the Beam API.
const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusComplete  Status = "COMPLETE" // Beam sometimes returns "COMPLETE" instead of "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusError     Status = "ERROR"    // Beam returns "ERROR" when a task fails
	StatusCanceled  Status = "CANCELED" // Beam uses "CANCELED" (American spelling)
	StatusTimeout   Status = "TIMEOUT"
)

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusComplete, StatusFailed, StatusError, StatusCanceled, StatusTimeout:
		return true
	default:
		return false
	}
}

// SubmitOptions contains optional parameters for a transcription task.
type SubmitOptions struct {
	Model    string // whisper model name
	Language string // ISO 639-1 code; empty lets the worker detect it
}

// DefaultSubmitOptions returns the default options for submitting a task.
func DefaultSubmitOptions() SubmitOptions {
	return SubmitOptions{
		Model: "base",
	}
}

// taskRequest represents the request body for the task queue endpoint.
type taskRequest struct {
	AudioBase64 string `json:"audio_base64"`
	Model       string `json:"model,omitempty"`
	Language    string `json:"language,omitempty"`
}

// taskResponse represents the response from Beam's task submission endpoint.
type taskResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// statusResponse represents the response from Beam's task status endpoint.
type statusResponse struct {
	TaskID  string       `json:"task_id"`
	Status  string       `json:"status"`
	Outputs []taskOutput `json:"outputs,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// taskOutput represents a single output file from a Beam task.
type taskOutput struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// transcriptOutput is the JSON document the worker writes as its output file.
type transcriptOutput struct {
	Language string    `json:"language,omitempty"`
	Segments []Segment `json:"segments"`
}

// Segment is one timed transcript segment produced by the worker.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// PollResult contains the result of polling a task's status.
type PollResult struct {
	Status    Status
	OutputURL string // URL of the transcript JSON (only set when completed)
	Error     string // Error message (only set when the task failed)
}

// Transcript is the decoded worker output.
type Transcript struct {
	Language string
	Segments []Segment
}
