// Package server provides the HTTP server for the trim-pro API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// UploadResponse is the HTTP response after uploading a recording.
type UploadResponse struct {
	Message string `json:"message"`
	// FileID identifies the recording in later calls.
	FileID string `json:"file_id"`
	// Duration is the recording length in seconds.
	Duration float64 `json:"duration"`
}

// SegmentResponse is one transcript segment. Times are seconds.
type SegmentResponse struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TranscriptionResponse is the HTTP response for a transcription request.
type TranscriptionResponse struct {
	Transcription []SegmentResponse `json:"transcription"`
}

// TrimRequest is the HTTP request body for trimming a recording.
type TrimRequest struct {
	// FileID is the recording to trim.
	FileID string `json:"file_id" validate:"required,max=64"`
	// DeleteTexts are the phrases to remove. Each must exactly match at least
	// one transcript segment.
	DeleteTexts []string `json:"delete_texts" validate:"max=1000"`
}

// TrimResponse is the HTTP response after a successful trim.
type TrimResponse struct {
	Message string `json:"message"`
	// TrimID identifies the trim operation record.
	TrimID string `json:"trim_id"`
	// NewDuration is the trimmed recording length in seconds.
	NewDuration float64 `json:"new_duration"`
	// TrimmedAudioPath is the storage reference of the trimmed recording.
	TrimmedAudioPath string `json:"trimmed_audio_path"`
}

// IntervalResponse is one removed range in milliseconds of the original recording.
type IntervalResponse struct {
	StartMs float64 `json:"start_ms"`
	EndMs   float64 `json:"end_ms"`
}

// OperationResponse is the HTTP response for a trim operation record.
type OperationResponse struct {
	ID               string             `json:"id"`
	FileID           string             `json:"file_id"`
	Status           string             `json:"status"`
	Phrases          []string           `json:"phrases"`
	Matcher          string             `json:"matcher"`
	MissingPhrases   []string           `json:"missing_phrases,omitempty"`
	Intervals        []IntervalResponse `json:"intervals,omitempty"`
	OriginalDuration float64            `json:"original_duration,omitempty"`
	NewDuration      float64            `json:"new_duration,omitempty"`
	TrimmedAudioPath string             `json:"trimmed_audio_path,omitempty"`
	Error            string             `json:"error,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	CompletedAt      *time.Time         `json:"completed_at,omitempty"`
}

// OperationListResponse lists the trim operations for one recording.
type OperationListResponse struct {
	Trims []OperationResponse `json:"trims"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
	// MissingPhrases lists every requested phrase that matched no segment.
	MissingPhrases []string `json:"missing_phrases,omitempty"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
