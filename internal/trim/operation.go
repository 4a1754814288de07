// Package trim orchestrates uploads, transcription and phrase removal.
// It includes the Operation aggregate, whose state machine records how far a
// trim request got, and the repository interfaces for persisting it.
package trim

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/Sid-Veeravalli/trim-pro/internal/audio"
	"github.com/Sid-Veeravalli/trim-pro/internal/trim/id"
)

// Status represents the current state of an Operation.
type Status string

const (
	// StatusValidating checks the request and loads the original recording.
	StatusValidating Status = "VALIDATING"
	// StatusMatching obtains the transcript and matches the phrases.
	StatusMatching Status = "MATCHING"
	// StatusBuilding converts matched segments to removal intervals.
	StatusBuilding Status = "BUILDING"
	// StatusSplicing removes the intervals and stores the trimmed recording.
	StatusSplicing Status = "SPLICING"
	// StatusDone indicates the trimmed recording was stored.
	StatusDone Status = "DONE"
	// StatusFailed indicates the operation stopped without storing anything.
	StatusFailed Status = "FAILED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusValidating: {StatusMatching, StatusFailed},
	StatusMatching:   {StatusBuilding, StatusFailed},
	StatusBuilding:   {StatusSplicing, StatusFailed},
	StatusSplicing:   {StatusDone, StatusFailed},
	StatusDone:       {},
	StatusFailed:     {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	return slices.Contains(allowed, to)
}

// Operation is one trim request against one asset.
type Operation struct {
	mu sync.RWMutex

	// ID is the unique identifier for this operation.
	ID string
	// AssetID is the recording being trimmed.
	AssetID string
	// Phrases are the requested phrases, in request order.
	Phrases []string
	// Matcher names the strategy used to select segments.
	Matcher string
	// Status is the current state.
	Status Status
	// MissingPhrases lists phrases that matched nothing (set on failure).
	MissingPhrases []string
	// Intervals are the removed ranges in original-audio milliseconds.
	Intervals []audio.Interval
	// OriginalDuration is the duration of the untrimmed recording in seconds.
	OriginalDuration float64
	// NewDuration is the duration of the trimmed recording in seconds.
	NewDuration float64
	// TrimmedRef is the storage reference of the trimmed recording.
	TrimmedRef string
	// Error contains the failure message if the operation failed.
	Error string
	// ErrorKind classifies the failure.
	ErrorKind Kind

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt time.Time
}

// NewOperation creates an operation in VALIDATING status with a generated ID.
func NewOperation(assetID string, phrases []string) *Operation {
	return NewOperationWithID(id.NewOperationID(), assetID, phrases)
}

// NewOperationWithID creates an operation with the specified ID.
// Useful for testing or when the ID needs to be externally generated.
func NewOperationWithID(opID, assetID string, phrases []string) *Operation {
	now := time.Now()
	return &Operation{
		ID:        opID,
		AssetID:   assetID,
		Phrases:   slices.Clone(phrases),
		Status:    StatusValidating,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (o *Operation) TransitionTo(status Status) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.transitionLocked(status)
}

func (o *Operation) transitionLocked(status Status) error {
	if !canTransition(o.Status, status) {
		return ErrInvalidTransition
	}

	o.Status = status
	o.UpdatedAt = time.Now()
	if status == StatusDone || status == StatusFailed {
		o.CompletedAt = o.UpdatedAt
	}
	return nil
}

// Fail transitions the operation to FAILED, recording err and its kind.
// Missing phrases carried by err are copied onto the operation.
func (o *Operation) Fail(err error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if tErr := o.transitionLocked(StatusFailed); tErr != nil {
		return tErr
	}
	o.Error = err.Error()
	o.ErrorKind = Classify(err)

	var missing *MissingPhrasesError
	if errors.As(err, &missing) {
		o.MissingPhrases = slices.Clone(missing.Phrases)
	}
	return nil
}

// Complete transitions the operation from SPLICING to DONE.
func (o *Operation) Complete(trimmedRef string, newDuration float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.transitionLocked(StatusDone); err != nil {
		return err
	}
	o.TrimmedRef = trimmedRef
	o.NewDuration = newDuration
	return nil
}

// SetIntervals records the removal intervals.
func (o *Operation) SetIntervals(intervals []audio.Interval) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Intervals = slices.Clone(intervals)
	o.UpdatedAt = time.Now()
}

// SetOriginalDuration records the duration of the untrimmed recording.
func (o *Operation) SetOriginalDuration(seconds float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.OriginalDuration = seconds
}

// GetStatus returns the current status (thread-safe).
func (o *Operation) GetStatus() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.Status
}

// IsTerminal returns true if the operation is DONE or FAILED.
func (o *Operation) IsTerminal() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.Status == StatusDone || o.Status == StatusFailed
}

// Clone creates a deep copy of the operation for safe reads.
func (o *Operation) Clone() *Operation {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return &Operation{
		ID:               o.ID,
		AssetID:          o.AssetID,
		Phrases:          slices.Clone(o.Phrases),
		Matcher:          o.Matcher,
		Status:           o.Status,
		MissingPhrases:   slices.Clone(o.MissingPhrases),
		Intervals:        slices.Clone(o.Intervals),
		OriginalDuration: o.OriginalDuration,
		NewDuration:      o.NewDuration,
		TrimmedRef:       o.TrimmedRef,
		Error:            o.Error,
		ErrorKind:        o.ErrorKind,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		CompletedAt:      o.CompletedAt,
	}
}
