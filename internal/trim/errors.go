package trim

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sid-Veeravalli/trim-pro/internal/audio"
)

// Kind classifies an error for callers that map failures to responses.
type Kind int

const (
	// KindInternal covers engine, codec and storage failures.
	KindInternal Kind = iota
	// KindValidation covers requests that can never succeed as sent.
	KindValidation
	// KindNotFound covers unknown assets, trims and operations.
	KindNotFound
	// KindConflict covers requests whose matched segments overlap.
	KindConflict
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Sentinel errors returned by Service.
var (
	// ErrNoPhrases is returned when a trim request carries no phrases.
	ErrNoPhrases = errors.New("trim: no phrases provided to delete")
	// ErrEmptyUpload is returned when an upload has no bytes.
	ErrEmptyUpload = errors.New("trim: uploaded file is empty")
	// ErrUnsupportedAudio is returned when an upload cannot be read as audio.
	ErrUnsupportedAudio = errors.New("trim: unsupported audio format")
	// ErrAssetNotFound is returned for unknown asset identifiers.
	ErrAssetNotFound = errors.New("trim: audio file not found")
	// ErrTrimNotFound is returned when an asset has never been trimmed.
	ErrTrimNotFound = errors.New("trim: trimmed audio file not found")
	// ErrOperationNotFound is returned when an operation cannot be found by ID.
	ErrOperationNotFound = errors.New("trim: operation not found")
)

// MissingPhrasesError lists every requested phrase that matched no segment.
type MissingPhrasesError struct {
	Phrases []string
	// Strategy names the matcher that ran. Empty when unknown.
	Strategy string
}

func (e *MissingPhrasesError) Error() string {
	return fmt.Sprintf("trim: some phrases are not found as %s in the transcription: %s",
		e.matchKind(), strings.Join(quoteAll(e.Phrases), ", "))
}

// Message is the client-facing sentence for the error.
func (e *MissingPhrasesError) Message() string {
	return fmt.Sprintf("Some phrases are not found as %s in the transcription.", e.matchKind())
}

func (e *MissingPhrasesError) matchKind() string {
	if e.Strategy == "" {
		return "matches"
	}
	return e.Strategy + " matches"
}

// IntervalConflictError reports two matched segments whose time ranges overlap.
// Splicing them would remove audio twice, so the trim is refused.
type IntervalConflictError struct {
	Earlier audio.Interval
	Later   audio.Interval
}

func (e *IntervalConflictError) Error() string {
	return fmt.Sprintf("trim: matched segments overlap: %s and %s", e.Earlier, e.Later)
}

// Classify maps err to its Kind. Unknown and nil errors are KindInternal.
func Classify(err error) Kind {
	var missing *MissingPhrasesError
	var conflict *IntervalConflictError

	switch {
	case errors.As(err, &missing),
		errors.Is(err, ErrNoPhrases),
		errors.Is(err, ErrEmptyUpload),
		errors.Is(err, ErrUnsupportedAudio):
		return KindValidation
	case errors.As(err, &conflict):
		return KindConflict
	case errors.Is(err, ErrAssetNotFound),
		errors.Is(err, ErrTrimNotFound),
		errors.Is(err, ErrOperationNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
