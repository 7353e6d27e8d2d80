package synthesis

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. Every kind is terminal for the
// invocation that raised it; nothing is retried.
type Kind string

const (
	// KindExtractionIncomplete: a required field (role or techstack) was
	// missing after structured extraction.
	KindExtractionIncomplete Kind = "ExtractionIncomplete"
	// KindInvalidFieldValue: an extracted field was malformed or out of
	// range. Rejected rather than clamped.
	KindInvalidFieldValue Kind = "InvalidFieldValue"
	// KindGenerationFailed: a free-form generation call failed or returned
	// an unusable result.
	KindGenerationFailed Kind = "GenerationFailed"
	// KindScoringFailed: the rubric-scoring call failed or its result did
	// not validate against the feedback shape.
	KindScoringFailed Kind = "ScoringFailed"
	// KindServiceTimeout: an external call exceeded its bound.
	KindServiceTimeout Kind = "ServiceTimeout"
	// KindPersistenceFailed: the document store rejected a read or write.
	KindPersistenceFailed Kind = "PersistenceFailed"
)

// Error wraps a pipeline failure with its kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func failf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the failure kind from err, or "" if err carries none.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
