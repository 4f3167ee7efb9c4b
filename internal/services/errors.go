package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers used to classify failures across the orchestrator.
var (
	// ErrStageFailure marks a nonzero exit from a stage executor.
	ErrStageFailure = errors.New("stage failure")
	// ErrTimeout marks a job that exceeded its wall-clock ceiling.
	ErrTimeout = errors.New("timeout")
	// ErrStopped marks an operator-initiated stop of the active stage.
	ErrStopped = errors.New("stopped")
	// ErrCorruptRecord marks a job record that could not be parsed.
	ErrCorruptRecord = errors.New("corrupt record")
	// ErrConfiguration marks missing or invalid configuration, rejected before work begins.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation marks input that failed a submission-time check.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a missing job or record.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks failures that are safe to retry.
	ErrTransient = errors.New("transient failure")
)

// Kind identifies the classification bucket of a wrapped error.
type Kind string

const (
	KindStageFailure  Kind = "stage_failure"
	KindTimeout       Kind = "timeout"
	KindStopped       Kind = "stopped"
	KindCorruptRecord Kind = "corrupt_record"
	KindConfiguration Kind = "configuration"
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindTransient     Kind = "transient"
)

// ErrorDetails carries the structured view of a wrapped error for logging
// and persistence.
type ErrorDetails struct {
	Kind    Kind
	Stage   string
	Message string
	Cause   error
}

type taggedError struct {
	marker error
	stage  string
	detail string
	cause  error
}

func (e *taggedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.marker.Error(), e.detail, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.marker.Error(), e.detail)
}

func (e *taggedError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.marker, e.cause}
	}
	return []error{e.marker}
}

// Wrap builds an error that includes stage context while tagging it with the
// provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &taggedError{
		marker: marker,
		stage:  stage,
		detail: buildDetail(stage, operation, message),
		cause:  err,
	}
}

// Details extracts the structured classification from an error produced by
// Wrap. Unwrapped errors classify as transient with the error text as message.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{Kind: KindTransient}
	}
	var tagged *taggedError
	if errors.As(err, &tagged) {
		return ErrorDetails{
			Kind:    kindOf(tagged.marker),
			Stage:   tagged.stage,
			Message: tagged.detail,
			Cause:   tagged.cause,
		}
	}
	return ErrorDetails{Kind: kindOf(err), Message: err.Error(), Cause: err}
}

func kindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrStageFailure):
		return KindStageFailure
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrStopped):
		return KindStopped
	case errors.Is(err, ErrCorruptRecord):
		return KindCorruptRecord
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindTransient
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
