package normalizer

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/spokenform/internal/permute"
	"github.com/MrWong99/spokenform/internal/pipeline"
	"github.com/MrWong99/spokenform/pkg/tokens"
)

// ErrInvalidUTF8 is returned by NormalizeE for input that is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("normalizer: input is not valid UTF-8")

// Reason classifies why a text was returned unchanged.
type Reason string

const (
	// ReasonEmptyLattice means a grammar had no path for the text.
	ReasonEmptyLattice Reason = "empty_lattice"

	// ReasonParseError means the input or the tagged serialization could not
	// be parsed.
	ReasonParseError Reason = "parse_error"

	// ReasonBoundExceeded means one token had more field orders than the
	// configured bound. It points at a misconfigured bound.
	ReasonBoundExceeded Reason = "bound_exceeded"

	// ReasonCanceled means the context ended before the text was done.
	ReasonCanceled Reason = "canceled"

	// ReasonInternal covers everything else, recovered panics included.
	ReasonInternal Reason = "internal"
)

// StageError is the failure of one pipeline stage.
type StageError struct {
	Stage  string
	Reason Reason
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("normalizer: %s (%s): %v", e.Stage, e.Reason, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageError(stage string, err error) *StageError {
	var se *StageError
	if errors.As(err, &se) {
		return se
	}
	return &StageError{Stage: stage, Reason: reasonOf(err), Err: err}
}

func reasonOf(err error) Reason {
	switch {
	case errors.Is(err, pipeline.ErrEmptyLattice):
		return ReasonEmptyLattice
	case errors.Is(err, tokens.ErrParse), errors.Is(err, ErrInvalidUTF8):
		return ReasonParseError
	case errors.Is(err, permute.ErrBoundExceeded):
		return ReasonBoundExceeded
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCanceled
	default:
		return ReasonInternal
	}
}
