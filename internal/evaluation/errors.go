package evaluation

import (
	"errors"
	"fmt"

	"github.com/noah-isme/essay-eval-api/internal/models"
)

// ErrEncoding marks a submission whose characters cannot be transported to
// the model boundary.
var ErrEncoding = errors.New("submission contains unsupported characters")

// ErrParseFailure marks a model response that violated the expected result
// schema. It escalates exactly like a call failure; scores are never clamped
// into range.
var ErrParseFailure = errors.New("model response failed schema validation")

// ValidationError is returned when a submission fails the pre-processing
// gate. It never reaches a model call. Cause, when set, carries the
// underlying failure class (e.g. ErrEncoding).
type ValidationError struct {
	Reason string
	Result models.PreProcessResult
	Cause  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("submission rejected: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}
