package domain

import (
	"errors"
	"fmt"
)

// ErrValidation is matched by every *ValidationError through errors.Is.
var ErrValidation = errors.New("trade record validation failed")

// ValidationError identifies the TradeRecord field that violated an invariant.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is lets callers test for ErrValidation without knowing the field.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
