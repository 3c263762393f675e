package encoding

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package matches exactly one of
// them through errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrState         = errors.New("state error")
	ErrData          = errors.New("data error")
)

// ErrNotFitted is returned when the learned state is read before a
// successful Fit.
var ErrNotFitted = fmt.Errorf("%w: encoder has not been fitted, call Fit first", ErrState)

// ValidationError reports malformed fit input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field=%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConfigError reports an encoder parameter that cannot be used.
type ConfigError struct {
	Param  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s=%v: %s", e.Param, e.Value, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// DataError reports target values the statistics cannot be computed from.
type DataError struct {
	Reason string
}

func (e *DataError) Error() string {
	return "data error: " + e.Reason
}

func (e *DataError) Is(target error) bool { return target == ErrData }

// Kind returns a short label for the error kind, used as a metric label.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrState):
		return "state"
	case errors.Is(err, ErrData):
		return "data"
	default:
		return "unknown"
	}
}
