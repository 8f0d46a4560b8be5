package common

import (
	"errors"
	"fmt"
)

// Common error types used across collator packages
var (
	ErrEmptyBatch       = errors.New("batch contains no examples")
	ErrLengthMismatch   = errors.New("labels and ids differ in length")
	ErrMissingSpecialID = errors.New("required special token id is not configured")
)

// ConfigurationError reports a setting that makes collation impossible.
// It is fatal: callers must abort instead of producing malformed tensors.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewConfigurationError builds a ConfigurationError for field.
func NewConfigurationError(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}

// MissingSpecialToken reports an unset special token id required by field.
func MissingSpecialToken(field string) error {
	return &ConfigurationError{Field: field, Reason: "special token id is unset", Err: ErrMissingSpecialID}
}

// IsConfigurationError reports whether err carries a ConfigurationError
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
