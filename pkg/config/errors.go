package config

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidYAML reports an unparseable configuration file.
	ErrInvalidYAML = errors.New("invalid YAML syntax")

	// ErrValidationFailed reports a configuration that parsed but does not
	// describe a runnable deployment.
	ErrValidationFailed = errors.New("configuration validation failed")

	// ErrMissingRequiredField reports an empty field that must be set.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrInvalidValue reports a field whose value is out of range.
	ErrInvalidValue = errors.New("invalid field value")
)

// ValidationError carries the component and field a validation failure
// refers to, so the boot log points at the offending line.
type ValidationError struct {
	Component string
	Field     string
	Err       error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Component, e.Err)
	}
	return fmt.Sprintf("%s: field '%s': %v", e.Component, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError builds a ValidationError.
func NewValidationError(component, field string, err error) *ValidationError {
	return &ValidationError{Component: component, Field: field, Err: err}
}

// LoadError names the configuration file that could not be loaded.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.File, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// NewLoadError builds a LoadError.
func NewLoadError(file string, err error) *LoadError {
	return &LoadError{File: file, Err: err}
}
