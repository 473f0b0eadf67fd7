package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"time"
)

// Error types for the file search subsystem
type ErrorType string

const (
	// Request errors
	ErrorTypeParse ErrorType = "parse"
	ErrorTypeScope ErrorType = "scope"

	// File errors
	ErrorTypeScan         ErrorType = "scan"
	ErrorTypeFileNotFound ErrorType = "file_not_found"
	ErrorTypePermission   ErrorType = "permission"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// ParseError reports a recognized filter or request parameter whose value
// cannot be interpreted. It aborts the request and maps to a client error.
type ParseError struct {
	Type       ErrorType
	Key        string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewParseError creates a new parse error for key=value
func NewParseError(key, value string, err error) *ParseError {
	return &ParseError{
		Type:       ErrorTypeParse,
		Key:        key,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid value %q for %s: %v", e.Value, e.Key, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Underlying
}

// ScopeError reports a search scope that does not resolve to an accessible
// directory inside the workspace.
type ScopeError struct {
	Type       ErrorType
	Location   string
	Path       string
	Underlying error
	Timestamp  time.Time
}

// NewScopeError creates a new scope error
func NewScopeError(location, path string, err error) *ScopeError {
	return &ScopeError{
		Type:       ErrorTypeScope,
		Location:   location,
		Path:       path,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ScopeError) Error() string {
	if e.Path != "" && e.Path != e.Location {
		return fmt.Sprintf("scope %s (%s) is not searchable: %v", e.Location, e.Path, e.Underlying)
	}
	return fmt.Sprintf("scope %s is not searchable: %v", e.Location, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ScopeError) Unwrap() error {
	return e.Underlying
}

// ScanError reports a single file that could not be read. It never aborts a
// search; the file is dropped and the error kept as a diagnostic.
type ScanError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewScanError creates a new scan error
func NewScanError(op, path string, err error) *ScanError {
	errorType := ErrorTypeScan
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		errorType = ErrorTypeFileNotFound
	case stderrors.Is(err, fs.ErrPermission):
		errorType = ErrorTypePermission
	}

	return &ScanError{
		Type:       errorType,
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ScanError) Error() string {
	return fmt.Sprintf("%s %s failed for %s: %v", e.Type, e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ScanError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error
func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// ErrOrNil returns nil when no errors were collected
func (e *MultiError) ErrOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}

// IsClientError reports whether err was caused by a malformed request.
func IsClientError(err error) bool {
	var pe *ParseError
	return stderrors.As(err, &pe)
}

// IsScopeError reports whether err was caused by an unresolvable scope.
func IsScopeError(err error) bool {
	var se *ScopeError
	return stderrors.As(err, &se)
}
