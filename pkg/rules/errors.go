package rules

import (
	"errors"
	"fmt"
)

// ErrorClass tells the scanner how far a failure is allowed to unwind.
type ErrorClass string

const (
	// ErrorClassSkip marks a failure confined to one rule or one candidate file.
	// The scan reports it and moves on.
	ErrorClassSkip ErrorClass = "skip"

	// ErrorClassFatal marks a failure that aborts the whole scan.
	ErrorClassFatal ErrorClass = "fatal"
)

// Error codes for programmatic handling.
const (
	ErrCodeReservedType        = "RESERVED_TYPE"
	ErrCodeDuplicateType       = "DUPLICATE_TYPE"
	ErrCodeMultiplePrimary     = "MULTIPLE_PRIMARY"
	ErrCodeInheritConflict     = "INHERIT_CONFLICT"
	ErrCodeInvalidRule         = "INVALID_RULE"
	ErrCodeSpawnFailed         = "SPAWN_FAILED"
	ErrCodeProbeTimeout        = "PROBE_TIMEOUT"
	ErrCodeProbeCancelled      = "PROBE_CANCELLED"
	ErrCodeReadFailed          = "READ_FAILED"
	ErrCodeMalformedMetadata   = "MALFORMED_METADATA"
	ErrCodeDirectoryUnreadable = "DIRECTORY_UNREADABLE"
)

// RuleError is a classified error raised while acquiring or storing rules.
type RuleError struct {
	// Class decides whether the scan continues.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is one of the ErrCode constants.
	Code string `json:"code,omitempty"`

	// Type is the resource type name involved, if known.
	Type string `json:"type,omitempty"`

	// Agent is the agent executable path involved, if known.
	Agent string `json:"agent,omitempty"`

	// Err is the underlying cause.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Class, e.Message)
	if e.Type != "" {
		msg += fmt.Sprintf(" (type=%s)", e.Type)
	}
	if e.Agent != "" {
		msg += fmt.Sprintf(" (agent=%s)", e.Agent)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *RuleError) Unwrap() error {
	return e.Err
}

// Is matches on class and code so sentinel-style comparisons work with errors.Is.
func (e *RuleError) Is(target error) bool {
	t, ok := target.(*RuleError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// WithType adds the resource type name to the error.
func (e *RuleError) WithType(typeName string) *RuleError {
	e.Type = typeName
	return e
}

// WithAgent adds the agent path to the error.
func (e *RuleError) WithAgent(path string) *RuleError {
	e.Agent = path
	return e
}

// NewSkipError creates an error that only discards the current rule or candidate.
func NewSkipError(code, message string, err error) *RuleError {
	return &RuleError{
		Class:   ErrorClassSkip,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewFatalError creates an error that aborts the scan.
func NewFatalError(code, message string, err error) *RuleError {
	return &RuleError{
		Class:   ErrorClassFatal,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsSkippable reports whether err only affects a single rule or candidate.
func IsSkippable(err error) bool {
	var e *RuleError
	if errors.As(err, &e) {
		return e.Class == ErrorClassSkip
	}
	return false
}

// IsFatal reports whether err aborts a scan.
func IsFatal(err error) bool {
	var e *RuleError
	if errors.As(err, &e) {
		return e.Class == ErrorClassFatal
	}
	return false
}

// HasCode reports whether err carries the given error code.
func HasCode(err error, code string) bool {
	var e *RuleError
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the error code carried by err, or "" if it is not a RuleError.
func CodeOf(err error) string {
	var e *RuleError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
