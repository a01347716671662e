package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Connection errors (1xxx)
	ErrCodeConnectionFailed     ErrorCode = "ODE1001"
	ErrCodeConnectionTimeout    ErrorCode = "ODE1002"
	ErrCodeAuthenticationFailed ErrorCode = "ODE1003"

	// Configuration errors (2xxx)
	ErrCodeConfigNotFound ErrorCode = "ODE2001"
	ErrCodeConfigInvalid  ErrorCode = "ODE2002"
	ErrCodeConfigMissing  ErrorCode = "ODE2003"

	// Source errors (3xxx)
	ErrCodeSourceUnavailable ErrorCode = "ODE3001"
	ErrCodeSourceFormat      ErrorCode = "ODE3002"
	ErrCodeMissingColumn     ErrorCode = "ODE3003"

	// Query errors (4xxx)
	ErrCodeSQLExecution ErrorCode = "ODE4001"
	ErrCodeSQLPermission ErrorCode = "ODE4002"
	ErrCodeSQLTimeout   ErrorCode = "ODE4003"
	ErrCodeResultScan   ErrorCode = "ODE4004"

	// File system errors (5xxx)
	ErrCodeFileNotFound  ErrorCode = "ODE5001"
	ErrCodeFileOperation ErrorCode = "ODE5002"

	// Validation errors (6xxx)
	ErrCodeValidationFailed ErrorCode = "ODE6001"
	ErrCodeInvalidInput     ErrorCode = "ODE6002"

	// Export errors (7xxx)
	ErrCodeExportFailed ErrorCode = "ODE7001"
	ErrCodeUploadFailed ErrorCode = "ODE7002"

	// System errors (9xxx)
	ErrCodeInternal ErrorCode = "ODE9001"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL" // System failure, requires immediate attention
	SeverityError    ErrorSeverity = "ERROR"    // Operation failed, but system continues
	SeverityWarning  ErrorSeverity = "WARNING"  // Operation succeeded with issues
	SeverityInfo     ErrorSeverity = "INFO"     // Informational, not an error
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
	Recoverable bool
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another AppError by code
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  SeverityError,
		Context:   make(map[string]interface{}),
		Stack:     captureStack(),
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	// Inherit context from a wrapped AppError
	var inner *AppError
	if errors.As(err, &inner) {
		for k, v := range inner.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// AsRecoverable marks the error as recoverable
func (e *AppError) AsRecoverable() *AppError {
	e.Recoverable = true
	return e
}

func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			b.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return b.String()
}

// Common error constructors

// ConnectionError creates a connection-related error
func ConnectionError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeConnectionFailed, message).
		WithSuggestions(
			"Check your network connection",
			"Verify the Snowflake account identifier",
			"Check that the configured warehouse is running",
		)
}

// ConfigError creates a configuration-related error
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSuggestions(
			fmt.Sprintf("Check the '%s' configuration value", field),
			"Run 'orderdash config init' to write a starter config",
		)
}

// SQLError creates a query execution error
func SQLError(message string, query string, cause error) *AppError {
	err := Wrap(cause, ErrCodeSQLExecution, message).
		WithContext("query", truncateString(query, 200))

	errStr := strings.ToLower(message)
	if cause != nil {
		errStr += " " + strings.ToLower(cause.Error())
	}

	if strings.Contains(errStr, "permission") || strings.Contains(errStr, "access denied") {
		err.Code = ErrCodeSQLPermission
		_ = err.WithSuggestions(
			"Check that the role can read the orders table",
			"Contact your Snowflake administrator",
		)
	} else if strings.Contains(errStr, "timeout") {
		err.Code = ErrCodeSQLTimeout
		_ = err.WithSuggestions(
			"Increase snowflake.timeout",
			"Check Snowflake warehouse size",
		)
	}

	return err
}

// ValidationError creates a validation error
func ValidationError(field string, value interface{}, reason string) *AppError {
	return New(ErrCodeValidationFailed, fmt.Sprintf("Validation failed for %s: %s", field, reason)).
		WithContext("field", field).
		WithContext("value", value).
		WithSeverity(SeverityWarning)
}

// SourceError marks a failure to retrieve the orders table
func SourceError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeSourceUnavailable, message).
		WithSuggestions("Check that the configured source is reachable")
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Recoverable
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// As is errors.As from the standard library
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	return errors.Is(err, &AppError{Code: code})
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
