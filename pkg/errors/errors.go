// Package errors provides a structured error system for photovariant with error codes, categories, and context.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode represents a structured error code for pipeline operations.
type ErrorCode string

// Error code constants grouped by category.
const (
	// Configuration Errors
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrCodeMissingConfig ErrorCode = "MISSING_CONFIG"
	ErrCodeConfigLoad    ErrorCode = "CONFIG_LOAD"

	// Storage Backend Errors
	ErrCodeObjectNotFound ErrorCode = "OBJECT_NOT_FOUND"
	ErrCodeBucketNotFound ErrorCode = "BUCKET_NOT_FOUND"
	ErrCodeStorageRead    ErrorCode = "STORAGE_READ"
	ErrCodeStorageWrite   ErrorCode = "STORAGE_WRITE"
	ErrCodeStorageList    ErrorCode = "STORAGE_LIST"
	ErrCodeAccessDenied   ErrorCode = "ACCESS_DENIED"
	ErrCodeUnavailable    ErrorCode = "BACKEND_UNAVAILABLE"

	// Image Errors
	ErrCodeDecodeFailed  ErrorCode = "DECODE_FAILED"
	ErrCodeEncodeFailed  ErrorCode = "ENCODE_FAILED"
	ErrCodeImageNotFound ErrorCode = "IMAGE_NOT_FOUND"

	// Metadata Errors
	ErrCodeMetadataLoad  ErrorCode = "METADATA_LOAD"
	ErrCodeMetadataParse ErrorCode = "METADATA_PARSE"

	// Internal System Errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorCategory represents the general category of an error.
type ErrorCategory string

const (
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryStorage       ErrorCategory = "storage"
	CategoryImage         ErrorCategory = "image"
	CategoryMetadata      ErrorCategory = "metadata"
	CategoryInternal      ErrorCategory = "internal"
)

// PipelineError represents a structured error with context and metadata.
type PipelineError struct {
	Code     ErrorCode         `json:"code"`
	Category ErrorCategory     `json:"category"`
	Message  string            `json:"message"`
	Context  map[string]string `json:"context,omitempty"`
	Cause    error             `json:"-"`

	Timestamp time.Time `json:"timestamp"`
	Component string    `json:"component,omitempty"`
	Operation string    `json:"operation,omitempty"`

	HTTPStatus int `json:"http_status,omitempty"`
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Component != "" {
		if e.Operation != "" {
			return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Code, msg)
		}
		return fmt.Sprintf("[%s] %s: %s", e.Component, e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause error for error wrapping compatibility.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is matches another PipelineError by code.
func (e *PipelineError) Is(target error) bool {
	if other, ok := target.(*PipelineError); ok {
		return e.Code == other.Code
	}
	return false
}

// String returns a detailed string representation for logging.
func (e *PipelineError) String() string {
	parts := []string{
		fmt.Sprintf("Code=%s", e.Code),
		fmt.Sprintf("Category=%s", e.Category),
		fmt.Sprintf("Message=%q", e.Message),
	}
	if e.Component != "" {
		parts = append(parts, fmt.Sprintf("Component=%s", e.Component))
	}
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("Operation=%s", e.Operation))
	}
	if len(e.Context) > 0 {
		ctx, _ := json.Marshal(e.Context)
		parts = append(parts, fmt.Sprintf("Context=%s", ctx))
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause=%q", e.Cause.Error()))
	}
	return fmt.Sprintf("PipelineError{%s}", strings.Join(parts, ", "))
}

// NewError creates a new error with defaults derived from its code.
func NewError(code ErrorCode, message string) *PipelineError {
	return &PipelineError{
		Code:       code,
		Category:   GetCategory(code),
		Message:    message,
		Context:    make(map[string]string),
		Timestamp:  time.Now(),
		HTTPStatus: GetDefaultHTTPStatus(code),
	}
}

// Newf creates a new error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *PipelineError {
	return NewError(code, fmt.Sprintf(format, args...))
}

// Wrap creates a new error with the given cause.
func Wrap(cause error, code ErrorCode, message string) *PipelineError {
	return NewError(code, message).WithCause(cause)
}

// GetCategory determines the category based on the error code.
func GetCategory(code ErrorCode) ErrorCategory {
	switch code {
	case ErrCodeInvalidConfig, ErrCodeMissingConfig, ErrCodeConfigLoad:
		return CategoryConfiguration
	case ErrCodeObjectNotFound, ErrCodeBucketNotFound, ErrCodeStorageRead,
		ErrCodeStorageWrite, ErrCodeStorageList, ErrCodeAccessDenied, ErrCodeUnavailable:
		return CategoryStorage
	case ErrCodeDecodeFailed, ErrCodeEncodeFailed, ErrCodeImageNotFound:
		return CategoryImage
	case ErrCodeMetadataLoad, ErrCodeMetadataParse:
		return CategoryMetadata
	default:
		return CategoryInternal
	}
}

// GetDefaultHTTPStatus returns the default HTTP status for an error code.
func GetDefaultHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidConfig, ErrCodeMissingConfig:
		return http.StatusBadRequest
	case ErrCodeAccessDenied:
		return http.StatusForbidden
	case ErrCodeObjectNotFound, ErrCodeBucketNotFound, ErrCodeImageNotFound:
		return http.StatusNotFound
	case ErrCodeStorageRead, ErrCodeStorageWrite, ErrCodeStorageList:
		return http.StatusBadGateway
	case ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WithContext adds contextual information to an error
func (e *PipelineError) WithContext(key, value string) *PipelineError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithComponent sets the component for an error
func (e *PipelineError) WithComponent(component string) *PipelineError {
	e.Component = component
	return e
}

// WithOperation sets the operation for an error
func (e *PipelineError) WithOperation(operation string) *PipelineError {
	e.Operation = operation
	return e
}

// WithCause sets the underlying cause
func (e *PipelineError) WithCause(cause error) *PipelineError {
	e.Cause = cause
	return e
}

// CodeOf returns the code of the first PipelineError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var pe *PipelineError
	if stderrors.As(err, &pe) {
		return pe.Code, true
	}
	return "", false
}

// HasCode reports whether err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	var pe *PipelineError
	for e := err; e != nil; {
		if !stderrors.As(e, &pe) {
			return false
		}
		if pe.Code == code {
			return true
		}
		e = pe.Cause
	}
	return false
}

// IsNotFound reports whether err describes a missing object or catalog image.
func IsNotFound(err error) bool {
	return HasCode(err, ErrCodeObjectNotFound) || HasCode(err, ErrCodeImageNotFound)
}

// HTTPStatusOf maps err to a response status.
func HTTPStatusOf(err error) int {
	var pe *PipelineError
	if stderrors.As(err, &pe) && pe.HTTPStatus != 0 {
		return pe.HTTPStatus
	}
	return http.StatusInternalServerError
}
