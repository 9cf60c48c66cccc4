package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the module.
type ErrorCode string

// Generation error codes
const (
	ErrValidation    ErrorCode = "VALIDATION"
	ErrConfiguration ErrorCode = "CONFIGURATION"
	ErrUpstreamError ErrorCode = "UPSTREAM_ERROR"
	ErrStream        ErrorCode = "STREAM_ERROR"
	ErrBusy          ErrorCode = "BUSY"
	ErrNoImage       ErrorCode = "NO_IMAGE"
	ErrStorage       ErrorCode = "STORAGE"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewValidationError reports bad user input. Never retried automatically.
func NewValidationError(message string) *Error {
	return &Error{Code: ErrValidation, Message: message}
}

// NewConfigurationError reports a missing or unusable configuration, e.g. no credential.
func NewConfigurationError(message string) *Error {
	return &Error{Code: ErrConfiguration, Message: message}
}

// NewTransportError wraps a failed request/response call. message is the upstream text, kept verbatim.
func NewTransportError(message string, status int) *Error {
	return &Error{Code: ErrUpstreamError, Message: message, HTTPStatus: status}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var se *StreamError
	if errors.As(err, &se) {
		return ErrStream
	}
	return ""
}

// UserMessage returns the text shown to the user for err.
// Structured errors show their message only, stream errors use Display.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *StreamError
	if errors.As(err, &se) {
		return se.Display()
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// StreamError is the error value delivered by a streaming session.
// Structured errors carry an upstream code/message pair, plain ones only a text.
type StreamError struct {
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
	Structured bool   `json:"-"`
}

// NewStreamError builds a structured stream error.
func NewStreamError(code, message string) *StreamError {
	return &StreamError{Code: code, Message: message, Structured: true}
}

// NewPlainStreamError builds a stream error from a flat value.
func NewPlainStreamError(v any) *StreamError {
	return &StreamError{Message: fmt.Sprint(v)}
}

func (e *StreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s: %s", ErrStream, e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s", ErrStream, e.Message)
}

// Display renders the error the way the UI shows it: message plus code line
// when structured, the flat string otherwise.
func (e *StreamError) Display() string {
	if !e.Structured {
		return e.Message
	}
	msg := e.Message
	if msg == "" {
		msg = "unknown error"
	}
	out := "image generation failed: " + msg
	if e.Code != "" {
		out += "\nerror code: " + e.Code
	}
	return out
}
