package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common client errors.
var (
	// ErrInvalidConfig is returned by New when the API configuration is unusable.
	ErrInvalidConfig = errors.New("invalid client configuration")

	// ErrInvalidRequest is returned before any network call when a request
	// fails validation. The wrapped error carries the validator details.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidResponse is returned when a successful response body cannot
	// be decoded.
	ErrInvalidResponse = errors.New("invalid response from analysis server")
)

// DefaultDuplicateMessage is used when a conflict response carries no message.
const DefaultDuplicateMessage = "analysis already in progress"

// HTTPError is a non-2xx response from the server.
type HTTPError struct {
	StatusCode int
	Method     string
	Path       string
	Body       []byte
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if detail := e.Message(); detail != "" {
		msg += ": " + detail
	}
	return msg
}

// Message returns the server's human readable message, if the body has one.
func (e *HTTPError) Message() string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if decodeErrorBody(e.Body, &payload) {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(e.Body))
}

// DuplicateTaskError means the server refused a submission because an
// analysis for the same stock is already pending or processing.
type DuplicateTaskError struct {
	StockCode      string
	ExistingTaskID string
	Message        string
}

// Error implements the error interface.
func (e *DuplicateTaskError) Error() string {
	if e.ExistingTaskID == "" {
		return fmt.Sprintf("%s: %s", e.StockCode, e.Message)
	}
	return fmt.Sprintf("%s: %s (task %s)", e.StockCode, e.Message, e.ExistingTaskID)
}

// ConfigValidationIssue describes one rejected system configuration value.
type ConfigValidationIssue struct {
	Key      string `json:"key"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

// ConfigValidationError is returned when the server rejects a system
// configuration update with 400.
type ConfigValidationError struct {
	Issues []ConfigValidationIssue
}

// Error implements the error interface.
func (e *ConfigValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "system configuration validation failed"
	}
	keys := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		keys = append(keys, issue.Key)
	}
	return fmt.Sprintf("system configuration validation failed: %s", strings.Join(keys, ", "))
}

// ConfigVersionConflictError is returned when the server's configuration
// changed since the version the update was based on.
type ConfigVersionConflictError struct {
	CurrentConfigVersion string
}

// Error implements the error interface.
func (e *ConfigVersionConflictError) Error() string {
	return fmt.Sprintf("system configuration version conflict (current version %q)", e.CurrentConfigVersion)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}
