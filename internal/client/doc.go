// Package client is the REST side of the analysis server: submitting
// analyses, polling task status, and the watchlist and system configuration
// endpoints.
//
// Responses are normalized from snake_case to camelCase keys before they are
// decoded, so every type here uses camelCase JSON names. Request bodies are
// sent in the server's snake_case form.
//
// Failures are classified with errors.As:
//
//   - *DuplicateTaskError: a submission for a stock that already has a
//     pending or processing task (HTTP 409).
//   - *ConfigValidationError, *ConfigVersionConflictError: rejected system
//     configuration updates (HTTP 400 and 409).
//   - *HTTPError: any other non-2xx response.
//
// ErrInvalidRequest is returned before any network call when the request
// itself is invalid.
package client
