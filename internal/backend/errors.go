package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrBadPayload marks a 2xx response whose body was not the JSON the contract
// promises. Callers treat it as "no data" and log it; it must never crash a view.
var ErrBadPayload = errors.New("backend: response body is not valid JSON")

// APIError is a structured non-2xx backend response. Message carries the
// backend-provided text when the body had one, else the HTTP status text.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: %s (status %d)", e.Message, e.Status)
}

// newAPIError reads the error body, preferring the contract's {message} field.
func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	if !isJSON(resp.Header.Get("Content-Type")) {
		return apiErr
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apiErr
	}
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		apiErr.Message = payload.Message
	}
	return apiErr
}

// IsUnauthorized reports whether err is a 401/403 backend rejection, which
// callers must answer by clearing the local session and redirecting to login.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
	}
	return false
}

// ErrorMessage extracts a user-facing message from a backend error, falling
// back to a generic line for transport failures so raw Go errors never reach
// the page.
func ErrorMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
