package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable marks transport failures talking to the API.
var ErrUnavailable = errors.New("upstream unavailable")

// Result is the {success, data, errors} envelope every endpoint returns.
type Result[T any] struct {
	Success bool     `json:"success"`
	Data    T        `json:"data"`
	Errors  []string `json:"errors,omitempty"`
}

// Unwrap returns the payload or an *APIError when the envelope reports failure.
func (r Result[T]) Unwrap(path string) (T, error) {
	if !r.Success {
		var zero T
		return zero, &APIError{Path: path, Messages: r.Errors}
	}
	return r.Data, nil
}

// APIError is returned when the API answers with success=false or an error status.
type APIError struct {
	Path     string
	Status   int
	Messages []string
}

func (e *APIError) Error() string {
	msg := "request failed"
	if len(e.Messages) > 0 {
		msg = strings.Join(e.Messages, "; ")
	}
	if e.Status > 0 {
		return fmt.Sprintf("upstream: %s: status %d: %s", e.Path, e.Status, msg)
	}
	return fmt.Sprintf("upstream: %s: %s", e.Path, msg)
}

// IsUnauthorized reports whether the API rejected the caller's token.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == 401 || apiErr.Status == 403
	}
	return false
}

func decodeEnvelope[T any](path string, body []byte) (T, error) {
	var env Result[T]
	if err := json.Unmarshal(body, &env); err != nil {
		var zero T
		return zero, fmt.Errorf("upstream: %s: decode envelope: %w", path, err)
	}
	return env.Unwrap(path)
}
