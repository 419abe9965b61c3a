package api

import "fmt"

// HTTPError is a non-2xx response from the backend, carrying the
// human-readable message from its {"detail": ...} error body when present.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.StatusCode)
}

// errorBody matches the FastAPI-style error payload of the backend.
type errorBody struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}
