package github

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ResponseError is a non-2xx answer from the Contents API.
type ResponseError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *ResponseError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("github %s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("github %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// IsConflict reports a rejected write because the supplied SHA is stale.
// GitHub answers 409 for a mismatch and 422 when a SHA was required but
// missing (the file appeared after we read it).
func (e *ResponseError) IsConflict() bool {
	switch e.StatusCode {
	case http.StatusConflict:
		return true
	case http.StatusUnprocessableEntity:
		return e.Method == http.MethodPut && strings.Contains(strings.ToLower(e.Message), "sha")
	}
	return false
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var re *ResponseError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}
