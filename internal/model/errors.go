package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMalformedResponse marks a model answer that could not be parsed.
	ErrMalformedResponse = errors.New("malformed model response")
	// ErrScoreOutOfRange marks a fit score outside 0-100.
	ErrScoreOutOfRange = errors.New("fit score out of range")
)

// HTTPError wraps an HTTP status code returned by a job board or model endpoint.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// RateLimited reports whether the response was a 429.
func (e *HTTPError) RateLimited() bool {
	return e.StatusCode == 429
}

// ParseRetryAfter reads a Retry-After header in its seconds form. Absent,
// negative or unparseable values yield zero.
func ParseRetryAfter(value string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
