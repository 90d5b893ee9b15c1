package fetch

import (
	"errors"
	"fmt"
)

// ErrRequestFailed wraps transport-level failures (timeouts, connection
// resets, DNS errors) after all retries are exhausted.
var ErrRequestFailed = errors.New("request failed after retries")

// StatusError reports a non-success HTTP status. Terminal statuses are
// surfaced immediately; retryable ones only after the retry budget is
// spent.
type StatusError struct {
	// URL is the request URL.
	URL string

	// Code is the HTTP status code.
	Code int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.Code, e.URL)
}

// Terminal reports whether the status should never be retried.
// 400/401/403/404/410 indicate the request itself is wrong or the
// resource is permanently unavailable; retrying cannot help.
func (e *StatusError) Terminal() bool {
	return isTerminalStatus(e.Code)
}

// isTerminalStatus reports whether code is in the never-retry set.
func isTerminalStatus(code int) bool {
	switch code {
	case 400, 401, 403, 404, 410:
		return true
	}
	return false
}

// RobotsDisallowedError reports that robots.txt forbids fetching the
// URL for the configured user agent. Crawls treat it as a soft skip;
// direct single-URL requests surface it to the caller.
type RobotsDisallowedError struct {
	// URL is the disallowed URL.
	URL string

	// UserAgent is the agent the ruleset was evaluated for.
	UserAgent string
}

// Error implements the error interface.
func (e *RobotsDisallowedError) Error() string {
	return fmt.Sprintf("robots.txt disallows %s for agent %q", e.URL, e.UserAgent)
}
