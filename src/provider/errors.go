package provider

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrAuthFailed     = errors.New("authentication failed")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrRateLimited    = errors.New("rate limited")
	ErrNetworkTimeout = errors.New("network timeout")
)

// RateLimitError is returned when the platform refused a call because the
// quota is exhausted.
type RateLimitError struct {
	RateLimit
	Message string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (%d/%d used, resets %s): %s",
		e.Used, e.Limit, e.Reset.Format(time.RFC3339), e.Message)
}

// Is makes errors.Is(err, ErrRateLimited) match.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// StatusError is a non-success HTTP response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GitHub API error %d: %s", e.Code, e.Body)
}

// Unwrap maps response codes onto the package sentinels.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthFailed
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return ErrConflict
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return ErrNetworkTimeout
	default:
		return nil
	}
}

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WrapError converts API errors to user-friendly messages
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrInvalidRepository) {
		return &UserError{
			Message: "Invalid repository",
			Hint:    "Supported formats:\n  - owner/name\n  - https://github.com/owner/name\n  - git@github.com:owner/name.git",
			Err:     err,
		}
	}

	if errors.Is(err, ErrAuthFailed) {
		return &UserError{
			Message: "Authentication failed",
			Hint:    "Check that GITHUB_TOKEN is valid and has repo and status permissions.",
			Err:     err,
		}
	}

	if errors.Is(err, ErrNotFound) {
		return &UserError{
			Message: "Repository or resource not found",
			Hint:    "Check the repository name and that the token has access to it.",
			Err:     err,
		}
	}

	var rl *RateLimitError
	if errors.As(err, &rl) {
		return &UserError{
			Message: "GitHub rate limit exhausted",
			Hint:    fmt.Sprintf("The quota resets at %s.", rl.Reset.Format(time.RFC1123)),
			Err:     err,
		}
	}

	return err
}
