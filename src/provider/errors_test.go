package provider

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestWrapError_InvalidRepository(t *testing.T) {
	err := fmt.Errorf("%w: %q", ErrInvalidRepository, "nope")
	wrapped := WrapError(err)

	userErr, ok := wrapped.(*UserError)
	if !ok {
		t.Fatalf("WrapError() returned %T, want *UserError", wrapped)
	}
	if userErr.Message != "Invalid repository" {
		t.Errorf("Message = %q, want %q", userErr.Message, "Invalid repository")
	}
	if !strings.Contains(userErr.Hint, "owner/name") {
		t.Errorf("Hint should contain 'owner/name', got %q", userErr.Hint)
	}
	if !errors.Is(wrapped, ErrInvalidRepository) {
		t.Error("errors.Is(wrapped, ErrInvalidRepository) = false, want true")
	}
}

func TestWrapError_AuthFailed(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "sentinel", err: ErrAuthFailed},
		{name: "wrapped sentinel", err: fmt.Errorf("request failed: %w", ErrAuthFailed)},
		{name: "401 response", err: &StatusError{Code: 401, Body: "Bad credentials"}},
		{name: "403 response", err: &StatusError{Code: 403, Body: "Resource not accessible"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userErr, ok := WrapError(tt.err).(*UserError)
			if !ok {
				t.Fatalf("WrapError() did not return *UserError")
			}
			if userErr.Message != "Authentication failed" {
				t.Errorf("Message = %q, want %q", userErr.Message, "Authentication failed")
			}
			if !strings.Contains(userErr.Hint, "GITHUB_TOKEN") {
				t.Errorf("Hint should contain 'GITHUB_TOKEN', got %q", userErr.Hint)
			}
		})
	}
}

func TestWrapError_NotFound(t *testing.T) {
	wrapped := WrapError(&StatusError{Code: 404, Body: "Not Found"})
	userErr, ok := wrapped.(*UserError)
	if !ok {
		t.Fatalf("WrapError() returned %T, want *UserError", wrapped)
	}
	if !strings.Contains(userErr.Hint, "repository name") {
		t.Errorf("Hint = %q", userErr.Hint)
	}
	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("errors.Is(wrapped, ErrNotFound) = false, want true")
	}
}

func TestWrapError_RateLimit(t *testing.T) {
	err := &RateLimitError{RateLimit: RateLimit{Limit: 5000, Used: 5000, Reset: time.Now().Add(time.Minute)}}
	wrapped := WrapError(fmt.Errorf("list branches: %w", err))

	if _, ok := wrapped.(*UserError); !ok {
		t.Fatalf("WrapError() returned %T, want *UserError", wrapped)
	}
	if !errors.Is(wrapped, ErrRateLimited) {
		t.Error("errors.Is(wrapped, ErrRateLimited) = false, want true")
	}
}

func TestWrapError_OtherErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "network timeout", err: ErrNetworkTimeout},
		{name: "generic error", err: errors.New("something went wrong")},
		{name: "500 response", err: &StatusError{Code: 500, Body: "boom"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := WrapError(tt.err)
			if wrapped != tt.err {
				t.Errorf("WrapError() = %v, want original error %v", wrapped, tt.err)
			}
		})
	}
}

func TestWrapError_NilError(t *testing.T) {
	if wrapped := WrapError(nil); wrapped != nil {
		t.Errorf("WrapError(nil) = %v, want nil", wrapped)
	}
}

func TestStatusError_Unwrap(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{401, ErrAuthFailed},
		{404, ErrNotFound},
		{409, ErrConflict},
		{422, ErrConflict},
		{504, ErrNetworkTimeout},
		{500, nil},
	}

	for _, tt := range tests {
		err := &StatusError{Code: tt.code}
		if got := err.Unwrap(); got != tt.want {
			t.Errorf("StatusError{%d}.Unwrap() = %v, want %v", tt.code, got, tt.want)
		}
	}

	if got := (&StatusError{Code: 422, Body: "already_exists"}).Error(); got != "GitHub API error 422: already_exists" {
		t.Errorf("Error() = %q", got)
	}
}

func TestUserError_Error(t *testing.T) {
	tests := []struct {
		name    string
		userErr *UserError
		want    []string
	}{
		{
			name:    "message only",
			userErr: &UserError{Message: "Something went wrong"},
			want:    []string{"Something went wrong"},
		},
		{
			name:    "message with hint and error",
			userErr: &UserError{Message: "Something went wrong", Hint: "Try this", Err: errors.New("original")},
			want:    []string{"Something went wrong", "Hint: Try this", "Details: original"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.userErr.Error()
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("Error() = %q, want it to contain %q", got, w)
				}
			}
		})
	}
}
