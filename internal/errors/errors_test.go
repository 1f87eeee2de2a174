package errors

import (
	"errors"
	"fmt"
	"testing"
)

// TestAuthError tests AuthError formatting and sentinel comparison
func TestAuthError(t *testing.T) {
	err := NewAuthError("missing required cookie")
	if !errors.Is(err, ErrAuthFailed) {
		t.Error("AuthError should match ErrAuthFailed")
	}
	if !IsAuthError(err) {
		t.Error("IsAuthError() = false for AuthError")
	}
	if IsAuthError(NewRequestError("x")) {
		t.Error("IsAuthError() = true for RequestError")
	}

	wrapped := fmt.Errorf("context: %w", err)
	if !IsAuthError(wrapped) {
		t.Error("IsAuthError() = false for wrapped AuthError")
	}
}

// TestTokenFetchError tests status formatting
func TestTokenFetchError(t *testing.T) {
	plain := NewTokenFetchError("no token")
	if plain.Error() != "token fetch failed: no token" {
		t.Errorf("Error() = %q", plain.Error())
	}

	withStatus := NewTokenFetchErrorWithStatus("bad response", 401)
	if withStatus.HTTPStatus != 401 {
		t.Errorf("HTTPStatus = %d, want 401", withStatus.HTTPStatus)
	}
	if withStatus.Error() != "token fetch failed [401]: bad response" {
		t.Errorf("Error() = %q", withStatus.Error())
	}
}

// TestUploadError tests filename formatting and classification
func TestUploadError(t *testing.T) {
	err := NewUploadError("HTTP 500", "cat.png")
	if err.Error() != "image upload failed (cat.png): HTTP 500" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !IsUploadError(err) {
		t.Error("IsUploadError() = false for UploadError")
	}

	wrapped := fmt.Errorf("attempt: %w", err)
	if !IsUploadError(wrapped) {
		t.Error("IsUploadError() = false for wrapped UploadError")
	}
}

// TestRequestErrorBodyBound tests that the diagnostic body snippet is capped
func TestRequestErrorBodyBound(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}

	err := NewRequestErrorWithBody("bad", 500, string(long))
	if len(err.Body) != 300 {
		t.Errorf("Body length = %d, want 300", len(err.Body))
	}
}

// TestRetryable tests the retry classification: everything except upload
// failures is retryable
func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"auth error", NewAuthError("expired"), true},
		{"token fetch error", NewTokenFetchError("no token"), true},
		{"request error", NewRequestError("empty stream"), true},
		{"plain error", errors.New("boom"), true},
		{"upload error", NewUploadError("HTTP 500", "a.png"), false},
		{"wrapped upload error", fmt.Errorf("attempt: %w", NewUploadError("x", "")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
