// Package errors provides the typed errors surfaced by the Gemini web client.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrAuthFailed     = errors.New("authentication failed")
	ErrCookiesExpired = errors.New("cookies have expired")
	ErrNoCookies      = errors.New("no cookies found")
	ErrEmptyStream    = errors.New("no parseable text in response stream")
)

// AuthError means no usable session cookie is available, even after an
// optional refresh.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "authentication failed: cookies may have expired"
	}
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// Is allows comparison with sentinel errors
func (e *AuthError) Is(target error) bool {
	if target == ErrAuthFailed {
		return true
	}
	_, ok := target.(*AuthError)
	return ok
}

// NewAuthError creates a new AuthError
func NewAuthError(message string) *AuthError {
	return &AuthError{Message: message}
}

// TokenFetchError means the bootstrap page was unreachable, returned a bad
// status, or contained no extractable signing token. All three cases are
// treated identically for retry purposes.
type TokenFetchError struct {
	Message    string
	HTTPStatus int
}

func (e *TokenFetchError) Error() string {
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("token fetch failed [%d]: %s", e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("token fetch failed: %s", e.Message)
}

// Is allows comparison with other TokenFetchError values
func (e *TokenFetchError) Is(target error) bool {
	_, ok := target.(*TokenFetchError)
	return ok
}

// NewTokenFetchError creates a new TokenFetchError
func NewTokenFetchError(message string) *TokenFetchError {
	return &TokenFetchError{Message: message}
}

// NewTokenFetchErrorWithStatus creates a TokenFetchError carrying the
// bootstrap page's HTTP status
func NewTokenFetchErrorWithStatus(message string, status int) *TokenFetchError {
	return &TokenFetchError{Message: message, HTTPStatus: status}
}

// UploadError means the image upload round-trip failed. It is always fatal
// for the call and never triggers the session retry, because upload failures
// are not a session problem.
type UploadError struct {
	Message  string
	FileName string
}

func (e *UploadError) Error() string {
	if e.FileName != "" {
		return fmt.Sprintf("image upload failed (%s): %s", e.FileName, e.Message)
	}
	return fmt.Sprintf("image upload failed: %s", e.Message)
}

// Is allows comparison with other UploadError values
func (e *UploadError) Is(target error) bool {
	_, ok := target.(*UploadError)
	return ok
}

// NewUploadError creates a new UploadError
func NewUploadError(message, fileName string) *UploadError {
	return &UploadError{Message: message, FileName: fileName}
}

// RequestError means the streaming POST failed: bad status, transport
// failure, or a stream that produced zero parseable text.
type RequestError struct {
	Message    string
	HTTPStatus int
	Body       string
}

func (e *RequestError) Error() string {
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("request failed [%d]: %s", e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("request failed: %s", e.Message)
}

// Is allows comparison with sentinel errors
func (e *RequestError) Is(target error) bool {
	_, ok := target.(*RequestError)
	return ok
}

// NewRequestError creates a new RequestError
func NewRequestError(message string) *RequestError {
	return &RequestError{Message: message}
}

// NewRequestErrorWithBody creates a RequestError carrying a bounded body
// snippet for diagnostics
func NewRequestErrorWithBody(message string, status int, body string) *RequestError {
	if len(body) > 300 {
		body = body[:300]
	}
	return &RequestError{Message: message, HTTPStatus: status, Body: body}
}

// DownloadError is returned by image download helpers. The orchestrator
// never propagates it: a failed save degrades to emitting the raw URL.
type DownloadError struct {
	Message string
	URL     string
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download error: %s", e.Message)
}

// NewDownloadError creates a new DownloadError
func NewDownloadError(message, url string) *DownloadError {
	return &DownloadError{Message: message, URL: url}
}

// IsAuthError reports whether err is an authentication failure
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsUploadError reports whether err is an upload failure
func IsUploadError(err error) bool {
	var uploadErr *UploadError
	return errors.As(err, &uploadErr)
}

// Retryable reports whether a first-attempt failure should trigger the
// one-shot cookie refresh and re-run. Upload failures never do.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return !IsUploadError(err)
}
