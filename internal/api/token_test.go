package api

import (
	"errors"
	"testing"

	"github.com/tmarquez/geminiflow/internal/config"
	apierrors "github.com/tmarquez/geminiflow/internal/errors"
)

// TestExtractTokens tests token extraction from bootstrap page HTML
func TestExtractTokens(t *testing.T) {
	tests := []struct {
		name       string
		html       string
		wantSNlM0e string
		wantSID    string
		wantOK     bool
	}{
		{
			name:       "escaped form inside script blob",
			html:       `<script>AF_initDataCallback({data:"{\"SNlM0e\":\"escaped_token_123\"}"});</script>`,
			wantSNlM0e: "escaped_token_123",
			wantOK:     true,
		},
		{
			name:       "plain JSON form",
			html:       `<script>window.WIZ_global_data = {"SNlM0e":"plain_token_456"};</script>`,
			wantSNlM0e: "plain_token_456",
			wantOK:     true,
		},
		{
			name:       "escaped form wins over plain form",
			html:       `{"SNlM0e":"plain_value"} and later "{\"SNlM0e\":\"escaped_value\"}"`,
			wantSNlM0e: "escaped_value",
			wantOK:     true,
		},
		{
			name:       "token with session id",
			html:       `{"SNlM0e":"tok123","FdrFJe":"-555"}`,
			wantSNlM0e: "tok123",
			wantSID:    "-555",
			wantOK:     true,
		},
		{
			name:   "session id alone is not enough",
			html:   `{"FdrFJe":"-1234567890"}`,
			wantOK: false,
		},
		{
			name:   "no token present",
			html:   `<html><body>Sign in to continue</body></html>`,
			wantOK: false,
		},
		{
			name:   "empty page",
			html:   "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, ok := ExtractTokens(tt.html)
			if ok != tt.wantOK {
				t.Fatalf("ExtractTokens() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if tokens.SNlM0e != tt.wantSNlM0e {
				t.Errorf("ExtractTokens() SNlM0e = %q, want %q", tokens.SNlM0e, tt.wantSNlM0e)
			}
			if tokens.SID != tt.wantSID {
				t.Errorf("ExtractTokens() SID = %q, want %q", tokens.SID, tt.wantSID)
			}
		})
	}
}

// TestFetchTokens tests FetchTokens against a mocked transport
func TestFetchTokens(t *testing.T) {
	cookies := config.Cookies{"__Secure-1PSID": "test_psid_value"}

	t.Run("successful fetch", func(t *testing.T) {
		html := `<html><script>{"SNlM0e":"access_token_abc","FdrFJe":"-42"}</script></html>`
		client := NewMockHttpClient([]byte(html), 200)

		tokens, err := FetchTokens(client, cookies, false)
		if err != nil {
			t.Fatalf("FetchTokens() error = %v", err)
		}
		if tokens.SNlM0e != "access_token_abc" {
			t.Errorf("SNlM0e = %q, want %q", tokens.SNlM0e, "access_token_abc")
		}
		if tokens.SID != "-42" {
			t.Errorf("SID = %q, want %q", tokens.SID, "-42")
		}
	})

	t.Run("cookies attached to request", func(t *testing.T) {
		html := `{"SNlM0e":"tok"}`
		client := NewMockHttpClient([]byte(html), 200)

		if _, err := FetchTokens(client, cookies, false); err != nil {
			t.Fatalf("FetchTokens() error = %v", err)
		}
		if len(client.Requests) != 1 {
			t.Fatalf("expected 1 request, got %d", len(client.Requests))
		}
		req := client.Requests[0]
		c, err := req.Cookie("__Secure-1PSID")
		if err != nil || c.Value != "test_psid_value" {
			t.Errorf("request cookie __Secure-1PSID = %v, %v", c, err)
		}
	})

	t.Run("http error status", func(t *testing.T) {
		client := NewMockHttpClient([]byte("forbidden"), 403)

		_, err := FetchTokens(client, cookies, false)
		if err == nil {
			t.Fatal("FetchTokens() expected error, got nil")
		}
		var tfe *apierrors.TokenFetchError
		if !errors.As(err, &tfe) {
			t.Fatalf("expected TokenFetchError, got %T", err)
		}
		if tfe.HTTPStatus != 403 {
			t.Errorf("HTTPStatus = %d, want 403", tfe.HTTPStatus)
		}
	})

	t.Run("network error", func(t *testing.T) {
		client := NewMockHttpClientWithError(errors.New("connection refused"))

		_, err := FetchTokens(client, cookies, false)
		if err == nil {
			t.Fatal("FetchTokens() expected error, got nil")
		}
		var tfe *apierrors.TokenFetchError
		if !errors.As(err, &tfe) {
			t.Fatalf("expected TokenFetchError, got %T", err)
		}
	})

	t.Run("token missing from page", func(t *testing.T) {
		client := NewMockHttpClient([]byte("<html>no token here</html>"), 200)

		_, err := FetchTokens(client, cookies, false)
		if err == nil {
			t.Fatal("FetchTokens() expected error, got nil")
		}
		if !apierrors.Retryable(err) {
			t.Error("token fetch failure should be retryable")
		}
	})
}
