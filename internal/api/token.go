package api

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	log "github.com/sirupsen/logrus"

	"github.com/tmarquez/geminiflow/internal/config"
	apierrors "github.com/tmarquez/geminiflow/internal/errors"
	"github.com/tmarquez/geminiflow/internal/models"
)

// SessionTokens holds the ephemeral values harvested from the bootstrap page.
// A value is tied to one fetch of the page and is never reused across request
// attempts.
type SessionTokens struct {
	SNlM0e string // required signing token
	SID    string // optional session id, empty when absent
}

// The signing token appears either JSON-escaped inside a script blob or
// plain; the escaped form is tried first.
var (
	snlm0eEscapedPattern = regexp.MustCompile(`SNlM0e\\":\\"(.*?)\\"`)
	snlm0ePlainPattern   = regexp.MustCompile(`SNlM0e":"(.*?)"`)
	sidPattern           = regexp.MustCompile(`"FdrFJe":"([\d-]+)"`)
)

// ExtractTokens recovers the session tokens from bootstrap page HTML.
// The second return value is false when the required token is not present,
// which callers treat as an authentication failure, not a crash.
func ExtractTokens(html string) (SessionTokens, bool) {
	var tokens SessionTokens

	if m := snlm0eEscapedPattern.FindStringSubmatch(html); len(m) >= 2 {
		tokens.SNlM0e = m[1]
	} else if m := snlm0ePlainPattern.FindStringSubmatch(html); len(m) >= 2 {
		tokens.SNlM0e = m[1]
	}

	if m := sidPattern.FindStringSubmatch(html); len(m) >= 2 {
		tokens.SID = m[1]
	}

	if tokens.SNlM0e == "" {
		return SessionTokens{}, false
	}
	return tokens, true
}

// debugPreviewLimit bounds raw payload previews logged in debug mode.
const debugPreviewLimit = 800

func previewOf(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	if len(s) > debugPreviewLimit {
		s = s[:debugPreviewLimit]
	}
	return s
}

// FetchTokens retrieves the bootstrap page with the current cookies and
// extracts session tokens from it. Any failure (network, bad status, or no
// extractable token) is a TokenFetchError; all three are equivalent for the
// retry path.
func FetchTokens(client tls_client.HttpClient, cookies config.Cookies, debug bool) (SessionTokens, error) {
	req, err := fhttp.NewRequest(fhttp.MethodGet, models.EndpointInit, nil)
	if err != nil {
		return SessionTokens{}, apierrors.NewTokenFetchError(fmt.Sprintf("create request: %v", err))
	}

	for key, value := range models.DefaultHeaders() {
		req.Header.Set(key, value)
	}
	for name, value := range cookies {
		req.AddCookie(&fhttp.Cookie{Name: name, Value: value})
	}

	resp, err := client.Do(req)
	if err != nil {
		return SessionTokens{}, apierrors.NewTokenFetchError(fmt.Sprintf("bootstrap page fetch: %v", err))
	}
	defer func() {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	if resp.StatusCode >= 400 {
		return SessionTokens{}, apierrors.NewTokenFetchErrorWithStatus("bootstrap page fetch failed", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return SessionTokens{}, apierrors.NewTokenFetchError(fmt.Sprintf("read bootstrap page: %v", err))
	}

	tokens, ok := ExtractTokens(string(body))
	if !ok {
		if debug {
			log.Debugf("bootstrap page preview (first %d chars):\n%s", debugPreviewLimit, previewOf(string(body)))
		}
		return SessionTokens{}, apierrors.NewTokenFetchError("SNlM0e token not found; cookies likely invalid or expired")
	}

	return tokens, nil
}
