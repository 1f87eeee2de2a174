// Package browser extracts Google session cookies from installed web browsers.
// It serves as the session-refresh collaborator: when a chat cycle fails with
// an auth-class error, the orchestrator re-extracts cookies from the browser
// and writes them back into the cookie directory.
package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/chrome"
	_ "github.com/browserutils/kooky/browser/chromium"
	_ "github.com/browserutils/kooky/browser/edge"
	_ "github.com/browserutils/kooky/browser/firefox"
	_ "github.com/browserutils/kooky/browser/opera"

	"github.com/tmarquez/geminiflow/internal/config"
	"github.com/tmarquez/geminiflow/internal/models"
)

// SupportedBrowser represents a supported browser type
type SupportedBrowser string

const (
	BrowserAuto     SupportedBrowser = "auto"
	BrowserChrome   SupportedBrowser = "chrome"
	BrowserChromium SupportedBrowser = "chromium"
	BrowserFirefox  SupportedBrowser = "firefox"
	BrowserEdge     SupportedBrowser = "edge"
	BrowserOpera    SupportedBrowser = "opera"
)

// String returns the string representation of the browser
func (b SupportedBrowser) String() string {
	return string(b)
}

// ParseBrowser parses a browser string into a SupportedBrowser
func ParseBrowser(s string) (SupportedBrowser, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return BrowserAuto, nil
	case "chrome", "google-chrome":
		return BrowserChrome, nil
	case "chromium":
		return BrowserChromium, nil
	case "firefox", "mozilla", "mozilla-firefox":
		return BrowserFirefox, nil
	case "edge", "microsoft-edge", "msedge":
		return BrowserEdge, nil
	case "opera":
		return BrowserOpera, nil
	default:
		return "", fmt.Errorf("unsupported browser: %s. Supported: chrome, chromium, firefox, edge, opera", s)
	}
}

// ExtractResult contains the result of cookie extraction
type ExtractResult struct {
	Cookies     config.Cookies
	BrowserName string
}

// ExtractCookies extracts Google session cookies from browsers
func ExtractCookies(ctx context.Context, browser SupportedBrowser) (*ExtractResult, error) {
	if browser == BrowserAuto {
		return extractFromAllBrowsers(ctx)
	}
	return extractFromBrowser(ctx, browser)
}

// RefreshCookieDir extracts cookies from the browser and persists them into
// the cookie directory so the next LoadCookies call sees them.
func RefreshCookieDir(ctx context.Context, browser SupportedBrowser, dir string) error {
	result, err := ExtractCookies(ctx, browser)
	if err != nil {
		return err
	}
	return config.SaveCookies(dir, result.Cookies)
}

// extractFromAllBrowsers tries browsers in order of popularity
func extractFromAllBrowsers(ctx context.Context) (*ExtractResult, error) {
	browsers := []SupportedBrowser{
		BrowserChrome,
		BrowserFirefox,
		BrowserEdge,
		BrowserChromium,
		BrowserOpera,
	}

	var lastErr error
	for _, browser := range browsers {
		result, err := extractFromBrowser(ctx, browser)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return nil, fmt.Errorf("could not find Google session cookies in any browser: %w", lastErr)
	}
	return nil, fmt.Errorf("could not find Google session cookies in any supported browser")
}

// extractFromBrowser tries every cookie store (profile) of one browser.
func extractFromBrowser(ctx context.Context, browser SupportedBrowser) (*ExtractResult, error) {
	stores := kooky.FindAllCookieStores(ctx)

	var matchingStores []kooky.CookieStore
	var browserName string

	for _, store := range stores {
		name := store.Browser()
		if matchesBrowser(strings.ToLower(name), browser) {
			matchingStores = append(matchingStores, store)
			if browserName == "" {
				browserName = name
			}
		} else {
			store.Close()
		}
	}

	if len(matchingStores) == 0 {
		return nil, fmt.Errorf("browser %s not found or no cookie store available", browser)
	}

	var lastErr error
	for _, store := range matchingStores {
		result, err := extractFromStore(ctx, store, browserName)
		store.Close()
		if err == nil {
			for _, s := range matchingStores {
				s.Close()
			}
			return result, nil
		}
		lastErr = err
	}

	return nil, lastErr
}

// matchesBrowser checks if a kooky store name matches the target browser
func matchesBrowser(browserName string, target SupportedBrowser) bool {
	switch target {
	case BrowserChrome:
		return strings.Contains(browserName, "chrome") && !strings.Contains(browserName, "chromium")
	case BrowserChromium:
		return strings.Contains(browserName, "chromium")
	case BrowserFirefox:
		return strings.Contains(browserName, "firefox")
	case BrowserEdge:
		return strings.Contains(browserName, "edge")
	case BrowserOpera:
		return strings.Contains(browserName, "opera")
	default:
		return false
	}
}

// extractFromStore collects all valid google.com cookies from one store.
// Values on the bare .google.com domain win over regional variants.
func extractFromStore(ctx context.Context, store kooky.CookieStore, browserName string) (*ExtractResult, error) {
	cookies := store.TraverseCookies(
		kooky.Valid,
		kooky.DomainContains("google.com"),
	).OnlyCookies()

	collected := config.Cookies{}
	preferred := map[string]bool{}

	for cookie := range cookies {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if cookie.Value == "" {
			continue
		}
		if _, seen := collected[cookie.Name]; !seen || (cookie.Domain == models.CookieDomain && !preferred[cookie.Name]) {
			collected[cookie.Name] = cookie.Value
			preferred[cookie.Name] = cookie.Domain == models.CookieDomain
		}
	}

	if collected[models.RequiredCookie] == "" {
		return nil, fmt.Errorf("no %s cookie found in %s; log in to gemini.google.com first", models.RequiredCookie, browserName)
	}

	return &ExtractResult{Cookies: collected, BrowserName: browserName}, nil
}
