package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apierrors "github.com/tmarquez/geminiflow/internal/errors"
	"github.com/tmarquez/geminiflow/internal/models"
)

// Cookies maps cookie names to values for the target domain. Once loaded it
// is treated as read-only input by everything downstream.
type Cookies map[string]string

// Required returns the value of the required session cookie, or an AuthError
// when it is missing.
func (c Cookies) Required() (string, error) {
	v := c[models.RequiredCookie]
	if v == "" {
		return "", apierrors.NewAuthError(fmt.Sprintf("missing required cookie: %s", models.RequiredCookie))
	}
	return v, nil
}

// exportedCookie is one entry of a browser/extension cookie export.
type exportedCookie struct {
	Domain string `json:"domain"`
	Name   string `json:"name"`
	Value  string `json:"value"`
}

// parseCookieExport parses a single exported cookie file. It accepts the two
// shapes seen in the wild: a list of {domain, name, value} objects or a flat
// {name: value} dict (the dict form has no domain and is assumed scoped).
func parseCookieExport(data []byte) (map[string]Cookies, error) {
	var list []exportedCookie
	if err := json.Unmarshal(data, &list); err == nil {
		byDomain := make(map[string]Cookies)
		for _, item := range list {
			if item.Domain == "" || item.Name == "" {
				continue
			}
			if byDomain[item.Domain] == nil {
				byDomain[item.Domain] = Cookies{}
			}
			byDomain[item.Domain][item.Name] = item.Value
		}
		return byDomain, nil
	}

	var dict map[string]string
	if err := json.Unmarshal(data, &dict); err == nil {
		return map[string]Cookies{models.CookieDomain: dict}, nil
	}

	return nil, fmt.Errorf("invalid cookie export: expected list [{domain, name, value}] or dict {name: value}")
}

// pickDomainCookies selects cookies scoped to the target domain. An exact
// ".google.com" entry wins; otherwise every *google.com domain is merged.
func pickDomainCookies(byDomain map[string]Cookies) Cookies {
	if c, ok := byDomain[models.CookieDomain]; ok {
		out := Cookies{}
		for k, v := range c {
			out[k] = v
		}
		return out
	}

	combined := Cookies{}
	for domain, cookies := range byDomain {
		if strings.HasSuffix(domain, "google.com") {
			for k, v := range cookies {
				combined[k] = v
			}
		}
	}
	return combined
}

// LoadCookies reads every .json export in dir, merges them per domain, and
// returns the Google-scoped cookies. Unparseable files are skipped; a result
// without the required session cookie is an AuthError.
func LoadCookies(dir string) (Cookies, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("cookies dir not found: %s", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies dir: %w", err)
	}

	merged := make(map[string]Cookies)
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		parsed, err := parseCookieExport(data)
		if err != nil {
			continue
		}
		for domain, cookies := range parsed {
			if merged[domain] == nil {
				merged[domain] = Cookies{}
			}
			for k, v := range cookies {
				merged[domain][k] = v
			}
		}
	}

	cookies := pickDomainCookies(merged)
	if _, err := cookies.Required(); err != nil {
		return nil, err
	}
	return cookies, nil
}

// SaveCookies writes cookies into dir as a browser-export style list so a
// later LoadCookies picks them up.
func SaveCookies(dir string, cookies Cookies) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create cookies dir: %w", err)
	}

	list := make([]exportedCookie, 0, len(cookies))
	for name, value := range cookies {
		list = append(list, exportedCookie{Domain: models.CookieDomain, Name: name, Value: value})
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	path := filepath.Join(dir, "cookies.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write cookies file: %w", err)
	}
	return nil
}

// ImportCookies copies an export file into the cookie dir after validating it.
func ImportCookies(sourcePath, dir string) error {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("source file not found: %s", sourcePath)
		}
		return fmt.Errorf("could not read file: %w", err)
	}

	parsed, err := parseCookieExport(data)
	if err != nil {
		return err
	}
	cookies := pickDomainCookies(parsed)
	if _, err := cookies.Required(); err != nil {
		return err
	}

	return SaveCookies(dir, cookies)
}
