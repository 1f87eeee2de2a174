// Package models contains data types and constants for the Gemini web wire protocol.
package models

import "strings"

// Endpoints for the Gemini web interface
const (
	EndpointGoogle   = "https://www.google.com"
	EndpointBase     = "https://gemini.google.com"
	EndpointInit     = "https://gemini.google.com/app"
	EndpointGenerate = "https://gemini.google.com/_/BardChatUi/data/assistant.lamda.BardFrontendService/StreamGenerate"
	EndpointUpload   = "https://content-push.googleapis.com/upload/"
)

// RequiredCookie is the session cookie that must be present before any
// request is attempted.
const RequiredCookie = "__Secure-1PSID"

// CookieDomain scopes which exported cookies are picked up.
const CookieDomain = ".google.com"

// RequestBLParam is the fixed protocol-version marker sent as the bl query param.
const RequestBLParam = "boq_assistant-bard-web-server_20240519.16_p0"

// Model represents an available Gemini model variant. The Header blob is an
// opaque versioned feature flag that selects the backend model; it is not
// computed, only looked up.
type Model struct {
	Name   string
	Header map[string]string
}

const modelHeaderKey = "x-goog-ext-525001261-jspb"

// Available models
var (
	// ModelUnspecified uses the server's default model (no model header sent)
	ModelUnspecified = Model{Name: "unspecified"}

	Model3ProThinking = Model{
		Name: "gemini-3-pro-thinking",
		Header: map[string]string{
			modelHeaderKey: `[1,null,null,null,"e051ce1aa80aa576",null,null,0,[4],null,null,2]`,
		},
	}

	Model3Pro2 = Model{
		Name: "gemini-3-pro-2",
		Header: map[string]string{
			modelHeaderKey: `[1,null,null,null,"e6fa609c3fa255c0",null,null,0,[4],null,null,2]`,
		},
	}

	Model3Pro = Model{
		Name: "gemini-3-pro",
		Header: map[string]string{
			modelHeaderKey: `[1,null,null,null,"9d8ca3786ebdfbea",null,null,0,[4]]`,
		},
	}

	Model3ProImage = Model{
		Name: "gemini-3-pro-image",
		Header: map[string]string{
			modelHeaderKey: `[1,null,null,null,"56fdd199312815e2",null,null,0,[4],null,null,2]`,
		},
	}

	Model3Flash = Model{
		Name: "gemini-3-flash",
		Header: map[string]string{
			modelHeaderKey: `[1,null,null,null,"56fdd199312815e2",null,null,0,[4],null,null,2]`,
		},
	}

	Model25Pro = Model{
		Name: "gemini-2.5-pro",
		Header: map[string]string{
			modelHeaderKey: `[1,null,null,null,"61530e79959ab139",null,null,null,[4]]`,
		},
	}

	Model25Flash = Model{
		Name: "gemini-2.5-flash",
		Header: map[string]string{
			modelHeaderKey: `[1,null,null,null,"9ec249fc9ad08861",null,null,null,[4]]`,
		},
	}

	// DefaultModel is the recommended default
	DefaultModel = Model3Pro
)

// DefaultLanguage is the UI language sent when the caller does not pick one.
const DefaultLanguage = "zh-TW"

// AllModels returns a list of all available models
func AllModels() []Model {
	return []Model{
		Model3ProThinking,
		Model3Pro2,
		Model3Pro,
		Model3ProImage,
		Model3Flash,
		Model25Pro,
		Model25Flash,
	}
}

// ModelFromName returns a Model by its name. Unknown names map to
// ModelUnspecified, which sends no model header.
func ModelFromName(name string) Model {
	name = strings.TrimSpace(strings.ToLower(name))
	for _, m := range AllModels() {
		if m.Name == name {
			return m
		}
	}
	return ModelUnspecified
}

// IsImageModel reports whether a model name identifies an image-generating
// variant, which changes how the response stream is filtered.
func (m Model) IsImageModel() bool {
	name := strings.TrimSpace(strings.ToLower(m.Name))
	return strings.HasSuffix(name, "-image") ||
		strings.HasSuffix(name, "-image-preview") ||
		strings.Contains(name, "-image-")
}

// DefaultHeaders returns the default headers for Gemini requests
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Host":            "gemini.google.com",
		"Origin":          "https://gemini.google.com",
		"Referer":         "https://gemini.google.com/",
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Accept-Language": "en-US,en;q=0.9",
		"X-Same-Domain":   "1",
	}
}

// UploadHeaders returns the baseline headers for the content-push upload
// endpoint. The authorization value is the fixed public blob the web client
// ships with, not a user credential.
func UploadHeaders() map[string]string {
	return map[string]string{
		"Authority":                           "content-push.googleapis.com",
		"Accept":                              "*/*",
		"Accept-Language":                     "en-US,en;q=0.7",
		"Authorization":                       "Basic c2F2ZXM6cyNMdGhlNmxzd2F2b0RsN3J1d1U=",
		"Content-Type":                        "application/x-www-form-urlencoded;charset=UTF-8",
		"Origin":                              "https://gemini.google.com",
		"Push-ID":                             "feeds/mcudyrk2a4khkz",
		"Referer":                             "https://gemini.google.com/",
		"X-Goog-Upload-Protocol":              "resumable",
		"X-Goog-Upload-Header-Content-Length": "",
		"X-Tenant-ID":                         "bard-storage",
	}
}
