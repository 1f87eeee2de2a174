package api

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	log "github.com/sirupsen/logrus"

	"github.com/tmarquez/geminiflow/internal/config"
	"github.com/tmarquez/geminiflow/internal/models"
)

// CandidateKind is the classification of a raw image-candidate string.
type CandidateKind int

const (
	// CandidateIgnore is anything that is not a recognized image reference.
	CandidateIgnore CandidateKind = iota
	// CandidateOutput is a model-generated image (the thing the caller wants).
	CandidateOutput
	// CandidatePlaceholder is a generation placeholder or an echoed input
	// image, kept only as a fallback when no real output ever appears.
	CandidatePlaceholder
)

// URL shapes distinguishing generated output from echoes and placeholders.
// The gg-dl path segment marks downloadable generated output; the bare gg
// path is an echo of an uploaded input image.
const (
	outputPathMarker      = "lh3.googleusercontent.com/gg-dl/"
	inputEchoPathMarker   = "lh3.googleusercontent.com/gg/"
	placeholderURLPrefix  = "http://googleusercontent.com/image_generation_content/"
	placeholderPathMarker = "googleusercontent.com/image_generation_content/"
)

var controlCharPattern = regexp.MustCompile("[\x00-\x1f\x7f​‌‍\uFEFF]")

// NormalizeCandidate strips whitespace and invisible control characters that
// the stream occasionally embeds inside URLs.
func NormalizeCandidate(s string) string {
	return controlCharPattern.ReplaceAllString(strings.TrimSpace(s), "")
}

// ClassifyCandidate decides whether a normalized candidate is a real output
// image, a placeholder/input-echo, or neither.
func ClassifyCandidate(candidate string) CandidateKind {
	if candidate == "" {
		return CandidateIgnore
	}
	if strings.HasPrefix(candidate, placeholderURLPrefix) {
		return CandidatePlaceholder
	}
	if strings.Contains(candidate, inputEchoPathMarker) && !strings.Contains(candidate, outputPathMarker) {
		return CandidatePlaceholder
	}
	if strings.HasPrefix(candidate, "data:image/") {
		return CandidateOutput
	}
	if strings.Contains(candidate, outputPathMarker) {
		return CandidateOutput
	}
	return CandidateIgnore
}

// isImageNoiseText reports whether a text delta is really a bare media URL
// leaking into the prose stream. Image-model responses mix media references
// into the text deltas; callers in image mode must never see them.
func isImageNoiseText(text string) bool {
	normalized := NormalizeCandidate(text)
	if normalized == "" {
		return true
	}
	if ClassifyCandidate(normalized) == CandidatePlaceholder {
		return true
	}
	if strings.HasPrefix(normalized, "http://") || strings.HasPrefix(normalized, "https://") {
		for _, marker := range []string{placeholderPathMarker, outputPathMarker, inputEchoPathMarker} {
			if strings.Contains(normalized, marker) {
				return true
			}
		}
	}
	return false
}

// candidateTracker retains at most one output candidate (last wins, earlier
// ones are superseded) and at most one placeholder (first wins) per turn.
type candidateTracker struct {
	final    string
	fallback string
}

func (t *candidateTracker) observe(raw string) {
	normalized := NormalizeCandidate(raw)
	switch ClassifyCandidate(normalized) {
	case CandidateOutput:
		t.final = normalized
	case CandidatePlaceholder:
		if t.fallback == "" {
			t.fallback = normalized
		}
	}
}

// mimeExtensions maps recognized image MIME types to file extensions.
var mimeExtensions = map[string]string{
	"image/png":     "png",
	"image/jpeg":    "jpg",
	"image/webp":    "webp",
	"image/svg+xml": "svg",
}

func extensionForMIME(mimeType string) string {
	if ext, ok := mimeExtensions[mimeType]; ok {
		return ext
	}
	return "png"
}

// SaveOptions configures where a saved image lands. The directory is an
// explicit value, never read from the process environment here.
type SaveOptions struct {
	Directory string
	Prefix    string
}

// SaveCandidate persists an output-image candidate to disk and returns the
// saved path. data: URIs are decoded locally; remote URLs are fetched with
// the session cookies over the provided client (a fresh connection - the
// streaming connection is closed by the time saving happens). Every failure
// returns "": saving degrades, it never propagates an error.
func SaveCandidate(client tls_client.HttpClient, cookies config.Cookies, candidate string, opts SaveOptions) string {
	if strings.HasPrefix(candidate, "data:image/") {
		return saveDataURI(candidate, opts)
	}
	if strings.HasPrefix(candidate, "https://") || strings.HasPrefix(candidate, "http://") {
		return saveRemoteURL(client, cookies, candidate, opts)
	}
	return ""
}

func saveDataURI(candidate string, opts SaveOptions) string {
	header, b64, ok := strings.Cut(candidate, ",")
	if !ok {
		return ""
	}
	mimeType := strings.TrimPrefix(strings.SplitN(header, ";", 2)[0], "data:")

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		// Exports sometimes drop padding.
		data, err = base64.RawStdEncoding.DecodeString(b64)
		if err != nil {
			return ""
		}
	}

	return writeImageFile(data, extensionForMIME(mimeType), opts)
}

func saveRemoteURL(client tls_client.HttpClient, cookies config.Cookies, candidate string, opts SaveOptions) string {
	req, err := fhttp.NewRequest(fhttp.MethodGet, candidate, nil)
	if err != nil {
		return ""
	}
	for key, value := range models.DefaultHeaders() {
		req.Header.Set(key, value)
	}
	for name, value := range cookies {
		req.AddCookie(&fhttp.Cookie{Name: name, Value: value})
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Debugf("image fetch failed: %v", err)
		return ""
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return ""
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}

	contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(resp.Header.Get("Content-Type"), ";", 2)[0]))
	return writeImageFile(data, extensionForMIME(contentType), opts)
}

func writeImageFile(data []byte, ext string, opts SaveOptions) string {
	if err := os.MkdirAll(opts.Directory, 0o700); err != nil {
		return ""
	}
	path := filepath.Join(opts.Directory, fmt.Sprintf("%s.%s", opts.Prefix, ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ""
	}
	return path
}
