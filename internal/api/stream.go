package api

import (
	"strings"

	"github.com/tidwall/gjson"
)

// StreamDecoder incrementally turns the raw StreamGenerate byte stream into
// text deltas and image-candidate strings. One decoder serves exactly one
// HTTP response stream; its state is discarded when the stream ends.
//
// The wire format interleaves framing lines that carry no content. Lines
// that fail to parse, or parse into an unexpected shape, are skipped
// silently - they must never abort the stream.
type StreamDecoder struct {
	pending     string
	lastContent string
	sawDelta    bool
	candidates  []string
}

// NewStreamDecoder creates a decoder for a single response stream.
func NewStreamDecoder() *StreamDecoder {
	return &StreamDecoder{}
}

// Feed appends a byte fragment and returns the text deltas completed by it.
// Fragments arrive as the transport delivers them and may split logical
// lines arbitrarily; only newline-terminated prefixes are processed here.
func (d *StreamDecoder) Feed(p []byte) []string {
	d.pending += string(p)

	var deltas []string
	for {
		idx := strings.IndexByte(d.pending, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimSuffix(d.pending[:idx], "\r")
		d.pending = d.pending[idx+1:]
		if delta, ok := d.decodeLine(line); ok {
			deltas = append(deltas, delta)
		}
	}
	return deltas
}

// Flush processes any non-blank buffered tail as one final logical line.
// Call exactly once, at end of stream.
func (d *StreamDecoder) Flush() []string {
	tail := strings.TrimSuffix(d.pending, "\r")
	d.pending = ""
	if strings.TrimSpace(tail) == "" {
		return nil
	}
	if delta, ok := d.decodeLine(tail); ok {
		return []string{delta}
	}
	return nil
}

// SawDelta reports whether any text delta was produced so far. A stream that
// finishes without a single delta indicates the wire format changed and must
// be surfaced as an error by the caller, not as an empty success.
func (d *StreamDecoder) SawDelta() bool {
	return d.sawDelta
}

// Candidates returns the raw image-candidate strings found so far, in
// arrival order.
func (d *StreamDecoder) Candidates() []string {
	return d.candidates
}

// decodeLine parses one logical line and computes the next text delta.
// The reported delta is the longest new suffix of the accumulated content;
// content that does not extend the previous content resets the accumulator
// and is emitted whole.
func (d *StreamDecoder) decodeLine(raw string) (string, bool) {
	part, ok := parseResponsePart(raw)
	if !ok {
		return "", false
	}

	d.collectCandidates(part)

	content, ok := extractContent(part)
	if !ok || content == "" {
		return "", false
	}

	var delta string
	if d.lastContent != "" && strings.HasPrefix(content, d.lastContent) {
		delta = content[len(d.lastContent):]
	} else {
		delta = content
	}
	d.lastContent = content

	if delta == "" {
		return "", false
	}
	d.sawDelta = true
	return delta, true
}

// parseResponsePart unwraps one logical line down to the double-encoded
// response payload: line[0][2] is itself a JSON string holding the actual
// array.
func parseResponsePart(raw string) (gjson.Result, bool) {
	if !gjson.Valid(raw) {
		return gjson.Result{}, false
	}
	line := gjson.Parse(raw)
	if !line.IsArray() {
		return gjson.Result{}, false
	}

	first := line.Get("0")
	if !first.IsArray() || len(first.Array()) < 3 {
		return gjson.Result{}, false
	}

	encoded := first.Get("2")
	if encoded.Type != gjson.String || encoded.String() == "" {
		return gjson.Result{}, false
	}

	inner := encoded.String()
	if !gjson.Valid(inner) {
		return gjson.Result{}, false
	}
	part := gjson.Parse(inner)
	if !part.IsArray() || len(part.Array()) < 5 {
		return gjson.Result{}, false
	}
	return part, true
}

// extractContent pulls the text content out of a parsed response part. Two
// specific shapes are tried before falling back to the longest-string guess.
func extractContent(part gjson.Result) (string, bool) {
	if c := part.Get("4.0.1.0"); c.Type == gjson.String {
		return c.String(), true
	}

	if c := part.Get("4.0.1"); c.Exists() {
		if c.Type == gjson.String {
			return c.String(), true
		}
		if c.IsArray() {
			if first := c.Get("0"); first.Type == gjson.String {
				return first.String(), true
			}
		}
	}

	return longestStringFallback(part.Get("4"))
}

// longestStringFallback deep-walks a value collecting every string except
// internal rc_ response-class tags and picks the longest as the best guess
// at the real content. Known-fragile last resort; kept separate so it can be
// adjusted without touching the decode loop.
func longestStringFallback(value gjson.Result) (string, bool) {
	var best string
	walkStrings(value, func(s string) {
		if s == "" || strings.HasPrefix(s, "rc_") {
			return
		}
		if len(s) > len(best) {
			best = s
		}
	})
	if best == "" {
		return "", false
	}
	return best, true
}

// walkStrings visits every string nested anywhere inside value.
func walkStrings(value gjson.Result, visit func(string)) {
	switch {
	case value.Type == gjson.String:
		visit(value.String())
	case value.IsArray() || value.IsObject():
		value.ForEach(func(_, item gjson.Result) bool {
			walkStrings(item, visit)
			return true
		})
	}
}

// collectCandidates scans the whole response part for likely image
// references, independently of text extraction. Duplicates within one line
// are suppressed.
func (d *StreamDecoder) collectCandidates(part gjson.Result) {
	seen := map[string]bool{}
	walkStrings(part, func(s string) {
		if s == "" || seen[s] {
			return
		}
		if isLikelyImageCandidate(s) {
			seen[s] = true
			d.candidates = append(d.candidates, s)
		}
	})
}

// mediaHosts is the reverse-engineered allowlist of hosts the web client
// references for media. Expected to need ongoing adjustment.
var mediaHosts = []string{
	"googleusercontent.com",
	"gstatic.com",
	"content-push.googleapis.com",
}

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// isLikelyImageCandidate classifies a raw string as a possible image
// reference: a data:image URI, or an http(s) URL on a known media host or
// with a known image extension.
func isLikelyImageCandidate(s string) bool {
	if strings.HasPrefix(s, "data:image/") {
		return true
	}
	if !strings.HasPrefix(s, "https://") && !strings.HasPrefix(s, "http://") {
		return false
	}
	lowered := strings.ToLower(s)
	for _, host := range mediaHosts {
		if strings.Contains(lowered, host) {
			return true
		}
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lowered, ext) {
			return true
		}
	}
	return false
}
