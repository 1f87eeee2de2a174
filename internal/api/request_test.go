package api

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/tmarquez/geminiflow/internal/models"
)

// TestChatRequestParams tests the StreamGenerate query parameters
func TestChatRequestParams(t *testing.T) {
	t.Run("all parameters present", func(t *testing.T) {
		r := &ChatRequest{
			Language: "en",
			Tokens:   SessionTokens{SNlM0e: "tok", SID: "-555"},
			Model:    models.DefaultModel,
		}
		params := r.Params()

		if got := params.Get("bl"); got != models.RequestBLParam {
			t.Errorf("bl = %q, want %q", got, models.RequestBLParam)
		}
		if got := params.Get("hl"); got != "en" {
			t.Errorf("hl = %q, want %q", got, "en")
		}
		if got := params.Get("rt"); got != "c" {
			t.Errorf("rt = %q, want %q", got, "c")
		}
		if got := params.Get("f.sid"); got != "-555" {
			t.Errorf("f.sid = %q, want %q", got, "-555")
		}

		reqid, err := strconv.Atoi(params.Get("_reqid"))
		if err != nil {
			t.Fatalf("_reqid %q is not numeric", params.Get("_reqid"))
		}
		if reqid < 1111 || reqid > 9999 {
			t.Errorf("_reqid = %d, want value in [1111, 9999]", reqid)
		}
	})

	t.Run("missing session id sent as empty string", func(t *testing.T) {
		r := &ChatRequest{Language: "en", Tokens: SessionTokens{SNlM0e: "tok"}}
		params := r.Params()

		if _, present := params["f.sid"]; !present {
			t.Fatal("f.sid must be present even when the session id is absent")
		}
		if got := params.Get("f.sid"); got != "" {
			t.Errorf("f.sid = %q, want empty string", got)
		}
	})
}

// TestChatRequestForm tests the double-encoded f.req body
func TestChatRequestForm(t *testing.T) {
	r := &ChatRequest{
		Prompt:   "hello world",
		Language: "en",
		Tokens:   SessionTokens{SNlM0e: "tok123", SID: "-555"},
		Model:    models.Model3Pro,
		Uploads: []UploadRef{
			{Ref: "ref-a", Name: "a.png"},
			{Ref: "ref-b", Name: "b.jpg"},
		},
	}

	form, err := r.Form()
	if err != nil {
		t.Fatalf("Form() error = %v", err)
	}

	if got := form.Get("at"); got != "tok123" {
		t.Errorf("at = %q, want %q", got, "tok123")
	}

	// Outer layer: [null, "<inner json string>"]
	var outer []json.RawMessage
	if err := json.Unmarshal([]byte(form.Get("f.req")), &outer); err != nil {
		t.Fatalf("f.req is not a JSON array: %v", err)
	}
	if len(outer) != 2 {
		t.Fatalf("outer array length = %d, want 2", len(outer))
	}
	if string(outer[0]) != "null" {
		t.Errorf("outer[0] = %s, want null", outer[0])
	}

	var innerString string
	if err := json.Unmarshal(outer[1], &innerString); err != nil {
		t.Fatalf("outer[1] is not a JSON string: %v", err)
	}

	var inner []interface{}
	if err := json.Unmarshal([]byte(innerString), &inner); err != nil {
		t.Fatalf("inner payload is not a JSON array: %v", err)
	}
	if len(inner) != 12 {
		t.Fatalf("inner array length = %d, want 12", len(inner))
	}

	first, ok := inner[0].([]interface{})
	if !ok || len(first) != 7 {
		t.Fatalf("inner[0] = %v, want 7-element array", inner[0])
	}
	if first[0] != "hello world" {
		t.Errorf("prompt = %v, want %q", first[0], "hello world")
	}

	imageList, ok := first[3].([]interface{})
	if !ok {
		t.Fatalf("image list = %v, want array", first[3])
	}
	if len(imageList) != 2 {
		t.Fatalf("image list length = %d, want 2", len(imageList))
	}
	for i, wantRef := range []struct{ ref, name string }{{"ref-a", "a.png"}, {"ref-b", "b.jpg"}} {
		entry := imageList[i].([]interface{})
		refPair := entry[0].([]interface{})
		if refPair[0] != wantRef.ref {
			t.Errorf("image %d ref = %v, want %q", i, refPair[0], wantRef.ref)
		}
		if refPair[1] != float64(1) {
			t.Errorf("image %d flag = %v, want 1", i, refPair[1])
		}
		if entry[1] != wantRef.name {
			t.Errorf("image %d name = %v, want %q", i, entry[1], wantRef.name)
		}
	}

	lang, ok := inner[1].([]interface{})
	if !ok || len(lang) != 1 || lang[0] != "en" {
		t.Errorf("language element = %v, want [en]", inner[1])
	}
}

// TestChatRequestFormNoUploads tests that the image list is an empty array,
// not null, when there are no uploads
func TestChatRequestFormNoUploads(t *testing.T) {
	r := &ChatRequest{Prompt: "hi", Language: "en", Tokens: SessionTokens{SNlM0e: "t"}}

	form, err := r.Form()
	if err != nil {
		t.Fatalf("Form() error = %v", err)
	}

	var outer []json.RawMessage
	if err := json.Unmarshal([]byte(form.Get("f.req")), &outer); err != nil {
		t.Fatalf("f.req parse: %v", err)
	}
	var innerString string
	if err := json.Unmarshal(outer[1], &innerString); err != nil {
		t.Fatalf("outer[1] parse: %v", err)
	}
	var inner []interface{}
	if err := json.Unmarshal([]byte(innerString), &inner); err != nil {
		t.Fatalf("inner parse: %v", err)
	}

	first := inner[0].([]interface{})
	imageList, ok := first[3].([]interface{})
	if !ok {
		t.Fatalf("image list = %v (%T), want empty array", first[3], first[3])
	}
	if len(imageList) != 0 {
		t.Errorf("image list length = %d, want 0", len(imageList))
	}
}

// TestChatRequestHeaders tests model header selection
func TestChatRequestHeaders(t *testing.T) {
	tests := []struct {
		name       string
		model      models.Model
		wantHeader bool
	}{
		{"known model carries header", models.Model3Pro, true},
		{"image model carries header", models.Model3ProImage, true},
		{"unspecified model has none", models.ModelUnspecified, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &ChatRequest{Model: tt.model}
			headers := r.Headers()
			if tt.wantHeader {
				if len(headers) == 0 {
					t.Error("expected model headers, got none")
				}
				if _, ok := headers["x-goog-ext-525001261-jspb"]; !ok {
					t.Error("missing x-goog-ext-525001261-jspb header")
				}
			} else if len(headers) != 0 {
				t.Errorf("expected no headers, got %v", headers)
			}
		})
	}
}
