package api

import (
	"encoding/json"
	"math/rand"
	"net/url"
	"strconv"

	"github.com/tmarquez/geminiflow/internal/models"
)

// UploadRef pairs an opaque upload reference with the original filename.
// Order matters: it must align with the prompt's inline image references.
type UploadRef struct {
	Ref  string
	Name string
}

// ChatRequest is the immutable value describing one StreamGenerate call.
// It is built once per attempt with freshly fetched tokens.
type ChatRequest struct {
	Prompt   string
	Language string
	Tokens   SessionTokens
	Model    models.Model
	Uploads  []UploadRef
}

// Params returns the query parameters for the StreamGenerate POST. The
// session id is sent as an empty string when absent, never omitted.
func (r *ChatRequest) Params() url.Values {
	params := url.Values{}
	params.Set("bl", models.RequestBLParam)
	params.Set("hl", r.Language)
	params.Set("_reqid", strconv.Itoa(1111+rand.Intn(8889)))
	params.Set("rt", "c")
	params.Set("f.sid", r.Tokens.SID)
	return params
}

// Form returns the body parameters: the signing token and the
// double-JSON-encoded f.req payload. The outer [null, <inner-json>] wrapping
// is a fixed characteristic of the wire format and is reproduced exactly.
func (r *ChatRequest) Form() (url.Values, error) {
	innerJSON, err := json.Marshal(r.innerPayload())
	if err != nil {
		return nil, err
	}

	outerJSON, err := json.Marshal([]interface{}{nil, string(innerJSON)})
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("at", r.Tokens.SNlM0e)
	form.Set("f.req", string(outerJSON))
	return form, nil
}

// innerPayload builds the fixed-shape heterogeneous array the endpoint
// expects. Image refs are [[ref, 1], name] entries in upload order.
func (r *ChatRequest) innerPayload() []interface{} {
	imageList := []interface{}{}
	for _, u := range r.Uploads {
		imageList = append(imageList, []interface{}{
			[]interface{}{u.Ref, 1},
			u.Name,
		})
	}

	return []interface{}{
		[]interface{}{r.Prompt, 0, nil, imageList, nil, nil, 0},
		[]interface{}{r.Language},
		[]interface{}{nil, nil, nil, nil, nil, []interface{}{}},
		nil,
		nil,
		nil,
		[]interface{}{1},
		0,
		[]interface{}{},
		[]interface{}{},
		1,
		0,
	}
}

// Headers returns the model-selection header, or nil when the model carries
// none (the server then picks its default variant).
func (r *ChatRequest) Headers() map[string]string {
	return r.Model.Header
}
