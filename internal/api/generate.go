package api

import (
	"context"
	"io"
	"strings"

	fhttp "github.com/bogdanfinn/fhttp"
	log "github.com/sirupsen/logrus"

	"github.com/tmarquez/geminiflow/internal/config"
	apierrors "github.com/tmarquez/geminiflow/internal/errors"
	"github.com/tmarquez/geminiflow/internal/models"
)

// streamResponse POSTs the built request and decodes the body incrementally,
// forwarding each text delta as it arrives. Deltas are emitted live, never
// buffered to completion. If the consumer stops listening the read loop
// returns without error: a downstream disconnect is normal termination.
func (c *GeminiClient) streamResponse(ctx context.Context, cookies config.Cookies, chatReq *ChatRequest, emit func(Unit) bool, delivered *bool) error {
	streamClient, err := c.newTransport()
	if err != nil {
		return apierrors.NewRequestError(err.Error())
	}

	form, err := chatReq.Form()
	if err != nil {
		return apierrors.NewRequestError("failed to build payload: " + err.Error())
	}

	requestURL := models.EndpointGenerate + "?" + chatReq.Params().Encode()
	req, err := fhttp.NewRequest(fhttp.MethodPost, requestURL, strings.NewReader(form.Encode()))
	if err != nil {
		return apierrors.NewRequestError("failed to create request: " + err.Error())
	}

	for key, value := range models.DefaultHeaders() {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")
	for key, value := range chatReq.Headers() {
		req.Header.Set(key, value)
	}
	for name, value := range cookies {
		req.AddCookie(&fhttp.Cookie{Name: name, Value: value})
	}

	resp, err := streamClient.Do(req)
	if err != nil {
		return apierrors.NewRequestError("stream request failed: " + err.Error())
	}
	defer func() {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apierrors.NewRequestErrorWithBody("stream request failed", resp.StatusCode, string(body))
	}

	isImageModel := chatReq.Model.IsImageModel()
	decoder := NewStreamDecoder()
	tracker := &candidateTracker{}
	var preview strings.Builder

	forward := func(deltas []string) bool {
		for _, delta := range deltas {
			if isImageModel && isImageNoiseText(delta) {
				continue
			}
			if !emit(Unit{Text: delta}) {
				return false
			}
			*delivered = true
		}
		return true
	}

	buf := make([]byte, 4096)
	for {
		if ctx.Err() != nil {
			return nil
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if c.debug && preview.Len() < debugPreviewLimit {
				preview.WriteString(string(buf[:n]))
			}
			if !forward(decoder.Feed(buf[:n])) {
				return nil
			}
		}
		if readErr != nil {
			if readErr != io.EOF {
				return apierrors.NewRequestError("stream read failed: " + readErr.Error())
			}
			break
		}
	}

	if !forward(decoder.Flush()) {
		return nil
	}

	if isImageModel {
		for _, candidate := range decoder.Candidates() {
			tracker.observe(candidate)
		}
		c.finishImages(cookies, tracker, emit, delivered)
	}

	if ctx.Err() != nil {
		return nil
	}

	if !*delivered {
		if c.debug && preview.Len() > 0 {
			log.Debugf("stream response preview (first %d chars):\n%s", debugPreviewLimit, previewOf(preview.String()))
		}
		return apierrors.NewRequestErrorWithBody(
			"no text could be parsed from the response stream; the wire format may have changed",
			0, previewOf(preview.String()))
	}
	return nil
}
