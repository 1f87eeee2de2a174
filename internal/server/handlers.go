package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/tmarquez/geminiflow/internal/api"
)

// chatRequest is the JSON body accepted by /chat and /stream.
type chatRequest struct {
	Prompt   string   `json:"prompt"`
	Model    string   `json:"model,omitempty"`
	Language string   `json:"language,omitempty"`
	// Images are base64 strings, either bare or data: URIs.
	Images []string `json:"images,omitempty"`
}

// chatResponse is the buffered /chat reply.
type chatResponse struct {
	Text   string   `json:"text"`
	Images []string `json:"images"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// parseChatRequest validates the body and decodes image payloads.
func parseChatRequest(c *gin.Context) (ChatParams, error) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return ChatParams{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return ChatParams{}, fmt.Errorf("prompt is required")
	}

	params := ChatParams{
		Prompt:   req.Prompt,
		Model:    strings.TrimSpace(req.Model),
		Language: strings.TrimSpace(req.Language),
	}

	for i, value := range req.Images {
		img, err := decodeImagePayload(value, i)
		if err != nil {
			return ChatParams{}, err
		}
		params.Images = append(params.Images, img)
	}
	return params, nil
}

// decodeImagePayload turns one base64 string (bare or data: URI) into image
// bytes with a synthetic upload filename.
func decodeImagePayload(value string, index int) (api.ImageInput, error) {
	ext := "png"
	payload := value

	if strings.HasPrefix(value, "data:image/") {
		header, rest, ok := strings.Cut(value, ",")
		if !ok {
			return api.ImageInput{}, fmt.Errorf("images[%d]: invalid data URL", index)
		}
		mime := strings.ToLower(strings.TrimPrefix(strings.SplitN(header, ";", 2)[0], "data:"))
		switch mime {
		case "image/jpeg":
			ext = "jpg"
		case "image/webp":
			ext = "webp"
		}
		payload = rest
	}

	payload = normalizeBase64(payload)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return api.ImageInput{}, fmt.Errorf("images[%d]: invalid base64: %w", index, err)
	}

	return api.ImageInput{Data: data, Name: fmt.Sprintf("upload_%d.%s", index+1, ext)}, nil
}

// normalizeBase64 strips whitespace and restores missing padding.
func normalizeBase64(s string) string {
	compact := strings.Join(strings.Fields(s), "")
	if pad := len(compact) % 4; pad != 0 {
		compact += strings.Repeat("=", 4-pad)
	}
	return compact
}

// imageNotificationValue picks the preferred representation of an image
// result: saved path, then remote URL, then the raw candidate.
func imageNotificationValue(img *api.ImageResult) string {
	switch {
	case img.SavedPath != "":
		return img.SavedPath
	case img.URL != "":
		return img.URL
	default:
		return img.Candidate
	}
}

// handleChat runs a turn to completion and replies with the assembled text
// and image notifications.
func (s *Server) handleChat(c *gin.Context) {
	requestID := uuid.NewString()[:8]

	params, err := parseChatRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	log.Infof("id=%s /chat model=%s images=%d", requestID, params.Model, len(params.Images))

	stream, err := s.chat(c.Request.Context(), params)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	defer stream.Close()

	var text strings.Builder
	var images []string
	for {
		unit, ok := stream.Recv()
		if !ok {
			break
		}
		if unit.Image != nil {
			images = append(images, imageNotificationValue(unit.Image))
			continue
		}
		text.WriteString(unit.Text)
	}
	if err := stream.Err(); err != nil {
		log.Warnf("id=%s /chat failed: %v", requestID, err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	log.Infof("id=%s /chat done text=%d images=%d", requestID, text.Len(), len(images))
	c.JSON(http.StatusOK, chatResponse{Text: text.String(), Images: images})
}

// handleStream re-emits the turn as server-sent events: delta, image,
// error, done. Each delta is flushed as it becomes available. A client
// disconnect mid-stream is normal termination, handled silently.
func (s *Server) handleStream(c *gin.Context) {
	requestID := uuid.NewString()[:8]

	params, err := parseChatRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	log.Infof("id=%s /stream model=%s images=%d", requestID, params.Model, len(params.Images))

	stream, err := s.chat(c.Request.Context(), params)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	defer stream.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}

	writeEvent := func(event string, data interface{}) bool {
		payload, err := json.Marshal(data)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			log.Debugf("id=%s /stream client disconnected", requestID)
			return
		default:
		}

		unit, ok := stream.Recv()
		if !ok {
			if err := stream.Err(); err != nil {
				log.Warnf("id=%s /stream failed: %v", requestID, err)
				writeEvent("error", gin.H{"message": err.Error()})
				return
			}
			writeEvent("done", gin.H{})
			return
		}

		if unit.Image != nil {
			if !writeEvent("image", gin.H{
				"saved_path": unit.Image.SavedPath,
				"url":        unit.Image.URL,
				"candidate":  unit.Image.Candidate,
			}) {
				return
			}
			continue
		}
		if !writeEvent("delta", gin.H{"text": unit.Text}) {
			return
		}
	}
}
