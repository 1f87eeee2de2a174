// Package server exposes the chat pipeline over HTTP: a buffered JSON
// endpoint and an SSE streaming endpoint.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/tmarquez/geminiflow/internal/api"
)

// ChatParams is one incoming chat request after validation.
type ChatParams struct {
	Prompt   string
	Model    string
	Language string
	Images   []api.ImageInput
}

// ChatFunc starts one chat turn and returns its live stream. Injected so
// handlers are testable without the network.
type ChatFunc func(ctx context.Context, params ChatParams) (*api.Stream, error)

// Server is the HTTP surface around the chat pipeline.
type Server struct {
	chat   ChatFunc
	engine *gin.Engine
}

// New creates a Server around the given chat function.
func New(chat ChatFunc) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{chat: chat}
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/health", s.handleHealth)
	engine.POST("/chat", s.handleChat)
	engine.POST("/stream", s.handleStream)

	s.engine = engine
	return s
}

// Engine returns the underlying gin engine (exposed for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts serving on addr and blocks.
func (s *Server) Run(addr string) error {
	log.Infof("listening on %s", addr)
	srv := &http.Server{Addr: addr, Handler: s.engine}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
