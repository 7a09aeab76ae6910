// Package server exposes the timeline engine over a local HTTP API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/hallgrim/tracksmith/internal/models"
	"github.com/hallgrim/tracksmith/internal/timeline"
)

// ServerConfig wires the HTTP surface to its collaborators. Importer,
// Trigger, and Watcher are optional; their endpoints answer 503 when absent.
type ServerConfig struct {
	Host      string
	Port      int
	Store     *timeline.Store
	Importer  AssetImporter
	Trigger   SyncTrigger
	Watcher   JobWatcher
	Logger    zerolog.Logger
	StartTime time.Time
	Version   string
}

// Server is the HTTP server for the local API.
type Server struct {
	httpServer *http.Server
	logger     zerolog.Logger
}

// NewServer creates a Server around the router built from cfg.
func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

// Start blocks serving requests until Shutdown.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("starting HTTP server")
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

func timelineClipData(req CreateClipRequest) timeline.ClipData {
	return timeline.ClipData{
		Name:      req.Name,
		TimeRange: models.TimeRange{Start: req.Start, End: req.End},
	}
}
