// Package server exposes the decoder state over HTTP and websockets.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/ColonelBlimp/morsekey/internal/cw"
	"github.com/ColonelBlimp/morsekey/internal/publish"
	"github.com/ColonelBlimp/morsekey/internal/recovery"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ShutdownTimeout bounds graceful shutdown once the context is cancelled.
const ShutdownTimeout = 5 * time.Second

// IndexMissing is the body served when the index page file is absent.
const IndexMissing = "Error: index.html not found"

var ErrSnapshotsRequired = errors.New("snapshot source is required")

// SnapshotSource is satisfied by *publish.Publisher.
type SnapshotSource interface {
	Snapshot() publish.Snapshot
}

// StatsSource is satisfied by *cw.Classifier.
type StatsSource interface {
	Stats() cw.Stats
}

// Config holds the status server settings (from config: listen, index_path).
type Config struct {
	Listen    string
	IndexPath string
}

// Server serves the status page, the current message, classifier counters
// and a websocket stream of updates.
type Server struct {
	config    Config
	snapshots SnapshotSource
	stats     StatsSource
	hub       *Hub
	logger    *slog.Logger
	mux       *http.ServeMux
}

// New builds the server. stats may be nil, in which case /stats reports zeros.
func New(cfg Config, snapshots SnapshotSource, stats StatsSource, logger *slog.Logger) (*Server, error) {
	if snapshots == nil {
		return nil, ErrSnapshotsRequired
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		config:    cfg,
		snapshots: snapshots,
		stats:     stats,
		hub:       NewHub(snapshots, logger),
		logger:    logger,
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /message", s.handleMessage)
	s.mux.HandleFunc("GET /stats", s.handleStats)
	s.mux.Handle("GET /ws", s.hub)
	return s, nil
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Hub returns the websocket hub so it can be registered as a publish.Sink.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if fi, err := os.Stat(s.config.IndexPath); err != nil || fi.IsDir() {
		http.Error(w, IndexMissing, http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, s.config.IndexPath)
}

func (s *Server) handleMessage(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.snapshots.Snapshot())
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	var stats cw.Stats
	if s.stats != nil {
		stats = s.stats.Stats()
	}
	s.writeJSON(w, stats)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("server: encode response", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

// ListenAndServe binds the configured address and serves until ctx is
// cancelled. Bind failures are returned before any request is served.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("server: listening", "addr", ln.Addr().String(),
		"endpoints", []string{"/", "/message", "/stats", "/ws"})

	errCh := make(chan error, 1)
	recovery.Go(func() {
		errCh <- srv.Serve(ln)
	})

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("server: stopped")
	return nil
}
