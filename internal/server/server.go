// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes an entity backend over HTTP and reader sessions
// over a websocket. REST routes live under /api/v0 and use {"data": ...}
// envelopes; /ws?paper=<id> opens a session whose state is pushed to the
// client after every change; /metrics serves Prometheus collectors.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pdiddy/paper-reader/internal/api"
	"github.com/pdiddy/paper-reader/internal/logger"
	"github.com/pdiddy/paper-reader/internal/metrics"
	"github.com/pdiddy/paper-reader/internal/reader"
	"github.com/pdiddy/paper-reader/internal/viewer"
	"github.com/pdiddy/paper-reader/pkg/types"
)

const shutdownTimeout = 10 * time.Second

// ReaderFactory builds a reader session for a paper. nav routes navigation
// to the connected client.
type ReaderFactory func(paper types.PaperID, nav *viewer.Navigator) (*reader.Reader, error)

// Options configures a Server.
type Options struct {
	Backend   api.Backend
	NewReader ReaderFactory
	Log       *logger.Logger
	Metrics   *metrics.Metrics
}

// Server routes REST, websocket, and metrics requests.
type Server struct {
	backend   api.Backend
	newReader ReaderFactory
	log       *logger.Logger
	metrics   *metrics.Metrics
	upgrader  websocket.Upgrader
	mux       *http.ServeMux
}

// New builds a server. Websocket sessions are disabled when NewReader is nil.
func New(opts Options) *Server {
	s := &Server{
		backend:   opts.Backend,
		newReader: opts.NewReader,
		log:       logger.OrNop(opts.Log).Component("server"),
		metrics:   opts.Metrics,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /api/v0/papers/{paper}/entities", s.handleGetEntities)
	s.mux.HandleFunc("POST /api/v0/papers/{paper}/entities", s.handlePostEntity)
	s.mux.HandleFunc("PATCH /api/v0/papers/{paper}/entities/{id}", s.handlePatchEntity)
	s.mux.HandleFunc("DELETE /api/v0/papers/{paper}/entities/{id}", s.handleDeleteEntity)
	s.mux.HandleFunc("GET /api/v0/papers", s.handleGetPapers)
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return s
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		s.mux.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		s.metrics.RecordRequest(route, rec.status, elapsed)
		s.log.LogRequest(r.Method, r.URL.Path, rec.status, elapsed)
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving on %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }
