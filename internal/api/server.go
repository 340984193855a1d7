// Package api exposes the engine's read-only monitoring surface over HTTP.
// The surrounding dashboard and notification layer consumes these endpoints;
// nothing here mutates engine state.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/PawanKGupta/modular-trade-agent-sub007/internal/engine"
)

// Server provides the monitoring HTTP interface.
type Server struct {
	server  *http.Server
	manager *engine.Manager
	logger  *zap.Logger
}

// NewServer creates a monitoring server on the given port.
func NewServer(port int, manager *engine.Manager, logger *zap.Logger) *Server {
	s := &Server{
		manager: manager,
		logger:  logger.Named("api-server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/tracked", s.trackedHandler)
	mux.HandleFunc("/pending", s.pendingHandler)
	mux.HandleFunc("/sells", s.sellsHandler)
	mux.HandleFunc("/health", s.healthHandler)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	return s
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func (s *Server) trackedHandler(w http.ResponseWriter, r *http.Request) {
	tracked, err := s.manager.ListTracked()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, tracked)
}

func (s *Server) pendingHandler(w http.ResponseWriter, r *http.Request) {
	pending, err := s.manager.ListPending()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, pending)
}

func (s *Server) sellsHandler(w http.ResponseWriter, r *http.Request) {
	sells, err := s.manager.GetActiveSellOrders()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, sells)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}
