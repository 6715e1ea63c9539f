// Package server exposes the scan pipeline over HTTP. Any number of UI
// surfaces attach as passive readers: they drive scans with POSTs, follow
// live progress over the /events SSE stream, and resynchronize from
// persisted state whenever they (re)open.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/elitetrace/factcheckd/internal/bus"
	"github.com/elitetrace/factcheckd/internal/scan"
	"github.com/elitetrace/factcheckd/internal/store"
	"github.com/elitetrace/factcheckd/internal/verdict"
)

// Store is the slice of the persistent store the server reads from.
type Store interface {
	ScanState() (store.ScanState, error)
	History() ([]verdict.HistoryEntry, error)
	ClearHistory() error
}

// Config holds server configuration.
type Config struct {
	Port int
}

// Server is the HTTP front end over the orchestrator.
type Server struct {
	httpServer   *http.Server
	orchestrator *scan.Orchestrator
	store        Store
	bus          *bus.Bus
}

// New creates a server instance.
func New(cfg Config, orchestrator *scan.Orchestrator, st Store, b *bus.Bus) *Server {
	s := &Server{
		orchestrator: orchestrator,
		store:        st,
		bus:          b,
	}

	mux := http.NewServeMux()

	// Captured selection (SCAN_RESULT / GET_SCAN_RESULT / RESET_SCAN)
	mux.HandleFunc("POST /scan", s.handleSetSelection)
	mux.HandleFunc("GET /scan", s.handleGetSelection)
	mux.HandleFunc("DELETE /scan", s.handleReset)

	// Scans (AI_CHECK / VISION_CHECK / ANALYZE_SITE)
	mux.HandleFunc("POST /check", s.handleCheck)
	mux.HandleFunc("POST /check/vision", s.handleCheckVision)
	mux.HandleFunc("POST /site", s.handleAnalyzeSite)

	// Persisted state and history
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("DELETE /history", s.handleClearHistory)

	// Live broadcasts
	mux.HandleFunc("GET /events", s.handleEvents)

	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the underlying handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("factcheckd listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("server: failed to encode response: %v", err)
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
