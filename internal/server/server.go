// Package server exposes the ingestion pipeline and stored tickets over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tuannvm/adosync/internal/config"
	"github.com/tuannvm/adosync/internal/logging"
	"github.com/tuannvm/adosync/internal/models"
)

// Runner starts one import run over a project selection.
type Runner interface {
	Run(ctx context.Context, sel models.Selection) (*models.Summary, error)
}

// TicketReader is the read/init surface of the ticket store the server needs.
type TicketReader interface {
	Init(ctx context.Context) error
	AllTickets(ctx context.Context) ([]models.Ticket, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

// Server routes HTTP requests to the importer and the store. It also
// serializes refresh runs: the pipeline's replace step is unsafe under
// concurrent writers, so overlapping refresh requests get a 409.
type Server struct {
	cfg        *config.Config
	importer   Runner
	store      TicketReader
	mux        *http.ServeMux
	refreshing atomic.Bool
}

// New creates a Server and registers its routes.
func New(cfg *config.Config, imp Runner, store TicketReader) *Server {
	s := &Server{
		cfg:      cfg,
		importer: imp,
		store:    store,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /api/tickets", s.handleTickets)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("POST /api/init", s.handleInit)
	s.mux.HandleFunc("GET /api/diagnostic", s.handleDiagnostic)
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the HTTP server until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.ServerHost, s.cfg.ServerPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.cfg.RefreshTimeout + 30*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Infof("starting HTTP server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logging.Infof("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

type refreshResponse struct {
	Success bool            `json:"success"`
	Summary *models.Summary `json:"summary"`
}

// handleRefresh kicks off one import run. The request body may carry a
// project selection; an empty body selects all partitions with completed
// items excluded. The run is bounded by the configured refresh timeout.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.refreshing.CompareAndSwap(false, true) {
		returnJSONError(w, http.StatusConflict, "a refresh is already in progress")
		return
	}
	defer s.refreshing.Store(false)

	sel := models.DefaultSelection()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		returnJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &sel); err != nil {
			returnJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid selection: %v", err))
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RefreshTimeout)
	defer cancel()

	logging.Infof("starting data refresh, selection: %+v", sel)
	summary, err := s.importer.Run(ctx, sel)
	if err != nil {
		logging.Errorf("data refresh failed: %v", err)
		returnJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{Success: true, Summary: summary})
}

func (s *Server) handleTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := s.store.AllTickets(r.Context())
	if err != nil {
		logging.Errorf("failed to load tickets: %v", err)
		returnJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"tickets": tickets,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		logging.Errorf("failed to load stats: %v", err)
		returnJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Init(r.Context()); err != nil {
		logging.Errorf("database initialization failed: %v", err)
		returnJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "database initialized successfully",
	})
}

// handleDiagnostic reports configuration presence without echoing secrets.
func (s *Server) handleDiagnostic(w http.ResponseWriter, r *http.Request) {
	projects := make([]string, 0, len(s.cfg.Projects))
	for _, p := range s.cfg.Projects {
		projects = append(projects, p.Project)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"organization":       s.cfg.Organization,
		"projects":           projects,
		"patConfigured":      s.cfg.PAT != "",
		"patLength":          len(s.cfg.PAT),
		"databaseConfigured": s.cfg.DatabaseURL != "",
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Errorf("failed to encode response: %v", err)
	}
}

// returnJSONError writes a JSON error response with the given status code and message
func returnJSONError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"code":    statusCode,
			"message": message,
		},
	})
}
