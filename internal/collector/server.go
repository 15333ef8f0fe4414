package collector

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/agentward/agentward/internal/event"
	"github.com/agentward/agentward/internal/run"
)

// Server exposes the collector HTTP API.
type Server struct {
	store  *Store
	apiKey string
	log    zerolog.Logger
	router *chi.Mux
}

// NewServer wires the collector routes. An empty apiKey disables auth.
func NewServer(store *Store, apiKey string, log zerolog.Logger) *Server {
	s := &Server{store: store, apiKey: apiKey, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.auth)
		r.Post("/v1/events", s.handleIngestEvent)
		r.Post("/v1/a2a-events", s.handleIngestA2A)
		r.Post("/v1/runs", s.handleUpsertRun)
		r.Get("/v1/runs", s.handleListRuns)
		r.Get("/v1/runs/{runID}", s.handleGetRun)
		r.Delete("/v1/runs/{runID}", s.handleDeleteRun)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("Authorization") != "Bearer "+s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleIngestEvent(w http.ResponseWriter, r *http.Request) {
	var ev event.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if ev.RunID == "" {
		writeError(w, http.StatusBadRequest, "run_id is required")
		return
	}
	if err := s.store.IngestEvent(r.Context(), ev); err != nil {
		s.ingestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleIngestA2A(w http.ResponseWriter, r *http.Request) {
	var ev event.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if ev.RunID == "" {
		writeError(w, http.StatusBadRequest, "run_id is required")
		return
	}
	if err := s.store.IngestA2A(r.Context(), ev); err != nil {
		s.ingestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleUpsertRun(w http.ResponseWriter, r *http.Request) {
	var snap run.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if snap.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if snap.Status == "" {
		snap.Status = run.StatusRunning
	}
	if err := s.store.UpsertRun(r.Context(), snap); err != nil {
		s.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.store.ListRuns(r.Context(), r.URL.Query().Get("project"), limit)
	if err != nil {
		s.serverError(w, err)
		return
	}
	if runs == nil {
		runs = []RunSummary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	detail, err := s.store.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if errors.Is(err, ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteRun(r.Context(), chi.URLParam(r, "runID"))
	if errors.Is(err, ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) ingestError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrRunNotFound) {
		writeError(w, http.StatusBadRequest, "run_id not found; send run_started first")
		return
	}
	s.serverError(w, err)
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.log.Error().Err(err).Msg("collector request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}
