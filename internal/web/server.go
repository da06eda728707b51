// Package web provides an HTTP status server for the pir-stairs daemon.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/pir-stairs/internal/history"
	"github.com/sweeney/pir-stairs/internal/status"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	history    history.Repository
	log        zerolog.Logger
}

// New creates a Server that reads state from the given tracker. repo may be
// nil, in which case /history.json is not served. metrics may be nil.
func New(addr string, tracker *status.Tracker, repo history.Repository, metrics http.Handler, logger zerolog.Logger) *Server {
	s := &Server{
		tracker: tracker,
		history: repo,
		log:     logger.With().Str("component", "web").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/config.json", s.handleConfig)
	if repo != nil {
		mux.HandleFunc("/history.json", s.handleHistory)
	}
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()

	var recent []*history.Record
	if s.history != nil {
		var err error
		recent, err = s.history.Recent(r.Context(), 10)
		if err != nil {
			s.log.Warn().Err(err).Msg("load recent triggers")
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap, recent); err != nil {
		s.log.Error().Err(err).Msg("render status page")
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// handleConfig serves the exported module tree as {"um": {...}}.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	tree := s.tracker.ModuleConfig()
	if tree == nil {
		http.Error(w, "config not loaded", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]json.RawMessage{"um": tree})
}

// HistoryJSON is the JSON representation of recent triggers.
type HistoryJSON struct {
	Triggers []TriggerJSON `json:"triggers"`
}

// TriggerJSON is one stored trigger.
type TriggerJSON struct {
	ID        int64  `json:"id"`
	Timestamp string `json:"timestamp"`
	Direction string `json:"direction"`
	Pin       int8   `json:"pin"`
	Preset    uint8  `json:"preset"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	recs, err := s.history.Recent(r.Context(), limit)
	if err != nil && !errors.Is(err, history.ErrNotFound) {
		s.log.Error().Err(err).Msg("query history")
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}

	out := HistoryJSON{Triggers: make([]TriggerJSON, 0, len(recs))}
	for _, rec := range recs {
		out.Triggers = append(out.Triggers, TriggerJSON{
			ID:        rec.ID,
			Timestamp: rec.Time.UTC().Format(time.RFC3339),
			Direction: string(rec.Direction),
			Pin:       rec.Pin,
			Preset:    rec.PresetID,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	w.Write(data)
}
