package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Kati2710/BDC/internal/history"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err), started)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	resp, err := s.gateway.Answer(ctx, req)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err, started)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.gateway.Health(r.Context()))
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.gateway.ClearCache()
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "schema cache invalidated",
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw), started)
			return
		}
		limit = n
	}

	entries, err := s.gateway.History(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err, started)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]history.Entry{"queries": entries})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeError renders the error taxonomy's wire shape: a human-readable
// message plus elapsed time, never a stack trace or credential.
func (s *Server) writeError(w http.ResponseWriter, status int, err error, started time.Time) {
	s.logger.Error("request failed", "status", status, "error", err)
	s.writeJSON(w, status, map[string]any{
		"error":       maskSecrets(err.Error()),
		"duration_ms": time.Since(started).Milliseconds(),
	})
}
