// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/domevanzy/Zattoo-EPG/internal/jobs"
	"github.com/domevanzy/Zattoo-EPG/internal/log"
	"github.com/domevanzy/Zattoo-EPG/internal/store"
)

const maxRunsLimit = 100

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type statusResponse struct {
	Version     string       `json:"version"`
	Uptime      string       `json:"uptime"`
	Ready       bool         `json:"ready"`
	GeneratedAt *time.Time   `json:"generated_at,omitempty"`
	LastRun     *jobs.Status `json:"last_run,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, errorResponse{Error: code, Detail: detail})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready once a document has been produced.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if _, _, ok := s.cfg.Backend.Document(); !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleXMLTV(w http.ResponseWriter, r *http.Request) {
	doc, generated, ok := s.cfg.Backend.Document()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "no guide has been produced yet")
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	http.ServeContent(w, r, "xmltv.xml", generated, bytes.NewReader(doc))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		Version: s.cfg.Version,
		Uptime:  time.Since(s.started).Truncate(time.Second).String(),
	}
	if _, generated, ok := s.cfg.Backend.Document(); ok {
		resp.Ready = true
		resp.GeneratedAt = &generated
	}
	if st, ok := s.cfg.Backend.LastStatus(); ok {
		resp.LastRun = st
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		writeError(w, http.StatusNotFound, "history_disabled", "run history is not configured")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := s.cfg.History.Recent(r.Context(), limit)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).
			Str(log.FieldEvent, "runs.query_failed").
			Msg("failed to list runs")
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RefreshTimeout)
	defer cancel()

	logger.Info().Str(log.FieldEvent, "refresh.requested").Msg("manual refresh requested")
	st, err := s.cfg.Backend.Refresh(ctx)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		writeJSON(w, status, map[string]any{"error": "refresh_failed", "detail": err.Error(), "run": st})
		return
	}
	writeJSON(w, http.StatusOK, st)
}
