package health

import (
	"encoding/json"
	"net/http"
	"strconv"
)

const defaultHistoryLimit = 200

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("pong\n"))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	rows := s.deps.Statuses.Snapshot()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"scrapers": rows,
		"count":    len(rows),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	events := s.deps.Events.CurrentEvents()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

func (s *Server) handleEventHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	if s.deps.History == nil {
		s.writeError(w, http.StatusServiceUnavailable, "odds history storage not configured")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := s.deps.History.GetOddsHistory(r.Context(), id, limit)
	if err != nil {
		s.log.Error("Failed to load odds history", "event_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load odds history")
		return
	}
	if len(entries) == 0 && s.deps.Events.Event(id) == nil {
		s.writeError(w, http.StatusNotFound, "event not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"event_id": id,
		"entries":  entries,
		"count":    len(entries),
	})
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Live == nil {
		s.writeError(w, http.StatusServiceUnavailable, "live tracker not running")
		return
	}
	s.writeJSON(w, http.StatusOK, s.deps.Live.Snapshot())
}

func (s *Server) handleLiveHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.Live == nil {
		s.writeError(w, http.StatusServiceUnavailable, "live tracker not running")
		return
	}
	id := r.PathValue("id")
	samples := s.deps.Live.History(id)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"event_id": id,
		"samples":  samples,
		"count":    len(samples),
	})
}

func (s *Server) handleLiveUptime(w http.ResponseWriter, r *http.Request) {
	if s.deps.Live == nil {
		s.writeError(w, http.StatusServiceUnavailable, "live tracker not running")
		return
	}
	// Unknown ids yield zero stats, not an error.
	s.writeJSON(w, http.StatusOK, s.deps.Live.Uptime(r.PathValue("id")))
}

func (s *Server) handleTrigger(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Trigger == nil {
		s.writeError(w, http.StatusServiceUnavailable, "scheduler not running")
		return
	}
	triggered := s.deps.Trigger()
	s.log.Info("Manual cycle requested", "triggered", triggered)

	resp := map[string]any{"triggered": triggered}
	if !triggered {
		resp["reason"] = "cycle already running or queued"
	}
	s.writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
