package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const serviceVersion = "1.0.0"

func (s *Server) getSystemStatus(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]any{
		"status":       "running",
		"version":      serviceVersion,
		"active_tasks": s.registry.RunningCount(),
		"timestamp":    s.clock.Now(),
	})
}

func (s *Server) getCacheStatus(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, s.cache.Status())
}

type cacheClearRequest struct {
	Keys []string `json:"keys"`
}

// clearCache removes the named entries, or everything when no keys are
// given.
func (s *Server) clearCache(w http.ResponseWriter, r *http.Request) {
	var req cacheClearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Keys) == 0 {
		s.cache.Clear()
		writeData(w, http.StatusOK, map[string]any{"cleared": "all"})
		return
	}
	for _, key := range req.Keys {
		s.cache.Delete(key)
	}
	writeData(w, http.StatusOK, map[string]any{"cleared": len(req.Keys)})
}
