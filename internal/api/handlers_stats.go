package api

import (
	"net/http"
)

func (s *Server) handleLatencyStats(w http.ResponseWriter, r *http.Request) {
	stats := s.orchestrator.Stats()
	if stats == nil {
		jsonError(w, "latency stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"window":      s.cfg.StatsWindow.String(),
		"queue_depth": s.orchestrator.QueueDepth(),
		"stats":       stats.Snapshot(),
	})
}
