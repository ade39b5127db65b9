package http

import (
	"context"
	"net/http"
	"time"

	applog "budgetlens/internal/log"
)

const readyTimeout = 5 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks the ledger store and reports limiter and security
// counters alongside.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status, code := "ready", http.StatusOK
	checks := map[string]any{}

	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.LogError(r.Context(), "Readiness check failed", err, applog.ComponentHTTP, applog.OpValidate, applog.NewFields())
			checks["store"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	} else {
		checks["store"] = "ok"
	}

	rl := s.limiter.GetMetrics()
	checks["rate_limiter"] = map[string]int64{"active_clients": rl.ClientCount, "rejected": rl.TotalHits}
	sec := s.detector.GetMetrics()
	checks["security"] = map[string]int64{"suspicious": sec.SuspiciousRequests, "blocked": sec.BlockedRequests}
	tr := s.tracer.GetMetrics()
	checks["requests"] = map[string]int64{"total": tr.TotalRequests, "server_errors": tr.ServerErrors}

	NewResponse().Status(code).JSON(map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}
