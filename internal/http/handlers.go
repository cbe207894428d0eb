package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"ledger/internal/core"
	"ledger/internal/log"
)

// statusClientClosedRequest is the nginx convention for a request the
// client abandoned.
const statusClientClosedRequest = 499

// writeError maps a service error onto a status and a {"detail"} body.
// Unexpected errors are logged and reported as 500 without details.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case core.IsValidationError(err):
		UnprocessableEntityError(err.Error()).Write(w)
	case errors.Is(err, core.ErrBadRequest):
		BadRequestError(err.Error()).Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError(err.Error()).Write(w)
	case errors.Is(err, core.ErrConflict):
		ConflictError(err.Error()).Write(w)
	case errors.Is(err, context.Canceled):
		// the client is gone; the status is only seen in logs
		s.requestLogger(r).DebugContext(r.Context(), "Request canceled by client",
			log.FieldPath, r.URL.Path)
		ErrorResponse(statusClientClosedRequest, "request canceled").Write(w)
	case errors.Is(err, context.DeadlineExceeded):
		s.requestLogger(r).WarnContext(r.Context(), "Request timed out",
			log.FieldPath, r.URL.Path, log.FieldError, err)
		ErrorResponse(http.StatusGatewayTimeout, "request timed out").Write(w)
	default:
		s.requestLogger(r).ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path, log.FieldError, err)
		InternalServerError("internal server error").Write(w)
	}
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}).Write(w)
}

// handleReady reports 503 while the store does not answer.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{
		"chart_cache": map[string]any{"entries": s.chartCache.Size(), "status": "ok"},
		"rate_limiter": map[string]any{
			"active_clients": s.rateLimiter.ActiveClients(),
			"status":         "ok",
		},
	}

	if s.ready == nil {
		checks["store"] = "ok"
	} else if err := s.ready(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status, code = "not_ready", http.StatusServiceUnavailable
		s.requestLogger(r).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
	} else {
		checks["store"] = "ok"
	}

	NewJSONResponse().Status(code).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	w.WriteHeader(http.StatusOK)
	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_requests_failed_total", "HTTP requests answered with 5xx", "counter", traceMetrics.FailedRequests)
	metric("operation_writes_total", "Operations added, updated or deleted", "counter", atomic.LoadInt64(&s.appMetrics.operationWrites))
	metric("chart_cache_hits_total", "Chart cache hits", "counter", atomic.LoadInt64(&s.appMetrics.cacheHits))
	metric("chart_cache_misses_total", "Chart cache misses", "counter", atomic.LoadInt64(&s.appMetrics.cacheMisses))
	metric("chart_cache_entries", "Current chart cache entries", "gauge", s.chartCache.Size())
	metric("rate_limit_hits_total", "Total rate limit hits", "counter", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "Total suspicious requests detected", "counter", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "Application uptime in seconds", "gauge", int64(time.Since(s.appMetrics.uptime).Seconds()))
}
