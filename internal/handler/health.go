package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger is satisfied by the Postgres repository and the Redis cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
// Readiness covers the two backing stores: Postgres holds the accounts,
// Redis only throttles logins but a down Redis still degrades /auth/login.
type HealthHandler struct {
	deps []dependency
}

type dependency struct {
	name   string
	pinger Pinger
}

// NewHealthHandler creates a HealthHandler.
// A nil store is reported as "not configured" instead of failing readiness.
func NewHealthHandler(db, cache Pinger) *HealthHandler {
	return &HealthHandler{
		deps: []dependency{
			{name: "postgres", pinger: db},
			{name: "redis", pinger: cache},
		},
	}
}

// HealthResponse is the probe response body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz reports process liveness only, no dependency checks.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz pings each backing store and reports 503 if any is down.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.deps))
	healthy := true

	for _, dep := range h.deps {
		switch {
		case dep.pinger == nil:
			checks[dep.name] = "not configured"
		case dep.pinger.Ping(ctx) != nil:
			checks[dep.name] = "unreachable"
			healthy = false
		default:
			checks[dep.name] = "ok"
		}
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, HealthResponse{Status: status, Checks: checks})
}
