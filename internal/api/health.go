package api

import (
	"context"
	"net/http"
	"time"
)

// Check pings one dependency.
type Check func(ctx context.Context) error

type HealthHandler struct {
	required map[string]Check
	optional map[string]Check
	env      string
	version  string
}

// NewHealthHandler takes required dependencies (down means not ready) and
// optional ones (down means degraded).
func NewHealthHandler(required, optional map[string]Check, env, version string) *HealthHandler {
	return &HealthHandler{
		required: required,
		optional: optional,
		env:      env,
		version:  version,
	}
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Env     string `json:"env,omitempty"`
}

type ReadinessResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version,omitempty"`
	Env          string            `json:"env,omitempty"`
	Dependencies map[string]string `json:"dependencies"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	resp := LivenessResponse{
		Status:  "ok",
		Version: h.version,
		Env:     h.env,
	}
	writeJSON(w, http.StatusOK, resp)
}

func ping(ctx context.Context, check Check) string {
	pingCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := check(pingCtx); err != nil {
		return "down"
	}
	return "ok"
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := make(map[string]string)
	status := "ok"

	for name, check := range h.required {
		deps[name] = ping(ctx, check)
		if deps[name] != "ok" {
			status = "error"
		}
	}
	for name, check := range h.optional {
		deps[name] = ping(ctx, check)
		if deps[name] != "ok" && status == "ok" {
			status = "degraded"
		}
	}

	resp := ReadinessResponse{
		Status:       status,
		Version:      h.version,
		Env:          h.env,
		Dependencies: deps,
	}

	httpStatus := http.StatusOK
	if status == "error" {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, resp)
}
