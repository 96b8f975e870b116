package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Checker reports the health of one dependency.
type Checker interface {
	Health(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Health(ctx context.Context) error {
	return f(ctx)
}

type HealthHandler struct {
	version  string
	checkers map[string]Checker
	timeout  time.Duration
}

func NewHealthHandler(version string, checkers map[string]Checker) *HealthHandler {
	return &HealthHandler{version: version, checkers: checkers, timeout: 3 * time.Second}
}

// Health answers 200 when every dependency is healthy and 503 otherwise.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.checkers))
	for name, checker := range h.checkers {
		if err := checker.Health(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  state,
		"version": h.version,
		"checks":  checks,
	})
}
