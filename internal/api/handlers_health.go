// Runfeed - Speedrun Live Feed Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/runfeed

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/runfeed/internal/models"
)

const readinessTimeout = 2 * time.Second

// Healthz is the liveness probe: 200 while the process serves requests.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, &models.HealthResponse{
		Status:  "ok",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Readyz is the readiness probe: 503 until the database answers a ping.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	status := http.StatusOK
	resp := &models.HealthResponse{Status: "ready", Version: h.version, Checks: map[string]string{}}

	switch {
	case h.db == nil:
		resp.Checks["database"] = "not configured"
	case h.db.Ping(ctx) != nil:
		resp.Checks["database"] = "unreachable"
		resp.Status = "not_ready"
		status = http.StatusServiceUnavailable
	default:
		resp.Checks["database"] = "ok"
	}

	if h.wsHub != nil {
		resp.Checks["websocket"] = "ok"
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, status, resp)
}
