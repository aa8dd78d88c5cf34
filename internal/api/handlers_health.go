// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/credissuer/internal/models"
)

// readyCheckTimeout bounds each dependency check of Ready.
const readyCheckTimeout = 5 * time.Second

// Health answers 200 while the process is serving.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready checks that CouchDB and the agent still answer. It returns 503
// with per-dependency results when either fails.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
	defer cancel()

	status := models.HealthStatus{
		Status:      "ready",
		BootstrapID: h.bootstrapID,
		Uptime:      time.Since(h.started).Seconds(),
		Checks:      map[string]string{"couchdb": "ok", "agent": "ok"},
	}

	if _, err := h.store.OpenDatabase(ctx, h.cfg.Database.Name); err != nil {
		status.Checks["couchdb"] = err.Error()
		status.Status = "degraded"
	}
	if _, err := h.agent.GetIdentity(ctx); err != nil {
		status.Checks["agent"] = err.Error()
		status.Status = "degraded"
	}

	code := http.StatusOK
	if status.Status != "ready" {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, r, code, status)
}
