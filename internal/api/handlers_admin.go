// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/credissuer/internal/agent"
	"github.com/tomtom215/credissuer/internal/audit"
	"github.com/tomtom215/credissuer/internal/auth"
	"github.com/tomtom215/credissuer/internal/logging"
	"github.com/tomtom215/credissuer/internal/models"
	"github.com/tomtom215/credissuer/internal/users"
)

// LoginRequest carries admin credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=256"`
}

// Login exchanges admin credentials for a session token, returned in the
// body and as an HttpOnly cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	token, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Str("remote", r.RemoteAddr).Msg("Admin login failed")
		h.audit.LogAuthFailure(r.Context(), req.Username, audit.SourceFromRequest(r), err.Error())
		respondError(w, r, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Invalid username or password", nil)
		return
	}

	h.audit.LogAuthSuccess(r.Context(), req.Username, audit.SourceFromRequest(r))

	expires := time.Now().Add(h.sessions.Timeout()).UTC()
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/api/v1/admin",
		Expires:  expires,
		HttpOnly: true,
		Secure:   strings.HasPrefix(h.cfg.Server.MyURL, "https://"),
		SameSite: http.SameSiteStrictMode,
	})
	respondJSON(w, r, http.StatusOK, models.SessionToken{Token: token, ExpiresAt: expires})
}

// AdminConfig returns the effective configuration with secrets redacted.
func (h *Handler) AdminConfig(w http.ResponseWriter, r *http.Request) {
	h.audit.LogAdminAction(r.Context(), adminActor(r), audit.SourceFromRequest(r), "read_config", "Configuration read")
	respondJSON(w, r, http.StatusOK, h.cfg.Redacted())
}

// AdminConnections lists agent connections, optionally filtered by ?state=.
func (h *Handler) AdminConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := h.agent.ListConnections(r.Context(), r.URL.Query().Get("state"))
	if err != nil {
		respondError(w, r, http.StatusBadGateway, "AGENT_ERROR", "Failed to list connections", err)
		return
	}
	respondJSON(w, r, http.StatusOK, conns)
}

// AdminAcceptConnection accepts one inbound connection offer.
func (h *Handler) AdminAcceptConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conn, err := h.agent.AcceptConnection(r.Context(), id)
	if err != nil {
		if agent.IsNotFound(err) {
			respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Connection not found", nil)
			return
		}
		respondError(w, r, http.StatusBadGateway, "AGENT_ERROR", "Failed to accept connection", err)
		return
	}

	actor := adminActor(r)
	logging.Ctx(r.Context()).Info().Str("admin", actor.ID).Str("connection_id", id).Msg("Connection accepted")
	h.audit.LogConnectionAccepted(r.Context(), actor, audit.SourceFromRequest(r), id)
	respondJSON(w, r, http.StatusOK, conn)
}

// AdminUser returns one account by email.
func (h *Handler) AdminUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "NOT_FOUND", "User not found", nil)
			return
		}
		respondError(w, r, http.StatusBadGateway, "STORE_ERROR", "Failed to read user", err)
		return
	}
	respondJSON(w, r, http.StatusOK, userView(u))
}

// Audit listing bounds for ?limit=.
const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// AdminAudit lists recent audit events, most recent first. It accepts
// ?type= (repeatable), ?actor= and ?limit=.
func (h *Handler) AdminAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.QueryFilter{ActorID: q.Get("actor"), Limit: defaultAuditLimit}
	for _, t := range q["type"] {
		filter.Types = append(filter.Types, audit.EventType(t))
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxAuditLimit {
			respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be between 1 and 1000", nil)
			return
		}
		filter.Limit = n
	}

	events, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "AUDIT_ERROR", "Failed to query audit events", err)
		return
	}
	respondJSON(w, r, http.StatusOK, events)
}

// adminActor describes the authenticated admin for the audit trail.
func adminActor(r *http.Request) audit.Actor {
	claims := auth.GetClaims(r.Context())
	if claims == nil {
		return audit.Actor{ID: "unknown", Type: "admin"}
	}
	return audit.Actor{ID: claims.Username, Type: "admin"}
}
