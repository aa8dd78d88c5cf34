// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/credissuer/internal/models"
	"github.com/tomtom215/credissuer/internal/providers"
)

// iconMaxAge is the client cache lifetime of the connection icon.
const iconMaxAge = time.Hour

// Issuer describes the issuer and the selected providers.
func (h *Handler) Issuer(w http.ResponseWriter, r *http.Request) {
	p := h.providers
	info := models.IssuerInfo{
		Name:         h.cfg.Agent.Name,
		FriendlyName: h.cfg.Agent.FriendlyName,
		Schema:       p.Schema.Name,
		Version:      p.Schema.Version,
		Attributes:   p.Schema.Attributes,
		CardMode:     p.Card.Mode(),
		IconMode:     p.Icon.Mode(),
		LoginMode:    p.Login.Mode(),
		SignupMode:   p.Signup.Mode(),
	}
	if h.identity != nil {
		info.DID = h.identity.DID
		info.Role = h.identity.Role
	}
	respondJSON(w, r, http.StatusOK, info)
}

// Icon serves the connection icon.
func (h *Handler) Icon(w http.ResponseWriter, r *http.Request) {
	img, err := h.providers.Icon.Icon(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "RENDER_ERROR", "Failed to load connection icon", err)
		return
	}
	respondImage(w, img, iconMaxAge)
}

// RenderCardRequest carries the credential attributes to draw.
type RenderCardRequest struct {
	Attributes map[string]string `json:"attributes" validate:"required,min=1,max=100,dive,keys,required,max=128,endkeys,max=1024"`
}

// RenderCard renders the front or back of the credential card.
func (h *Handler) RenderCard(w http.ResponseWriter, r *http.Request) {
	side := chi.URLParam(r, "side")
	if side != "front" && side != "back" {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Card side must be front or back", nil)
		return
	}

	var req RenderCardRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var (
		img *providers.Image
		err error
	)
	if side == "front" {
		img, err = h.providers.Card.RenderFront(r.Context(), req.Attributes)
	} else {
		img, err = h.providers.Card.RenderBack(r.Context(), req.Attributes)
	}
	if err != nil {
		respondError(w, r, http.StatusBadGateway, "RENDER_ERROR", "Failed to render card", err)
		return
	}
	respondImage(w, img, 0)
}

// LoginProof returns the proof request wallets answer to log in.
func (h *Handler) LoginProof(w http.ResponseWriter, r *http.Request) {
	req, err := h.providers.Login.ProofRequest(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to build login proof request", err)
		return
	}
	respondJSON(w, r, http.StatusOK, req)
}

// SignupInfo reports whether signing up requires a proof.
func (h *Handler) SignupInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, h.signupInfo())
}

func (h *Handler) signupInfo() models.SignupInfo {
	info := models.SignupInfo{ProofRequired: h.providers.Signup.Required()}
	if acct, ok := h.providers.Signup.(*providers.AccountSignupProof); ok {
		info.ProofSchemaID = acct.ProofSchemaID()
	}
	return info
}
