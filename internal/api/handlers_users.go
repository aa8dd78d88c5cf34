// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package api

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/credissuer/internal/audit"
	"github.com/tomtom215/credissuer/internal/logging"
	"github.com/tomtom215/credissuer/internal/models"
	"github.com/tomtom215/credissuer/internal/users"
)

// CreateUserRequest is the signup body.
type CreateUserRequest struct {
	Email        string            `json:"email" validate:"required,email,max=254"`
	Password     string            `json:"password" validate:"required,min=8,max=72"`
	ConnectionID string            `json:"connection_id" validate:"omitempty,max=128"`
	PersonalInfo map[string]string `json:"personal_info" validate:"omitempty,max=50,dive,keys,required,max=64,endkeys,max=512"`
}

// CreateUser creates an issuer account. When the signup provider requires a
// proof the request must name the agent connection that presented it.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if h.providers.Signup.Required() && req.ConnectionID == "" {
		info := h.signupInfo()
		respondAPIError(w, r, http.StatusUnprocessableEntity, &models.APIError{
			Code:    "PROOF_REQUIRED",
			Message: "Signup requires a verified connection",
			Details: map[string]interface{}{"proof_schema_id": info.ProofSchemaID},
		})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create account", err)
		return
	}

	u := &users.User{
		Email:             strings.TrimSpace(req.Email),
		PasswordHash:      string(hash),
		AgentConnectionID: req.ConnectionID,
		PersonalInfo:      req.PersonalInfo,
	}
	if err := h.users.Create(r.Context(), u); err != nil {
		if errors.Is(err, users.ErrExists) {
			respondError(w, r, http.StatusConflict, "CONFLICT", "An account with this email already exists", nil)
			return
		}
		respondError(w, r, http.StatusBadGateway, "STORE_ERROR", "Failed to create account", err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("user_id", u.ID).Msg("Account created")
	h.audit.LogUserCreated(r.Context(), u.Email, audit.SourceFromRequest(r))
	respondJSON(w, r, http.StatusCreated, userView(u))
}

func userView(u *users.User) models.UserView {
	return models.UserView{
		Email:             u.Email,
		AgentConnectionID: u.AgentConnectionID,
		PersonalInfo:      u.PersonalInfo,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}
