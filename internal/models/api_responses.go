// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

// Package models holds the JSON shapes shared by the HTTP API.
package models

import "time"

// APIResponse is the envelope of every JSON response.
//
// Status is "success" with Data set, or "error" with Error set.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata accompanies every response.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError is a machine-readable error.
//
// Codes used by the API:
//   - VALIDATION_ERROR: invalid request body or parameters
//   - AUTHENTICATION_ERROR: missing or invalid admin credentials
//   - NOT_FOUND: the resource does not exist
//   - CONFLICT: the resource already exists
//   - PROOF_REQUIRED: signup needs a verified connection
//   - AGENT_ERROR: the identity agent rejected or failed the call
//   - STORE_ERROR: CouchDB failed the call
//   - RENDER_ERROR: the card renderer failed
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// IssuerInfo describes this issuer to wallets and the UI.
type IssuerInfo struct {
	Name         string   `json:"name"`
	FriendlyName string   `json:"friendly_name"`
	DID          string   `json:"did,omitempty"`
	Role         string   `json:"role"`
	Schema       string   `json:"schema"`
	Version      string   `json:"schema_version"`
	Attributes   []string `json:"attributes"`
	CardMode     string   `json:"card_rendering"`
	IconMode     string   `json:"connection_icon"`
	LoginMode    string   `json:"login_proof"`
	SignupMode   string   `json:"signup_proof"`
}

// SignupInfo tells a client what signing up requires.
type SignupInfo struct {
	ProofRequired bool   `json:"proof_required"`
	ProofSchemaID string `json:"proof_schema_id,omitempty"`
}

// HealthStatus is returned by the readiness endpoint.
type HealthStatus struct {
	Status      string            `json:"status"`
	BootstrapID string            `json:"bootstrap_id"`
	Uptime      float64           `json:"uptime_seconds"`
	Checks      map[string]string `json:"checks"`
}

// UserView is the public projection of a users.User.
type UserView struct {
	Email             string            `json:"email"`
	AgentConnectionID string            `json:"agent_connection_id,omitempty"`
	PersonalInfo      map[string]string `json:"personal_info,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// SessionToken is returned by the login endpoint.
type SessionToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
