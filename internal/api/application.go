// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/credissuer/internal/agent"
	"github.com/tomtom215/credissuer/internal/audit"
	"github.com/tomtom215/credissuer/internal/auth"
	"github.com/tomtom215/credissuer/internal/bootstrap"
	"github.com/tomtom215/credissuer/internal/config"
	"github.com/tomtom215/credissuer/internal/couchdb"
	"github.com/tomtom215/credissuer/internal/providers"
	"github.com/tomtom215/credissuer/internal/users"
)

// Agent is the part of the agent client the API uses.
type Agent interface {
	GetIdentity(ctx context.Context) (*agent.Identity, error)
	ListConnections(ctx context.Context, state string) ([]agent.Connection, error)
	AcceptConnection(ctx context.Context, id string) (*agent.Connection, error)
}

// UserStore is the part of *users.Store the API uses.
type UserStore interface {
	Create(ctx context.Context, u *users.User) error
	Get(ctx context.Context, email string) (*users.User, error)
}

// Store reports CouchDB readiness.
type Store interface {
	OpenDatabase(ctx context.Context, name string) (*couchdb.Database, error)
}

// Handler holds the dependencies of every route.
type Handler struct {
	cfg         *config.Config
	bootstrapID string
	identity    *agent.Identity
	agent       Agent
	store       Store
	users       UserStore
	providers   *providers.Bundle
	auth        *auth.Middleware
	sessions    *auth.SessionManager
	audit       *audit.Logger
	started     time.Time
}

// auditBufferEvents bounds the in-memory audit trail.
const auditBufferEvents = 1000

// NewApplication builds the HTTP handler from a ready bootstrap run.
func NewApplication(_ context.Context, h *bootstrap.Handles) (http.Handler, error) {
	if h == nil || h.Config == nil || h.Database == nil || h.Agent == nil || h.Providers == nil {
		return nil, errors.New("api: incomplete bootstrap handles")
	}

	handler, err := NewHandler(h.Config, h.AdminGuard, h.SessionSecret, Deps{
		BootstrapID: h.BootstrapID,
		Identity:    h.Identity,
		Agent:       h.Agent,
		Store:       h.Database.Client,
		Users:       h.Database.Users,
		Providers:   h.Providers,
	})
	if err != nil {
		return nil, err
	}
	return NewRouter(handler).Routes(), nil
}

// Deps are the collaborators a Handler serves from.
type Deps struct {
	BootstrapID string
	Identity    *agent.Identity
	Agent       Agent
	Store       Store
	Users       UserStore
	Providers   *providers.Bundle

	// Audit records admin and sign-up actions. Nil keeps the most recent
	// events in memory.
	Audit *audit.Logger
}

// NewHandler wires a Handler. The session manager signs with secret.
func NewHandler(cfg *config.Config, guard auth.AdminGuard, secret string, deps Deps) (*Handler, error) {
	issuer := cfg.Server.MyURL
	if issuer == "" {
		issuer = cfg.Agent.Name
	}
	sessions, err := auth.NewSessionManager(secret, cfg.Server.SessionTimeout, issuer)
	if err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}
	mw, err := auth.NewMiddleware(guard, sessions)
	if err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}

	auditLog := deps.Audit
	if auditLog == nil {
		auditLog = audit.NewLogger(audit.NewMemoryStore(auditBufferEvents), nil)
	}

	return &Handler{
		cfg:         cfg,
		bootstrapID: deps.BootstrapID,
		identity:    deps.Identity,
		agent:       deps.Agent,
		store:       deps.Store,
		users:       deps.Users,
		providers:   deps.Providers,
		auth:        mw,
		sessions:    sessions,
		audit:       auditLog,
		started:     time.Now(),
	}, nil
}
