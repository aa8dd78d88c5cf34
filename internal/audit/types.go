// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// EventType categorizes audit events.
type EventType string

const (
	EventTypeAuthSuccess        EventType = "auth.success"
	EventTypeAuthFailure        EventType = "auth.failure"
	EventTypeUserCreated        EventType = "user.created"
	EventTypeConnectionAccepted EventType = "connection.accepted"
	EventTypeAdminAction        EventType = "admin.action"
)

// Severity indicates the severity level of an audit event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Outcome indicates whether an action succeeded or failed.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is one audited action.
type Event struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Type      EventType       `json:"type"`
	Severity  Severity        `json:"severity"`
	Outcome   Outcome         `json:"outcome"`
	Actor     Actor           `json:"actor"`
	Target    *Target         `json:"target,omitempty"`
	Source    Source          `json:"source"`
	Action    string          `json:"action"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// Actor is who performed an action.
type Actor struct {
	// ID is the admin username or holder email.
	ID string `json:"id"`

	// Type is admin, holder or system.
	Type string `json:"type"`

	// AuthMethod is basic, session or open when known.
	AuthMethod string `json:"auth_method,omitempty"`
}

// Target is the object of an action.
type Target struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Source is where a request came from.
type Source struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Store persists audit events.
type Store interface {
	Save(ctx context.Context, event *Event) error
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)
}

// QueryFilter selects events. Zero fields match everything.
type QueryFilter struct {
	Types    []EventType `json:"types,omitempty"`
	Outcomes []Outcome   `json:"outcomes,omitempty"`
	ActorID  string      `json:"actor_id,omitempty"`
	Since    *time.Time  `json:"since,omitempty"`

	// Limit caps the result; 0 means no limit.
	Limit int `json:"limit,omitempty"`
}

// DefaultQueryFilter returns the 100 most recent events.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{Limit: 100}
}
