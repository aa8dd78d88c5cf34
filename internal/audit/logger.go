// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package audit

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/credissuer/internal/logging"
)

// Config holds configuration for the audit logger.
type Config struct {
	// Enabled controls whether events are recorded.
	Enabled bool

	// LogEvents also writes each event as a log line.
	LogEvents bool
}

// DefaultConfig records and logs every event.
func DefaultConfig() *Config {
	return &Config{Enabled: true, LogEvents: true}
}

// Logger records audit events.
type Logger struct {
	mu     sync.RWMutex
	config Config
	store  Store
	log    zerolog.Logger
	now    func() time.Time
}

// NewLogger creates a Logger writing to store. A nil config uses DefaultConfig.
func NewLogger(store Store, config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	return &Logger{
		config: *config,
		store:  store,
		log:    logging.Component("audit"),
		now:    time.Now,
	}
}

// Log records event, filling in its ID and timestamp when unset.
func (l *Logger) Log(ctx context.Context, event *Event) {
	l.mu.RLock()
	cfg := l.config
	l.mu.RUnlock()

	if !cfg.Enabled {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = logging.RequestIDFromContext(ctx)
	}

	if cfg.LogEvents {
		l.log.Info().
			Str("event_id", event.ID).
			Str("type", string(event.Type)).
			Str("outcome", string(event.Outcome)).
			Str("actor", event.Actor.ID).
			Str("ip", event.Source.IPAddress).
			Msg(event.Message)
	}

	if l.store == nil {
		return
	}
	if err := l.store.Save(ctx, event); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("event_id", event.ID).Msg("Failed to save audit event")
	}
}

// Query retrieves events matching the filter, most recent first.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	if l.store == nil {
		return []Event{}, nil
	}
	return l.store.Query(ctx, filter)
}

// SetEnabled enables or disables recording.
func (l *Logger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Enabled = enabled
}

// Enabled reports whether events are recorded.
func (l *Logger) Enabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config.Enabled
}

// LogAuthSuccess records a successful admin login.
func (l *Logger) LogAuthSuccess(ctx context.Context, username string, source Source) {
	l.Log(ctx, &Event{
		Type:     EventTypeAuthSuccess,
		Severity: SeverityInfo,
		Outcome:  OutcomeSuccess,
		Actor:    Actor{ID: username, Type: "admin", AuthMethod: "password"},
		Source:   source,
		Action:   "login",
		Message:  "Admin login succeeded",
	})
}

// LogAuthFailure records a failed admin login. reason must not contain the
// attempted password.
func (l *Logger) LogAuthFailure(ctx context.Context, username string, source Source, reason string) {
	l.Log(ctx, &Event{
		Type:     EventTypeAuthFailure,
		Severity: SeverityWarning,
		Outcome:  OutcomeFailure,
		Actor:    Actor{ID: username, Type: "admin", AuthMethod: "password"},
		Source:   source,
		Action:   "login",
		Message:  "Admin login failed",
		Metadata: mustJSON(map[string]string{"reason": reason}),
	})
}

// LogUserCreated records a holder sign-up.
func (l *Logger) LogUserCreated(ctx context.Context, email string, source Source) {
	l.Log(ctx, &Event{
		Type:     EventTypeUserCreated,
		Severity: SeverityInfo,
		Outcome:  OutcomeSuccess,
		Actor:    Actor{ID: email, Type: "holder"},
		Target:   &Target{ID: email, Type: "user"},
		Source:   source,
		Action:   "signup",
		Message:  "User account created",
	})
}

// LogConnectionAccepted records an admin accepting a connection offer.
func (l *Logger) LogConnectionAccepted(ctx context.Context, actor Actor, source Source, connectionID string) {
	l.Log(ctx, &Event{
		Type:     EventTypeConnectionAccepted,
		Severity: SeverityInfo,
		Outcome:  OutcomeSuccess,
		Actor:    actor,
		Target:   &Target{ID: connectionID, Type: "connection"},
		Source:   source,
		Action:   "accept_connection",
		Message:  "Connection accepted",
	})
}

// LogAdminAction records any other admin request.
func (l *Logger) LogAdminAction(ctx context.Context, actor Actor, source Source, action, message string) {
	l.Log(ctx, &Event{
		Type:     EventTypeAdminAction,
		Severity: SeverityInfo,
		Outcome:  OutcomeSuccess,
		Actor:    actor,
		Source:   source,
		Action:   action,
		Message:  message,
	})
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// SourceFromRequest extracts the client address and user agent. r.RemoteAddr
// is expected to have been rewritten by the RealIP middleware.
func SourceFromRequest(r *http.Request) Source {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return Source{IPAddress: ip, UserAgent: r.UserAgent()}
}
