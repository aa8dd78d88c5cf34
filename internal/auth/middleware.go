// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tomtom215/credissuer/internal/logging"
)

type contextKey string

// ClaimsContextKey holds the *Claims of an authenticated request.
const ClaimsContextKey contextKey = "claims"

// SessionCookieName is the cookie carrying a session token.
const SessionCookieName = "credissuer_session"

// anonymousAdmin is the principal used when the admin API is open.
const anonymousAdmin = "anonymous"

// Middleware enforces the admin guard on HTTP handlers.
type Middleware struct {
	guard    AdminGuard
	basic    *BasicAuthManager
	sessions *SessionManager
}

// NewMiddleware builds the middleware for guard. sessions may be nil, in
// which case only Basic credentials are accepted on protected routes.
func NewMiddleware(guard AdminGuard, sessions *SessionManager) (*Middleware, error) {
	m := &Middleware{guard: guard, sessions: sessions}
	if guard.Protected() {
		basic, err := NewBasicAuthManager(guard.Username, guard.Password)
		if err != nil {
			return nil, fmt.Errorf("admin guard: %w", err)
		}
		m.basic = basic
	}
	return m, nil
}

// Guard returns the admin guard the middleware enforces.
func (m *Middleware) Guard() AdminGuard { return m.guard }

// Login checks admin credentials and returns a signed session token.
func (m *Middleware) Login(username, password string) (string, error) {
	if m.sessions == nil {
		return "", fmt.Errorf("sessions are not configured")
	}
	if m.guard.Protected() && !m.basic.Check(username, password) {
		return "", fmt.Errorf("invalid username or password")
	}
	if !m.guard.Protected() {
		username = anonymousAdmin
	}
	return m.sessions.GenerateToken(username, RoleAdmin)
}

// RequireAdmin lets a request through when the admin API is open, or when it
// carries valid Basic credentials or an admin session token.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.guard.Protected() {
			next.ServeHTTP(w, withClaims(r, &Claims{Username: anonymousAdmin, Role: RoleAdmin}))
			return
		}

		authHeader := r.Header.Get("Authorization")
		switch {
		case strings.HasPrefix(authHeader, "Basic "):
			username, err := m.basic.ValidateCredentials(authHeader)
			if err != nil {
				logging.Ctx(r.Context()).Warn().Str("remote", r.RemoteAddr).Msg("Admin basic authentication failed")
				m.challenge(w)
				return
			}
			next.ServeHTTP(w, withClaims(r, &Claims{Username: username, Role: RoleAdmin}))
			return
		case m.sessions != nil:
			token := bearerToken(r)
			if token == "" {
				m.challenge(w)
				return
			}
			claims, err := m.sessions.ValidateToken(token)
			if err != nil || claims.Role != RoleAdmin {
				logging.Ctx(r.Context()).Debug().Err(err).Msg("Admin session rejected")
				m.challenge(w)
				return
			}
			next.ServeHTTP(w, withClaims(r, claims))
			return
		default:
			m.challenge(w)
		}
	})
}

// challenge writes a 401 with the Basic challenge header.
func (m *Middleware) challenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", m.basic.WWWAuthenticate())
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

func bearerToken(r *http.Request) string {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func withClaims(r *http.Request, claims *Claims) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ClaimsContextKey, claims))
}

// GetClaims returns the claims stored by RequireAdmin, or nil.
func GetClaims(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsContextKey).(*Claims)
	return claims
}
