// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package api

import (
	"encoding/base64"
	"net/http"
	"strings"
	"testing"

	"github.com/tomtom215/credissuer/internal/agent"
	"github.com/tomtom215/credissuer/internal/audit"
	"github.com/tomtom215/credissuer/internal/auth"
	"github.com/tomtom215/credissuer/internal/models"
)

func basic(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestCreateUser(t *testing.T) {
	app := newTestApp(t, nil)

	valid := CreateUserRequest{Email: "Ada@Example.com", Password: "correct horse", PersonalInfo: map[string]string{"first_name": "Ada"}}

	rec := app.do(t, http.MethodPost, "/api/v1/users", valid)
	var view models.UserView
	decodeEnvelope(t, rec, &view)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if view.Email != "Ada@Example.com" || view.CreatedAt.IsZero() {
		t.Errorf("view = %+v", view)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("response must not expose the password hash")
	}

	doc, ok := app.couch.Doc("users", "user:ada@example.com")
	if !ok {
		t.Fatal("user document not stored")
	}
	if hash, _ := doc["password_hash"].(string); !strings.HasPrefix(hash, "$2") {
		t.Errorf("password_hash = %q, want bcrypt hash", hash)
	}

	rec = app.do(t, http.MethodPost, "/api/v1/users", valid)
	env := decodeEnvelope(t, rec, nil)
	if rec.Code != http.StatusConflict || env.Error == nil || env.Error.Code != "CONFLICT" {
		t.Errorf("duplicate signup = %d %+v", rec.Code, env.Error)
	}
}

func TestCreateUser_Validation(t *testing.T) {
	app := newTestApp(t, nil)

	tests := []struct {
		name string
		body CreateUserRequest
	}{
		{"missing email", CreateUserRequest{Password: "long enough"}},
		{"bad email", CreateUserRequest{Email: "nope", Password: "long enough"}},
		{"short password", CreateUserRequest{Email: "a@example.com", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, http.MethodPost, "/api/v1/users", tt.body)
			env := decodeEnvelope(t, rec, nil)
			if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
				t.Errorf("status = %d, error = %+v", rec.Code, env.Error)
			}
		})
	}
}

func TestAdmin_OpenGuard(t *testing.T) {
	app := newTestApp(t, nil)
	app.agent.AddConnection("conn-1", agent.ConnectionInboundOffer)

	rec := app.do(t, http.MethodGet, "/api/v1/admin/connections?state="+agent.ConnectionInboundOffer, nil)
	var conns []agent.Connection
	decodeEnvelope(t, rec, &conns)
	if rec.Code != http.StatusOK || len(conns) != 1 {
		t.Fatalf("connections = %d %v", rec.Code, conns)
	}

	rec = app.do(t, http.MethodPost, "/api/v1/admin/connections/conn-1/accept", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("accept = %d (%s)", rec.Code, rec.Body.String())
	}
	if got := app.agent.ConnectionState("conn-1"); got != agent.ConnectionConnected {
		t.Errorf("state = %q", got)
	}

	rec = app.do(t, http.MethodPost, "/api/v1/admin/connections/missing/accept", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("accept missing = %d, want 404", rec.Code)
	}
}

func TestAdmin_BasicGuard(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"ADMIN_API_USERNAME": "admin",
		"ADMIN_API_PASSWORD": "secret",
		"SESSION_SECRET":     "test-secret",
	})

	rec := app.do(t, http.MethodGet, "/api/v1/admin/config", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated = %d, want 401", rec.Code)
	}

	rec = app.do(t, http.MethodGet, "/api/v1/admin/config", nil, "Authorization", basic("admin", "secret"))
	var cfg map[string]interface{}
	decodeEnvelope(t, rec, &cfg)
	if rec.Code != http.StatusOK {
		t.Fatalf("basic auth = %d", rec.Code)
	}
	if cfg["ADMIN_API_PASSWORD"] == "secret" || cfg["SESSION_SECRET"] == "test-secret" {
		t.Error("secrets must be redacted")
	}

	rec = app.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{Username: "admin", Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login = %d, want 401", rec.Code)
	}

	rec = app.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{Username: "admin", Password: "secret"})
	var tok models.SessionToken
	decodeEnvelope(t, rec, &tok)
	if rec.Code != http.StatusOK || tok.Token == "" {
		t.Fatalf("login = %d", rec.Code)
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly {
		t.Error("login should set an HttpOnly session cookie")
	}

	rec = app.do(t, http.MethodGet, "/api/v1/admin/users/nobody@example.com", nil, "Authorization", "Bearer "+tok.Token)
	if rec.Code != http.StatusNotFound {
		t.Errorf("bearer lookup of missing user = %d, want 404", rec.Code)
	}
}

func TestAdminAudit(t *testing.T) {
	app := newTestApp(t, map[string]string{
		"ADMIN_API_USERNAME": "admin",
		"ADMIN_API_PASSWORD": "secret",
	})
	creds := []string{"Authorization", basic("admin", "secret")}

	app.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{Username: "admin", Password: "wrong"})
	app.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{Username: "admin", Password: "secret"})
	if rec := app.do(t, http.MethodPost, "/api/v1/users", CreateUserRequest{Email: "eve@example.com", Password: "long enough"}); rec.Code != http.StatusCreated {
		t.Fatalf("create = %d", rec.Code)
	}
	app.agent.AddConnection("conn-9", agent.ConnectionInboundOffer)
	if rec := app.do(t, http.MethodPost, "/api/v1/admin/connections/conn-9/accept", nil, creds...); rec.Code != http.StatusOK {
		t.Fatalf("accept = %d", rec.Code)
	}

	rec := app.do(t, http.MethodGet, "/api/v1/admin/audit", nil, creds...)
	var events []audit.Event
	decodeEnvelope(t, rec, &events)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit = %d", rec.Code)
	}
	want := []audit.EventType{
		audit.EventTypeConnectionAccepted,
		audit.EventTypeUserCreated,
		audit.EventTypeAuthSuccess,
		audit.EventTypeAuthFailure,
	}
	if len(events) != len(want) {
		t.Fatalf("events = %+v", events)
	}
	for i, e := range events {
		if e.Type != want[i] {
			t.Errorf("events[%d].Type = %s, want %s", i, e.Type, want[i])
		}
	}
	if events[0].Actor.ID != "admin" || events[0].Target == nil || events[0].Target.ID != "conn-9" {
		t.Errorf("accept event = %+v", events[0])
	}
	if strings.Contains(rec.Body.String(), "wrong") {
		t.Error("audit trail must not contain attempted passwords")
	}

	rec = app.do(t, http.MethodGet, "/api/v1/admin/audit?type=auth.failure&limit=5", nil, creds...)
	events = nil
	decodeEnvelope(t, rec, &events)
	if len(events) != 1 || events[0].Type != audit.EventTypeAuthFailure {
		t.Errorf("filtered events = %+v", events)
	}

	for _, bad := range []string{"0", "1001", "x"} {
		rec = app.do(t, http.MethodGet, "/api/v1/admin/audit?limit="+bad, nil, creds...)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s = %d, want 400", bad, rec.Code)
		}
	}
}

func TestAdminUser(t *testing.T) {
	app := newTestApp(t, nil)
	if rec := app.do(t, http.MethodPost, "/api/v1/users", CreateUserRequest{Email: "bob@example.com", Password: "long enough"}); rec.Code != http.StatusCreated {
		t.Fatalf("create = %d", rec.Code)
	}

	rec := app.do(t, http.MethodGet, "/api/v1/admin/users/bob@example.com", nil)
	var view models.UserView
	decodeEnvelope(t, rec, &view)
	if rec.Code != http.StatusOK || view.Email != "bob@example.com" {
		t.Errorf("user = %d %+v", rec.Code, view)
	}
}

func TestSanitizeLogValue(t *testing.T) {
	t.Parallel()
	if got := sanitizeLogValue("a\nb\x7f"); got != `a\x0ab\x7f` {
		t.Errorf("sanitizeLogValue = %q", got)
	}
}
