// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

// Package audit records security-relevant actions taken through the issuer's
// HTTP API.
//
// # Event Types
//
//   - auth.success, auth.failure: admin login attempts
//   - user.created: holder account sign-up
//   - connection.accepted: an admin accepted an inbound agent connection
//   - admin.action: other admin reads such as the effective configuration
//
// Every event is written to a Store and echoed as a structured log line with
// component=audit. MemoryStore keeps the most recent events in process; the
// admin API serves them from GET /api/v1/admin/audit.
//
// # Usage
//
//	log := audit.NewLogger(audit.NewMemoryStore(1000), nil)
//	log.LogAuthFailure(ctx, "admin", audit.SourceFromRequest(r), "invalid password")
//
//	events, _ := log.Query(ctx, audit.QueryFilter{Types: []audit.EventType{audit.EventTypeAuthFailure}})
//
// Passwords, session tokens and proof contents are never recorded.
package audit
