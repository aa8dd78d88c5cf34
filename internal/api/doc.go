// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

/*
Package api is the issuer's HTTP application, built with chi once bootstrap
has returned Ready.

NewApplication has the bootstrap.ApplicationFactory signature and is the
default factory used by cmd/server.

Routes:

	GET  /health                          liveness
	GET  /api/v1/health/ready             readiness (CouchDB and agent reachable)
	GET  /metrics                         Prometheus metrics

	GET  /api/v1/issuer                   issuer identity and selected providers
	GET  /api/v1/images/icon              connection icon
	POST /api/v1/images/card/{side}       render the credential card (front|back)
	GET  /api/v1/proofs/login             login proof request
	GET  /api/v1/signup                   signup requirements
	POST /api/v1/users                    create an account

	POST /api/v1/auth/login               admin session token (strict rate limit)

	GET  /api/v1/admin/config             effective configuration, secrets redacted
	GET  /api/v1/admin/connections        agent connections (?state=)
	POST /api/v1/admin/connections/{id}/accept
	GET  /api/v1/admin/users/{email}
	GET  /api/v1/admin/audit              recent audit events (?type=, ?actor=, ?limit=)

Admin routes pass through auth.Middleware.RequireAdmin. When the admin guard
is open they are reachable without credentials.

Middleware stack, outermost first: request ID, real IP, panic recovery,
CORS, Prometheus metrics. Routes under /api/v1 add a per-IP rate limit and
gzip.
*/
package api
