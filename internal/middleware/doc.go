// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

/*
Package middleware provides the HTTP middleware shared by the issuer API.

All middleware has the chi signature func(http.Handler) http.Handler:

  - RequestID: propagates or generates X-Request-ID and stores it in the
    logging context so every log line of a request carries request_id
  - PrometheusMetrics: request count, duration and in-flight gauge, labeled
    by the chi route pattern rather than the raw path
  - Compression: gzip for clients that accept it

Usage:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.Compression)
*/
package middleware
