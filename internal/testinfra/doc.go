// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

// Package testinfra starts real dependencies in Docker for integration tests.
//
// Everything here sits behind the integration build tag:
//
//	go test -tags integration ./internal/testinfra/...
//
// Tests call SkipIfNoDocker first so the suite still passes on machines
// without a Docker daemon.
//
// # CouchDB
//
//	ctx := context.Background()
//	db, err := testinfra.NewCouchDBContainer(ctx)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer testinfra.CleanupContainer(t, ctx, db)
//
//	cfg := config.DatabaseConfig{ConnectionString: db.ConnectionString, ...}
//
// The unit tests in internal/couchdb and internal/database run against the
// in-process fake in couchdbtest. The container tests here check that the
// same calls behave the same way against a real server.
package testinfra
