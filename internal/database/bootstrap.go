// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

/*
Package database brings the users database to a known state at startup.

EnsureDatabase runs four steps in order:

 1. Wait for the CouchDB server to answer (probe package).
 2. Create the users database. "Already exists" is success.
 3. Open the database.
 4. Publish the users design document.

Every step is idempotent, so a container restart converges on the same
database without error.
*/
package database

import (
	"context"
	"fmt"

	"github.com/tomtom215/credissuer/internal/config"
	"github.com/tomtom215/credissuer/internal/couchdb"
	"github.com/tomtom215/credissuer/internal/logging"
	"github.com/tomtom215/credissuer/internal/probe"
	"github.com/tomtom215/credissuer/internal/users"
)

// ProbeTargetName labels the store in probe logs and metrics.
const ProbeTargetName = "couchdb"

// Prober waits for a dependency. *probe.Prober satisfies it.
type Prober interface {
	Probe(ctx context.Context, target probe.Target) error
}

// Handle is the ready users database.
type Handle struct {
	Client   *couchdb.Client
	Database *couchdb.Database
	Users    *users.Store

	// Created is true when this run created the database.
	Created bool
}

// Bootstrapper runs EnsureDatabase.
type Bootstrapper struct {
	prober     Prober
	clientOpts []couchdb.Option
}

// NewBootstrapper returns a Bootstrapper that waits on the store with prober.
func NewBootstrapper(prober Prober, opts ...couchdb.Option) *Bootstrapper {
	return &Bootstrapper{prober: prober, clientOpts: opts}
}

// EnsureDatabase probes the store, creates and opens the users database,
// and publishes its design document.
//
// A probe timeout is returned unchanged (errors.Is(err, probe.ErrTimedOut)).
// Creation failures other than "already exists" and all transport errors
// are returned wrapped.
func (b *Bootstrapper) EnsureDatabase(ctx context.Context, cfg config.DatabaseConfig) (*Handle, error) {
	log := logging.Ctx(ctx).With().Str("database", cfg.Name).Logger()

	target, err := probe.NewTarget(ProbeTargetName, cfg.ConnectionString, cfg.Retries, cfg.MaxBackoff())
	if err != nil {
		return nil, err
	}
	log.Info().Int("max_attempts", cfg.Retries).Msg("Waiting for CouchDB")
	if err := b.prober.Probe(ctx, target); err != nil {
		return nil, err
	}

	client, err := couchdb.NewClient(cfg.ConnectionString, b.clientOpts...)
	if err != nil {
		return nil, err
	}

	created, err := client.CreateDatabaseIfAbsent(ctx, cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create database %s: %w", cfg.Name, err)
	}
	if created {
		log.Info().Msg("Created database")
	} else {
		log.Info().Msg("Database already exists")
	}

	db, err := client.OpenDatabase(ctx, cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Name, err)
	}

	store := users.NewStore(db)
	if err := store.PublishDesignDoc(ctx); err != nil {
		return nil, err
	}

	return &Handle{Client: client, Database: db, Users: store, Created: created}, nil
}
