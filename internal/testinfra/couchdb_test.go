// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

//go:build integration

package testinfra

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/credissuer/internal/config"
	"github.com/tomtom215/credissuer/internal/couchdb"
	"github.com/tomtom215/credissuer/internal/database"
	"github.com/tomtom215/credissuer/internal/probe"
	"github.com/tomtom215/credissuer/internal/users"
)

func TestCouchDB_EnsureDatabase(t *testing.T) {
	SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	db, err := NewCouchDBContainer(ctx)
	if err != nil {
		t.Fatalf("NewCouchDBContainer() error = %v", err)
	}
	defer CleanupContainer(t, ctx, db)

	if info, err := GetContainerInfo(ctx, db); err == nil {
		t.Logf("couchdb container %s on %s (%s)", info.ID, info.Host, info.State)
	}

	cfg := config.DatabaseConfig{
		ConnectionString: db.ConnectionString,
		Name:             "users",
		Retries:          10,
		MaxRetryInterval: 2000,
	}
	b := database.NewBootstrapper(probe.New())

	first, err := b.EnsureDatabase(ctx, cfg)
	if err != nil {
		t.Fatalf("EnsureDatabase() error = %v", err)
	}
	if !first.Created {
		t.Error("first run should create the database")
	}

	second, err := b.EnsureDatabase(ctx, cfg)
	if err != nil {
		t.Fatalf("second EnsureDatabase() error = %v", err)
	}
	if second.Created {
		t.Error("second run should find the existing database")
	}

	u := &users.User{Email: "holder@example.com"}
	if err := second.Users.Create(ctx, u); err != nil {
		t.Fatalf("Users.Create() error = %v", err)
	}
	got, err := second.Users.Get(ctx, "holder@example.com")
	if err != nil {
		t.Fatalf("Users.Get() error = %v", err)
	}
	if got.Email != u.Email {
		t.Errorf("Email = %q, want %q", got.Email, u.Email)
	}

	err = second.Users.Create(ctx, &users.User{Email: "holder@example.com"})
	if !errors.Is(err, users.ErrExists) {
		t.Errorf("duplicate Create() error = %v, want ErrExists", err)
	}
}

func TestCouchDB_ExistingDatabaseIsExpected(t *testing.T) {
	SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	db, err := NewCouchDBContainer(ctx)
	if err != nil {
		t.Fatalf("NewCouchDBContainer() error = %v", err)
	}
	defer CleanupContainer(t, ctx, db)

	client, err := couchdb.NewClient(db.ConnectionString)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := client.CreateDatabaseIfAbsent(ctx, "issued"); err != nil {
		t.Fatalf("CreateDatabaseIfAbsent() error = %v", err)
	}
	created, err := client.CreateDatabaseIfAbsent(ctx, "issued")
	if err != nil {
		t.Fatalf("second CreateDatabaseIfAbsent() error = %v", err)
	}
	if created {
		t.Error("second create reported created = true")
	}
}
