// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultCouchDBImage is the CouchDB image used by integration tests.
	DefaultCouchDBImage = "couchdb:3.3"

	// DefaultCouchDBPort is the CouchDB HTTP port inside the container.
	DefaultCouchDBPort = "5984"

	// DefaultCouchDBUser and DefaultCouchDBPassword are the admin credentials.
	DefaultCouchDBUser     = "admin"
	DefaultCouchDBPassword = "password"
)

// CouchDBContainer is a running CouchDB for testing.
type CouchDBContainer struct {
	testcontainers.Container

	// ConnectionString is the admin URL with credentials, suitable for
	// DB_CONNECTION_STRING.
	ConnectionString string
}

// CouchDBOption configures the CouchDB container.
type CouchDBOption func(*couchDBConfig)

type couchDBConfig struct {
	image        string
	user         string
	password     string
	startTimeout time.Duration
}

// WithCouchDBImage sets a custom CouchDB image.
func WithCouchDBImage(image string) CouchDBOption {
	return func(c *couchDBConfig) {
		c.image = image
	}
}

// WithCouchDBCredentials sets the admin user and password.
func WithCouchDBCredentials(user, password string) CouchDBOption {
	return func(c *couchDBConfig) {
		c.user = user
		c.password = password
	}
}

// WithStartTimeout sets how long to wait for CouchDB to answer.
func WithStartTimeout(timeout time.Duration) CouchDBOption {
	return func(c *couchDBConfig) {
		c.startTimeout = timeout
	}
}

// NewCouchDBContainer creates and starts a single-node CouchDB.
func NewCouchDBContainer(ctx context.Context, opts ...CouchDBOption) (*CouchDBContainer, error) {
	cfg := &couchDBConfig{
		image:        DefaultCouchDBImage,
		user:         DefaultCouchDBUser,
		password:     DefaultCouchDBPassword,
		startTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	port := DefaultCouchDBPort + "/tcp"
	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{port},
		Env: map[string]string{
			"COUCHDB_USER":     cfg.user,
			"COUCHDB_PASSWORD": cfg.password,
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(port),
			wait.ForHTTP("/").WithPort(port),
		).WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create couchdb container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}
	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}

	conn := url.URL{
		Scheme: "http",
		User:   url.UserPassword(cfg.user, cfg.password),
		Host:   fmt.Sprintf("%s:%s", host, mapped.Port()),
	}
	return &CouchDBContainer{Container: container, ConnectionString: conn.String()}, nil
}
