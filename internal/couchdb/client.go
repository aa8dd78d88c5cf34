// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

/*
Package couchdb is a small CouchDB HTTP client covering what the service
needs at startup and for account storage: database creation, database
lookup, document reads and writes, and design document publication.

Credentials embedded in the connection string are removed from the base URL
and sent as HTTP basic auth, so they never appear in logs or error messages.

All calls go through a circuit breaker. Answers that are part of normal
idempotent use (412 "file_exists", 404, 409) are returned to the caller as
*StatusError values but are not counted as breaker failures.
*/
package couchdb

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/credissuer/internal/breaker"
	"github.com/tomtom215/credissuer/internal/logging"
	"github.com/tomtom215/credissuer/internal/metrics"
)

// DefaultTimeout bounds a single request to the store.
const DefaultTimeout = 30 * time.Second

// Client talks to one CouchDB server.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	breaker    *breaker.Breaker
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *breaker.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// NewClient parses connectionString (http or https, optional userinfo) and
// returns a client for it.
func NewClient(connectionString string, opts ...Option) (*Client, error) {
	u, err := url.Parse(connectionString)
	if err != nil {
		return nil, fmt.Errorf("invalid couchdb connection string: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid couchdb connection string: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid couchdb connection string: missing host")
	}

	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	if u.User != nil {
		c.username = u.User.Username()
		c.password, _ = u.User.Password()
		u.User = nil
	}
	u.RawQuery = ""
	u.Fragment = ""
	c.baseURL = strings.TrimSuffix(u.String(), "/")

	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		settings := breaker.DefaultSettings("couchdb")
		settings.IsSuccessful = IsExpected
		c.breaker = breaker.New(settings)
	}
	return c, nil
}

// URL returns the server URL without credentials.
func (c *Client) URL() string {
	return c.baseURL
}

// DatabaseInfo is the subset of GET /{db} the service reads.
type DatabaseInfo struct {
	Name        string `json:"db_name"`
	DocCount    int64  `json:"doc_count"`
	DocDelCount int64  `json:"doc_del_count"`
}

// CreateDatabase creates name. An existing database yields a *StatusError
// for which IsExists is true.
func (c *Client) CreateDatabase(ctx context.Context, name string) error {
	return c.do(ctx, "create_database", http.MethodPut, dbPath(name), nil, nil)
}

// CreateDatabaseIfAbsent creates name unless it already exists.
// created is false when the database was already there.
func (c *Client) CreateDatabaseIfAbsent(ctx context.Context, name string) (created bool, err error) {
	err = c.CreateDatabase(ctx, name)
	switch {
	case err == nil:
		return true, nil
	case IsExists(err):
		return false, nil
	default:
		return false, err
	}
}

// OpenDatabase checks that name exists and returns a handle to it.
func (c *Client) OpenDatabase(ctx context.Context, name string) (*Database, error) {
	var info DatabaseInfo
	if err := c.do(ctx, "open_database", http.MethodGet, dbPath(name), nil, &info); err != nil {
		return nil, err
	}
	if info.Name == "" {
		info.Name = name
	}
	return &Database{client: c, name: name, info: info}, nil
}

// do sends one request through the breaker. body is JSON encoded when
// non-nil; out receives the decoded 2xx body when non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("couchdb %s: failed to encode body: %w", op, err)
		}
	}

	start := time.Now()
	status := 0
	err := c.breaker.Do(func() error {
		var reader io.Reader = http.NoBody
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("couchdb %s: failed to create request: %w", op, err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.username != "" {
			req.SetBasicAuth(c.username, c.password)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("couchdb %s request failed: %w", op, err)
		}
		defer func() { _ = resp.Body.Close() }()
		status = resp.StatusCode

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return newStatusError(op, resp)
		}
		if out == nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("couchdb %s: failed to decode response: %w", op, err)
		}
		return nil
	})
	metrics.RecordStoreRequest(op, status, time.Since(start))

	logging.Ctx(ctx).Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("duration", time.Since(start)).
		Err(err).
		Msg("couchdb request")
	return err
}

func dbPath(name string) string {
	return "/" + url.PathEscape(name)
}

// docPath escapes a document id. Design document ids keep their slash.
func docPath(db, id string) string {
	if rest, ok := strings.CutPrefix(id, "_design/"); ok {
		return dbPath(db) + "/_design/" + url.PathEscape(rest)
	}
	return dbPath(db) + "/" + url.PathEscape(id)
}
