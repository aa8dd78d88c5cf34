// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

/*
Package agent is a REST client for the identity agent account that issues
credentials on behalf of this service.

Regular calls authenticate as the agent itself (AGENT_NAME/AGENT_PASSWORD).
CreateIdentity and OnboardAsTrustAnchor authenticate with the account
administrator credentials passed by the caller.

API Reference: /api/v1 of the agent account service.
*/
package agent

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
	"github.com/rs/zerolog"

	"github.com/tomtom215/credissuer/internal/breaker"
	"github.com/tomtom215/credissuer/internal/logging"
	"github.com/tomtom215/credissuer/internal/metrics"
)

// RoleTrustAnchor is the ledger role required to issue credentials.
const RoleTrustAnchor = "TRUST_ANCHOR"

// DefaultTimeout bounds a single request to the agent.
const DefaultTimeout = 30 * time.Second

// Identity is the agent's identity record.
type Identity struct {
	Name   string `json:"name"`
	Role   string `json:"role"`
	DID    string `json:"did,omitempty"`
	Verkey string `json:"verkey,omitempty"`
	URL    string `json:"url,omitempty"`

	// Raw is the undecoded response body.
	Raw json.RawMessage `json:"-"`
}

// IsTrustAnchor reports whether the identity may issue credentials.
func (i *Identity) IsTrustAnchor() bool {
	return i != nil && i.Role == RoleTrustAnchor
}

// Client talks to one agent account.
type Client struct {
	baseURL      string
	name         string
	password     string
	friendlyName string
	httpClient   *http.Client
	breaker      *breaker.Breaker
	log          zerolog.Logger
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

// WithLogLevel sets the client's own log level (AGENT_LOG_LEVEL).
// Unknown names fall back to info.
func WithLogLevel(level string) Option {
	return func(c *Client) { c.log = c.log.Level(logging.ParseLevel(level)) }
}

// NewClient returns a client for the agent at baseURL.
func NewClient(baseURL, name, password, friendlyName string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid agent url %q", baseURL)
	}
	if name == "" || password == "" {
		return nil, fmt.Errorf("agent name and password are required")
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		name:         name,
		password:     password,
		friendlyName: friendlyName,
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		log:          logging.Component("agent").With().Str("agent", name).Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		settings := breaker.DefaultSettings("agent")
		settings.IsSuccessful = IsExpected
		c.breaker = breaker.New(settings)
	}
	return c, nil
}

// Name returns the agent name.
func (c *Client) Name() string { return c.name }

// URL returns the agent account URL.
func (c *Client) URL() string { return c.baseURL }

// credentials selects who a request authenticates as.
type credentials struct {
	user     string
	password string
}

func (c *Client) self() credentials {
	return credentials{user: c.name, password: c.password}
}

// GetIdentity returns the agent's own identity.
func (c *Client) GetIdentity(ctx context.Context) (*Identity, error) {
	return c.identityCall(ctx, "get_identity", http.MethodGet, c.identityPath(), c.self(), nil)
}

type createIdentityRequest struct {
	Name         string `json:"name"`
	Password     string `json:"password"`
	FriendlyName string `json:"friendly_name,omitempty"`
}

// CreateIdentity creates the agent's identity using administrator
// credentials. An existing identity yields an error for which IsConflict is true.
func (c *Client) CreateIdentity(ctx context.Context, adminUser, adminPassword string) (*Identity, error) {
	body := createIdentityRequest{Name: c.name, Password: c.password, FriendlyName: c.friendlyName}
	return c.identityCall(ctx, "create_identity", http.MethodPost, "/api/v1/identities",
		credentials{user: adminUser, password: adminPassword}, body)
}

type onboardRequest struct {
	Role string `json:"role"`
}

// OnboardAsTrustAnchor asks the administrator to promote the agent to
// TRUST_ANCHOR and returns the updated identity.
func (c *Client) OnboardAsTrustAnchor(ctx context.Context, adminUser, adminPassword string) (*Identity, error) {
	return c.identityCall(ctx, "onboard_trust_anchor", http.MethodPatch, c.identityPath(),
		credentials{user: adminUser, password: adminPassword}, onboardRequest{Role: RoleTrustAnchor})
}

func (c *Client) identityPath() string {
	return "/api/v1/identities/" + url.PathEscape(c.name)
}

func (c *Client) identityCall(ctx context.Context, op, method, path string, creds credentials, body interface{}) (*Identity, error) {
	var raw json.RawMessage
	if err := c.do(ctx, op, method, path, creds, body, &raw); err != nil {
		return nil, err
	}
	var id Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, fmt.Errorf("agent %s: failed to decode identity: %w", op, err)
	}
	id.Raw = raw
	return &id, nil
}

// do sends one request through the breaker and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, op, method, path string, creds credentials, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("agent %s: failed to encode body: %w", op, err)
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
			return fmt.Errorf("agent %s: failed to create request: %w", op, err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.SetBasicAuth(creds.user, creds.password)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("agent %s request failed: %w", op, err)
		}
		defer func() { _ = resp.Body.Close() }()
		status = resp.StatusCode

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return newAPIError(op, resp)
		}
		if out == nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("agent %s: failed to decode response: %w", op, err)
		}
		return nil
	})
	metrics.RecordAgentRequest(op, status, time.Since(start))

	c.log.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("duration", time.Since(start)).
		Err(err).
		Msg("agent request")
	return err
}
