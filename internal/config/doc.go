// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

/*
Package config loads and validates the Credissuer service configuration.

Configuration is read exactly once at startup. Load layers built-in defaults,
an optional YAML file and the process environment with Koanf v2, then checks
the result with validator struct tags and a few URL rules. Parse runs the same
pipeline over an explicit key/value map and is what tests use.

Validation never stops at the first problem: a *ConfigurationError lists every
missing or invalid key, sorted by key, so an operator can fix a deployment in
one round trip.

# Environment Variables

Document store (DatabaseConfig):
  - DB_CONNECTION_STRING: CouchDB URL, may carry credentials (required)
  - DB_USERS: user account database name (required)
  - DB_RETRIES: readiness probe attempts, >= 5 (default: 15)
  - DB_MAX_RETRY_INTERVAL: backoff ceiling in ms, >= 1000 (default: 30000)

Identity agent (AgentConfig):
  - ACCOUNT_URL, AGENT_NAME, AGENT_PASSWORD, FRIENDLY_NAME (required)
  - AGENT_ADMIN_NAME, AGENT_ADMIN_PASSWORD: enable self-provisioning (both or neither)
  - AGENT_LOG_LEVEL: agent client log level (default: info)
  - AGENT_RETRIES, AGENT_MAX_RETRY_INTERVAL: as for the store

Providers (ProvidersConfig):
  - CARD_IMAGE_RENDERING: static | branding_server | true (required)
  - STATIC_CARD_FRONT_IMAGE, STATIC_CARD_BACK_IMAGE: required for static
  - BRANDING_SERVER_ENDPOINT, BRANDING_SERVER_FRONT_TEMPLATE,
    BRANDING_SERVER_BACK_TEMPLATE: required for branding_server
  - BRANDING_SERVER_RETRIES, BRANDING_SERVER_MAX_RETRY_INTERVAL: probe tunables
  - CONNECTION_IMAGE_PROVIDER: static | true (required)
  - CONNECTION_ICON_PATH: required for static
  - LOGIN_PROOF_PROVIDER: file | true (required)
  - LOGIN_PROOF_PATH: required for file
  - SIGNUP_PROOF_PROVIDER: account | true (required)
  - SIGNUP_ACCOUNT_PROOF_PATH, SIGNUP_DMV_ISSUER_AGENT,
    SIGNUP_HR_ISSUER_AGENT: required for account
  - SCHEMA_TEMPLATE_PATH (required)

Server (ServerConfig, AdminConfig, ResponderConfig):
  - PORT: TCP port or unix socket path (default: 3000)
  - MY_URL: externally advertised URL
  - SESSION_SECRET: overrides the derived session secret
  - SESSION_TIMEOUT, SHUTDOWN_TIMEOUT: durations (default: 24h, 10s)
  - RATE_LIMIT_REQUESTS: admin requests per minute per IP (default: 60)
  - CORS_ORIGINS: comma-separated allowed origins
  - ADMIN_API_USERNAME, ADMIN_API_PASSWORD: admin basic auth (both or neither)
  - ACCEPT_INCOMING_CONNECTIONS: run the connection responder
  - RESPONDER_POLL_INTERVAL: responder poll delay in ms (default: 3000)

Logging (LoggingConfig):
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

Unknown environment keys are ignored.
*/
package config
