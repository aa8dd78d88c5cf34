// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

/*
Package auth guards the admin API and signs user sessions.

Key Components:

  - ValidateAdminGuard: decides at startup whether the admin API is open or
    protected by HTTP Basic Authentication
  - DeriveSessionSecret: resolves the session signing secret
  - BasicAuthManager: Basic Authentication with bcrypt password hashing
  - SessionManager: session tokens signed with HMAC-SHA256 (golang-jwt)
  - Middleware: HTTP middleware enforcing the admin guard

Admin Guard:

ADMIN_API_USERNAME and ADMIN_API_PASSWORD must be set together. With neither
set the admin API is open and a warning is logged once at startup.

	guard, err := auth.ValidateAdminGuard(cfg.Admin.Username, cfg.Admin.Password)
	if err != nil {
	    return err // *config.ConfigurationError
	}

Session Secret:

SESSION_SECRET wins when set. Otherwise the secret is the hex SHA-256 of
ACCOUNT_URL + AGENT_NAME + MY_URL, which is stable across restarts of the
same deployment and differs between deployments.
*/
package auth
