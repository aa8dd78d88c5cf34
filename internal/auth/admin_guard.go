// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package auth

import (
	"github.com/tomtom215/credissuer/internal/config"
	"github.com/tomtom215/credissuer/internal/logging"
)

// AdminGuardMode says how the admin API is protected.
type AdminGuardMode string

const (
	// AdminGuardOpen leaves the admin API unauthenticated.
	AdminGuardOpen AdminGuardMode = "open"

	// AdminGuardBasic requires HTTP Basic Authentication.
	AdminGuardBasic AdminGuardMode = "basic"
)

// AdminGuard is the resolved admin API protection.
type AdminGuard struct {
	Mode     AdminGuardMode
	Username string
	Password string
}

// Protected reports whether credentials are required.
func (g AdminGuard) Protected() bool {
	return g.Mode == AdminGuardBasic
}

// ValidateAdminGuard resolves the admin guard from the configured pair.
//
//	username  password  result
//	absent    absent    AdminGuardOpen, warning logged
//	present   present   AdminGuardBasic
//	one set             *config.ConfigurationError
func ValidateAdminGuard(username, password string) (AdminGuard, error) {
	switch {
	case username == "" && password == "":
		logging.Warn().Msg("ADMIN_API_USERNAME and ADMIN_API_PASSWORD are not set; the admin API is NOT protected")
		return AdminGuard{Mode: AdminGuardOpen}, nil
	case username != "" && password != "":
		logging.Info().Msg("Admin API is protected with basic authentication")
		return AdminGuard{Mode: AdminGuardBasic, Username: username, Password: password}, nil
	case username == "":
		return AdminGuard{}, config.NewConfigurationError("ADMIN_API_USERNAME",
			"ADMIN_API_USERNAME is required when ADMIN_API_PASSWORD is set")
	default:
		return AdminGuard{}, config.NewConfigurationError("ADMIN_API_PASSWORD",
			"ADMIN_API_PASSWORD is required when ADMIN_API_USERNAME is set")
	}
}
