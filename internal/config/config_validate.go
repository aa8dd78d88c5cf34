// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package config

import (
	"github.com/tomtom215/credissuer/internal/validation"
)

// validate checks every rule and returns all violations.
func (c *Config) validate() []Issue {
	var issues []Issue

	if verr := validation.ValidateStruct(c); verr != nil {
		for _, fe := range verr.Errors() {
			issues = append(issues, Issue{Key: fe.Field(), Reason: fe.Error()})
		}
	}

	urls := []struct {
		key   string
		value string
	}{
		{"DB_CONNECTION_STRING", c.Database.ConnectionString},
		{"ACCOUNT_URL", c.Agent.URL},
		{"BRANDING_SERVER_ENDPOINT", c.Providers.BrandingServerEndpoint},
		{"MY_URL", c.Server.MyURL},
	}
	for _, u := range urls {
		// Empty required values are already reported by the struct tags.
		if u.value == "" {
			continue
		}
		if err := validateHTTPURL(u.value, u.key); err != nil {
			issues = append(issues, Issue{Key: u.key, Reason: err.Error()})
		}
	}

	return issues
}

// Validate re-runs validation on a Config built outside Load or Parse.
func (c *Config) Validate() error {
	if issues := c.validate(); len(issues) > 0 {
		return newConfigurationError(issues)
	}
	return nil
}
