// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package config

import (
	"sort"
	"strings"
)

// Issue is one missing or invalid configuration key.
type Issue struct {
	Key    string
	Reason string
}

// ConfigurationError reports malformed or contradictory configuration.
// It lists every offending key found in a single validation pass.
type ConfigurationError struct {
	Issues []Issue
}

// NewConfigurationError builds a ConfigurationError for one key.
func NewConfigurationError(key, reason string) *ConfigurationError {
	return newConfigurationError([]Issue{{Key: key, Reason: reason}})
}

func newConfigurationError(issues []Issue) *ConfigurationError {
	sorted := make([]Issue, len(issues))
	copy(sorted, issues)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Key < sorted[j].Key
	})
	return &ConfigurationError{Issues: sorted}
}

func (e *ConfigurationError) Error() string {
	if len(e.Issues) == 0 {
		return "invalid configuration"
	}
	reasons := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		reasons[i] = issue.Reason
	}
	return "invalid configuration: " + strings.Join(reasons, "; ")
}

// Keys returns the offending keys in report order.
func (e *ConfigurationError) Keys() []string {
	keys := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		keys[i] = issue.Key
	}
	return keys
}

// HasKey reports whether key is among the offending keys.
func (e *ConfigurationError) HasKey(key string) bool {
	for _, issue := range e.Issues {
		if issue.Key == key {
			return true
		}
	}
	return false
}
