// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/credissuer/config.yaml",
	"/etc/credissuer/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from layered sources:
//  1. Defaults: built-in values from defaultConfig
//  2. Config File: optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment Variables: override any setting
//
// A key that is set to an empty or whitespace-only value is treated as
// unset, so PORT= keeps the default port.
//
// Load is the only place in the service that reads the process environment.
// On invalid input it returns a *ConfigurationError listing every problem.
func Load() (*Config, error) {
	return load(findConfigFile(), env.ProviderWithValue("", ".", envValueFunc))
}

// Parse builds the configuration from an explicit key/value set using the
// same environment key names as Load. No config file is consulted.
func Parse(raw map[string]string) (*Config, error) {
	return load("", &mapProvider{values: raw, transform: envTransformFunc})
}

func load(configPath string, overrides koanf.Provider) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	defaults := koanf.New(".")
	if err := defaults.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Merge(defaults); err != nil {
		return nil, fmt.Errorf("failed to merge defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment (highest priority)
	if err := k.Load(overrides, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Typed fields arrive as strings from the environment. Bad values are
	// reported and reset to their default so they are not reported twice.
	issues := coerceTypedFields(k, defaults)

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	issues = append(issues, cfg.validate()...)
	if len(issues) > 0 {
		return nil, newConfigurationError(issues)
	}
	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envMappings maps environment keys to koanf config paths.
var envMappings = map[string]string{
	// Document store
	"DB_CONNECTION_STRING":  "database.connection_string",
	"DB_USERS":              "database.users",
	"DB_RETRIES":            "database.retries",
	"DB_MAX_RETRY_INTERVAL": "database.max_retry_interval",

	// Identity agent
	"ACCOUNT_URL":              "agent.url",
	"AGENT_NAME":               "agent.name",
	"AGENT_PASSWORD":           "agent.password",
	"FRIENDLY_NAME":            "agent.friendly_name",
	"AGENT_ADMIN_NAME":         "agent.admin_name",
	"AGENT_ADMIN_PASSWORD":     "agent.admin_password",
	"AGENT_LOG_LEVEL":          "agent.log_level",
	"AGENT_RETRIES":            "agent.retries",
	"AGENT_MAX_RETRY_INTERVAL": "agent.max_retry_interval",

	// Providers
	"CARD_IMAGE_RENDERING":               "providers.card_image_rendering",
	"STATIC_CARD_FRONT_IMAGE":            "providers.static_card_front_image",
	"STATIC_CARD_BACK_IMAGE":             "providers.static_card_back_image",
	"BRANDING_SERVER_ENDPOINT":           "providers.branding_server_endpoint",
	"BRANDING_SERVER_FRONT_TEMPLATE":     "providers.branding_server_front_template",
	"BRANDING_SERVER_BACK_TEMPLATE":      "providers.branding_server_back_template",
	"BRANDING_SERVER_RETRIES":            "providers.branding_server_retries",
	"BRANDING_SERVER_MAX_RETRY_INTERVAL": "providers.branding_server_max_retry_interval",
	"CONNECTION_IMAGE_PROVIDER":          "providers.connection_image_provider",
	"CONNECTION_ICON_PATH":               "providers.connection_icon_path",
	"LOGIN_PROOF_PROVIDER":               "providers.login_proof_provider",
	"LOGIN_PROOF_PATH":                   "providers.login_proof_path",
	"SIGNUP_PROOF_PROVIDER":              "providers.signup_proof_provider",
	"SIGNUP_ACCOUNT_PROOF_PATH":          "providers.signup_account_proof_path",
	"SIGNUP_DMV_ISSUER_AGENT":            "providers.signup_dmv_issuer_agent",
	"SIGNUP_HR_ISSUER_AGENT":             "providers.signup_hr_issuer_agent",
	"SCHEMA_TEMPLATE_PATH":               "providers.schema_template_path",

	// Server
	"PORT":                "server.port",
	"MY_URL":              "server.my_url",
	"SESSION_SECRET":      "server.session_secret",
	"SESSION_TIMEOUT":     "server.session_timeout",
	"SHUTDOWN_TIMEOUT":    "server.shutdown_timeout",
	"RATE_LIMIT_REQUESTS": "server.rate_limit_reqs",
	"CORS_ORIGINS":        "server.cors_origins",

	// Admin API
	"ADMIN_API_USERNAME": "admin.username",
	"ADMIN_API_PASSWORD": "admin.password",

	// Responder
	"ACCEPT_INCOMING_CONNECTIONS": "responder.enabled",
	"RESPONDER_POLL_INTERVAL":     "responder.poll_interval",

	// Logging
	"LOG_LEVEL":  "logging.level",
	"LOG_FORMAT": "logging.format",
	"LOG_CALLER": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unknown keys return "" so unrelated environment variables are ignored.
func envTransformFunc(key string) string {
	return envMappings[strings.ToUpper(strings.TrimSpace(key))]
}

// envValueFunc maps an environment variable to its config path and drops
// blank values.
func envValueFunc(key, value string) (string, interface{}) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	return envTransformFunc(key), value
}

// envKeyForPath returns the environment key that feeds path.
func envKeyForPath(path string) string {
	for key, p := range envMappings {
		if p == path {
			return key
		}
	}
	return path
}

// mapProvider is a koanf.Provider over an explicit key/value set. Blank
// values are dropped like unset environment variables.
type mapProvider struct {
	values    map[string]string
	transform func(string) string
}

// ReadBytes is not supported; mapProvider is always loaded without a parser.
func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("config: map provider does not support ReadBytes")
}

// Read returns the transformed values as a nested map.
func (p *mapProvider) Read() (map[string]interface{}, error) {
	flat := make(map[string]interface{}, len(p.values))
	for key, val := range p.values {
		path := p.transform(key)
		if path == "" || strings.TrimSpace(val) == "" {
			continue
		}
		flat[path] = val
	}
	return maps.Unflatten(flat, "."), nil
}

type fieldKind int

const (
	kindInt fieldKind = iota
	kindBool
	kindDuration
)

// typedPaths lists config paths whose string values must be parsed.
var typedPaths = map[string]fieldKind{
	"database.retries":                             kindInt,
	"database.max_retry_interval":                  kindInt,
	"agent.retries":                                kindInt,
	"agent.max_retry_interval":                     kindInt,
	"providers.branding_server_retries":            kindInt,
	"providers.branding_server_max_retry_interval": kindInt,
	"server.rate_limit_reqs":                       kindInt,
	"responder.poll_interval":                      kindInt,
	"responder.enabled":                            kindBool,
	"logging.caller":                               kindBool,
	"server.session_timeout":                       kindDuration,
	"server.shutdown_timeout":                      kindDuration,
}

// coerceTypedFields parses string values for numeric, boolean and duration
// fields in place. An empty string falls back to the default.
func coerceTypedFields(k, defaults *koanf.Koanf) []Issue {
	var issues []Issue
	for path, kind := range typedPaths {
		raw, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		raw = strings.TrimSpace(raw)

		var (
			val    interface{}
			err    error
			reason string
		)
		switch {
		case raw == "":
			val = defaults.Get(path)
		case kind == kindInt:
			val, err = strconv.Atoi(raw)
			reason = "must be a base-10 integer"
		case kind == kindBool:
			val, err = strconv.ParseBool(raw)
			reason = "must be a boolean (true or false)"
		case kind == kindDuration:
			val, err = parseDuration(raw)
			reason = "must be a duration such as 30s or 24h"
		}

		if err != nil {
			key := envKeyForPath(path)
			issues = append(issues, Issue{
				Key:    key,
				Reason: fmt.Sprintf("%s %s, got %q", key, reason, raw),
			})
			val = defaults.Get(path)
		}
		if setErr := k.Set(path, val); setErr != nil {
			issues = append(issues, Issue{Key: envKeyForPath(path), Reason: setErr.Error()})
		}
	}
	return issues
}

// parseDuration accepts Go duration strings or a bare number of milliseconds.
func parseDuration(raw string) (time.Duration, error) {
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(raw)
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		trimmed := make([]string, 0)
		for _, p := range strings.Split(strVal, ",") {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}
