// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func setEnv(t *testing.T, raw map[string]string) {
	t.Helper()
	for k, v := range raw {
		t.Setenv(k, v)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	setEnv(t, validRaw())
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("AGENT_RETRIES", "9")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Agent.Name != "issuer" {
		t.Errorf("Agent.Name = %q", cfg.Agent.Name)
	}
	if cfg.Agent.Retries != 9 {
		t.Errorf("Agent.Retries = %d, want 9", cfg.Agent.Retries)
	}
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := `
agent:
  retries: 25
  max_retry_interval: 5000
database:
  retries: 30
server:
  port: "8080"
`
	if err := os.WriteFile(path, []byte(yamlContent), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	setEnv(t, validRaw())
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("DB_RETRIES", "6")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Agent.Retries != 25 {
		t.Errorf("Agent.Retries = %d, want 25 from file", cfg.Agent.Retries)
	}
	if cfg.Agent.MaxRetryInterval != 5000 {
		t.Errorf("Agent.MaxRetryInterval = %d, want 5000 from file", cfg.Agent.MaxRetryInterval)
	}
	if cfg.Database.Retries != 6 {
		t.Errorf("Database.Retries = %d, env should win over file", cfg.Database.Retries)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want 8080", cfg.Server.Port)
	}
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	setEnv(t, validRaw())
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DB_USERS", "")
	t.Setenv("DB_MAX_RETRY_INTERVAL", "10")

	_, err := Load()
	cerr := mustConfigError(t, err)
	if !cerr.HasKey("DB_USERS") || !cerr.HasKey("DB_MAX_RETRY_INTERVAL") {
		t.Errorf("Keys() = %v", cerr.Keys())
	}
}

func TestLoad_BlankEnvironmentUsesDefaults(t *testing.T) {
	setEnv(t, validRaw())
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "3000" {
		t.Errorf("Server.Port = %q, want 3000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want defaults", cfg.Logging)
	}
}

func TestEnvValueFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key, value string
		wantPath   string
	}{
		{"PORT", "8080", "server.port"},
		{"PORT", "", ""},
		{"DB_USERS", "  ", ""},
		{"AGENT_PASSWORD", " pw ", "agent.password"},
		{"HOME", "/root", ""},
	}
	for _, tt := range tests {
		path, val := envValueFunc(tt.key, tt.value)
		if path != tt.wantPath {
			t.Errorf("envValueFunc(%q, %q) path = %q, want %q", tt.key, tt.value, path, tt.wantPath)
		}
		if path != "" && val != tt.value {
			t.Errorf("envValueFunc(%q, %q) value = %v, want it unchanged", tt.key, tt.value, val)
		}
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"DB_USERS", "database.users"},
		{"ACCOUNT_URL", "agent.url"},
		{"card_image_rendering", "providers.card_image_rendering"},
		{"PATH", ""},
		{"HOME", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnvKeyForPath(t *testing.T) {
	t.Parallel()

	for key, path := range envMappings {
		if got := envKeyForPath(path); got != key {
			t.Errorf("envKeyForPath(%q) = %q, want %q", path, got, key)
		}
	}
}

func TestMapProvider_Read(t *testing.T) {
	t.Parallel()

	p := &mapProvider{
		values:    map[string]string{"DB_USERS": "users", "UNRELATED": "x", "PORT": " "},
		transform: envTransformFunc,
	}
	m, err := p.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	db, ok := m["database"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected nested database map, got %v", m)
	}
	if db["users"] != "users" {
		t.Errorf("database.users = %v", db["users"])
	}
	if len(m) != 1 {
		t.Errorf("unrelated and blank keys should be dropped: %v", m)
	}
	if _, err := p.ReadBytes(); err == nil {
		t.Error("ReadBytes should not be supported")
	}
}
