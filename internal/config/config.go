// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package config

import (
	"time"
)

// Card image rendering modes (CARD_IMAGE_RENDERING).
const (
	CardRenderingStatic         = "static"
	CardRenderingBrandingServer = "branding_server"
	CardRenderingGenerated      = "true"
)

// Connection icon modes (CONNECTION_IMAGE_PROVIDER).
const (
	ConnectionIconStatic    = "static"
	ConnectionIconGenerated = "true"
)

// Login proof modes (LOGIN_PROOF_PROVIDER).
const (
	LoginProofFile      = "file"
	LoginProofGenerated = "true"
)

// Signup proof modes (SIGNUP_PROOF_PROVIDER).
const (
	SignupProofAccount = "account"
	SignupProofOpen    = "true"
)

// Config is the fully validated service configuration.
//
// A Config is produced once by Load or Parse and is read-only afterwards.
// Every other package receives it by pointer and must not modify it.
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Agent     AgentConfig     `koanf:"agent"`
	Providers ProvidersConfig `koanf:"providers"`
	Server    ServerConfig    `koanf:"server"`
	Admin     AdminConfig     `koanf:"admin"`
	Responder ResponderConfig `koanf:"responder"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// DatabaseConfig describes the document store holding user accounts.
type DatabaseConfig struct {
	ConnectionString string `koanf:"connection_string" env:"DB_CONNECTION_STRING" validate:"required,notblank"`
	Name             string `koanf:"users" env:"DB_USERS" validate:"required,notblank"`

	// Retries is the number of readiness probe attempts.
	Retries int `koanf:"retries" env:"DB_RETRIES" validate:"min=5"`

	// MaxRetryInterval caps the probe backoff, in milliseconds.
	MaxRetryInterval int `koanf:"max_retry_interval" env:"DB_MAX_RETRY_INTERVAL" validate:"min=1000"`
}

// MaxBackoff returns MaxRetryInterval as a duration.
func (d DatabaseConfig) MaxBackoff() time.Duration {
	return time.Duration(d.MaxRetryInterval) * time.Millisecond
}

// AgentConfig describes the identity agent this service issues credentials through.
type AgentConfig struct {
	URL          string `koanf:"url" env:"ACCOUNT_URL" validate:"required,notblank"`
	Name         string `koanf:"name" env:"AGENT_NAME" validate:"required,notblank"`
	Password     string `koanf:"password" env:"AGENT_PASSWORD" validate:"required,notblank"`
	FriendlyName string `koanf:"friendly_name" env:"FRIENDLY_NAME" validate:"required,notblank"`

	// AdminName and AdminPassword allow the service to create and onboard
	// its own identity. Both or neither.
	AdminName     string `koanf:"admin_name" env:"AGENT_ADMIN_NAME" validate:"required_with=AdminPassword"`
	AdminPassword string `koanf:"admin_password" env:"AGENT_ADMIN_PASSWORD" validate:"required_with=AdminName"`

	LogLevel string `koanf:"log_level" env:"AGENT_LOG_LEVEL" validate:"omitempty,oneof=trace debug info warn error"`

	Retries          int `koanf:"retries" env:"AGENT_RETRIES" validate:"min=5"`
	MaxRetryInterval int `koanf:"max_retry_interval" env:"AGENT_MAX_RETRY_INTERVAL" validate:"min=1000"`
}

// MaxBackoff returns MaxRetryInterval as a duration.
func (a AgentConfig) MaxBackoff() time.Duration {
	return time.Duration(a.MaxRetryInterval) * time.Millisecond
}

// HasAdminCredentials reports whether identity self-provisioning is possible.
func (a AgentConfig) HasAdminCredentials() bool {
	return a.AdminName != "" && a.AdminPassword != ""
}

// ProvidersConfig selects the strategy for each pluggable capability and
// carries the auxiliary fields each mode needs.
type ProvidersConfig struct {
	CardImageRendering   string `koanf:"card_image_rendering" env:"CARD_IMAGE_RENDERING" validate:"required,oneof=static branding_server true"`
	StaticCardFrontImage string `koanf:"static_card_front_image" env:"STATIC_CARD_FRONT_IMAGE" validate:"required_if=CardImageRendering static"`
	StaticCardBackImage  string `koanf:"static_card_back_image" env:"STATIC_CARD_BACK_IMAGE" validate:"required_if=CardImageRendering static"`

	BrandingServerEndpoint      string `koanf:"branding_server_endpoint" env:"BRANDING_SERVER_ENDPOINT" validate:"required_if=CardImageRendering branding_server"`
	BrandingServerFrontTemplate string `koanf:"branding_server_front_template" env:"BRANDING_SERVER_FRONT_TEMPLATE" validate:"required_if=CardImageRendering branding_server"`
	BrandingServerBackTemplate  string `koanf:"branding_server_back_template" env:"BRANDING_SERVER_BACK_TEMPLATE" validate:"required_if=CardImageRendering branding_server"`
	BrandingServerRetries       int    `koanf:"branding_server_retries" env:"BRANDING_SERVER_RETRIES" validate:"min=5"`
	BrandingServerMaxInterval   int    `koanf:"branding_server_max_retry_interval" env:"BRANDING_SERVER_MAX_RETRY_INTERVAL" validate:"min=1000"`

	ConnectionImageProvider string `koanf:"connection_image_provider" env:"CONNECTION_IMAGE_PROVIDER" validate:"required,oneof=static true"`
	ConnectionIconPath      string `koanf:"connection_icon_path" env:"CONNECTION_ICON_PATH" validate:"required_if=ConnectionImageProvider static"`

	LoginProofProvider string `koanf:"login_proof_provider" env:"LOGIN_PROOF_PROVIDER" validate:"required,oneof=file true"`
	LoginProofPath     string `koanf:"login_proof_path" env:"LOGIN_PROOF_PATH" validate:"required_if=LoginProofProvider file"`

	SignupProofProvider    string `koanf:"signup_proof_provider" env:"SIGNUP_PROOF_PROVIDER" validate:"required,oneof=account true"`
	SignupAccountProofPath string `koanf:"signup_account_proof_path" env:"SIGNUP_ACCOUNT_PROOF_PATH" validate:"required_if=SignupProofProvider account"`
	SignupDMVIssuerAgent   string `koanf:"signup_dmv_issuer_agent" env:"SIGNUP_DMV_ISSUER_AGENT" validate:"required_if=SignupProofProvider account"`
	SignupHRIssuerAgent    string `koanf:"signup_hr_issuer_agent" env:"SIGNUP_HR_ISSUER_AGENT" validate:"required_if=SignupProofProvider account"`

	SchemaTemplatePath string `koanf:"schema_template_path" env:"SCHEMA_TEMPLATE_PATH" validate:"required,notblank"`
}

// BrandingMaxBackoff returns BrandingServerMaxInterval as a duration.
func (p ProvidersConfig) BrandingMaxBackoff() time.Duration {
	return time.Duration(p.BrandingServerMaxInterval) * time.Millisecond
}

// ServerConfig holds HTTP listener and session settings.
type ServerConfig struct {
	// Port is a TCP port number or, when not numeric, a unix socket path.
	Port string `koanf:"port" env:"PORT" validate:"required,notblank"`

	// MyURL is the externally advertised URL of this service.
	MyURL string `koanf:"my_url" env:"MY_URL"`

	// SessionSecret overrides the derived session secret when set.
	SessionSecret string `koanf:"session_secret" env:"SESSION_SECRET"`

	// SessionTimeout bounds the lifetime of admin session tokens.
	SessionTimeout time.Duration `koanf:"session_timeout" env:"SESSION_TIMEOUT"`

	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	// RateLimitReqs is the per-IP request budget per minute on /api/v1 routes.
	RateLimitReqs int `koanf:"rate_limit_reqs" env:"RATE_LIMIT_REQUESTS" validate:"min=1"`

	CORSOrigins []string `koanf:"cors_origins" env:"CORS_ORIGINS"`
}

// AdminConfig holds the admin API basic auth credentials. Both or neither.
type AdminConfig struct {
	Username string `koanf:"username" env:"ADMIN_API_USERNAME" validate:"required_with=Password"`
	Password string `koanf:"password" env:"ADMIN_API_PASSWORD" validate:"required_with=Username"`
}

// ResponderConfig controls the incoming connection responder.
type ResponderConfig struct {
	Enabled bool `koanf:"enabled" env:"ACCEPT_INCOMING_CONNECTIONS"`

	// PollInterval is the delay between agent polls, in milliseconds.
	PollInterval int `koanf:"poll_interval" env:"RESPONDER_POLL_INTERVAL" validate:"min=500"`
}

// Interval returns PollInterval as a duration.
func (r ResponderConfig) Interval() time.Duration {
	return time.Duration(r.PollInterval) * time.Millisecond
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level" env:"LOG_LEVEL" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" env:"LOG_FORMAT" validate:"oneof=json console"`
	Caller bool   `koanf:"caller" env:"LOG_CALLER"`
}

// defaultConfig returns a Config with every default applied.
// Defaults are loaded first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Retries:          15,
			MaxRetryInterval: 30000,
		},
		Agent: AgentConfig{
			LogLevel:         "info",
			Retries:          15,
			MaxRetryInterval: 30000,
		},
		Providers: ProvidersConfig{
			BrandingServerRetries:     15,
			BrandingServerMaxInterval: 30000,
		},
		Server: ServerConfig{
			Port:            "3000",
			SessionTimeout:  24 * time.Hour,
			ShutdownTimeout: 10 * time.Second,
			RateLimitReqs:   60,
			CORSOrigins:     []string{},
		},
		Responder: ResponderConfig{
			Enabled:      false,
			PollInterval: 3000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Redacted returns a flat view of the configuration suitable for debug
// logging. Secrets are replaced by a fixed marker when set.
func (c *Config) Redacted() map[string]interface{} {
	return map[string]interface{}{
		"DB_CONNECTION_STRING":           redactURL(c.Database.ConnectionString),
		"DB_USERS":                       c.Database.Name,
		"DB_RETRIES":                     c.Database.Retries,
		"DB_MAX_RETRY_INTERVAL":          c.Database.MaxRetryInterval,
		"ACCOUNT_URL":                    c.Agent.URL,
		"AGENT_NAME":                     c.Agent.Name,
		"AGENT_PASSWORD":                 redact(c.Agent.Password),
		"FRIENDLY_NAME":                  c.Agent.FriendlyName,
		"AGENT_ADMIN_NAME":               c.Agent.AdminName,
		"AGENT_ADMIN_PASSWORD":           redact(c.Agent.AdminPassword),
		"AGENT_RETRIES":                  c.Agent.Retries,
		"AGENT_MAX_RETRY_INTERVAL":       c.Agent.MaxRetryInterval,
		"CARD_IMAGE_RENDERING":           c.Providers.CardImageRendering,
		"BRANDING_SERVER_ENDPOINT":       c.Providers.BrandingServerEndpoint,
		"CONNECTION_IMAGE_PROVIDER":      c.Providers.ConnectionImageProvider,
		"LOGIN_PROOF_PROVIDER":           c.Providers.LoginProofProvider,
		"SIGNUP_PROOF_PROVIDER":          c.Providers.SignupProofProvider,
		"SCHEMA_TEMPLATE_PATH":           c.Providers.SchemaTemplatePath,
		"PORT":                           c.Server.Port,
		"MY_URL":                         c.Server.MyURL,
		"SESSION_SECRET":                 redact(c.Server.SessionSecret),
		"ADMIN_API_USERNAME":             c.Admin.Username,
		"ADMIN_API_PASSWORD":             redact(c.Admin.Password),
		"ACCEPT_INCOMING_CONNECTIONS":    c.Responder.Enabled,
		"RESPONDER_POLL_INTERVAL":        c.Responder.PollInterval,

		"BRANDING_SERVER_RETRIES":            c.Providers.BrandingServerRetries,
		"BRANDING_SERVER_MAX_RETRY_INTERVAL": c.Providers.BrandingServerMaxInterval,
	}
}

const redactedMarker = "[REDACTED]"

func redact(s string) string {
	if s == "" {
		return ""
	}
	return redactedMarker
}
