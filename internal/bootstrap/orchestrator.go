// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/credissuer/internal/agent"
	"github.com/tomtom215/credissuer/internal/auth"
	"github.com/tomtom215/credissuer/internal/config"
	"github.com/tomtom215/credissuer/internal/couchdb"
	"github.com/tomtom215/credissuer/internal/database"
	"github.com/tomtom215/credissuer/internal/identity"
	"github.com/tomtom215/credissuer/internal/logging"
	"github.com/tomtom215/credissuer/internal/metrics"
	"github.com/tomtom215/credissuer/internal/probe"
	"github.com/tomtom215/credissuer/internal/providers"
)

// Handles are everything a ready run produced.
type Handles struct {
	BootstrapID   string
	Config        *config.Config
	Database      *database.Handle
	Agent         *agent.Client
	Identity      *agent.Identity
	Providers     *providers.Bundle
	AdminGuard    auth.AdminGuard
	SessionSecret string
}

// Outcome is exactly one of Ready (Handles set) or Fatal (Fatal set).
type Outcome struct {
	Handles *Handles
	Fatal   *FatalError
}

// Ready reports whether every stage succeeded.
func (o Outcome) Ready() bool { return o.Fatal == nil && o.Handles != nil }

// ApplicationFactory builds the HTTP application from a ready run.
type ApplicationFactory func(ctx context.Context, h *Handles) (http.Handler, error)

// ConfigLoader produces the validated configuration. config.Load is the
// production loader.
type ConfigLoader func() (*config.Config, error)

// Prober waits for a dependency. *probe.Prober satisfies it.
type Prober interface {
	Probe(ctx context.Context, target probe.Target) error
}

// Orchestrator runs the startup stages once.
type Orchestrator struct {
	load       ConfigLoader
	prober     Prober
	httpClient *http.Client
	onConfig   func(*config.Config)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProber replaces the readiness prober.
func WithProber(p Prober) Option {
	return func(o *Orchestrator) { o.prober = p }
}

// WithHTTPClient sets the client used for CouchDB, the agent and the
// branding server.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *Orchestrator) { o.httpClient = hc }
}

// WithConfigHook registers fn to run as soon as configuration is valid,
// before any dependency is contacted. main uses it to apply logging settings.
func WithConfigHook(fn func(*config.Config)) Option {
	return func(o *Orchestrator) { o.onConfig = fn }
}

// NewOrchestrator returns an Orchestrator that reads configuration with load.
func NewOrchestrator(load ConfigLoader, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		load:       load,
		prober:     probe.New(),
		httpClient: &http.Client{Timeout: agent.DefaultTimeout},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes every stage in order and stops at the first failure.
// Run never retries; retry budgets live in the readiness prober.
func (o *Orchestrator) Run(ctx context.Context) Outcome {
	h := &Handles{BootstrapID: logging.NewBootstrapID()}
	ctx = logging.WithBootstrapID(ctx, h.BootstrapID)
	metrics.SetBootstrapReady(false)

	logging.Ctx(ctx).Info().Msg("Starting bootstrap")
	started := time.Now()

	steps := []struct {
		stage Stage
		run   func(context.Context, *Handles) error
	}{
		{StageConfig, o.loadConfig},
		{StageDatabase, o.ensureDatabase},
		{StageIdentity, o.ensureIdentity},
		{StageProviders, o.selectProviders},
		{StageAdminGuard, o.validateAdminGuard},
		{StageSessionSecret, o.deriveSessionSecret},
	}

	for _, step := range steps {
		if err := o.runStage(ctx, step.stage, h, step.run); err != nil {
			return Outcome{Fatal: &FatalError{Stage: step.stage, Err: err}}
		}
	}

	metrics.SetBootstrapReady(true)
	logging.Ctx(ctx).Info().Dur("duration", time.Since(started)).Msg("Bootstrap complete")
	return Outcome{Handles: h}
}

func (o *Orchestrator) runStage(ctx context.Context, stage Stage, h *Handles, fn func(context.Context, *Handles) error) error {
	log := logging.Ctx(ctx).With().Str("stage", string(stage)).Logger()
	log.Debug().Msg("Stage starting")

	start := time.Now()
	err := fn(ctx, h)
	if err == nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
	}
	metrics.RecordStage(string(stage), time.Since(start), err)

	if err != nil {
		logStageFailure(&log, err)
		return err
	}
	log.Info().Dur("duration", time.Since(start)).Msg("Stage complete")
	return nil
}

// logStageFailure names the configuration keys or the unreachable endpoint
// when the error carries them.
func logStageFailure(log *zerolog.Logger, err error) {
	event := log.Error().Err(err)

	var cerr *config.ConfigurationError
	var derr *DependencyUnavailableError
	switch {
	case errors.As(err, &cerr):
		event = event.Strs("keys", cerr.Keys())
	case errors.As(err, &derr):
		event = event.Str("dependency", derr.Dependency).Str("url", derr.URL)
	}
	event.Msg("Stage failed")
}

func (o *Orchestrator) loadConfig(ctx context.Context, h *Handles) error {
	cfg, err := o.load()
	if err != nil {
		return err
	}
	h.Config = cfg
	if o.onConfig != nil {
		o.onConfig(cfg)
	}
	logging.Ctx(ctx).Debug().Interface("config", cfg.Redacted()).Msg("Effective configuration")
	return nil
}

func (o *Orchestrator) ensureDatabase(ctx context.Context, h *Handles) error {
	b := database.NewBootstrapper(o.prober, couchdb.WithHTTPClient(o.httpClient))
	handle, err := b.EnsureDatabase(ctx, h.Config.Database)
	if err != nil {
		return dependencyError(database.ProbeTargetName, redactedURL(h.Config.Database.ConnectionString), err)
	}
	h.Database = handle
	return nil
}

func (o *Orchestrator) ensureIdentity(ctx context.Context, h *Handles) error {
	cfg := h.Config.Agent
	client, err := agent.NewClient(cfg.URL, cfg.Name, cfg.Password, cfg.FriendlyName,
		agent.WithHTTPClient(o.httpClient),
		agent.WithLogLevel(cfg.LogLevel),
	)
	if err != nil {
		return config.NewConfigurationError("ACCOUNT_URL", err.Error())
	}

	result := identity.NewBootstrapper(client, o.prober, cfg).Run(ctx)
	if !result.Ready() {
		return dependencyError(identity.ProbeTargetName, probe.HealthURL(cfg.URL), result.Err)
	}
	h.Agent = client
	h.Identity = result.Identity
	return nil
}

func (o *Orchestrator) selectProviders(ctx context.Context, h *Handles) error {
	selector := providers.NewSelector(o.prober, h.Agent, providers.WithHTTPClient(o.httpClient))
	bundle, err := selector.Select(ctx, h.Config)
	if err != nil {
		var perr *providers.DependencyUnavailableError
		if errors.As(err, &perr) {
			return &DependencyUnavailableError{Dependency: perr.Dependency, URL: perr.URL, Err: perr.Err}
		}
		return err
	}
	h.Providers = bundle
	return nil
}

func (o *Orchestrator) validateAdminGuard(_ context.Context, h *Handles) error {
	guard, err := auth.ValidateAdminGuard(h.Config.Admin.Username, h.Config.Admin.Password)
	if err != nil {
		return err
	}
	h.AdminGuard = guard
	return nil
}

func (o *Orchestrator) deriveSessionSecret(ctx context.Context, h *Handles) error {
	s := h.Config.Server
	h.SessionSecret = auth.DeriveSessionSecret(s.SessionSecret, h.Config.Agent.URL, h.Config.Agent.Name, s.MyURL)
	if s.SessionSecret == "" {
		logging.Ctx(ctx).Info().Msg("SESSION_SECRET not set; derived from ACCOUNT_URL, AGENT_NAME and MY_URL")
	}
	return nil
}

// dependencyError wraps probe timeouts as *DependencyUnavailableError and
// returns every other error unchanged.
func dependencyError(name, url string, err error) error {
	if errors.Is(err, probe.ErrTimedOut) {
		return &DependencyUnavailableError{Dependency: name, URL: url, Err: err}
	}
	return err
}

func redactedURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "(invalid url)"
	}
	u.User = nil
	return u.String()
}
