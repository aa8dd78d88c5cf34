// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/credissuer/internal/api"
	"github.com/tomtom215/credissuer/internal/bootstrap"
	"github.com/tomtom215/credissuer/internal/config"
	"github.com/tomtom215/credissuer/internal/logging"
	"github.com/tomtom215/credissuer/internal/responder"
	"github.com/tomtom215/credissuer/internal/supervisor"
	"github.com/tomtom215/credissuer/internal/supervisor/services"
)

const readHeaderTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

// run returns the process exit status.
func run() (code int) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Str("panic", fmt.Sprint(r)).Msg("Unhandled startup failure")
			code = 1
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orchestrator := bootstrap.NewOrchestrator(config.Load, bootstrap.WithConfigHook(func(cfg *config.Config) {
		logging.Init(logging.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Caller: cfg.Logging.Caller,
		})
		logging.Info().Str("port", cfg.Server.Port).Msg("Configuration loaded")
		logging.Debug().Fields(cfg.Redacted()).Msg("Effective configuration")
	}))

	outcome := orchestrator.Run(ctx)
	if !outcome.Ready() {
		logging.Error().
			Err(outcome.Fatal.Err).
			Str("stage", string(outcome.Fatal.Stage)).
			Msg("Bootstrap failed, exiting")
		return 1
	}
	h := outcome.Handles

	app, fatal := bootstrap.Assemble(ctx, h, api.NewApplication)
	if fatal != nil {
		logging.Error().
			Err(fatal.Err).
			Str("stage", string(fatal.Stage)).
			Msg("Failed to start HTTP server, exiting")
		return 1
	}

	cfg := h.Config
	srv := &http.Server{
		Handler:           app.Handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	relisten := func() (net.Listener, error) {
		return bootstrap.Listen(cfg.Server.Port)
	}

	tree := supervisor.NewTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(services.NewHTTPServerService(srv, app.Listener, relisten, cfg.Server.ShutdownTimeout))

	if cfg.Responder.Enabled {
		tree.AddWorkerService(responder.New(h.Agent, cfg.Responder.Interval()))
		logging.Info().Dur("interval", cfg.Responder.Interval()).Msg("Connection responder enabled")
	}

	logging.Info().
		Str("network", app.Network).
		Str("address", app.Address).
		Str("bootstrap_id", h.BootstrapID).
		Msg("Issuer ready")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Server stopped")
	return 0
}
