// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package bootstrap

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/tomtom215/credissuer/internal/logging"
)

// Application is a built handler with its bound listener.
type Application struct {
	Handler  http.Handler
	Listener net.Listener
	Network  string
	Address  string
}

// Assemble hands a ready run to build, then binds PORT. A factory error is
// reported as StageApplication and a bind error as StageListen.
func Assemble(ctx context.Context, h *Handles, build ApplicationFactory) (*Application, *FatalError) {
	if h == nil || h.Config == nil {
		return nil, &FatalError{Stage: StageApplication, Err: errors.New("bootstrap has not completed")}
	}
	if h.BootstrapID != "" {
		ctx = logging.WithBootstrapID(ctx, h.BootstrapID)
	}
	log := logging.Ctx(ctx)

	handler, err := build(ctx, h)
	if err != nil {
		log.Error().Err(err).Str("stage", string(StageApplication)).Msg("Stage failed")
		return nil, &FatalError{Stage: StageApplication, Err: err}
	}

	port := h.Config.Server.Port
	ln, err := Listen(port)
	if err != nil {
		event := log.Error().Err(err).Str("stage", string(StageListen)).Str("port", port)
		var berr *ListenerBindError
		if errors.As(err, &berr) {
			event = event.Bool("permission_denied", berr.PermissionDenied()).Bool("address_in_use", berr.AddressInUse())
		}
		event.Msg("Stage failed")
		return nil, &FatalError{Stage: StageListen, Err: err}
	}

	network, address := ListenAddress(port)
	log.Info().Str("network", network).Str("address", address).Msg("Listening")
	return &Application{Handler: handler, Listener: ln, Network: network, Address: address}, nil
}
