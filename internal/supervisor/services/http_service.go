// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// HTTPServer is the part of *http.Server the service drives.
type HTTPServer interface {
	Serve(l net.Listener) error
	Shutdown(ctx context.Context) error
}

// ListenFunc returns a fresh listener for each run of the service.
type ListenFunc func() (net.Listener, error)

// HTTPServerService runs an HTTP server on a pre-bound listener.
//
// The first run uses the listener bound during startup, so bind errors
// surface before the tree starts. If the server later crashes and suture
// restarts the service, relisten supplies a new listener.
//
//	ln, err := bootstrap.Listen(cfg.Server.Port)
//	svc := services.NewHTTPServerService(server, ln, relisten, cfg.Server.ShutdownTimeout)
//	tree.AddAPIService(svc)
type HTTPServerService struct {
	server          HTTPServer
	listener        net.Listener
	relisten        ListenFunc
	shutdownTimeout time.Duration
	name            string
}

// NewHTTPServerService wraps server. relisten may be nil when restarts
// are not expected.
func NewHTTPServerService(server HTTPServer, ln net.Listener, relisten ListenFunc, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{
		server:          server,
		listener:        ln,
		relisten:        relisten,
		shutdownTimeout: shutdownTimeout,
		name:            "http-server",
	}
}

// Serve implements suture.Service. It returns ctx.Err() after a graceful
// shutdown and a wrapped error if the server stops on its own.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	ln, err := h.takeListener()
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		// ctx is already canceled; shutdown needs its own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPServerService) takeListener() (net.Listener, error) {
	if h.listener != nil {
		ln := h.listener
		h.listener = nil
		return ln, nil
	}
	if h.relisten == nil {
		return nil, errors.New("http server: listener already consumed and no relisten func")
	}
	ln, err := h.relisten()
	if err != nil {
		return nil, fmt.Errorf("http server: %w", err)
	}
	return ln, nil
}

// String implements fmt.Stringer for suture logs.
func (h *HTTPServerService) String() string {
	return h.name
}
