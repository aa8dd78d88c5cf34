// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

// Package responder accepts incoming connection offers on behalf of the
// issuer agent when ACCEPT_INCOMING_CONNECTIONS is enabled.
//
// The responder polls the agent for connections in the inbound_offer state
// and accepts each one. It runs as a supervised service; a failed poll is
// logged and retried on the next tick rather than ending the service.
package responder

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/credissuer/internal/agent"
	"github.com/tomtom215/credissuer/internal/logging"
	"github.com/tomtom215/credissuer/internal/metrics"
)

// Agent is the part of the agent client the responder uses.
type Agent interface {
	ListConnections(ctx context.Context, state string) ([]agent.Connection, error)
	AcceptConnection(ctx context.Context, id string) (*agent.Connection, error)
}

// Responder polls for and accepts inbound connection offers.
type Responder struct {
	agent   Agent
	limiter *rate.Limiter
	name    string
}

// New returns a Responder polling at most once per interval.
func New(a Agent, interval time.Duration) *Responder {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Responder{
		agent:   a,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		name:    "connection-responder",
	}
}

// Serve implements suture.Service. It returns ctx.Err() once ctx is done.
func (r *Responder) Serve(ctx context.Context) error {
	log := logging.Component("responder")
	log.Info().Float64("polls_per_second", float64(r.limiter.Limit())).Msg("Accepting incoming connections")

	for {
		if err := r.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		accepted, err := r.Poll(ctx)
		if err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("Connection poll failed")
		}
		if accepted > 0 {
			log.Debug().Int("accepted", accepted).Msg("Accepted connection offers")
		}
	}
}

// Poll accepts every pending offer once and returns how many were accepted.
// An error accepting one offer does not stop the others.
func (r *Responder) Poll(ctx context.Context) (int, error) {
	offers, err := r.agent.ListConnections(ctx, agent.ConnectionInboundOffer)
	metrics.RecordResponderPoll(err)
	if err != nil {
		return 0, err
	}

	accepted := 0
	var firstErr error
	for _, offer := range offers {
		if _, err := r.agent.AcceptConnection(ctx, offer.ID); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("connection_id", offer.ID).Msg("Failed to accept connection")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		metrics.RecordConnectionAccepted()
		accepted++
	}
	return accepted, firstErr
}

// String implements fmt.Stringer for suture logs.
func (r *Responder) String() string {
	return r.name
}
