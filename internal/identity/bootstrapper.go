// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

/*
Package identity brings the agent identity to "exists and is a trust anchor".

The bootstrapper is a small state machine:

	Unknown -> Probing -> Found | Missing
	Missing -> NeedsOnboarding | Found (creation raced) | Fatal
	Found | NeedsOnboarding -> Ready | Fatal

Probing waits for the agent health endpoint. Missing needs administrator
credentials to create the identity; without them the run is Fatal. A
non trust anchor identity is onboarded with the same credentials.

There are no retries here. Waiting for the agent is the prober's job and
every other failure is terminal.
*/
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/credissuer/internal/agent"
	"github.com/tomtom215/credissuer/internal/config"
	"github.com/tomtom215/credissuer/internal/logging"
	"github.com/tomtom215/credissuer/internal/metrics"
	"github.com/tomtom215/credissuer/internal/probe"
)

// State is a step of the identity bootstrap.
type State int

// States in the order they can be reached.
const (
	StateUnknown State = iota
	StateProbing
	StateFound
	StateMissing
	StateNeedsOnboarding
	StateReady
	StateFatal
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateProbing:
		return "probing"
	case StateFound:
		return "found"
	case StateMissing:
		return "missing"
	case StateNeedsOnboarding:
		return "needs_onboarding"
	case StateReady:
		return "ready"
	case StateFatal:
		return "fatal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateReady || s == StateFatal
}

// ProbeTargetName labels the agent in probe logs and metrics.
const ProbeTargetName = "agent"

// Agent is the subset of *agent.Client the bootstrapper calls.
type Agent interface {
	GetIdentity(ctx context.Context) (*agent.Identity, error)
	CreateIdentity(ctx context.Context, adminUser, adminPassword string) (*agent.Identity, error)
	OnboardAsTrustAnchor(ctx context.Context, adminUser, adminPassword string) (*agent.Identity, error)
}

// Prober waits for a dependency. *probe.Prober satisfies it.
type Prober interface {
	Probe(ctx context.Context, target probe.Target) error
}

// Reasons carried by ProvisioningError.
var (
	ErrNoAdminCredentials = errors.New("identity is missing and no administrator credentials are configured")
	ErrNotTrustAnchor     = errors.New("identity is not a trust anchor and no administrator credentials are configured")
)

// ProvisioningError is the Fatal outcome of a run against a reachable agent.
// An unreachable agent ends the run with the prober's error instead.
type ProvisioningError struct {
	// State is the state the machine was in when it failed.
	State State
	Agent string
	Err   error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("agent identity %s: failed while %s: %v", e.Agent, e.State, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// Result is the terminal outcome of Run.
type Result struct {
	State    State
	Identity *agent.Identity
	Err      error

	// Trace lists every state visited, starting with StateUnknown.
	Trace []State
}

// Ready reports whether the run ended with a trust anchor identity.
func (r Result) Ready() bool { return r.State == StateReady }

// Bootstrapper runs the identity state machine once.
type Bootstrapper struct {
	agent  Agent
	prober Prober
	cfg    config.AgentConfig
}

// NewBootstrapper returns a Bootstrapper for the configured agent.
func NewBootstrapper(a Agent, prober Prober, cfg config.AgentConfig) *Bootstrapper {
	return &Bootstrapper{agent: a, prober: prober, cfg: cfg}
}

// run holds the mutable state of one Run.
type run struct {
	b        *Bootstrapper
	state    State
	trace    []State
	identity *agent.Identity
	err      error
}

func (r *run) transition(ctx context.Context, to State) {
	metrics.RecordIdentityTransition(r.state.String(), to.String())
	logging.Ctx(ctx).Debug().
		Str("agent", r.b.cfg.Name).
		Str("from", r.state.String()).
		Str("to", to.String()).
		Msg("Identity state transition")
	r.state = to
	r.trace = append(r.trace, to)
}

func (r *run) fail(ctx context.Context, err error) {
	r.err = &ProvisioningError{State: r.state, Agent: r.b.cfg.Name, Err: err}
	r.transition(ctx, StateFatal)
}

// unreachable ends the run with the prober's error unchanged.
func (r *run) unreachable(ctx context.Context, err error) {
	r.err = err
	r.transition(ctx, StateFatal)
}

// Run drives the machine from Unknown to Ready or Fatal.
func (b *Bootstrapper) Run(ctx context.Context) Result {
	r := &run{b: b, state: StateUnknown, trace: []State{StateUnknown}}
	for !r.state.Terminal() {
		r.step(ctx)
	}
	return Result{State: r.state, Identity: r.identity, Err: r.err, Trace: r.trace}
}

func (r *run) step(ctx context.Context) {
	b := r.b
	log := logging.Ctx(ctx).With().Str("agent", b.cfg.Name).Logger()

	switch r.state {
	case StateUnknown:
		r.transition(ctx, StateProbing)

	case StateProbing:
		target, err := probe.NewTarget(ProbeTargetName, probe.HealthURL(b.cfg.URL), b.cfg.Retries, b.cfg.MaxBackoff())
		if err != nil {
			r.fail(ctx, err)
			return
		}
		if err := b.prober.Probe(ctx, target); err != nil {
			r.unreachable(ctx, err)
			return
		}
		log.Info().Msg("Testing agent credentials by fetching its identity")
		id, err := b.agent.GetIdentity(ctx)
		if err != nil {
			log.Info().Err(err).Msg("Agent identity not available")
			r.transition(ctx, StateMissing)
			return
		}
		r.identity = id
		r.transition(ctx, StateFound)

	case StateMissing:
		if !b.cfg.HasAdminCredentials() {
			r.fail(ctx, ErrNoAdminCredentials)
			return
		}
		log.Info().Msg("Creating agent identity")
		id, err := b.agent.CreateIdentity(ctx, b.cfg.AdminName, b.cfg.AdminPassword)
		switch {
		case err == nil:
			r.identity = id
			r.transition(ctx, StateNeedsOnboarding)
		case agent.IsConflict(err):
			// Another instance created it first.
			log.Info().Err(err).Msg("Agent identity already exists")
			existing, getErr := b.agent.GetIdentity(ctx)
			if getErr != nil {
				r.fail(ctx, fmt.Errorf("identity exists but cannot be read: %w", getErr))
				return
			}
			r.identity = existing
			r.transition(ctx, StateFound)
		default:
			r.fail(ctx, fmt.Errorf("failed to create identity: %w", err))
		}

	case StateFound, StateNeedsOnboarding:
		if r.identity.IsTrustAnchor() {
			log.Info().Str("role", r.identity.Role).Msg("Agent is a trust anchor")
			r.transition(ctx, StateReady)
			return
		}
		if !b.cfg.HasAdminCredentials() {
			r.fail(ctx, fmt.Errorf("%w (role %q)", ErrNotTrustAnchor, r.identity.Role))
			return
		}
		log.Info().Str("role", r.identity.Role).Msg("Onboarding agent as trust anchor")
		id, err := b.agent.OnboardAsTrustAnchor(ctx, b.cfg.AdminName, b.cfg.AdminPassword)
		if err != nil {
			r.fail(ctx, fmt.Errorf("failed to onboard as trust anchor: %w", err))
			return
		}
		if !id.IsTrustAnchor() {
			r.fail(ctx, fmt.Errorf("onboarding returned role %q", id.Role))
			return
		}
		r.identity = id
		log.Info().Msg("Agent is now a trust anchor")
		r.transition(ctx, StateReady)

	default:
		r.fail(ctx, fmt.Errorf("unexpected state %s", r.state))
	}
}
