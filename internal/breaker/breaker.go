// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

// Package breaker wraps sony/gobreaker with the logging and Prometheus
// instrumentation shared by the outbound HTTP clients (identity agent and
// document store).
//
// Only failures the caller classifies as infrastructure failures count
// against the breaker. Expected protocol answers such as "database already
// exists" or "identity already exists" are reported through IsSuccessful so a
// restart loop cannot trip the circuit on its own idempotent calls.
package breaker

import (
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/credissuer/internal/logging"
	"github.com/tomtom215/credissuer/internal/metrics"
)

// Settings configures a Breaker.
type Settings struct {
	Name string

	// MaxRequests allowed through while half-open.
	MaxRequests uint32

	// Interval after which closed-state counts reset.
	Interval time.Duration

	// Timeout before an open breaker moves to half-open.
	Timeout time.Duration

	// MinRequests before the failure ratio is considered.
	MinRequests uint32

	// FailureRatio at or above which the breaker opens.
	FailureRatio float64

	// IsSuccessful classifies errors. A nil func counts every error as a failure.
	IsSuccessful func(err error) bool
}

// DefaultSettings returns the settings used for the agent and store clients:
// 3 half-open requests, 1 minute window, 2 minute open timeout, trips at a
// 60% failure rate over at least 10 requests.
func DefaultSettings(name string) Settings {
	return Settings{
		Name:         name,
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      2 * time.Minute,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// Breaker is a named circuit breaker with metrics.
//
// The breaker uses real time for its interval and timeout. Tests exercise it
// with short settings rather than a fake clock.
type Breaker struct {
	cb   *gobreaker.CircuitBreaker[interface{}]
	name string
}

// New creates a Breaker and initializes its metrics.
func New(s Settings) *Breaker {
	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(s.Name).Set(0)

	log := logging.Component("breaker")
	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= s.FailureRatio
			if shouldTrip {
				log.Warn().
					Str("breaker", s.Name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("Opening circuit")
			}
			return shouldTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := StateString(from)
			toStr := StateString(to)
			log.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
		IsSuccessful: s.IsSuccessful,
	})

	return &Breaker{cb: cb, name: s.Name}
}

// Execute runs fn through the breaker and returns its typed result.
func Execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T

	result, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		b.recordError(err)
		// fn may return a value alongside an error the caller treats as benign.
		if typed, ok := result.(T); ok {
			return typed, err
		}
		return zero, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)

	typed, ok := result.(T)
	if !ok && result != nil {
		return zero, fmt.Errorf("circuit breaker %s: unexpected result type %T", b.name, result)
	}
	return typed, nil
}

// Do runs fn through the breaker when there is no result value.
func (b *Breaker) Do(fn func() error) error {
	_, err := Execute(b, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func (b *Breaker) recordError(err error) {
	if IsRejected(err) {
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		logging.Warn().Str("breaker", b.name).Err(err).Msg("Request rejected by open circuit")
		return
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(b.cb.Counts().ConsecutiveFailures))
}

// IsRejected reports whether err came from the breaker rather than the call.
func IsRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// State returns the current circuit breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Counts returns the current circuit breaker counts.
func (b *Breaker) Counts() gobreaker.Counts {
	return b.cb.Counts()
}

// Name returns the circuit breaker name.
func (b *Breaker) Name() string {
	return b.name
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// StateString converts circuit breaker state to string for logging.
func StateString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
