// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

/*
Package probe waits for a dependency to become reachable before startup continues.

A probe sends HEAD requests to a URL until one completes. Any completed HTTP
exchange counts as reachable, whatever its status code: the probe tests that
something is listening, not that it is healthy. Transport failures (refused
connections, DNS errors, timeouts) count as failed attempts.

Between attempts the prober sleeps for a randomized, capped exponential delay:

	delay(k) = rand() * min(100ms * 3^k, maxBackoff)

where k is the number of attempts made so far. Randomizing the whole interval
keeps several services started together from hammering a dependency in step.

Probes share no mutable state and may run concurrently.

Example:

	target, err := probe.NewTarget("couchdb", cfg.Database.ConnectionString,
	    cfg.Database.Retries, cfg.Database.MaxBackoff())
	if err != nil {
	    return err
	}
	if err := probe.New().Probe(ctx, target); err != nil {
	    // *probe.TimeoutError when every attempt failed
	    return err
	}
*/
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/credissuer/internal/logging"
	"github.com/tomtom215/credissuer/internal/metrics"
)

const (
	// BaseUnit is the backoff growth unit.
	BaseUnit = 100 * time.Millisecond

	// MinMaxBackoff is the smallest accepted backoff ceiling.
	MinMaxBackoff = time.Second

	// DefaultAttemptTimeout bounds a single HEAD request.
	DefaultAttemptTimeout = 10 * time.Second
)

// ErrTimedOut is matched by every *TimeoutError.
var ErrTimedOut = errors.New("dependency did not become reachable")

// ErrInvalidTarget is returned by NewTarget for out-of-range parameters.
var ErrInvalidTarget = errors.New("invalid probe target")

// Target is a dependency to wait on. Build it with NewTarget; the bounds are
// checked there and nowhere else.
type Target struct {
	name        string
	url         string
	maxAttempts int
	maxBackoff  time.Duration
}

// NewTarget validates and returns a probe target.
// maxAttempts must be at least 1 and maxBackoff at least one second.
func NewTarget(name, rawURL string, maxAttempts int, maxBackoff time.Duration) (Target, error) {
	if rawURL == "" {
		return Target{}, fmt.Errorf("%w: %s: url is required", ErrInvalidTarget, name)
	}
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return Target{}, fmt.Errorf("%w: %s: %v", ErrInvalidTarget, name, err)
	}
	if maxAttempts < 1 {
		return Target{}, fmt.Errorf("%w: %s: max attempts must be >= 1, got %d", ErrInvalidTarget, name, maxAttempts)
	}
	if maxBackoff < MinMaxBackoff {
		return Target{}, fmt.Errorf("%w: %s: max backoff must be >= %s, got %s", ErrInvalidTarget, name, MinMaxBackoff, maxBackoff)
	}
	return Target{name: name, url: rawURL, maxAttempts: maxAttempts, maxBackoff: maxBackoff}, nil
}

// Name returns the label used in logs and metrics.
func (t Target) Name() string { return t.name }

// URL returns the probed URL.
func (t Target) URL() string { return t.url }

// MaxAttempts returns the attempt budget.
func (t Target) MaxAttempts() int { return t.maxAttempts }

// MaxBackoff returns the backoff ceiling.
func (t Target) MaxBackoff() time.Duration { return t.maxBackoff }

// HealthURL appends the conventional health path to base.
func HealthURL(base string) string {
	if strings.HasSuffix(base, "/") {
		return base + "health"
	}
	return base + "/health"
}

// TimeoutError is returned when every attempt against a target failed.
type TimeoutError struct {
	Target   string
	URL      string
	Attempts int
	Last     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s at %s not reachable after %d attempts: %v", e.Target, e.URL, e.Attempts, e.Last)
}

// Unwrap returns the error from the final attempt.
func (e *TimeoutError) Unwrap() error { return e.Last }

// Is reports whether target is ErrTimedOut.
func (e *TimeoutError) Is(target error) bool { return target == ErrTimedOut }

// Doer performs a single HTTP exchange. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Prober runs readiness probes.
type Prober struct {
	client         Doer
	sleep          Sleeper
	rand           func() float64
	attemptTimeout time.Duration
}

// Option configures a Prober.
type Option func(*Prober)

// WithClient replaces the HTTP client.
func WithClient(d Doer) Option {
	return func(p *Prober) { p.client = d }
}

// WithSleeper replaces the clock used between attempts.
func WithSleeper(s Sleeper) Option {
	return func(p *Prober) { p.sleep = s }
}

// WithRand replaces the jitter source. f must return values in [0, 1).
func WithRand(f func() float64) Option {
	return func(p *Prober) { p.rand = f }
}

// WithAttemptTimeout bounds each individual request.
func WithAttemptTimeout(d time.Duration) Option {
	return func(p *Prober) { p.attemptTimeout = d }
}

// New returns a Prober using net/http, the wall clock and math/rand/v2.
func New(opts ...Option) *Prober {
	p := &Prober{
		client:         &http.Client{},
		sleep:          sleepContext,
		rand:           rand.Float64,
		attemptTimeout: DefaultAttemptTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe blocks until target answers, its attempt budget is spent, or ctx ends.
// It returns nil when reachable and a *TimeoutError when every attempt failed.
func (p *Prober) Probe(ctx context.Context, target Target) error {
	start := time.Now()
	log := logging.Ctx(ctx).With().Str("target", target.name).Str("url", redactURL(target.url)).Logger()

	var lastErr error
	for attempt := 1; attempt <= target.maxAttempts; attempt++ {
		lastErr = p.attempt(ctx, target.url)
		metrics.RecordProbeAttempt(target.name, lastErr == nil)
		if lastErr == nil {
			log.Info().Int("attempt", attempt).Msg("Dependency reachable")
			metrics.RecordProbe(target.name, "ready", time.Since(start))
			return nil
		}
		if ctx.Err() != nil {
			metrics.RecordProbe(target.name, "cancelled", time.Since(start))
			return fmt.Errorf("probe %s cancelled: %w", target.name, ctx.Err())
		}
		if attempt == target.maxAttempts {
			break
		}

		delay := Backoff(attempt, target.maxBackoff, p.rand)
		log.Debug().
			Err(lastErr).
			Int("attempt", attempt).
			Int("max_attempts", target.maxAttempts).
			Dur("retry_in", delay).
			Msg("Dependency not reachable yet")

		if err := p.sleep(ctx, delay); err != nil {
			metrics.RecordProbe(target.name, "cancelled", time.Since(start))
			return fmt.Errorf("probe %s cancelled: %w", target.name, err)
		}
	}

	metrics.RecordProbe(target.name, "timed_out", time.Since(start))
	log.Error().Err(lastErr).Int("attempts", target.maxAttempts).Msg("Dependency never became reachable")
	return &TimeoutError{
		Target:   target.name,
		URL:      redactURL(target.url),
		Attempts: target.maxAttempts,
		Last:     lastErr,
	}
}

// attempt sends one HEAD request. Any response counts as reachable.
func (p *Prober) attempt(ctx context.Context, rawURL string) error {
	reqCtx, cancel := context.WithTimeout(ctx, p.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, rawURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	// Drain so the connection can be reused by the next caller.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
	return nil
}

// Ceiling returns the uncapped backoff term BaseUnit * 3^k.
// It saturates at the largest representable duration.
func Ceiling(k int) time.Duration {
	if k < 0 {
		k = 0
	}
	c := float64(BaseUnit) * math.Pow(3, float64(k))
	if c >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(c)
}

// Backoff returns the randomized delay after attempt k:
// rnd() * min(Ceiling(k), maxBackoff). The result is always in [0, maxBackoff].
func Backoff(k int, maxBackoff time.Duration, rnd func() float64) time.Duration {
	ceiling := Ceiling(k)
	if ceiling > maxBackoff {
		ceiling = maxBackoff
	}

	r := rnd()
	if r < 0 || math.IsNaN(r) {
		r = 0
	}
	if r > 1 {
		r = 1
	}
	return time.Duration(r * float64(ceiling))
}

// sleepContext waits for d using a cancellable select.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// redactURL hides userinfo passwords so they never reach logs or errors.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.User == nil {
		return rawURL
	}
	return u.Redacted()
}
