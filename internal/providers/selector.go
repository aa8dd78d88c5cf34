// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

/*
Package providers selects the strategy behind each pluggable capability:

  - CardRenderer draws the front and back images of an issued credential.
  - ConnectionIconProvider supplies the icon shown on connection offers.
  - LoginProofHandler supplies the proof request used to log in.
  - SignupProofHandler decides whether signing up requires a proof.

Each capability is resolved independently from a closed set of mode strings.
Selection fails on the first invalid choice. Modes that depend on a remote
service (the branding server) wait for it before they are accepted.
*/
package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/credissuer/internal/config"
	"github.com/tomtom215/credissuer/internal/logging"
	"github.com/tomtom215/credissuer/internal/probe"
)

// Image is rendered image content.
type Image struct {
	ContentType string
	Data        []byte
}

// CardRenderer draws credential card images.
type CardRenderer interface {
	Mode() string
	RenderFront(ctx context.Context, attrs map[string]string) (*Image, error)
	RenderBack(ctx context.Context, attrs map[string]string) (*Image, error)
}

// ConnectionIconProvider supplies the connection offer icon.
type ConnectionIconProvider interface {
	Mode() string
	Icon(ctx context.Context) (*Image, error)
}

// LoginProofHandler supplies the login proof request.
type LoginProofHandler interface {
	Mode() string
	ProofRequest(ctx context.Context) (*ProofRequest, error)
}

// SignupProofHandler prepares and describes the signup proof.
type SignupProofHandler interface {
	Mode() string

	// Required reports whether signing up needs a proof.
	Required() bool

	// Setup and Cleanup prepare and remove agent-side state. Both are safe to
	// call more than once.
	Setup(ctx context.Context) error
	Cleanup(ctx context.Context) error
}

// Bundle is the selected strategy for every capability.
type Bundle struct {
	Card   CardRenderer
	Icon   ConnectionIconProvider
	Login  LoginProofHandler
	Signup SignupProofHandler
	Schema *SchemaTemplate
}

// DependencyUnavailableError is returned when a mode's remote dependency
// never became reachable. It is not a configuration problem.
type DependencyUnavailableError struct {
	Dependency string
	URL        string
	Err        error
}

func (e *DependencyUnavailableError) Error() string {
	return fmt.Sprintf("dependency %s at %s unavailable: %v", e.Dependency, e.URL, e.Err)
}

func (e *DependencyUnavailableError) Unwrap() error { return e.Err }

// Prober waits for a dependency. *probe.Prober satisfies it.
type Prober interface {
	Probe(ctx context.Context, target probe.Target) error
}

// BrandingProbeTargetName labels the branding server in probe logs and metrics.
const BrandingProbeTargetName = "branding_server"

// Selector resolves a Bundle from configuration.
type Selector struct {
	prober     Prober
	agent      SignupAgent
	httpClient *http.Client
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithHTTPClient sets the client used to reach the branding server.
func WithHTTPClient(hc *http.Client) SelectorOption {
	return func(s *Selector) { s.httpClient = hc }
}

// NewSelector returns a Selector. agent is used by the account signup mode.
func NewSelector(prober Prober, agent SignupAgent, opts ...SelectorOption) *Selector {
	s := &Selector{
		prober:     prober,
		agent:      agent,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select resolves every capability in order: card, icon, login, signup.
// Unknown modes and unusable auxiliary files yield a *config.ConfigurationError;
// an unreachable branding server yields a *DependencyUnavailableError.
func (s *Selector) Select(ctx context.Context, cfg *config.Config) (*Bundle, error) {
	p := cfg.Providers
	log := logging.Ctx(ctx)

	schema, err := LoadSchemaTemplate(p.SchemaTemplatePath)
	if err != nil {
		return nil, config.NewConfigurationError("SCHEMA_TEMPLATE_PATH", err.Error())
	}

	card, err := s.selectCard(ctx, p, cfg.Agent.FriendlyName)
	if err != nil {
		return nil, err
	}
	log.Info().Str("mode", card.Mode()).Msg("Card rendering selected")

	icon, err := selectIcon(p, cfg.Agent.FriendlyName)
	if err != nil {
		return nil, err
	}
	log.Info().Str("mode", icon.Mode()).Msg("Connection icon provider selected")

	login, err := selectLogin(p, schema)
	if err != nil {
		return nil, err
	}
	log.Info().Str("mode", login.Mode()).Msg("Login proof provider selected")

	signup, err := s.selectSignup(ctx, p)
	if err != nil {
		return nil, err
	}
	log.Info().Str("mode", signup.Mode()).Bool("proof_required", signup.Required()).Msg("Signup proof provider selected")

	return &Bundle{Card: card, Icon: icon, Login: login, Signup: signup, Schema: schema}, nil
}

func (s *Selector) selectCard(ctx context.Context, p config.ProvidersConfig, friendlyName string) (CardRenderer, error) {
	switch p.CardImageRendering {
	case config.CardRenderingStatic:
		return NewStaticCardRenderer(p.StaticCardFrontImage, p.StaticCardBackImage)

	case config.CardRenderingBrandingServer:
		target, err := probe.NewTarget(BrandingProbeTargetName, p.BrandingServerEndpoint,
			p.BrandingServerRetries, p.BrandingMaxBackoff())
		if err != nil {
			return nil, config.NewConfigurationError("BRANDING_SERVER_ENDPOINT", err.Error())
		}
		if err := s.prober.Probe(ctx, target); err != nil {
			return nil, &DependencyUnavailableError{Dependency: BrandingProbeTargetName, URL: target.URL(), Err: err}
		}
		return NewBrandingServerRenderer(s.httpClient, p.BrandingServerEndpoint,
			p.BrandingServerFrontTemplate, p.BrandingServerBackTemplate), nil

	case config.CardRenderingGenerated:
		return NewGeneratedCardRenderer(friendlyName), nil

	default:
		return nil, unknownMode("CARD_IMAGE_RENDERING", p.CardImageRendering)
	}
}

func selectIcon(p config.ProvidersConfig, friendlyName string) (ConnectionIconProvider, error) {
	switch p.ConnectionImageProvider {
	case config.ConnectionIconStatic:
		return NewStaticIconProvider(p.ConnectionIconPath)
	case config.ConnectionIconGenerated:
		return NewGeneratedIconProvider(friendlyName), nil
	default:
		return nil, unknownMode("CONNECTION_IMAGE_PROVIDER", p.ConnectionImageProvider)
	}
}

func selectLogin(p config.ProvidersConfig, schema *SchemaTemplate) (LoginProofHandler, error) {
	switch p.LoginProofProvider {
	case config.LoginProofFile:
		return NewFileLoginProof(p.LoginProofPath)
	case config.LoginProofGenerated:
		login, err := NewGeneratedLoginProof(schema)
		if err != nil {
			return nil, err
		}
		return login, nil
	default:
		return nil, unknownMode("LOGIN_PROOF_PROVIDER", p.LoginProofProvider)
	}
}

func (s *Selector) selectSignup(ctx context.Context, p config.ProvidersConfig) (SignupProofHandler, error) {
	switch p.SignupProofProvider {
	case config.SignupProofAccount:
		h, err := NewAccountSignupProof(s.agent, p.SignupAccountProofPath, p.SignupDMVIssuerAgent, p.SignupHRIssuerAgent)
		if err != nil {
			return nil, err
		}
		if err := h.Cleanup(ctx); err != nil {
			return nil, fmt.Errorf("signup proof cleanup failed: %w", err)
		}
		if err := h.Setup(ctx); err != nil {
			return nil, fmt.Errorf("signup proof setup failed: %w", err)
		}
		return h, nil
	case config.SignupProofOpen:
		return OpenSignup{}, nil
	default:
		return nil, unknownMode("SIGNUP_PROOF_PROVIDER", p.SignupProofProvider)
	}
}

func unknownMode(key, value string) error {
	return config.NewConfigurationError(key, fmt.Sprintf("%s has unsupported value %q", key, value))
}
