// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"text/template"

	"github.com/goccy/go-json"

	"github.com/tomtom215/credissuer/internal/agent"
	"github.com/tomtom215/credissuer/internal/config"
	"github.com/tomtom215/credissuer/internal/logging"
)

// ProofRequest is a proof request template.
type ProofRequest = agent.ProofSchema

func checkProofRequest(pr *ProofRequest) error {
	if pr.Name == "" {
		return errors.New("name is required")
	}
	if len(pr.RequestedAttributes) == 0 && len(pr.RequestedPredicates) == 0 {
		return errors.New("at least one requested attribute or predicate is required")
	}
	return nil
}

// FileLoginProof serves a login proof request read from disk.
type FileLoginProof struct {
	request *ProofRequest
}

// NewFileLoginProof reads and checks the proof request at path.
func NewFileLoginProof(path string) (*FileLoginProof, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, config.NewConfigurationError("LOGIN_PROOF_PATH", fmt.Sprintf("LOGIN_PROOF_PATH cannot be read: %v", err))
	}
	var pr ProofRequest
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, config.NewConfigurationError("LOGIN_PROOF_PATH", fmt.Sprintf("LOGIN_PROOF_PATH is not a valid proof request: %v", err))
	}
	if err := checkProofRequest(&pr); err != nil {
		return nil, config.NewConfigurationError("LOGIN_PROOF_PATH", "LOGIN_PROOF_PATH: "+err.Error())
	}
	if pr.Version == "" {
		pr.Version = "1.0"
	}
	return &FileLoginProof{request: &pr}, nil
}

// Mode returns the LOGIN_PROOF_PROVIDER value.
func (p *FileLoginProof) Mode() string { return config.LoginProofFile }

// ProofRequest returns the loaded proof request.
func (p *FileLoginProof) ProofRequest(context.Context) (*ProofRequest, error) { return p.request, nil }

// GeneratedLoginProof asks for every attribute of the issued schema.
type GeneratedLoginProof struct {
	request *ProofRequest
}

type attributeRestriction struct {
	SchemaName    string `json:"schema_name"`
	SchemaVersion string `json:"schema_version"`
}

type requestedAttribute struct {
	Name         string                 `json:"name"`
	Restrictions []attributeRestriction `json:"restrictions"`
}

// NewGeneratedLoginProof builds the login proof request from schema.
func NewGeneratedLoginProof(schema *SchemaTemplate) (*GeneratedLoginProof, error) {
	attrs := make(map[string]json.RawMessage, len(schema.Attributes))
	for _, name := range schema.Attributes {
		raw, err := json.Marshal(requestedAttribute{
			Name:         name,
			Restrictions: []attributeRestriction{{SchemaName: schema.Name, SchemaVersion: schema.Version}},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode login proof attribute %s: %w", name, err)
		}
		attrs[name] = raw
	}
	return &GeneratedLoginProof{request: &ProofRequest{
		Name:                schema.Name + " login",
		Version:             "1.0",
		RequestedAttributes: attrs,
	}}, nil
}

// Mode returns the LOGIN_PROOF_PROVIDER value.
func (p *GeneratedLoginProof) Mode() string { return config.LoginProofGenerated }

// ProofRequest returns the generated proof request.
func (p *GeneratedLoginProof) ProofRequest(context.Context) (*ProofRequest, error) { return p.request, nil }

// SignupAgent is the subset of *agent.Client used by account signup.
type SignupAgent interface {
	ListProofSchemas(ctx context.Context, name string) ([]agent.ProofSchema, error)
	CreateProofSchema(ctx context.Context, schema agent.ProofSchema) (*agent.ProofSchema, error)
	DeleteProofSchema(ctx context.Context, id string) error
	LookupIdentity(ctx context.Context, name string) (*agent.Identity, error)
}

// SignupProofSchemaName is the name the account signup proof schema is stored under.
const SignupProofSchemaName = "account_signup"

// issuerDIDs feeds the signup proof template.
type issuerDIDs struct {
	DMVIssuerDID string
	HRIssuerDID  string
}

// AccountSignupProof requires new accounts to prove credentials issued by
// the DMV and HR issuer agents. The proof file is a text/template rendered
// with .DMVIssuerDID and .HRIssuerDID.
type AccountSignupProof struct {
	agent    SignupAgent
	tmpl     *template.Template
	dmvAgent string
	hrAgent  string

	mu       sync.RWMutex
	schemaID string
}

// NewAccountSignupProof parses the proof template at path.
func NewAccountSignupProof(a SignupAgent, path, dmvAgent, hrAgent string) (*AccountSignupProof, error) {
	if a == nil {
		return nil, errors.New("account signup requires an agent client")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, config.NewConfigurationError("SIGNUP_ACCOUNT_PROOF_PATH", fmt.Sprintf("SIGNUP_ACCOUNT_PROOF_PATH cannot be read: %v", err))
	}
	tmpl, err := template.New("signup").Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return nil, config.NewConfigurationError("SIGNUP_ACCOUNT_PROOF_PATH", fmt.Sprintf("SIGNUP_ACCOUNT_PROOF_PATH is not a valid template: %v", err))
	}
	return &AccountSignupProof{agent: a, tmpl: tmpl, dmvAgent: dmvAgent, hrAgent: hrAgent}, nil
}

// Mode returns the SIGNUP_PROOF_PROVIDER value.
func (p *AccountSignupProof) Mode() string { return config.SignupProofAccount }

// Required is always true.
func (p *AccountSignupProof) Required() bool { return true }

// ProofSchemaID returns the id of the schema created by Setup.
func (p *AccountSignupProof) ProofSchemaID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.schemaID
}

// Cleanup deletes signup proof schemas left by earlier runs.
func (p *AccountSignupProof) Cleanup(ctx context.Context) error {
	existing, err := p.agent.ListProofSchemas(ctx, SignupProofSchemaName)
	if err != nil {
		return fmt.Errorf("failed to list signup proof schemas: %w", err)
	}
	for _, schema := range existing {
		if err := p.agent.DeleteProofSchema(ctx, schema.ID); err != nil && !agent.IsNotFound(err) {
			return fmt.Errorf("failed to delete signup proof schema %s: %w", schema.ID, err)
		}
	}
	if len(existing) > 0 {
		logging.Ctx(ctx).Info().Int("deleted", len(existing)).Msg("Removed stale signup proof schemas")
	}

	p.mu.Lock()
	p.schemaID = ""
	p.mu.Unlock()
	return nil
}

// Setup resolves the issuer DIDs, renders the proof template, and stores it
// on the agent.
func (p *AccountSignupProof) Setup(ctx context.Context) error {
	dmv, err := p.agent.LookupIdentity(ctx, p.dmvAgent)
	if err != nil {
		return fmt.Errorf("failed to look up DMV issuer %s: %w", p.dmvAgent, err)
	}
	hr, err := p.agent.LookupIdentity(ctx, p.hrAgent)
	if err != nil {
		return fmt.Errorf("failed to look up HR issuer %s: %w", p.hrAgent, err)
	}

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, issuerDIDs{DMVIssuerDID: dmv.DID, HRIssuerDID: hr.DID}); err != nil {
		return fmt.Errorf("failed to render signup proof template: %w", err)
	}
	var schema agent.ProofSchema
	if err := json.Unmarshal(buf.Bytes(), &schema); err != nil {
		return fmt.Errorf("rendered signup proof is not valid JSON: %w", err)
	}
	schema.ID = ""
	schema.Name = SignupProofSchemaName
	if schema.Version == "" {
		schema.Version = "1.0"
	}
	if err := checkProofRequest(&schema); err != nil {
		return fmt.Errorf("invalid signup proof: %w", err)
	}

	created, err := p.agent.CreateProofSchema(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create signup proof schema: %w", err)
	}

	p.mu.Lock()
	p.schemaID = created.ID
	p.mu.Unlock()
	logging.Ctx(ctx).Info().Str("proof_schema", created.ID).Msg("Signup proof schema ready")
	return nil
}

// OpenSignup lets anyone sign up without a proof.
type OpenSignup struct{}

// Mode returns the SIGNUP_PROOF_PROVIDER value.
func (OpenSignup) Mode() string { return config.SignupProofOpen }

// Required is always false.
func (OpenSignup) Required() bool { return false }

// Setup does nothing.
func (OpenSignup) Setup(context.Context) error { return nil }

// Cleanup does nothing.
func (OpenSignup) Cleanup(context.Context) error { return nil }
