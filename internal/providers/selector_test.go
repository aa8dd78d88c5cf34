// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/credissuer/internal/agent"
	"github.com/tomtom215/credissuer/internal/agent/agenttest"
	"github.com/tomtom215/credissuer/internal/config"
	"github.com/tomtom215/credissuer/internal/probe"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

const signupTemplate = `{
  "name": "ignored",
  "requested_attributes": {
    "license": {"name": "license_number", "restrictions": [{"cred_def_issuer": "{{.DMVIssuerDID}}"}]},
    "employee": {"name": "employee_id", "restrictions": [{"cred_def_issuer": "{{.HRIssuerDID}}"}]}
  }
}`

type mockProber struct {
	err     error
	targets []probe.Target
}

func (m *mockProber) Probe(_ context.Context, target probe.Target) error {
	m.targets = append(m.targets, target)
	return m.err
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// testConfig returns a config using the generated mode for every capability.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	schema := writeFile(t, dir, "schema.json", []byte(`{"name":"employee","version":"1.2","attributes":["first_name","last_name"]}`))
	return &config.Config{
		Agent: config.AgentConfig{FriendlyName: "Acme Corp"},
		Providers: config.ProvidersConfig{
			CardImageRendering:        config.CardRenderingGenerated,
			ConnectionImageProvider:   config.ConnectionIconGenerated,
			LoginProofProvider:        config.LoginProofGenerated,
			SignupProofProvider:       config.SignupProofOpen,
			SchemaTemplatePath:        schema,
			BrandingServerRetries:     5,
			BrandingServerMaxInterval: 1000,
		},
	}
}

func configError(t *testing.T, err error) *config.ConfigurationError {
	t.Helper()
	var ce *config.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v (%T), want *config.ConfigurationError", err, err)
	}
	return ce
}

func TestSelect_GeneratedModes(t *testing.T) {
	p := &mockProber{}
	b, err := NewSelector(p, nil).Select(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}

	if b.Card.Mode() != config.CardRenderingGenerated || b.Icon.Mode() != config.ConnectionIconGenerated ||
		b.Login.Mode() != config.LoginProofGenerated || b.Signup.Mode() != config.SignupProofOpen {
		t.Errorf("modes = %s/%s/%s/%s", b.Card.Mode(), b.Icon.Mode(), b.Login.Mode(), b.Signup.Mode())
	}
	if b.Signup.Required() {
		t.Error("open signup must not require a proof")
	}
	if len(p.targets) != 0 {
		t.Error("generated modes must not probe anything")
	}

	pr, err := b.Login.ProofRequest(context.Background())
	if err != nil {
		t.Fatalf("ProofRequest() error = %v", err)
	}
	if len(pr.RequestedAttributes) != 2 {
		t.Errorf("requested attributes = %v", pr.RequestedAttributes)
	}
	if !strings.Contains(string(pr.RequestedAttributes["first_name"]), `"schema_version":"1.2"`) {
		t.Errorf("first_name restriction = %s", pr.RequestedAttributes["first_name"])
	}

	front, err := b.Card.RenderFront(context.Background(), map[string]string{"first_name": "<Ada>"})
	if err != nil {
		t.Fatalf("RenderFront() error = %v", err)
	}
	if front.ContentType != svgContentType || !strings.Contains(string(front.Data), "&lt;Ada&gt;") {
		t.Errorf("front = %s %s", front.ContentType, front.Data)
	}

	icon, _ := b.Icon.Icon(context.Background())
	if !strings.Contains(string(icon.Data), ">AC<") {
		t.Errorf("icon = %s", icon.Data)
	}
}

func TestSelect_StaticCardMissingBackImage(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	cfg.Providers.CardImageRendering = config.CardRenderingStatic
	cfg.Providers.StaticCardFrontImage = writeFile(t, dir, "front.png", pngHeader)
	cfg.Providers.StaticCardBackImage = filepath.Join(dir, "missing.png")

	_, err := NewSelector(&mockProber{}, nil).Select(context.Background(), cfg)
	ce := configError(t, err)
	if keys := ce.Keys(); len(keys) != 1 || keys[0] != "STATIC_CARD_BACK_IMAGE" {
		t.Errorf("Keys() = %v", keys)
	}
}

func TestSelect_StaticModes(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	cfg.Providers.CardImageRendering = config.CardRenderingStatic
	cfg.Providers.StaticCardFrontImage = writeFile(t, dir, "front.png", pngHeader)
	cfg.Providers.StaticCardBackImage = writeFile(t, dir, "back.png", pngHeader)
	cfg.Providers.ConnectionImageProvider = config.ConnectionIconStatic
	cfg.Providers.ConnectionIconPath = writeFile(t, dir, "icon.svg", iconSVG("X"))
	cfg.Providers.LoginProofProvider = config.LoginProofFile
	cfg.Providers.LoginProofPath = writeFile(t, dir, "login.json",
		[]byte(`{"name":"login","requested_attributes":{"email":{"name":"email"}}}`))

	b, err := NewSelector(&mockProber{}, nil).Select(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	back, _ := b.Card.RenderBack(context.Background(), nil)
	if back.ContentType != "image/png" {
		t.Errorf("back content type = %q", back.ContentType)
	}
	pr, _ := b.Login.ProofRequest(context.Background())
	if pr.Name != "login" || pr.Version != "1.0" {
		t.Errorf("login proof = %+v", pr)
	}
}

func TestSelect_UnknownModes(t *testing.T) {
	tests := []struct {
		key    string
		mutate func(*config.ProvidersConfig)
	}{
		{"CARD_IMAGE_RENDERING", func(p *config.ProvidersConfig) { p.CardImageRendering = "holographic" }},
		{"CONNECTION_IMAGE_PROVIDER", func(p *config.ProvidersConfig) { p.ConnectionImageProvider = "gravatar" }},
		{"LOGIN_PROOF_PROVIDER", func(p *config.ProvidersConfig) { p.LoginProofProvider = "false" }},
		{"SIGNUP_PROOF_PROVIDER", func(p *config.ProvidersConfig) { p.SignupProofProvider = "oauth" }},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(&cfg.Providers)

			_, err := NewSelector(&mockProber{}, nil).Select(context.Background(), cfg)
			if !configError(t, err).HasKey(tt.key) {
				t.Errorf("err = %v, want key %s", err, tt.key)
			}
		})
	}
}

func TestSelect_InvalidLoginProofFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Providers.LoginProofProvider = config.LoginProofFile
	cfg.Providers.LoginProofPath = writeFile(t, t.TempDir(), "login.json", []byte(`{"name":"login"}`))

	_, err := NewSelector(&mockProber{}, nil).Select(context.Background(), cfg)
	if !configError(t, err).HasKey("LOGIN_PROOF_PATH") {
		t.Errorf("err = %v", err)
	}
}

func TestSelect_BrandingServer(t *testing.T) {
	var gotTemplate string
	var gotAttrs map[string]map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			return
		}
		gotTemplate = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotAttrs)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngHeader)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.Providers.CardImageRendering = config.CardRenderingBrandingServer
	cfg.Providers.BrandingServerEndpoint = srv.URL
	cfg.Providers.BrandingServerFrontTemplate = "front-v1"
	cfg.Providers.BrandingServerBackTemplate = "back-v1"

	p := &mockProber{}
	b, err := NewSelector(p, nil, WithHTTPClient(srv.Client())).Select(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(p.targets) != 1 || p.targets[0].Name() != BrandingProbeTargetName || p.targets[0].MaxAttempts() != 5 {
		t.Fatalf("probe targets = %+v", p.targets)
	}

	img, err := b.Card.RenderFront(context.Background(), map[string]string{"first_name": "Ada"})
	if err != nil {
		t.Fatalf("RenderFront() error = %v", err)
	}
	if gotTemplate != "/templates/front-v1/render" || gotAttrs["attributes"]["first_name"] != "Ada" {
		t.Errorf("request path=%q body=%v", gotTemplate, gotAttrs)
	}
	if img.ContentType != "image/png" {
		t.Errorf("ContentType = %q", img.ContentType)
	}
}

func TestSelect_BrandingServerUnavailable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Providers.CardImageRendering = config.CardRenderingBrandingServer
	cfg.Providers.BrandingServerEndpoint = "http://branding.invalid"
	cfg.Providers.BrandingServerFrontTemplate = "f"
	cfg.Providers.BrandingServerBackTemplate = "b"

	timeout := &probe.TimeoutError{Target: BrandingProbeTargetName, Attempts: 5, Last: errors.New("no such host")}
	_, err := NewSelector(&mockProber{err: timeout}, nil).Select(context.Background(), cfg)

	var dep *DependencyUnavailableError
	if !errors.As(err, &dep) {
		t.Fatalf("err = %v, want *DependencyUnavailableError", err)
	}
	if !errors.Is(err, probe.ErrTimedOut) {
		t.Error("dependency error should wrap the probe timeout")
	}
	var ce *config.ConfigurationError
	if errors.As(err, &ce) {
		t.Error("an unreachable dependency is not a configuration error")
	}
}

func TestSelect_AccountSignup(t *testing.T) {
	srv := agenttest.NewServer(t)
	srv.SetIdentity(agent.RoleTrustAnchor)
	srv.AddPeer("dmv", "did:sov:dmv")
	srv.AddPeer("hr", "did:sov:hr")
	stale := srv.AddProofSchema(agent.ProofSchema{Name: SignupProofSchemaName, Version: "0.9"})

	client, err := agent.NewClient(srv.URL, agenttest.AgentName, agenttest.AgentPassword, "Acme")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	cfg := testConfig(t)
	cfg.Providers.SignupProofProvider = config.SignupProofAccount
	cfg.Providers.SignupAccountProofPath = writeFile(t, t.TempDir(), "signup.json", []byte(signupTemplate))
	cfg.Providers.SignupDMVIssuerAgent = "dmv"
	cfg.Providers.SignupHRIssuerAgent = "hr"

	b, err := NewSelector(&mockProber{}, client).Select(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if !b.Signup.Required() {
		t.Error("account signup must require a proof")
	}

	schemas := srv.ProofSchemas()
	if len(schemas) != 1 {
		t.Fatalf("proof schemas = %+v, want exactly the new one", schemas)
	}
	if schemas[0].ID == stale {
		t.Error("stale schema was not cleaned up")
	}
	if !strings.Contains(string(schemas[0].RequestedAttributes["license"]), "did:sov:dmv") ||
		!strings.Contains(string(schemas[0].RequestedAttributes["employee"]), "did:sov:hr") {
		t.Errorf("issuer DIDs not rendered: %+v", schemas[0].RequestedAttributes)
	}
	if got := b.Signup.(*AccountSignupProof).ProofSchemaID(); got != schemas[0].ID {
		t.Errorf("ProofSchemaID() = %q, want %q", got, schemas[0].ID)
	}
}

func TestSelect_AccountSignupUnknownIssuer(t *testing.T) {
	srv := agenttest.NewServer(t)
	srv.SetIdentity(agent.RoleTrustAnchor)
	srv.AddPeer("dmv", "did:sov:dmv")

	client, err := agent.NewClient(srv.URL, agenttest.AgentName, agenttest.AgentPassword, "Acme")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	cfg := testConfig(t)
	cfg.Providers.SignupProofProvider = config.SignupProofAccount
	cfg.Providers.SignupAccountProofPath = writeFile(t, t.TempDir(), "signup.json", []byte(signupTemplate))
	cfg.Providers.SignupDMVIssuerAgent = "dmv"
	cfg.Providers.SignupHRIssuerAgent = "hr"

	_, err = NewSelector(&mockProber{}, client).Select(context.Background(), cfg)
	if !agent.IsNotFound(err) {
		t.Errorf("err = %v, want wrapped not found", err)
	}
}

func TestNewGeneratedLoginProof(t *testing.T) {
	t.Parallel()

	schema := &SchemaTemplate{Name: "employee", Version: "2.0", Attributes: []string{"email"}}
	login, err := NewGeneratedLoginProof(schema)
	if err != nil {
		t.Fatalf("NewGeneratedLoginProof() error = %v", err)
	}
	pr, err := login.ProofRequest(context.Background())
	if err != nil {
		t.Fatalf("ProofRequest() error = %v", err)
	}
	if pr.Name != "employee login" {
		t.Errorf("Name = %q", pr.Name)
	}

	var attr requestedAttribute
	if err := json.Unmarshal(pr.RequestedAttributes["email"], &attr); err != nil {
		t.Fatalf("decode email attribute: %v", err)
	}
	want := attributeRestriction{SchemaName: "employee", SchemaVersion: "2.0"}
	if attr.Name != "email" || len(attr.Restrictions) != 1 || attr.Restrictions[0] != want {
		t.Errorf("email attribute = %+v", attr)
	}
}

func TestLoadSchemaTemplate(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"valid", `{"name":"s","version":"1","attributes":["a","b"]}`, false},
		{"no attributes", `{"name":"s","version":"1","attributes":[]}`, true},
		{"duplicate", `{"name":"s","version":"1","attributes":["a","a"]}`, true},
		{"no version", `{"name":"s","attributes":["a"]}`, true},
		{"not json", `name: s`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.name+".json", []byte(tt.content))
			_, err := LoadSchemaTemplate(path)
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadSchemaTemplate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if _, err := LoadSchemaTemplate(filepath.Join(dir, "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestInitials(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Acme Corp":          "AC",
		"bank":               "B",
		"  ":                 "?",
		"First Second Third": "FS",
		"(Paren) thing":      "PT",
	}
	for in, want := range tests {
		if got := initials(in); got != want {
			t.Errorf("initials(%q) = %q, want %q", in, got, want)
		}
	}
}
