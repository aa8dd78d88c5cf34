// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

// Package agenttest provides an in-memory identity agent account for tests.
package agenttest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/credissuer/internal/agent"
)

// Credentials accepted by a Server.
const (
	AgentName     = "issuer"
	AgentPassword = "agent-pw"
	AdminUser     = "account-admin"
	AdminPassword = "admin-pw"
)

type failure struct {
	status int
	code   string
}

// Server is a fake agent account service.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	identity      *agent.Identity
	peers         map[string]agent.Identity
	connections   map[string]*agent.Connection
	schemas       map[string]agent.ProofSchema
	nextID        int
	calls         map[string]int
	createFailure *failure
	onboardFail   *failure
	raceOnCreate  bool
}

// NewServer starts a fake agent with no identity and closes it when t finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		peers:       make(map[string]agent.Identity),
		connections: make(map[string]*agent.Connection),
		schemas:     make(map[string]agent.ProofSchema),
		calls:       make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// SetIdentity makes the agent identity exist with role.
func (s *Server) SetIdentity(role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = &agent.Identity{Name: AgentName, Role: role, DID: "did:sov:issuer"}
}

// Identity returns a copy of the agent identity, or nil.
func (s *Server) Identity() *agent.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// FailCreate makes identity creation answer status with code.
func (s *Server) FailCreate(status int, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createFailure = &failure{status: status, code: code}
}

// FailOnboard makes trust anchor onboarding answer status with code.
func (s *Server) FailOnboard(status int, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onboardFail = &failure{status: status, code: code}
}

// RaceOnCreate simulates another instance creating the identity first:
// the create call answers 409 but the identity then exists.
func (s *Server) RaceOnCreate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raceOnCreate = true
}

// AddPeer registers another agent that LookupIdentity can find.
func (s *Server) AddPeer(name, did string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers[name] = agent.Identity{Name: name, Role: agent.RoleTrustAnchor, DID: did}
}

// AddConnection registers a connection in state.
func (s *Server) AddConnection(id, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections[id] = &agent.Connection{ID: id, State: state, Remote: agent.Remote{Name: "peer-" + id}}
}

// ConnectionState returns the state of connection id.
func (s *Server) ConnectionState(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.connections[id]; ok {
		return c.State
	}
	return ""
}

// AddProofSchema stores schema and returns its id.
func (s *Server) AddProofSchema(schema agent.ProofSchema) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addSchema(schema)
}

// ProofSchemas returns the stored proof schemas.
func (s *Server) ProofSchemas() []agent.ProofSchema {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]agent.ProofSchema, 0, len(s.schemas))
	for _, schema := range s.schemas {
		out = append(out, schema)
	}
	return out
}

// Calls returns how many requests matched "METHOD /path" (query excluded).
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

// IdentityPath is the path of the agent's own identity resource.
const IdentityPath = "/api/v1/identities/" + AgentName

func (s *Server) addSchema(schema agent.ProofSchema) string {
	s.nextID++
	schema.ID = fmt.Sprintf("schema-%d", s.nextID)
	s.schemas[schema.ID] = schema
	return schema.ID
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[r.Method+" "+r.URL.Path]++

	path := r.URL.Path
	switch {
	case path == "/health":
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case path == "/api/v1/identities" && r.Method == http.MethodPost:
		s.createIdentity(w, r)
	case strings.HasPrefix(path, "/api/v1/identities/"):
		s.identityResource(w, r, strings.TrimPrefix(path, "/api/v1/identities/"))
	case path == "/api/v1/connections" && r.Method == http.MethodGet:
		s.listConnections(w, r)
	case strings.HasPrefix(path, "/api/v1/connections/") && r.Method == http.MethodPatch:
		s.updateConnection(w, r, strings.TrimPrefix(path, "/api/v1/connections/"))
	case path == "/api/v1/proof_schemas":
		s.proofSchemas(w, r)
	case strings.HasPrefix(path, "/api/v1/proof_schemas/") && r.Method == http.MethodDelete:
		s.deleteProofSchema(w, r, strings.TrimPrefix(path, "/api/v1/proof_schemas/"))
	default:
		writeError(w, http.StatusNotFound, "not_found", "no such route")
	}
}

func (s *Server) isAgent(r *http.Request) bool {
	user, pass, ok := r.BasicAuth()
	return ok && s.identity != nil && user == AgentName && pass == AgentPassword
}

func isAdmin(r *http.Request) bool {
	user, pass, ok := r.BasicAuth()
	return ok && user == AdminUser && pass == AdminPassword
}

func (s *Server) createIdentity(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "admin credentials required")
		return
	}
	if s.createFailure != nil {
		writeError(w, s.createFailure.status, s.createFailure.code, "injected failure")
		return
	}
	if s.raceOnCreate && s.identity == nil {
		s.identity = &agent.Identity{Name: AgentName, Role: "NONE", DID: "did:sov:issuer"}
		writeError(w, http.StatusConflict, agent.CodeAlreadyExists, "identity was created concurrently")
		return
	}
	if s.identity != nil {
		writeError(w, http.StatusConflict, agent.CodeAlreadyExists, "identity exists")
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name != AgentName {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid identity request")
		return
	}
	s.identity = &agent.Identity{Name: AgentName, Role: "NONE", DID: "did:sov:issuer"}
	writeJSON(w, http.StatusCreated, s.identity)
}

func (s *Server) identityResource(w http.ResponseWriter, r *http.Request, name string) {
	if name != AgentName {
		if !s.isAgent(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "bad credentials")
			return
		}
		peer, ok := s.peers[name]
		if !ok {
			writeError(w, http.StatusNotFound, agent.CodeNotFound, "no such identity")
			return
		}
		writeJSON(w, http.StatusOK, peer)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if !s.isAgent(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "bad credentials")
			return
		}
		writeJSON(w, http.StatusOK, s.identity)
	case http.MethodPatch:
		if !isAdmin(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "admin credentials required")
			return
		}
		if s.onboardFail != nil {
			writeError(w, s.onboardFail.status, s.onboardFail.code, "injected failure")
			return
		}
		if s.identity == nil {
			writeError(w, http.StatusNotFound, agent.CodeNotFound, "no such identity")
			return
		}
		s.identity.Role = agent.RoleTrustAnchor
		writeJSON(w, http.StatusOK, s.identity)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method)
	}
}

func (s *Server) listConnections(w http.ResponseWriter, r *http.Request) {
	if !s.isAgent(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "bad credentials")
		return
	}
	state := r.URL.Query().Get("state")
	items := make([]agent.Connection, 0, len(s.connections))
	for _, c := range s.connections {
		if state == "" || c.State == state {
			items = append(items, *c)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items, "count": len(items)})
}

func (s *Server) updateConnection(w http.ResponseWriter, r *http.Request, id string) {
	if !s.isAgent(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "bad credentials")
		return
	}
	c, ok := s.connections[id]
	if !ok {
		writeError(w, http.StatusNotFound, agent.CodeNotFound, "no such connection")
		return
	}
	var req struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	c.State = req.State
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) proofSchemas(w http.ResponseWriter, r *http.Request) {
	if !s.isAgent(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "bad credentials")
		return
	}
	switch r.Method {
	case http.MethodGet:
		name := r.URL.Query().Get("name")
		items := make([]agent.ProofSchema, 0, len(s.schemas))
		for _, schema := range s.schemas {
			if name == "" || schema.Name == name {
				items = append(items, schema)
			}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"items": items, "count": len(items)})
	case http.MethodPost:
		var schema agent.ProofSchema
		if err := json.NewDecoder(r.Body).Decode(&schema); err != nil || schema.Name == "" {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid proof schema")
			return
		}
		id := s.addSchema(schema)
		writeJSON(w, http.StatusCreated, s.schemas[id])
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method)
	}
}

func (s *Server) deleteProofSchema(w http.ResponseWriter, r *http.Request, id string) {
	if !s.isAgent(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "bad credentials")
		return
	}
	if _, ok := s.schemas[id]; !ok {
		writeError(w, http.StatusNotFound, agent.CodeNotFound, "no such proof schema")
		return
	}
	delete(s.schemas, id)
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
