// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package agent

import (
	"context"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"
)

// ProofSchema is a reusable proof request template stored on the agent.
type ProofSchema struct {
	ID                  string                     `json:"id,omitempty"`
	Name                string                     `json:"name"`
	Version             string                     `json:"version"`
	RequestedAttributes map[string]json.RawMessage `json:"requested_attributes"`
	RequestedPredicates map[string]json.RawMessage `json:"requested_predicates,omitempty"`
}

type proofSchemaList struct {
	Items []ProofSchema `json:"items"`
	Count int           `json:"count"`
}

// ListProofSchemas returns the proof schemas named name, or all of them when
// name is empty.
func (c *Client) ListProofSchemas(ctx context.Context, name string) ([]ProofSchema, error) {
	path := "/api/v1/proof_schemas"
	if name != "" {
		path += "?" + url.Values{"name": []string{name}}.Encode()
	}
	var list proofSchemaList
	if err := c.do(ctx, "list_proof_schemas", http.MethodGet, path, c.self(), nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// CreateProofSchema stores schema and returns it with its assigned id.
func (c *Client) CreateProofSchema(ctx context.Context, schema ProofSchema) (*ProofSchema, error) {
	var created ProofSchema
	if err := c.do(ctx, "create_proof_schema", http.MethodPost, "/api/v1/proof_schemas", c.self(), schema, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteProofSchema removes a proof schema.
func (c *Client) DeleteProofSchema(ctx context.Context, id string) error {
	return c.do(ctx, "delete_proof_schema", http.MethodDelete, "/api/v1/proof_schemas/"+url.PathEscape(id), c.self(), nil, nil)
}

// LookupIdentity returns another agent's public identity by name. Used to
// resolve the issuer DIDs a signup proof restricts on.
func (c *Client) LookupIdentity(ctx context.Context, name string) (*Identity, error) {
	return c.identityCall(ctx, "lookup_identity", http.MethodGet, "/api/v1/identities/"+url.PathEscape(name), c.self(), nil)
}
