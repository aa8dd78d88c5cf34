// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package agent

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Connection states.
const (
	ConnectionInboundOffer = "inbound_offer"
	ConnectionConnected    = "connected"
)

// Remote describes the other side of a connection.
type Remote struct {
	Name   string `json:"name,omitempty"`
	DID    string `json:"pairwise_did,omitempty"`
	Pseudo bool   `json:"pseudo,omitempty"`
}

// Connection is a pairwise connection between the agent and a peer.
type Connection struct {
	ID        string    `json:"id"`
	State     string    `json:"state"`
	Remote    Remote    `json:"remote"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type connectionList struct {
	Items []Connection `json:"items"`
	Count int          `json:"count"`
}

// ListConnections returns the agent's connections in state, or all of them
// when state is empty.
func (c *Client) ListConnections(ctx context.Context, state string) ([]Connection, error) {
	path := "/api/v1/connections"
	if state != "" {
		path += "?" + url.Values{"state": []string{state}}.Encode()
	}
	var list connectionList
	if err := c.do(ctx, "list_connections", http.MethodGet, path, c.self(), nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

type connectionUpdate struct {
	State string `json:"state"`
}

// AcceptConnection accepts an inbound connection offer.
func (c *Client) AcceptConnection(ctx context.Context, id string) (*Connection, error) {
	var conn Connection
	err := c.do(ctx, "accept_connection", http.MethodPatch, "/api/v1/connections/"+url.PathEscape(id),
		c.self(), connectionUpdate{State: ConnectionConnected}, &conn)
	if err != nil {
		return nil, err
	}
	return &conn, nil
}
