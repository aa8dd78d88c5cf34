// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

// Package users stores issuer accounts in the users database and owns the
// design document that indexes them.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/credissuer/internal/couchdb"
	"github.com/tomtom215/credissuer/internal/logging"
)

// DesignDocID is the id of the design document published by PublishDesignDoc.
const DesignDocID = "_design/users"

// View names in the users design document.
const (
	ViewByEmail        = "by_email"
	ViewByConnectionID = "by_connection_id"
)

// ErrNotFound is returned when an account does not exist.
var ErrNotFound = errors.New("user not found")

// ErrExists is returned by Create when the account id is taken.
var ErrExists = errors.New("user already exists")

// DesignDoc returns the users design document.
func DesignDoc() couchdb.DesignDoc {
	return couchdb.DesignDoc{
		ID:       DesignDocID,
		Language: "javascript",
		Views: map[string]couchdb.View{
			ViewByEmail: {
				Map: `function (doc) { if (doc.type === "user" && doc.email) { emit(doc.email.toLowerCase(), null); } }`,
			},
			ViewByConnectionID: {
				Map: `function (doc) { if (doc.type === "user" && doc.agent_connection_id) { emit(doc.agent_connection_id, null); } }`,
			},
		},
	}
}

// User is an issuer account document.
type User struct {
	ID                string            `json:"_id"`
	Rev               string            `json:"_rev,omitempty"`
	Type              string            `json:"type"`
	Email             string            `json:"email"`
	PasswordHash      string            `json:"password_hash,omitempty"`
	AgentConnectionID string            `json:"agent_connection_id,omitempty"`
	PersonalInfo      map[string]string `json:"personal_info,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Database is the subset of *couchdb.Database used by Store.
type Database interface {
	Name() string
	Get(ctx context.Context, id string, out interface{}) error
	Put(ctx context.Context, id string, doc interface{}) (string, error)
	PutDesignDoc(ctx context.Context, doc couchdb.DesignDoc) (bool, error)
}

// Store reads and writes accounts.
type Store struct {
	db  Database
	now func() time.Time
}

// NewStore returns a Store over db.
func NewStore(db Database) *Store {
	return &Store{db: db, now: time.Now}
}

// PublishDesignDoc publishes the users design document. Safe to call on
// every start.
func (s *Store) PublishDesignDoc(ctx context.Context) error {
	changed, err := s.db.PutDesignDoc(ctx, DesignDoc())
	if err != nil {
		return fmt.Errorf("failed to publish users design document: %w", err)
	}
	logging.Ctx(ctx).Info().
		Str("database", s.db.Name()).
		Bool("changed", changed).
		Msg("Users design document published")
	return nil
}

// userID derives the document id from an email address.
func userID(email string) string {
	return "user:" + strings.ToLower(strings.TrimSpace(email))
}

// Create stores a new account keyed by its email address.
func (s *Store) Create(ctx context.Context, u *User) error {
	if strings.TrimSpace(u.Email) == "" {
		return errors.New("user email is required")
	}
	now := s.now().UTC()
	u.ID = userID(u.Email)
	u.Rev = ""
	u.Type = "user"
	u.CreatedAt = now
	u.UpdatedAt = now

	rev, err := s.db.Put(ctx, u.ID, u)
	if err != nil {
		if couchdb.IsConflict(err) {
			return fmt.Errorf("%w: %s", ErrExists, u.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	u.Rev = rev
	return nil
}

// Get loads the account for email.
func (s *Store) Get(ctx context.Context, email string) (*User, error) {
	var u User
	if err := s.db.Get(ctx, userID(email), &u); err != nil {
		if couchdb.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, email)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// Update writes u using its current revision.
func (s *Store) Update(ctx context.Context, u *User) error {
	u.UpdatedAt = s.now().UTC()
	rev, err := s.db.Put(ctx, u.ID, u)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	u.Rev = rev
	return nil
}
