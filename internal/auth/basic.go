// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is the work factor for the admin password hash.
const bcryptCost = 12

// BasicAuthManager checks HTTP Basic Authentication credentials.
type BasicAuthManager struct {
	username     string
	passwordHash []byte
}

// NewBasicAuthManager hashes password once so requests only compare.
func NewBasicAuthManager(username, password string) (*BasicAuthManager, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return &BasicAuthManager{
		username:     username,
		passwordHash: hash,
	}, nil
}

// ValidateCredentials checks an Authorization header value and returns the
// username when it matches.
func (m *BasicAuthManager) ValidateCredentials(authHeader string) (string, error) {
	encoded, ok := strings.CutPrefix(authHeader, "Basic ")
	if !ok {
		return "", fmt.Errorf("invalid authorization header format")
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode credentials")
	}

	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", fmt.Errorf("invalid credentials format")
	}

	if !m.Check(username, password) {
		return "", fmt.Errorf("invalid username or password")
	}
	return username, nil
}

// Check compares username and password. Both comparisons always run.
func (m *BasicAuthManager) Check(username, password string) bool {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword(m.passwordHash, []byte(password)) == nil
	return usernameMatch && passwordMatch
}

// WWWAuthenticate returns the challenge sent with 401 responses.
func (m *BasicAuthManager) WWWAuthenticate() string {
	return `Basic realm="Credissuer Admin", charset="UTF-8"`
}
