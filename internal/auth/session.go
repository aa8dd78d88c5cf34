// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Session roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ErrEmptySecret is returned by NewSessionManager for an empty secret.
var ErrEmptySecret = errors.New("session secret is required")

// Claims are the session token claims.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// SessionManager signs and verifies session tokens with HS256.
type SessionManager struct {
	secret  []byte
	timeout time.Duration
	issuer  string
	now     func() time.Time
}

// NewSessionManager returns a manager using secret (see DeriveSessionSecret).
func NewSessionManager(secret string, timeout time.Duration, issuer string) (*SessionManager, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("session timeout must be positive, got %s", timeout)
	}
	return &SessionManager{
		secret:  []byte(secret),
		timeout: timeout,
		issuer:  issuer,
		now:     time.Now,
	}, nil
}

// Timeout returns the session lifetime.
func (m *SessionManager) Timeout() time.Duration { return m.timeout }

// GenerateToken signs a session for username with role.
func (m *SessionManager) GenerateToken(username, role string) (string, error) {
	now := m.now()
	claims := &Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.timeout)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies signature, algorithm, issuer and expiry.
func (m *SessionManager) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
