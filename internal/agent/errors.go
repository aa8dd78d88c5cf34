// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package agent

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// Error codes returned by the agent in failure bodies.
const (
	CodeAlreadyExists = "already_exists"
	CodeNotFound      = "not_found"
)

const maxErrorBody = 64 << 10

// APIError is a non-2xx answer from the agent.
type APIError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("agent %s: status %d", e.Op, e.StatusCode)
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// IsConflict reports whether err says the resource already exists.
// Only the status code and the structured error code are consulted.
func IsConflict(err error) bool {
	var ae *APIError
	if !errors.As(err, &ae) {
		return false
	}
	return ae.StatusCode == http.StatusConflict || ae.Code == CodeAlreadyExists
}

// IsNotFound reports whether err is a 404 from the agent.
func IsNotFound(err error) bool {
	var ae *APIError
	if !errors.As(err, &ae) {
		return false
	}
	return ae.StatusCode == http.StatusNotFound || ae.Code == CodeNotFound
}

// IsUnauthorized reports whether the agent rejected the credentials.
func IsUnauthorized(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && (ae.StatusCode == http.StatusUnauthorized || ae.StatusCode == http.StatusForbidden)
}

// IsExpected classifies answers the bootstrap sequence handles itself so
// they do not count against the circuit breaker.
func IsExpected(err error) bool {
	return err == nil || IsConflict(err) || IsNotFound(err) || IsUnauthorized(err)
}

type errorBody struct {
	Code    string `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

func newAPIError(op string, resp *http.Response) *APIError {
	ae := &APIError{Op: op, StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ae
	}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		ae.Message = strings.TrimSpace(string(raw))
		return ae
	}
	ae.Code = body.Code
	if ae.Code == "" {
		ae.Code = body.Error
	}
	ae.Message = body.Message
	if ae.Message == "" {
		ae.Message = body.Reason
	}
	return ae
}
