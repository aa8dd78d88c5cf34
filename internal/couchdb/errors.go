// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package couchdb

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// CouchDB error codes returned in the "error" member of failure bodies.
const (
	ErrorCodeFileExists = "file_exists"
	ErrorCodeNotFound   = "not_found"
	ErrorCodeConflict   = "conflict"
)

// maxErrorBody bounds how much of a failure body is read.
const maxErrorBody = 64 << 10

// StatusError is a non-2xx answer from the store.
type StatusError struct {
	Op         string
	StatusCode int
	ErrorCode  string
	Reason     string
}

func (e *StatusError) Error() string {
	switch {
	case e.ErrorCode != "" && e.Reason != "":
		return fmt.Sprintf("couchdb %s: status %d: %s: %s", e.Op, e.StatusCode, e.ErrorCode, e.Reason)
	case e.ErrorCode != "":
		return fmt.Sprintf("couchdb %s: status %d: %s", e.Op, e.StatusCode, e.ErrorCode)
	default:
		return fmt.Sprintf("couchdb %s: status %d", e.Op, e.StatusCode)
	}
}

// IsExists reports whether err says the database already exists.
// The check is structural: status 412 or error code file_exists.
func IsExists(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == http.StatusPreconditionFailed || se.ErrorCode == ErrorCodeFileExists
}

// IsNotFound reports whether err is a 404 from the store.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// IsConflict reports whether err is a document update conflict.
func IsConflict(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == http.StatusConflict || se.ErrorCode == ErrorCodeConflict
}

// IsExpected classifies answers that are part of normal idempotent use and
// must not count against the circuit breaker.
func IsExpected(err error) bool {
	return err == nil || IsExists(err) || IsNotFound(err) || IsConflict(err)
}

type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// newStatusError reads a bounded failure body and decodes CouchDB's
// {"error","reason"} shape when present.
func newStatusError(op string, resp *http.Response) *StatusError {
	se := &StatusError{Op: op, StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return se
	}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		se.ErrorCode = body.Error
		se.Reason = body.Reason
		return se
	}
	se.Reason = strings.TrimSpace(string(raw))
	return se
}
