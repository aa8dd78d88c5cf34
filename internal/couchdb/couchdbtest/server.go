// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

// Package couchdbtest provides an in-memory CouchDB double for tests.
//
// It implements the handful of endpoints the couchdb client uses with the
// same status codes and error bodies as CouchDB 3.x.
package couchdbtest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
)

// Credentials accepted by a Server.
const (
	Username = "admin"
	Password = "s3cret"
)

// Server is a fake CouchDB.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	dbs        map[string]map[string]map[string]interface{}
	calls      map[string]int
	createFail int
	createCode string
}

// NewServer starts a fake CouchDB and closes it when t finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		dbs:   make(map[string]map[string]map[string]interface{}),
		calls: make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// ConnectionString returns the server URL with credentials embedded.
func (s *Server) ConnectionString() string {
	u, _ := url.Parse(s.URL)
	u.User = url.UserPassword(Username, Password)
	return u.String()
}

// AddDatabase creates name directly.
func (s *Server) AddDatabase(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dbs[name]; !ok {
		s.dbs[name] = make(map[string]map[string]interface{})
	}
}

// HasDatabase reports whether name exists.
func (s *Server) HasDatabase(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.dbs[name]
	return ok
}

// FailCreate makes database creation answer status with error code.
func (s *Server) FailCreate(status int, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createFail = status
	s.createCode = code
}

// Doc returns a stored document.
func (s *Server) Doc(db, id string) (map[string]interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.dbs[db][id]
	return doc, ok
}

// Calls returns how many requests matched "METHOD /path".
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := r.URL.Path
	s.calls[r.Method+" "+path]++

	if path == "/" {
		writeJSON(w, http.StatusOK, map[string]string{"couchdb": "Welcome", "version": "3.3.3"})
		return
	}

	user, pass, ok := r.BasicAuth()
	if !ok || user != Username || pass != Password {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Name or password is incorrect.")
		return
	}

	db, docID, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if docID == "" {
		s.handleDatabase(w, r, db)
		return
	}
	s.handleDocument(w, r, db, docID)
}

func (s *Server) handleDatabase(w http.ResponseWriter, r *http.Request, db string) {
	docs, exists := s.dbs[db]
	switch r.Method {
	case http.MethodPut:
		if s.createFail != 0 {
			writeError(w, s.createFail, s.createCode, "injected failure")
			return
		}
		if exists {
			writeError(w, http.StatusPreconditionFailed, "file_exists", "The database could not be created, the file already exists.")
			return
		}
		s.dbs[db] = make(map[string]map[string]interface{})
		writeJSON(w, http.StatusCreated, map[string]bool{"ok": true})
	case http.MethodGet, http.MethodHead:
		if !exists {
			writeError(w, http.StatusNotFound, "not_found", "Database does not exist.")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"db_name": db, "doc_count": len(docs), "doc_del_count": 0})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET,HEAD,PUT allowed")
	}
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request, db, id string) {
	docs, exists := s.dbs[db]
	if !exists {
		writeError(w, http.StatusNotFound, "not_found", "Database does not exist.")
		return
	}
	current, found := docs[id]

	switch r.Method {
	case http.MethodGet:
		if !found {
			writeError(w, http.StatusNotFound, "not_found", "missing")
			return
		}
		writeJSON(w, http.StatusOK, current)
	case http.MethodPut:
		var doc map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid UTF-8 JSON")
			return
		}
		rev, _ := doc["_rev"].(string)
		if found && rev != current["_rev"] || !found && rev != "" {
			writeError(w, http.StatusConflict, "conflict", "Document update conflict.")
			return
		}
		generation := 1
		if found {
			_, _ = fmt.Sscanf(current["_rev"].(string), "%d-", &generation)
			generation++
		}
		newRev := fmt.Sprintf("%d-%08x", generation, len(docs)+generation)
		doc["_id"] = id
		doc["_rev"] = newRev
		docs[id] = doc
		writeJSON(w, http.StatusCreated, map[string]interface{}{"ok": true, "id": id, "rev": newRev})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET,PUT allowed")
	}
}

func writeError(w http.ResponseWriter, status int, code, reason string) {
	writeJSON(w, status, map[string]string{"error": code, "reason": reason})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
