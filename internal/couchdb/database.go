// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package couchdb

import (
	"context"
	"fmt"
	"maps"
	"net/http"

	"github.com/tomtom215/credissuer/internal/logging"
)

// Database is a handle to one database on a Client.
type Database struct {
	client *Client
	name   string
	info   DatabaseInfo
}

// Name returns the database name.
func (d *Database) Name() string { return d.name }

// Info returns the metadata read when the database was opened.
func (d *Database) Info() DatabaseInfo { return d.info }

// Get decodes document id into out.
func (d *Database) Get(ctx context.Context, id string, out interface{}) error {
	return d.client.do(ctx, "get_document", http.MethodGet, docPath(d.name, id), nil, out)
}

type putResult struct {
	OK  bool   `json:"ok"`
	ID  string `json:"id"`
	Rev string `json:"rev"`
}

// Put writes doc under id and returns the new revision. Updating an
// existing document requires doc to carry its current _rev.
func (d *Database) Put(ctx context.Context, id string, doc interface{}) (string, error) {
	var res putResult
	if err := d.client.do(ctx, "put_document", http.MethodPut, docPath(d.name, id), doc, &res); err != nil {
		return "", err
	}
	return res.Rev, nil
}

// View is one map/reduce view of a design document.
type View struct {
	Map    string `json:"map"`
	Reduce string `json:"reduce,omitempty"`
}

// DesignDoc is a CouchDB design document holding views.
type DesignDoc struct {
	ID       string          `json:"_id"`
	Rev      string          `json:"_rev,omitempty"`
	Language string          `json:"language,omitempty"`
	Views    map[string]View `json:"views"`
}

// sameContent compares everything except the revision.
func (dd DesignDoc) sameContent(other DesignDoc) bool {
	return dd.ID == other.ID && dd.Language == other.Language && maps.Equal(dd.Views, other.Views)
}

// maxDesignDocAttempts bounds retries after an update conflict.
const maxDesignDocAttempts = 3

// PutDesignDoc publishes doc. It is idempotent: an identical stored copy is
// left alone, a different one is replaced using its current revision.
// changed reports whether a write happened.
func (d *Database) PutDesignDoc(ctx context.Context, doc DesignDoc) (changed bool, err error) {
	for attempt := 1; attempt <= maxDesignDocAttempts; attempt++ {
		var current DesignDoc
		err := d.Get(ctx, doc.ID, &current)
		switch {
		case err == nil:
			if current.sameContent(doc) {
				return false, nil
			}
			doc.Rev = current.Rev
		case IsNotFound(err):
			doc.Rev = ""
		default:
			return false, fmt.Errorf("failed to read design document %s: %w", doc.ID, err)
		}

		_, err = d.Put(ctx, doc.ID, doc)
		if err == nil {
			return true, nil
		}
		if !IsConflict(err) {
			return false, fmt.Errorf("failed to publish design document %s: %w", doc.ID, err)
		}
		// Another instance wrote the document between our read and write.
		logging.Ctx(ctx).Debug().Str("design_doc", doc.ID).Int("attempt", attempt).Msg("Design document update conflict, retrying")
	}
	return false, fmt.Errorf("failed to publish design document %s: too many update conflicts", doc.ID)
}
