// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package users

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/tomtom215/credissuer/internal/couchdb"
	"github.com/tomtom215/credissuer/internal/couchdb/couchdbtest"
)

func openTestDB(t *testing.T) (*couchdbtest.Server, *couchdb.Database) {
	t.Helper()
	srv := couchdbtest.NewServer(t)
	srv.AddDatabase("users")
	client, err := couchdb.NewClient(srv.ConnectionString())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	db, err := client.OpenDatabase(context.Background(), "users")
	if err != nil {
		t.Fatalf("OpenDatabase() error = %v", err)
	}
	return srv, db
}

func TestDesignDoc(t *testing.T) {
	t.Parallel()

	doc := DesignDoc()
	if doc.ID != DesignDocID {
		t.Errorf("ID = %q", doc.ID)
	}
	for _, name := range []string{ViewByEmail, ViewByConnectionID} {
		if doc.Views[name].Map == "" {
			t.Errorf("view %s has no map function", name)
		}
	}
}

func TestPublishDesignDoc_Repeatable(t *testing.T) {
	srv, db := openTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.PublishDesignDoc(ctx); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	if n := srv.Calls(http.MethodPut, "/users/_design/users"); n != 1 {
		t.Errorf("design doc written %d times, want 1", n)
	}
	if _, ok := srv.Doc("users", DesignDocID); !ok {
		t.Error("design doc not stored")
	}
}

func TestStore_CreateGetUpdate(t *testing.T) {
	_, db := openTestDB(t)
	store := NewStore(db)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }
	ctx := context.Background()

	u := &User{Email: "Alice@Example.com", PersonalInfo: map[string]string{"first_name": "Alice"}}
	if err := store.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if u.ID != "user:alice@example.com" || u.Rev == "" {
		t.Errorf("after Create: ID=%q Rev=%q", u.ID, u.Rev)
	}

	err := store.Create(ctx, &User{Email: "alice@example.com"})
	if !errors.Is(err, ErrExists) {
		t.Errorf("duplicate Create() err = %v, want ErrExists", err)
	}

	got, err := store.Get(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.PersonalInfo["first_name"] != "Alice" || !got.CreatedAt.Equal(fixed) {
		t.Errorf("Get() = %+v", got)
	}

	got.AgentConnectionID = "conn-1"
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if _, err := store.Get(ctx, "bob@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) err = %v, want ErrNotFound", err)
	}
}

func TestStore_CreateRequiresEmail(t *testing.T) {
	_, db := openTestDB(t)
	if err := NewStore(db).Create(context.Background(), &User{}); err == nil {
		t.Error("expected error for empty email")
	}
}
