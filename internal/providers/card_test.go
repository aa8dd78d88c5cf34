// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestBrandingServerRenderer_CachesRenders(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngHeader)
	}))
	defer srv.Close()

	r := NewBrandingServerRenderer(srv.Client(), srv.URL+"/", "front", "back")
	ctx := context.Background()
	attrs := map[string]string{"first_name": "Ada", "last_name": "Lovelace"}

	for i := 0; i < 3; i++ {
		if _, err := r.RenderFront(ctx, attrs); err != nil {
			t.Fatalf("RenderFront() error = %v", err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("branding server calls = %d, want 1", calls.Load())
	}

	if _, err := r.RenderBack(ctx, attrs); err != nil {
		t.Fatalf("RenderBack() error = %v", err)
	}
	if _, err := r.RenderFront(ctx, map[string]string{"first_name": "Grace"}); err != nil {
		t.Fatalf("RenderFront() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("branding server calls = %d, want 3", calls.Load())
	}
}

func TestBrandingServerRenderer_ErrorsAreNotCached(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "template missing", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngHeader)
	}))
	defer srv.Close()

	r := NewBrandingServerRenderer(srv.Client(), srv.URL, "front", "back")
	ctx := context.Background()

	if _, err := r.RenderFront(ctx, nil); err == nil {
		t.Fatal("expected error for 404")
	}
	img, err := r.RenderFront(ctx, nil)
	if err != nil {
		t.Fatalf("RenderFront() retry error = %v", err)
	}
	if img.ContentType != "image/png" {
		t.Errorf("ContentType = %q", img.ContentType)
	}
}

func TestRenderKey(t *testing.T) {
	t.Parallel()

	a := renderKey("front", map[string]string{"a": "1", "b": "2"})
	b := renderKey("front", map[string]string{"b": "2", "a": "1"})
	if a != b {
		t.Error("key depends on map order")
	}

	distinct := []string{
		renderKey("back", map[string]string{"a": "1", "b": "2"}),
		renderKey("front", map[string]string{"a": "12"}),
		renderKey("front", map[string]string{"a1": "2"}),
		renderKey("front", nil),
	}
	seen := map[string]bool{a: true}
	for _, k := range distinct {
		if seen[k] {
			t.Errorf("duplicate key %s", k)
		}
		seen[k] = true
	}
}
