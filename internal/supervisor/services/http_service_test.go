// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package services

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// mockHTTPServer is a test double for HTTPServer.
type mockHTTPServer struct {
	serveErr      error
	shutdownErr   error
	serveCount    atomic.Int32
	shutdownCount atomic.Int32
	started       chan struct{}
	stopCh        chan struct{}
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{started: make(chan struct{}, 1), stopCh: make(chan struct{})}
}

func (m *mockHTTPServer) Serve(net.Listener) error {
	m.serveCount.Add(1)
	select {
	case m.started <- struct{}{}:
	default:
	}
	if m.serveErr != nil {
		return m.serveErr
	}
	<-m.stopCh
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(context.Context) error {
	m.shutdownCount.Add(1)
	close(m.stopCh)
	return m.shutdownErr
}

var _ suture.Service = (*HTTPServerService)(nil)

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	return ln
}

func TestHTTPServerService_GracefulShutdown(t *testing.T) {
	mock := newMockHTTPServer()
	svc := NewHTTPServerService(mock, listen(t), nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	<-mock.started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	if mock.shutdownCount.Load() != 1 {
		t.Errorf("Shutdown calls = %d, want 1", mock.shutdownCount.Load())
	}
}

func TestHTTPServerService_ServerError(t *testing.T) {
	mock := newMockHTTPServer()
	mock.serveErr = errors.New("accept failed")
	svc := NewHTTPServerService(mock, listen(t), nil, time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, mock.serveErr) {
		t.Errorf("Serve() = %v, want wrapped accept failure", err)
	}
}

func TestHTTPServerService_Relisten(t *testing.T) {
	mock := newMockHTTPServer()
	mock.serveErr = errors.New("crash")
	relistened := 0
	svc := NewHTTPServerService(mock, listen(t), func() (net.Listener, error) {
		relistened++
		return listen(t), nil
	}, time.Second)

	_ = svc.Serve(context.Background())
	_ = svc.Serve(context.Background())
	if relistened != 1 {
		t.Errorf("relisten calls = %d, want 1", relistened)
	}
}

func TestHTTPServerService_NoListenerLeft(t *testing.T) {
	mock := newMockHTTPServer()
	mock.serveErr = errors.New("crash")
	svc := NewHTTPServerService(mock, listen(t), nil, time.Second)

	_ = svc.Serve(context.Background())
	if err := svc.Serve(context.Background()); err == nil {
		t.Error("second run without relisten should fail")
	}
}

func TestHTTPServerService_RealServer(t *testing.T) {
	ln := listen(t)
	server := &http.Server{
		Handler:           http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "ok") }),
		ReadHeaderTimeout: time.Second,
	}
	svc := NewHTTPServerService(server, ln, nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	resp, err := http.Get("http://" + ln.Addr().String())
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("body = %q", body)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v", err)
	}
}

func TestHTTPServerService_String(t *testing.T) {
	if got := NewHTTPServerService(newMockHTTPServer(), nil, nil, 0).String(); got != "http-server" {
		t.Errorf("String() = %q", got)
	}
}
