// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package bootstrap

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
)

func TestListenAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		port        string
		wantNetwork string
		wantAddress string
	}{
		{"3000", "tcp", ":3000"},
		{"0", "tcp", ":0"},
		{" 8080 ", "tcp", ":8080"},
		{"/var/run/issuer.sock", "unix", "/var/run/issuer.sock"},
		{"70000", "unix", "70000"},
		{"-1", "unix", "-1"},
	}
	for _, tt := range tests {
		network, address := ListenAddress(tt.port)
		if network != tt.wantNetwork || address != tt.wantAddress {
			t.Errorf("ListenAddress(%q) = %s %s, want %s %s", tt.port, network, address, tt.wantNetwork, tt.wantAddress)
		}
	}
}

func TestListen_TCP(t *testing.T) {
	ln, err := Listen("0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	if ln.Addr().Network() != "tcp" {
		t.Errorf("network = %s", ln.Addr().Network())
	}
}

func TestListen_UnixSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issuer.sock")
	ln, err := Listen(path)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	if ln.Addr().Network() != "unix" {
		t.Errorf("network = %s", ln.Addr().Network())
	}
}

func TestListen_AddressInUse(t *testing.T) {
	first, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer first.Close()
	port := fmt.Sprint(first.Addr().(*net.TCPAddr).Port)

	_, err = Listen(port)
	var berr *ListenerBindError
	if !errors.As(err, &berr) {
		t.Fatalf("err = %v, want *ListenerBindError", err)
	}
	if !berr.AddressInUse() {
		t.Errorf("AddressInUse() = false for %v", berr.Err)
	}
	if want := "Port " + port + " is already in use"; berr.Error() != want {
		t.Errorf("Error() = %q, want %q", berr.Error(), want)
	}
}

func TestListenerBindError_Messages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *ListenerBindError
		want string
	}{
		{
			name: "privileged port",
			err:  &ListenerBindError{Port: "80", Network: "tcp", Err: &net.OpError{Op: "listen", Err: syscall.EACCES}},
			want: "Port 80 requires elevated privileges",
		},
		{
			name: "pipe in use",
			err:  &ListenerBindError{Port: "/tmp/x.sock", Network: "unix", Err: syscall.EADDRINUSE},
			want: "Pipe /tmp/x.sock is already in use",
		},
		{
			name: "other",
			err:  &ListenerBindError{Port: "3000", Network: "tcp", Err: errors.New("boom")},
			want: "failed to bind Port 3000: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); !strings.EqualFold(got, tt.want) {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}
