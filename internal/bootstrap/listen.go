// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package bootstrap

import (
	"net"
	"strconv"
	"strings"
)

// ListenAddress maps PORT to a network and address. A base-10 port number
// in 0..65535 listens on TCP on all interfaces; any other value is a unix
// socket path.
func ListenAddress(port string) (network, address string) {
	port = strings.TrimSpace(port)
	if n, err := strconv.Atoi(port); err == nil && n >= 0 && n <= 65535 {
		return "tcp", ":" + port
	}
	return "unix", port
}

// Listen binds PORT. Failures are returned as *ListenerBindError.
func Listen(port string) (net.Listener, error) {
	network, address := ListenAddress(port)
	ln, err := net.Listen(network, address)
	if err != nil {
		return nil, &ListenerBindError{Port: port, Network: network, Address: address, Err: err}
	}
	return ln, nil
}
