// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package bootstrap

import (
	"errors"
	"fmt"
	"syscall"
)

// Stage names one step of the startup sequence.
type Stage string

// Stages in execution order.
const (
	StageConfig        Stage = "config"
	StageDatabase      Stage = "database"
	StageIdentity      Stage = "identity"
	StageProviders     Stage = "providers"
	StageAdminGuard    Stage = "admin_guard"
	StageSessionSecret Stage = "session_secret"

	// StageApplication and StageListen are reported by Assemble after a
	// ready run; Run never returns them.
	StageApplication Stage = "application"
	StageListen      Stage = "listen"
)

// Stages lists the stages Run executes, in order.
var Stages = []Stage{
	StageConfig,
	StageDatabase,
	StageIdentity,
	StageProviders,
	StageAdminGuard,
	StageSessionSecret,
}

// FatalError ends a run.
type FatalError struct {
	Stage Stage
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("bootstrap stage %s failed: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// DependencyUnavailableError reports a dependency that never answered its
// readiness probe within the configured attempts.
type DependencyUnavailableError struct {
	Dependency string
	URL        string
	Err        error
}

func (e *DependencyUnavailableError) Error() string {
	return fmt.Sprintf("%s at %s did not become available: %v", e.Dependency, e.URL, e.Err)
}

func (e *DependencyUnavailableError) Unwrap() error { return e.Err }

// ListenerBindError reports a failure to bind PORT.
type ListenerBindError struct {
	Port    string
	Network string
	Address string
	Err     error
}

func (e *ListenerBindError) Error() string {
	desc := describeAddress(e.Network, e.Port)
	switch {
	case errors.Is(e.Err, syscall.EACCES):
		return fmt.Sprintf("%s requires elevated privileges", desc)
	case errors.Is(e.Err, syscall.EADDRINUSE):
		return fmt.Sprintf("%s is already in use", desc)
	default:
		return fmt.Sprintf("failed to bind %s: %v", desc, e.Err)
	}
}

func (e *ListenerBindError) Unwrap() error { return e.Err }

// PermissionDenied reports whether the bind failed with EACCES.
func (e *ListenerBindError) PermissionDenied() bool { return errors.Is(e.Err, syscall.EACCES) }

// AddressInUse reports whether the bind failed with EADDRINUSE.
func (e *ListenerBindError) AddressInUse() bool { return errors.Is(e.Err, syscall.EADDRINUSE) }

func describeAddress(network, port string) string {
	if network == "unix" {
		return "Pipe " + port
	}
	return "Port " + port
}
