// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

/*
Package supervisor runs the issuer's long-lived services under suture v4.

The tree is built only after bootstrap has returned Ready:

	RootSupervisor ("credissuer")
	├── APISupervisor ("api-layer")
	│   └── HTTPServerService
	└── WorkerSupervisor ("worker-layer")
	    └── connection-responder (if ACCEPT_INCOMING_CONNECTIONS)

A crash in the responder restarts the responder only; the HTTP server keeps
serving. Supervisor events are logged through zerolog using the sutureslog
hook and logging.NewSlogLogger.

Shutdown: canceling the context passed to Serve stops every service. The
HTTP service drains in-flight requests for up to SHUTDOWN_TIMEOUT.
*/
package supervisor
