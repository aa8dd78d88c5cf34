// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

/*
Package bootstrap runs the ordered startup sequence that must succeed before
the issuer accepts HTTP traffic.

Stages run strictly in this order; the first failure ends the run:

	config          load and validate configuration
	database        wait for CouchDB, ensure the users database
	identity        wait for the agent, ensure a TRUST_ANCHOR identity
	providers       select card, icon, login and signup strategies
	admin_guard     decide whether the admin API is protected
	session_secret  resolve the session signing secret

Run returns an Outcome that is either Ready, carrying the Handles the
application is built from, or Fatal, naming the stage and the error:

	outcome := bootstrap.NewOrchestrator(config.Load).Run(ctx)
	if !outcome.Ready() {
	    logging.Error().Err(outcome.Fatal).Str("stage", string(outcome.Fatal.Stage)).Msg("Bootstrap failed")
	    os.Exit(1)
	}
	app, fatal := bootstrap.Assemble(ctx, outcome.Handles, api.NewApplication)

Assemble calls the application factory and then binds PORT through Listen,
reporting failures as the application or listen stage. A numeric PORT is a TCP
port; anything else is a unix socket path. Bind failures caused by missing
privileges or an address already in use are reported as ListenerBindError
with a message an operator can act on.

Each stage duration and result is exported through the metrics package and
every log line of a run carries the same bootstrap_id.
*/
package bootstrap
