// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordProbeAttempt(t *testing.T) {
	before := testutil.ToFloat64(ProbeAttempts.WithLabelValues("metrics-test", "failed"))
	beforeOK := testutil.ToFloat64(ProbeAttempts.WithLabelValues("metrics-test", "reachable"))

	RecordProbeAttempt("metrics-test", false)
	RecordProbeAttempt("metrics-test", false)
	RecordProbeAttempt("metrics-test", true)

	if got := testutil.ToFloat64(ProbeAttempts.WithLabelValues("metrics-test", "failed")) - before; got != 2 {
		t.Errorf("failed attempts delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(ProbeAttempts.WithLabelValues("metrics-test", "reachable")) - beforeOK; got != 1 {
		t.Errorf("reachable attempts delta = %v, want 1", got)
	}
}

func TestRecordStage(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		result string
	}{
		{"success", nil, "success"},
		{"fatal", errors.New("boom"), "fatal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := BootstrapStageResults.WithLabelValues("metrics-test", tt.result)
			before := testutil.ToFloat64(c)
			RecordStage("metrics-test", 5*time.Millisecond, tt.err)
			if got := testutil.ToFloat64(c) - before; got != 1 {
				t.Errorf("delta = %v, want 1", got)
			}
		})
	}
}

func TestSetBootstrapReady(t *testing.T) {
	SetBootstrapReady(true)
	if got := testutil.ToFloat64(BootstrapReady); got != 1 {
		t.Errorf("BootstrapReady = %v, want 1", got)
	}
	SetBootstrapReady(false)
	if got := testutil.ToFloat64(BootstrapReady); got != 0 {
		t.Errorf("BootstrapReady = %v, want 0", got)
	}
}

func TestRecordAgentRequest_StatusLabel(t *testing.T) {
	none := AgentRequestsTotal.WithLabelValues("metrics-test", "none")
	conflict := AgentRequestsTotal.WithLabelValues("metrics-test", "409")
	beforeNone, beforeConflict := testutil.ToFloat64(none), testutil.ToFloat64(conflict)

	RecordAgentRequest("metrics-test", 0, time.Millisecond)
	RecordAgentRequest("metrics-test", 409, time.Millisecond)

	if testutil.ToFloat64(none)-beforeNone != 1 {
		t.Error("expected status_code=none for transport failures")
	}
	if testutil.ToFloat64(conflict)-beforeConflict != 1 {
		t.Error("expected status_code=409")
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if testutil.ToFloat64(APIActiveRequests) != before+1 {
		t.Error("expected active requests to increase")
	}
	TrackActiveRequest(false)
	if testutil.ToFloat64(APIActiveRequests) != before {
		t.Error("expected active requests to return to baseline")
	}
}

func TestRecordResponderPoll(t *testing.T) {
	ok := ResponderPolls.WithLabelValues("success")
	bad := ResponderPolls.WithLabelValues("error")
	beforeOK, beforeBad := testutil.ToFloat64(ok), testutil.ToFloat64(bad)

	RecordResponderPoll(nil)
	RecordResponderPoll(errors.New("agent down"))

	if testutil.ToFloat64(ok)-beforeOK != 1 || testutil.ToFloat64(bad)-beforeBad != 1 {
		t.Error("responder poll counters did not advance")
	}
}
