// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"testing"

	"github.com/beaconhq/console-agent/internal/protocol"
)

func TestTrackerPendingAndResolved(t *testing.T) {
	st := NewStore()
	tr := NewTracker(st)

	st.Dispatch(protocol.MessageStartChunk("m1", "s1"))
	st.Dispatch(protocol.ToolCallStartChunk("tc1", "crm_lookup", nil))
	st.Dispatch(protocol.ToolCallStartChunk("tc2", "send_email", nil))

	if !tr.HasPending() {
		t.Error("expected pending calls")
	}
	pending := tr.Pending()
	if len(pending) != 2 || pending[0].ID != "tc1" || pending[1].ID != "tc2" {
		t.Errorf("pending = %+v", pending)
	}

	st.Dispatch(protocol.ToolCallEndChunk("tc1", "ok", ""))
	st.Dispatch(protocol.ToolCallEndChunk("tc2", "", "bounced"))

	if tr.HasPending() {
		t.Error("no calls should remain pending")
	}
	resolved := tr.CallsFor("m1")
	if len(resolved) != 2 {
		t.Fatalf("got %d resolved calls", len(resolved))
	}
	completed, failed, pendingN := tr.Counts()
	if completed != 1 || failed != 1 || pendingN != 0 {
		t.Errorf("counts = %d/%d/%d", completed, failed, pendingN)
	}
}

func TestTrackerAllOrdering(t *testing.T) {
	st := NewStore()
	tr := NewTracker(st)

	st.Dispatch(protocol.MessageStartChunk("m1", "s1"))
	st.Dispatch(protocol.ToolCallStartChunk("a", "one", nil))
	st.Dispatch(protocol.ToolCallEndChunk("a", "done", ""))
	st.Dispatch(protocol.ToolCallStartChunk("b", "two", nil))

	all := tr.All()
	if len(all) != 2 {
		t.Fatalf("got %d calls", len(all))
	}
	if all[0].ID != "a" || all[1].ID != "b" {
		t.Errorf("order = %s, %s", all[0].ID, all[1].ID)
	}
	if all[0].Status != CallCompleted || all[1].Status != CallRunning {
		t.Errorf("statuses = %s, %s", all[0].Status, all[1].Status)
	}
}
