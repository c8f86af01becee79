// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"testing"

	"github.com/beaconhq/console-agent/internal/agent"
)

func TestFirstSendCarriesNullSession(t *testing.T) {
	m := NewManager()
	req, err := m.BeginSend("hello")
	if err != nil {
		t.Fatalf("BeginSend() error = %v", err)
	}
	if req.SessionID != nil {
		t.Errorf("first request session id = %v, want nil", *req.SessionID)
	}
	if req.Message != "hello" || !req.Stream {
		t.Errorf("request = %+v", req)
	}
	if m.Phase() != PhaseStreaming {
		t.Errorf("phase = %s, want streaming", m.Phase())
	}
}

func TestSessionIDRoundTrip(t *testing.T) {
	m := NewManager()
	if _, err := m.BeginSend("first"); err != nil {
		t.Fatal(err)
	}
	m.AdoptSessionID("s-123")
	m.End(EndCompleted)

	req, err := m.BeginSend("second")
	if err != nil {
		t.Fatalf("BeginSend() error = %v", err)
	}
	if req.SessionID == nil || *req.SessionID != "s-123" {
		t.Errorf("follow-up session id = %v, want s-123", req.SessionID)
	}
}

func TestAdoptSessionIDIdempotent(t *testing.T) {
	m := NewManager()
	m.AdoptSessionID("s-1")
	m.AdoptSessionID("s-1")
	m.AdoptSessionID("s-2")
	m.AdoptSessionID("")

	if got := m.SessionID(); got != "s-1" {
		t.Errorf("session id = %q, want first adoption to win", got)
	}
}

func TestBeginSendGuardWhileStreaming(t *testing.T) {
	m := NewManager()
	if _, err := m.BeginSend("first"); err != nil {
		t.Fatal(err)
	}

	_, err := m.BeginSend("second")
	if !errors.Is(err, agent.ErrStreamInFlight) {
		t.Errorf("want ErrStreamInFlight, got %v", err)
	}
	if st := m.Status(); st.SendCount != 1 {
		t.Errorf("rejected send incremented count: %d", st.SendCount)
	}
}

func TestEndReturnsToIdle(t *testing.T) {
	m := NewManager()
	if _, err := m.BeginSend("hi"); err != nil {
		t.Fatal(err)
	}
	m.End(EndCancelled)

	if m.Phase() != PhaseIdle {
		t.Errorf("phase = %s, want idle", m.Phase())
	}
	if m.LastEnd() != EndCancelled {
		t.Errorf("last end = %s, want cancelled", m.LastEnd())
	}

	// End on an idle manager is a no-op.
	m.End(EndError)
	if m.LastEnd() != EndCancelled {
		t.Error("End on idle manager overwrote the last reason")
	}
}

func TestContextCapturedPerSend(t *testing.T) {
	m := NewManager()
	m.SetContext(Context{
		Pathname:      "/tenants/acme/campaigns/q3",
		ActiveTenant:  "acme",
		ActiveContext: "campaign:q3",
	})

	req, err := m.BeginSend("how is q3 doing")
	if err != nil {
		t.Fatal(err)
	}
	if req.Context.ActiveTenant != "acme" || req.Context.Pathname != "/tenants/acme/campaigns/q3" {
		t.Errorf("context = %+v", req.Context)
	}

	// Changing the context mid-stream affects the next send only.
	m.SetContext(Context{ActiveTenant: "globex"})
	m.End(EndCompleted)

	req2, err := m.BeginSend("and globex?")
	if err != nil {
		t.Fatal(err)
	}
	if req2.Context.ActiveTenant != "globex" {
		t.Errorf("next send context = %+v", req2.Context)
	}
}

func TestResetClearsSession(t *testing.T) {
	m := NewManager()
	m.AdoptSessionID("s-1")
	if _, err := m.BeginSend("hi"); err != nil {
		t.Fatal(err)
	}
	m.Reset()

	if m.SessionID() != "" || m.Phase() != PhaseIdle {
		t.Errorf("reset left residue: id=%q phase=%s", m.SessionID(), m.Phase())
	}
	req, err := m.BeginSend("fresh")
	if err != nil {
		t.Fatal(err)
	}
	if req.SessionID != nil {
		t.Error("send after reset must carry session_id null")
	}
}

func TestResumeInstallsPersistedID(t *testing.T) {
	m := NewManager()
	if !m.Resume("s-old") {
		t.Fatal("Resume() refused on idle manager")
	}
	req, err := m.BeginSend("continue")
	if err != nil {
		t.Fatal(err)
	}
	if req.SessionID == nil || *req.SessionID != "s-old" {
		t.Errorf("resumed session id = %v", req.SessionID)
	}

	m2 := NewManager()
	if _, err := m2.BeginSend("hi"); err != nil {
		t.Fatal(err)
	}
	if m2.Resume("s-other") {
		t.Error("Resume() must refuse while streaming")
	}
}
