// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/beaconhq/console-agent/internal/agent"
	"github.com/beaconhq/console-agent/internal/conversation"
	"github.com/beaconhq/console-agent/internal/history"
	"github.com/beaconhq/console-agent/internal/session"
)

func writeEvent(w http.ResponseWriter, payload string) {
	fmt.Fprintf(w, "data: %s\n", payload)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func newTestEngine(t *testing.T, handler http.HandlerFunc) (*Engine, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	hist, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { hist.Close() })

	client := agent.NewClientWithConfig(&agent.Config{
		BaseURL:           srv.URL,
		RequestsPerMinute: 600,
	})
	return New(client, Options{History: hist}), srv
}

func scriptedHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req agent.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		writeEvent(w, `{"type":"message_start","message_id":"m1","session_id":"s1"}`)
		writeEvent(w, `{"type":"text_delta","content":"You have "}`)
		writeEvent(w, `{"type":"tool_call_start","tool_call":{"id":"tc1","name":"crm_lookup"}}`)
		writeEvent(w, `{"type":"tool_call_end","tool_call":{"id":"tc1","result":"{\"leads\":42}"}}`)
		writeEvent(w, `{"type":"text_delta","content":"42 leads."}`)
		writeEvent(w, `{"type":"message_end"}`)
		writeEvent(w, "[DONE]")
	}
}

func TestSendFullCycle(t *testing.T) {
	eng, _ := newTestEngine(t, scriptedHandler(t))
	eng.SetContext(session.Context{ActiveTenant: "acme", Pathname: "/tenants/acme"})

	if err := eng.Send(context.Background(), "how many leads?"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	snap := eng.Snapshot()
	if snap.Streaming {
		t.Error("streaming should be false after completion")
	}
	if snap.SessionID != "s1" {
		t.Errorf("session id = %q", snap.SessionID)
	}
	if len(snap.Messages) != 2 {
		t.Fatalf("got %d messages, want user + assistant", len(snap.Messages))
	}
	reply := snap.Messages[1]
	if reply.Content != "You have 42 leads." || !reply.Final {
		t.Errorf("assistant message = %+v", reply)
	}
	if len(reply.ToolCalls) != 1 || reply.ToolCalls[0].Status != conversation.CallCompleted {
		t.Errorf("tool calls = %+v", reply.ToolCalls)
	}

	// Write-behind save landed under the adopted session id.
	msgs, err := eng.History().Load("s1")
	if err != nil {
		t.Fatalf("history load: %v", err)
	}
	if len(msgs) != 2 {
		t.Errorf("history has %d messages", len(msgs))
	}

	if eng.Status().Phase != session.PhaseIdle {
		t.Errorf("phase = %s", eng.Status().Phase)
	}
}

func TestSendGuardWhileStreaming(t *testing.T) {
	release := make(chan struct{})
	eng, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		writeEvent(w, `{"type":"message_start","message_id":"m1","session_id":"s1"}`)
		<-release
		writeEvent(w, `{"type":"message_end"}`)
		writeEvent(w, "[DONE]")
	})

	started := make(chan struct{})
	var once bool
	eng.Subscribe(func() {
		if !once && eng.Snapshot().Streaming {
			once = true
			close(started)
		}
	})

	done := make(chan error, 1)
	go func() { done <- eng.Send(context.Background(), "first") }()
	<-started

	err := eng.Send(context.Background(), "second")
	if !errors.Is(err, agent.ErrStreamInFlight) {
		t.Errorf("want ErrStreamInFlight, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Errorf("first send failed: %v", err)
	}

	// The rejected send must not have touched the transcript.
	for _, m := range eng.Snapshot().Messages {
		if m.Content == "second" {
			t.Error("rejected send leaked into the conversation")
		}
	}
}

func TestCancelMidStream(t *testing.T) {
	release := make(chan struct{})
	eng, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		writeEvent(w, `{"type":"message_start","message_id":"m1","session_id":"s1"}`)
		writeEvent(w, `{"type":"text_delta","content":"partial answer"}`)
		<-release
	})
	defer close(release)

	arrived := make(chan struct{})
	var closed bool
	eng.Subscribe(func() {
		if !closed {
			if m, ok := eng.Snapshot().LastMessage(); ok && m.Content == "partial answer" {
				closed = true
				close(arrived)
			}
		}
	})

	done := make(chan error, 1)
	go func() { done <- eng.Send(context.Background(), "tell me everything") }()

	select {
	case <-arrived:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for partial content")
	}
	eng.Cancel()

	if err := <-done; err != nil {
		t.Errorf("cancelled send should return nil, got %v", err)
	}

	snap := eng.Snapshot()
	if snap.Streaming {
		t.Error("streaming should drop immediately on cancel")
	}
	last, _ := snap.LastMessage()
	if last.Content != "partial answer" || !last.Final {
		t.Errorf("partial message = %+v", last)
	}
	for _, m := range snap.Messages {
		if m.IsError {
			t.Error("cancellation must not append an error message")
		}
	}
	if eng.Status().Phase != session.PhaseIdle {
		t.Errorf("phase = %s", eng.Status().Phase)
	}
}

func TestTransportDropAppendsError(t *testing.T) {
	eng, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		writeEvent(w, `{"type":"message_start","message_id":"m1","session_id":"s1"}`)
		writeEvent(w, `{"type":"text_delta","content":"half an ans"}`)
		// Connection closes without message_end or sentinel.
	})

	err := eng.Send(context.Background(), "hi")
	if !agent.IsTransport(err) {
		t.Errorf("want transport error, got %v", err)
	}

	snap := eng.Snapshot()
	if snap.Streaming {
		t.Error("streaming stuck true after transport failure")
	}
	last, _ := snap.LastMessage()
	if !last.IsError {
		t.Errorf("last message should be the error marker: %+v", last)
	}
	if snap.Messages[1].Content != "half an ans" {
		t.Errorf("partial content lost: %+v", snap.Messages[1])
	}
}

func TestBackendUnreachableAppendsError(t *testing.T) {
	hist, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer hist.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client := agent.NewClientWithConfig(&agent.Config{BaseURL: srv.URL, RequestsPerMinute: 600})
	eng := New(client, Options{History: hist})

	if err := eng.Send(context.Background(), "hi"); err == nil {
		t.Fatal("Send() should fail when the backend is down")
	}

	snap := eng.Snapshot()
	last, _ := snap.LastMessage()
	if !last.IsError {
		t.Errorf("want in-thread error message, got %+v", last)
	}
	if snap.Streaming {
		t.Error("streaming must stay false")
	}
}

func TestSendRejectsEmptyMessage(t *testing.T) {
	eng, _ := newTestEngine(t, scriptedHandler(t))
	if err := eng.Send(context.Background(), "   \n"); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("want ErrEmptyMessage, got %v", err)
	}
	if len(eng.Snapshot().Messages) != 0 {
		t.Error("rejected send changed state")
	}
}

func TestSessionIDEchoedOnFollowUp(t *testing.T) {
	var (
		mu         sync.Mutex
		sessionIDs []*string
	)
	eng, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		var req agent.Request
		json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		sessionIDs = append(sessionIDs, req.SessionID)
		mu.Unlock()
		writeEvent(w, `{"type":"message_start","message_id":"m1","session_id":"s1"}`)
		writeEvent(w, `{"type":"message_end"}`)
		writeEvent(w, "[DONE]")
	})

	if err := eng.Send(context.Background(), "first"); err != nil {
		t.Fatal(err)
	}
	if err := eng.Send(context.Background(), "second"); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(sessionIDs) != 2 {
		t.Fatalf("saw %d requests", len(sessionIDs))
	}
	if sessionIDs[0] != nil {
		t.Errorf("first request session id = %v, want null", *sessionIDs[0])
	}
	if sessionIDs[1] == nil || *sessionIDs[1] != "s1" {
		t.Errorf("follow-up session id = %v, want s1", sessionIDs[1])
	}
}

func TestResumeRoundTrip(t *testing.T) {
	eng, _ := newTestEngine(t, scriptedHandler(t))
	if err := eng.Send(context.Background(), "how many leads?"); err != nil {
		t.Fatal(err)
	}

	eng.Reset()
	if len(eng.Snapshot().Messages) != 0 {
		t.Fatal("reset did not clear the conversation")
	}

	if err := eng.Resume("s1"); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	snap := eng.Snapshot()
	if snap.SessionID != "s1" || len(snap.Messages) != 2 {
		t.Errorf("resumed state: session=%q messages=%d", snap.SessionID, len(snap.Messages))
	}
	if eng.Resume("missing") == nil {
		t.Error("Resume() of unknown session should fail")
	}
}
