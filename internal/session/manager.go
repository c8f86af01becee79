// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"time"

	"github.com/beaconhq/console-agent/internal/agent"
)

// =============================================================================
// PHASE
// =============================================================================

// Phase is the send-cycle state of the session.
type Phase int

const (
	// PhaseIdle means no stream is in flight; sends are accepted.
	PhaseIdle Phase = iota

	// PhaseStreaming means a response is arriving; sends are rejected.
	PhaseStreaming
)

// String returns the phase name.
func (p Phase) String() string {
	if p == PhaseStreaming {
		return "streaming"
	}
	return "idle"
}

// EndReason records how a send cycle finished.
type EndReason int

const (
	EndCompleted EndReason = iota
	EndError
	EndCancelled
)

// String returns the reason name.
func (r EndReason) String() string {
	switch r {
	case EndError:
		return "error"
	case EndCancelled:
		return "cancelled"
	default:
		return "completed"
	}
}

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Context is the operator's console position captured at send time. It is
// copied into each request and never mutated mid-stream.
type Context struct {
	Pathname      string
	ActiveTenant  string
	ActiveContext string
}

// Status is a point-in-time view of the session for display.
type Status struct {
	SessionID    string
	Phase        Phase
	StartedAt    time.Time
	LastActivity time.Time
	SendCount    int
}

// Manager owns the session id and the send-cycle phase.
type Manager struct {
	mu sync.Mutex

	sessionID    string
	phase        Phase
	ctx          Context
	startedAt    time.Time
	lastActivity time.Time
	sendCount    int
	lastEnd      EndReason
}

// NewManager creates an idle manager with no session id.
func NewManager() *Manager {
	now := time.Now()
	return &Manager{
		phase:        PhaseIdle,
		startedAt:    now,
		lastActivity: now,
	}
}

// SetContext replaces the console context used for subsequent sends. Calls
// during a stream take effect on the next send only.
func (m *Manager) SetContext(ctx Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx = ctx
}

// Context returns the context the next send will carry.
func (m *Manager) Context() Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctx
}

// BeginSend transitions idle -> streaming and builds the outgoing request.
// While streaming it fails with ErrStreamInFlight and the request is not
// built; this is the guard that keeps one stream in flight.
func (m *Manager) BeginSend(message string) (agent.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase == PhaseStreaming {
		return agent.Request{}, agent.ErrStreamInFlight
	}

	m.phase = PhaseStreaming
	m.sendCount++
	m.lastActivity = time.Now()

	return agent.NewRequest(message, m.sessionID, agent.RequestContext{
		Pathname:      m.ctx.Pathname,
		ActiveTenant:  m.ctx.ActiveTenant,
		ActiveContext: m.ctx.ActiveContext,
	}), nil
}

// AdoptSessionID stores the id announced by the backend. The first non-empty
// id wins; later calls with the same or a different id are no-ops, which
// makes adoption idempotent across resumed and redelivered streams.
func (m *Manager) AdoptSessionID(id string) {
	if id == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessionID == "" {
		m.sessionID = id
	}
}

// End transitions streaming -> idle. Ending an idle manager is a no-op so
// callers can unconditionally End in a defer.
func (m *Manager) End(reason EndReason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseStreaming {
		return
	}
	m.phase = PhaseIdle
	m.lastActivity = time.Now()
	m.lastEnd = reason
}

// LastEnd returns how the most recent send cycle finished.
func (m *Manager) LastEnd() EndReason {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastEnd
}

// Reset clears the session id and returns to idle. The next send starts a
// fresh exchange with session_id null.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionID = ""
	m.phase = PhaseIdle
	m.startedAt = time.Now()
	m.lastActivity = m.startedAt
	m.sendCount = 0
}

// Resume installs a persisted session id on an idle manager so the next
// send continues that exchange.
func (m *Manager) Resume(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == PhaseStreaming {
		return false
	}
	m.sessionID = id
	return true
}

// SessionID returns the current session id, empty before adoption.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Phase returns the current send-cycle phase.
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Streaming reports whether a send cycle is in progress.
func (m *Manager) Streaming() bool {
	return m.Phase() == PhaseStreaming
}

// Status returns a snapshot for display.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		SessionID:    m.sessionID,
		Phase:        m.phase,
		StartedAt:    m.startedAt,
		LastActivity: m.lastActivity,
		SendCount:    m.sendCount,
	}
}
