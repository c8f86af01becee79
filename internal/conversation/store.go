// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"sync"

	"github.com/beaconhq/console-agent/internal/protocol"
)

// =============================================================================
// STORE
// =============================================================================

// Store owns the single authoritative State. The stream loop is the only
// writer; consumers read snapshots and subscribe for change notification.
// The mutex exists for the read side (UI goroutine), not for write-write
// races, which the single-writer design rules out.
type Store struct {
	mu        sync.RWMutex
	state     State
	subs      map[int]func()
	nextSubID int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		state: NewState(),
		subs:  make(map[int]func()),
	}
}

// Dispatch applies one chunk through the reducer and notifies subscribers.
func (st *Store) Dispatch(c protocol.Chunk) {
	st.mu.Lock()
	st.state = Apply(st.state, c)
	st.mu.Unlock()
	st.notify()
}

// AddUserMessage appends the outgoing user message and returns it.
func (st *Store) AddUserMessage(content string) Message {
	msg := NewUserMessage(content)
	st.mu.Lock()
	next := st.state.clone()
	next.Messages = append(next.Messages, msg)
	st.state = next
	st.mu.Unlock()
	st.notify()
	return msg
}

// CancelStreaming forces the terminal state after user cancellation. Applied
// content stays visible; no message_end chunk is required.
func (st *Store) CancelStreaming() {
	st.mu.Lock()
	st.state = finalizeForCancel(st.state)
	st.mu.Unlock()
	st.notify()
}

// Snapshot returns a deep copy of the current state. Mutating the returned
// value never affects the store.
func (st *Store) Snapshot() State {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state.clone()
}

// Streaming reports whether a message is currently streaming.
func (st *Store) Streaming() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state.Streaming
}

// SessionID returns the session id adopted from the stream, if any.
func (st *Store) SessionID() string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state.SessionID
}

// Messages returns a deep copy of the ordered message list.
func (st *Store) Messages() []Message {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]Message, len(st.state.Messages))
	for i, m := range st.state.Messages {
		out[i] = m.clone()
	}
	return out
}

// PendingCalls returns the currently pending tool calls in arrival order.
func (st *Store) PendingCalls() []ToolCall {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state.PendingCalls()
}

// Hydrate seeds the store from persisted history. It is a cold-start
// operation only; while streaming it is a no-op, the live state stays
// authoritative.
func (st *Store) Hydrate(sessionID string, msgs []Message) {
	st.mu.Lock()
	if st.state.Streaming {
		st.mu.Unlock()
		return
	}
	next := NewState()
	next.SessionID = sessionID
	next.Messages = make([]Message, len(msgs))
	for i, m := range msgs {
		m.Final = true
		next.Messages[i] = m.clone()
	}
	st.state = next
	st.mu.Unlock()
	st.notify()
}

// Reset clears the conversation and session association.
func (st *Store) Reset() {
	st.mu.Lock()
	st.state = NewState()
	st.mu.Unlock()
	st.notify()
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe registers a change callback and returns the unsubscribe func.
// Callbacks run synchronously after each transition, outside the lock.
func (st *Store) Subscribe(fn func()) func() {
	st.mu.Lock()
	id := st.nextSubID
	st.nextSubID++
	st.subs[id] = fn
	st.mu.Unlock()

	return func() {
		st.mu.Lock()
		delete(st.subs, id)
		st.mu.Unlock()
	}
}

func (st *Store) notify() {
	st.mu.RLock()
	fns := make([]func(), 0, len(st.subs))
	for _, fn := range st.subs {
		fns = append(fns, fn)
	}
	st.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}
