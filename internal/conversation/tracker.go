// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

// =============================================================================
// TOOL CALL TRACKER
// =============================================================================

// Tracker is a read-only projection of tool call activity over a Store.
// It adds no state of its own; every answer derives from the store's
// current snapshot, so it can never disagree with the message list.
type Tracker struct {
	store *Store
}

// NewTracker wraps a store.
func NewTracker(store *Store) *Tracker {
	return &Tracker{store: store}
}

// Pending returns tool calls announced but not yet resolved, in the order
// their start chunks arrived.
func (t *Tracker) Pending() []ToolCall {
	return t.store.PendingCalls()
}

// HasPending reports whether any tool call is still awaiting its result.
func (t *Tracker) HasPending() bool {
	return len(t.store.PendingCalls()) > 0
}

// CallsFor returns the resolved tool calls attached to the given message.
func (t *Tracker) CallsFor(messageID string) []ToolCall {
	s := t.store.Snapshot()
	return s.CallsFor(messageID)
}

// All returns every tool call in the conversation, resolved calls first in
// message order, then pending calls in arrival order.
func (t *Tracker) All() []ToolCall {
	s := t.store.Snapshot()
	var out []ToolCall
	for _, m := range s.Messages {
		out = append(out, m.ToolCalls...)
	}
	out = append(out, s.PendingCalls()...)
	return out
}

// Counts returns the number of completed, failed, and pending calls.
func (t *Tracker) Counts() (completed, failed, pending int) {
	for _, c := range t.All() {
		switch c.Status {
		case CallCompleted:
			completed++
		case CallFailed:
			failed++
		default:
			pending++
		}
	}
	return completed, failed, pending
}
