// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"time"

	"github.com/beaconhq/console-agent/internal/protocol"
)

// =============================================================================
// STATE
// =============================================================================

// State is one immutable snapshot of the conversation. Apply never mutates
// its input; it returns a fresh value, which keeps the reducer trivially
// testable with no transport at all.
type State struct {
	// SessionID correlates all chunks of one continuous exchange. Empty
	// until the first message_start carries one.
	SessionID string

	// Streaming is true iff a message_start has arrived that is not yet
	// followed by message_end or error.
	Streaming bool

	// Messages is append-only and strictly ordered by arrival.
	Messages []Message

	pending      map[string]ToolCall
	pendingOrder []string
}

// NewState returns an empty conversation state.
func NewState() State {
	return State{pending: make(map[string]ToolCall)}
}

// clone deep-copies the state so the returned value shares nothing mutable
// with the original.
func (s State) clone() State {
	out := State{
		SessionID: s.SessionID,
		Streaming: s.Streaming,
		pending:   make(map[string]ToolCall, len(s.pending)),
	}
	if s.Messages != nil {
		out.Messages = make([]Message, len(s.Messages))
		for i, m := range s.Messages {
			out.Messages[i] = m.clone()
		}
	}
	for id, c := range s.pending {
		out.pending[id] = c.clone()
	}
	if s.pendingOrder != nil {
		out.pendingOrder = append([]string(nil), s.pendingOrder...)
	}
	return out
}

// LastMessage returns the most recent message, if any.
func (s State) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// PendingCalls returns the tool calls that are running and not yet attached
// to a message, in arrival order.
func (s State) PendingCalls() []ToolCall {
	out := make([]ToolCall, 0, len(s.pendingOrder))
	for _, id := range s.pendingOrder {
		if c, ok := s.pending[id]; ok {
			out = append(out, c.clone())
		}
	}
	return out
}

// CallsFor returns the tool calls attached to the message with the given id.
func (s State) CallsFor(messageID string) []ToolCall {
	for _, m := range s.Messages {
		if m.ID == messageID {
			out := make([]ToolCall, len(m.ToolCalls))
			for i, c := range m.ToolCalls {
				out[i] = c.clone()
			}
			return out
		}
	}
	return nil
}

// openIndex returns the index of the current open assistant message, or -1.
func (s State) openIndex() int {
	if i := len(s.Messages) - 1; i >= 0 && s.Messages[i].Open() {
		return i
	}
	return -1
}

// callAttached reports whether a terminal record for the id already exists
// on any message. Used to make duplicate tool_call_end a no-op.
func (s State) callAttached(id string) bool {
	for _, m := range s.Messages {
		for _, c := range m.ToolCalls {
			if c.ID == id {
				return true
			}
		}
	}
	return false
}

// =============================================================================
// REDUCER
// =============================================================================

// Apply is the pure transition function (state, chunk) -> state. Chunks are
// applied strictly in arrival order by a single writer; the reducer itself
// never reorders, blocks, or raises.
func Apply(s State, c protocol.Chunk) State {
	switch c.Type {
	case protocol.ChunkMessageStart:
		return applyMessageStart(s, c)
	case protocol.ChunkTextDelta:
		return applyTextDelta(s, c)
	case protocol.ChunkToolCallStart:
		return applyToolCallStart(s, c)
	case protocol.ChunkToolCallDelta:
		return applyToolCallDelta(s, c)
	case protocol.ChunkToolCallEnd:
		return applyToolCallEnd(s, c)
	case protocol.ChunkMessageEnd:
		return applyMessageEnd(s)
	case protocol.ChunkError:
		return applyError(s, c)
	default:
		// Unknown tags are dropped by the framer; nothing to do here.
		return s
	}
}

func applyMessageStart(s State, c protocol.Chunk) State {
	// At most one assistant message is open at a time. A nested start while
	// streaming is a malformed sequence; ignore it.
	if s.Streaming {
		return s
	}
	out := s.clone()
	out.Messages = append(out.Messages, newAssistantSkeleton(c.MessageID))
	out.Streaming = true
	if out.SessionID == "" && c.SessionID != "" {
		out.SessionID = c.SessionID
	}
	return out
}

func applyTextDelta(s State, c protocol.Chunk) State {
	i := s.openIndex()
	if i < 0 || c.Content == "" {
		// Deltas outside an open assistant message are malformed; drop.
		return s
	}
	out := s.clone()
	out.Messages[i].Content += c.Content
	return out
}

func applyToolCallStart(s State, c protocol.Chunk) State {
	if c.ToolCall == nil || c.ToolCall.ID == "" {
		return s
	}
	id := c.ToolCall.ID
	if _, exists := s.pending[id]; exists || s.callAttached(id) {
		// Ids are unique within a session; a repeated start is dropped.
		return s
	}
	out := s.clone()
	call := ToolCall{
		ID:        id,
		Name:      c.ToolCall.Name,
		Status:    CallRunning,
		StartedAt: time.Now(),
	}
	if c.ToolCall.Arguments != nil {
		call.Arguments = make(map[string]any, len(c.ToolCall.Arguments))
		for k, v := range c.ToolCall.Arguments {
			call.Arguments[k] = v
		}
	}
	out.pending[id] = call
	out.pendingOrder = append(out.pendingOrder, id)
	return out
}

func applyToolCallDelta(s State, c protocol.Chunk) State {
	if c.ToolCall == nil || c.ToolCall.ID == "" {
		return s
	}
	call, ok := s.pending[c.ToolCall.ID]
	if !ok {
		return s
	}
	out := s.clone()
	merged := call.clone()
	if merged.Name == "" {
		merged.Name = c.ToolCall.Name
	}
	if len(c.ToolCall.Arguments) > 0 {
		if merged.Arguments == nil {
			merged.Arguments = make(map[string]any, len(c.ToolCall.Arguments))
		}
		for k, v := range c.ToolCall.Arguments {
			merged.Arguments[k] = v
		}
	}
	out.pending[merged.ID] = merged
	return out
}

func applyToolCallEnd(s State, c protocol.Chunk) State {
	if c.ToolCall == nil || c.ToolCall.ID == "" {
		return s
	}
	id := c.ToolCall.ID

	// Duplicate end for an already-attached id is a no-op, never an append.
	if s.callAttached(id) {
		return s
	}

	out := s.clone()
	call, ok := out.pending[id]
	if ok {
		delete(out.pending, id)
		for i, pid := range out.pendingOrder {
			if pid == id {
				out.pendingOrder = append(out.pendingOrder[:i], out.pendingOrder[i+1:]...)
				break
			}
		}
	} else {
		// End for an id that never started. The backend occasionally does
		// this on redelivery; synthesize a minimal terminal record instead
		// of rejecting the frame.
		call = ToolCall{ID: id, Name: c.ToolCall.Name, StartedAt: time.Now()}
	}

	call.Result = c.ToolCall.Result
	call.Error = c.ToolCall.Error
	call.CompletedAt = time.Now()
	if c.ToolCall.Error != "" {
		call.Status = CallFailed
	} else {
		call.Status = CallCompleted
	}

	if i := out.openIndex(); i >= 0 {
		out.Messages[i].ToolCalls = append(out.Messages[i].ToolCalls, call)
	}
	// Without an open message the terminal record has nowhere to live; the
	// pending entry is still released so nothing leaks.
	return out
}

func applyMessageEnd(s State) State {
	out := s.clone()
	out.Streaming = false
	if i := out.openIndex(); i >= 0 {
		out.Messages[i].Final = true
	}
	return out
}

func applyError(s State, c protocol.Chunk) State {
	out := s.clone()
	out.Streaming = false
	if i := out.openIndex(); i >= 0 {
		out.Messages[i].Final = true
	}
	out.Messages = append(out.Messages, newErrorMessage(c.Error))
	return out
}

// finalizeForCancel forces the terminal state on user cancellation: the open
// message keeps every delta already applied (no rollback), pending calls are
// closed out as failed, and streaming drops to false.
func finalizeForCancel(s State) State {
	out := s.clone()
	if !out.Streaming && len(out.pending) == 0 {
		return out
	}
	for _, id := range out.pendingOrder {
		call, ok := out.pending[id]
		if !ok {
			continue
		}
		call.Status = CallFailed
		call.Error = "canceled"
		call.CompletedAt = time.Now()
		if i := out.openIndex(); i >= 0 {
			out.Messages[i].ToolCalls = append(out.Messages[i].ToolCalls, call)
		}
	}
	out.pending = make(map[string]ToolCall)
	out.pendingOrder = nil
	if i := out.openIndex(); i >= 0 {
		out.Messages[i].Final = true
	}
	out.Streaming = false
	return out
}
