// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"time"

	"github.com/google/uuid"

	"github.com/beaconhq/console-agent/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	case RoleTool:
		return "Tool"
	default:
		return string(r)
	}
}

// =============================================================================
// TOOL CALL TYPE
// =============================================================================

// CallStatus is the lifecycle state of a tool call.
type CallStatus string

const (
	CallPending   CallStatus = "pending"
	CallRunning   CallStatus = "running"
	CallCompleted CallStatus = "completed"
	CallFailed    CallStatus = "failed"
)

// Terminal reports whether the status has no outgoing transition.
func (s CallStatus) Terminal() bool {
	return s == CallCompleted || s == CallFailed
}

// CanTransition reports whether the per-call state machine allows moving
// from one status to another. Terminal states have no outgoing edges.
func CanTransition(from, to CallStatus) bool {
	switch from {
	case CallPending:
		return to == CallRunning || to == CallCompleted || to == CallFailed
	case CallRunning:
		return to == CallCompleted || to == CallFailed
	default:
		return false
	}
}

// ToolCall is one reported invocation of a backend capability. Ids are unique
// within a session; a call reaches exactly one terminal status.
type ToolCall struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Arguments   map[string]any `json:"arguments,omitempty"`
	Status      CallStatus     `json:"status"`
	Result      string         `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	StartedAt   time.Time      `json:"started_at,omitempty"`
	CompletedAt time.Time      `json:"completed_at,omitempty"`
}

// clone deep-copies the call, including its argument map.
func (c ToolCall) clone() ToolCall {
	out := c
	if c.Arguments != nil {
		out.Arguments = make(map[string]any, len(c.Arguments))
		for k, v := range c.Arguments {
			out.Arguments[k] = v
		}
	}
	return out
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single entry of the conversation. Content is append-only
// while the message is open; once Final is set the message never changes.
type Message struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	CreatedAt time.Time  `json:"created_at"`

	// IsError flags the distinctly-marked assistant message appended on a
	// terminal error chunk or transport failure.
	IsError bool `json:"is_error,omitempty"`

	// Final is set by message_end, error, or cancellation.
	Final bool `json:"final"`
}

// NewUserMessage creates a finalized user message.
func NewUserMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		CreatedAt: time.Now(),
		Final:     true,
	}
}

// newAssistantSkeleton creates the empty open assistant message appended on
// message_start. An empty id gets a generated one.
func newAssistantSkeleton(id string) Message {
	if id == "" {
		id = uuid.NewString()
	}
	return Message{
		ID:        id,
		Role:      RoleAssistant,
		CreatedAt: time.Now(),
	}
}

// newErrorMessage creates the flagged assistant message that surfaces a
// failure in-thread.
func newErrorMessage(text string) Message {
	if text == "" {
		text = "The assistant ran into a problem. Please try again."
	}
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   text,
		CreatedAt: time.Now(),
		IsError:   true,
		Final:     true,
	}
}

// Open reports whether the message still accepts text deltas and tool call
// attachments.
func (m Message) Open() bool {
	return m.Role == RoleAssistant && !m.Final
}

// Preview returns a single-line truncated preview of the content.
func (m Message) Preview(maxRunes int) string {
	return util.TruncateRunes(util.CollapseSpace(m.Content), maxRunes)
}

// clone deep-copies the message, including its tool call list.
func (m Message) clone() Message {
	out := m
	if m.ToolCalls != nil {
		out.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		for i, c := range m.ToolCalls {
			out.ToolCalls[i] = c.clone()
		}
	}
	return out
}
