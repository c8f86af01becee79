// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package protocol

// =============================================================================
// CHUNK TYPES
// =============================================================================

// ChunkType identifies one variant of the closed stream chunk union.
type ChunkType string

const (
	ChunkMessageStart  ChunkType = "message_start"
	ChunkTextDelta     ChunkType = "text_delta"
	ChunkToolCallStart ChunkType = "tool_call_start"
	ChunkToolCallDelta ChunkType = "tool_call_delta"
	ChunkToolCallEnd   ChunkType = "tool_call_end"
	ChunkMessageEnd    ChunkType = "message_end"
	ChunkError         ChunkType = "error"
)

// Valid reports whether t is one of the known chunk types.
func (t ChunkType) Valid() bool {
	switch t {
	case ChunkMessageStart, ChunkTextDelta, ChunkToolCallStart,
		ChunkToolCallDelta, ChunkToolCallEnd, ChunkMessageEnd, ChunkError:
		return true
	}
	return false
}

// Terminal reports whether t ends the streaming phase of a message.
func (t ChunkType) Terminal() bool {
	return t == ChunkMessageEnd || t == ChunkError
}

// String returns the wire name of the chunk type.
func (t ChunkType) String() string {
	return string(t)
}

// =============================================================================
// CHUNK
// =============================================================================

// ToolCallData carries the tool call fields of tool_call_* chunks. Start
// chunks carry id, name and arguments; end chunks carry result or error.
type ToolCallData struct {
	ID        string         `json:"id"`
	Name      string         `json:"name,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Result    string         `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Chunk is one discrete record of the incremental response stream. Each tag
// carries only the fields relevant to it; the rest stay zero.
type Chunk struct {
	Type      ChunkType     `json:"type"`
	MessageID string        `json:"message_id,omitempty"`
	SessionID string        `json:"session_id,omitempty"`
	Content   string        `json:"content,omitempty"`
	ToolCall  *ToolCallData `json:"tool_call,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// ErrorChunk builds a terminal error chunk. The stream client uses this to
// synthesize a terminal record on transport failure so consumers always
// reach a non-streaming state.
func ErrorChunk(msg string) Chunk {
	return Chunk{Type: ChunkError, Error: msg}
}

// MessageStartChunk builds a message_start chunk.
func MessageStartChunk(messageID, sessionID string) Chunk {
	return Chunk{Type: ChunkMessageStart, MessageID: messageID, SessionID: sessionID}
}

// TextDeltaChunk builds a text_delta chunk.
func TextDeltaChunk(content string) Chunk {
	return Chunk{Type: ChunkTextDelta, Content: content}
}

// MessageEndChunk builds a message_end chunk.
func MessageEndChunk() Chunk {
	return Chunk{Type: ChunkMessageEnd}
}

// ToolCallStartChunk builds a tool_call_start chunk.
func ToolCallStartChunk(id, name string, args map[string]any) Chunk {
	return Chunk{Type: ChunkToolCallStart, ToolCall: &ToolCallData{ID: id, Name: name, Arguments: args}}
}

// ToolCallDeltaChunk builds a tool_call_delta chunk carrying incremental
// name or argument data for a pending call.
func ToolCallDeltaChunk(id, name string, args map[string]any) Chunk {
	return Chunk{Type: ChunkToolCallDelta, ToolCall: &ToolCallData{ID: id, Name: name, Arguments: args}}
}

// ToolCallEndChunk builds a tool_call_end chunk. A non-empty errMsg marks the
// call failed.
func ToolCallEndChunk(id, result, errMsg string) Chunk {
	return Chunk{Type: ChunkToolCallEnd, ToolCall: &ToolCallData{ID: id, Result: result, Error: errMsg}}
}
