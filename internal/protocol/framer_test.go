// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package protocol

import (
	"io"
	"strings"
	"testing"
)

// chunkedReader yields at most n bytes per Read call, to simulate a transport
// that splits records (and multi-byte sequences) across read boundaries.
type chunkedReader struct {
	data []byte
	n    int
	pos  int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	end := r.pos + r.n
	if end > len(r.data) {
		end = len(r.data)
	}
	if end-r.pos > len(p) {
		end = r.pos + len(p)
	}
	n := copy(p, r.data[r.pos:end])
	r.pos += n
	return n, nil
}

func readAll(t *testing.T, f *Framer) []Chunk {
	t.Helper()
	var chunks []Chunk
	for {
		chunk, err := f.Next()
		if err == io.EOF {
			return chunks
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		chunks = append(chunks, chunk)
	}
}

func TestFramer_BasicSequence(t *testing.T) {
	stream := `data: {"type":"message_start","message_id":"m1","session_id":"s1"}
data: {"type":"text_delta","content":"Hello"}
data: {"type":"text_delta","content":" world"}
data: {"type":"message_end"}
data: [DONE]
`
	f := NewFramer(strings.NewReader(stream))
	chunks := readAll(t, f)

	if len(chunks) != 4 {
		t.Fatalf("got %d chunks, want 4", len(chunks))
	}
	if chunks[0].Type != ChunkMessageStart {
		t.Errorf("chunks[0].Type = %q", chunks[0].Type)
	}
	if chunks[0].SessionID != "s1" {
		t.Errorf("SessionID = %q, want 's1'", chunks[0].SessionID)
	}
	if chunks[1].Content != "Hello" || chunks[2].Content != " world" {
		t.Errorf("delta contents = %q, %q", chunks[1].Content, chunks[2].Content)
	}
	if chunks[3].Type != ChunkMessageEnd {
		t.Errorf("chunks[3].Type = %q", chunks[3].Type)
	}
	if !f.SawSentinel() {
		t.Error("SawSentinel() = false, want true")
	}
}

func TestFramer_SplitAcrossReads(t *testing.T) {
	stream := `data: {"type":"text_delta","content":"Hello"}
data: {"type":"message_end"}
data: [DONE]
`
	// One byte per read: every line arrives in fragments.
	f := NewFramer(&chunkedReader{data: []byte(stream), n: 1})
	chunks := readAll(t, f)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].Content != "Hello" {
		t.Errorf("Content = %q, want 'Hello'", chunks[0].Content)
	}
}

func TestFramer_MultiByteSplitAcrossReads(t *testing.T) {
	// "Você tem 42 leads." contains a two-byte UTF-8 sequence (ê). Reading
	// two bytes at a time guarantees it is split across read boundaries.
	stream := "data: {\"type\":\"text_delta\",\"content\":\"Você tem \"}\n" +
		"data: {\"type\":\"text_delta\",\"content\":\"42 leads.\"}\n" +
		"data: [DONE]\n"
	f := NewFramer(&chunkedReader{data: []byte(stream), n: 2})
	chunks := readAll(t, f)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].Content != "Você tem " {
		t.Errorf("Content = %q, want 'Você tem '", chunks[0].Content)
	}
}

func TestFramer_MalformedRecordDropped(t *testing.T) {
	stream := `data: {"type":"text_delta","content":"ok"}
data: {not json at all
data: {"type":"text_delta","content":"still ok"}
data: [DONE]
`
	f := NewFramer(strings.NewReader(stream))
	chunks := readAll(t, f)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2 (malformed dropped)", len(chunks))
	}
	if f.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", f.Dropped())
	}
}

func TestFramer_UnknownTypeDropped(t *testing.T) {
	stream := `data: {"type":"shrug"}
data: {"type":"message_end"}
data: [DONE]
`
	f := NewFramer(strings.NewReader(stream))
	chunks := readAll(t, f)

	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Type != ChunkMessageEnd {
		t.Errorf("Type = %q", chunks[0].Type)
	}
}

func TestFramer_CloseWithoutSentinel(t *testing.T) {
	// A closed connection with no sentinel is a valid terminal condition,
	// not an error.
	stream := `data: {"type":"text_delta","content":"partial"}
`
	f := NewFramer(strings.NewReader(stream))
	chunks := readAll(t, f)

	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if f.SawSentinel() {
		t.Error("SawSentinel() = true, want false")
	}
}

func TestFramer_TrailingLineWithoutNewline(t *testing.T) {
	stream := `data: {"type":"text_delta","content":"a"}
data: {"type":"message_end"}`
	f := NewFramer(strings.NewReader(stream))
	chunks := readAll(t, f)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2 (final unterminated line parsed)", len(chunks))
	}
	if chunks[1].Type != ChunkMessageEnd {
		t.Errorf("Type = %q", chunks[1].Type)
	}
}

func TestFramer_BlankAndCommentLinesIgnored(t *testing.T) {
	stream := "\n: keepalive\n\ndata: {\"type\":\"message_end\"}\ndata: [DONE]\n"
	f := NewFramer(strings.NewReader(stream))
	chunks := readAll(t, f)

	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
}

func TestFramer_NothingAfterSentinel(t *testing.T) {
	stream := `data: [DONE]
data: {"type":"text_delta","content":"late"}
`
	f := NewFramer(strings.NewReader(stream))
	chunks := readAll(t, f)

	if len(chunks) != 0 {
		t.Fatalf("got %d chunks after sentinel, want 0", len(chunks))
	}

	// Next after EOF keeps returning EOF.
	if _, err := f.Next(); err != io.EOF {
		t.Errorf("Next() after EOF = %v, want io.EOF", err)
	}
}

func TestFramer_CRLFLines(t *testing.T) {
	stream := "data: {\"type\":\"text_delta\",\"content\":\"x\"}\r\ndata: [DONE]\r\n"
	f := NewFramer(strings.NewReader(stream))
	chunks := readAll(t, f)

	if len(chunks) != 1 || chunks[0].Content != "x" {
		t.Fatalf("CRLF handling broken: %+v", chunks)
	}
}

func TestFramer_ToolCallRecord(t *testing.T) {
	stream := `data: {"type":"tool_call_start","tool_call":{"id":"t1","name":"get_leads","arguments":{"week":"current"}}}
data: {"type":"tool_call_end","tool_call":{"id":"t1","result":"42"}}
data: [DONE]
`
	f := NewFramer(strings.NewReader(stream))
	chunks := readAll(t, f)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	start := chunks[0]
	if start.ToolCall == nil || start.ToolCall.ID != "t1" || start.ToolCall.Name != "get_leads" {
		t.Fatalf("tool_call_start = %+v", start.ToolCall)
	}
	if start.ToolCall.Arguments["week"] != "current" {
		t.Errorf("Arguments['week'] = %v", start.ToolCall.Arguments["week"])
	}
	end := chunks[1]
	if end.ToolCall == nil || end.ToolCall.Result != "42" {
		t.Fatalf("tool_call_end = %+v", end.ToolCall)
	}
}
