// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
)

// =============================================================================
// FRAMER
// =============================================================================

const (
	// dataMarker prefixes every record line on the wire.
	dataMarker = "data:"

	// doneSentinel is the payload that signals explicit end-of-stream.
	doneSentinel = "[DONE]"
)

// Framer turns the raw response body into discrete chunks. It buffers an
// incomplete trailing line across reads and only parses complete lines, so
// multi-byte UTF-8 sequences split across read boundaries are never
// corrupted.
type Framer struct {
	reader   *bufio.Reader
	done     bool
	sentinel bool
	dropped  int
}

// NewFramer creates a framer over the raw stream.
func NewFramer(r io.Reader) *Framer {
	return &Framer{reader: bufio.NewReader(r)}
}

// Next returns the next chunk from the stream. It returns io.EOF on the
// explicit sentinel and on connection close without a sentinel; both are
// valid terminal conditions. Malformed records and unknown tags are dropped
// silently and never abort the stream.
func (f *Framer) Next() (Chunk, error) {
	if f.done {
		return Chunk{}, io.EOF
	}

	for {
		line, err := f.reader.ReadBytes('\n')
		if err != nil {
			if err != io.EOF {
				return Chunk{}, err
			}
			// Connection closed. Try to parse a final unterminated line
			// before reporting end-of-stream.
			f.done = true
			if chunk, ok := f.parseLine(line); ok {
				return chunk, nil
			}
			return Chunk{}, io.EOF
		}

		if chunk, ok := f.parseLine(line); ok {
			return chunk, nil
		}
		if f.done {
			return Chunk{}, io.EOF
		}
	}
}

// parseLine parses one record line. It returns (chunk, true) for a valid
// record, and (zero, false) for blank lines, non-record lines, the sentinel
// (which also marks the framer done), and malformed payloads.
func (f *Framer) parseLine(line []byte) (Chunk, bool) {
	line = bytes.TrimRight(line, "\r\n")
	if len(line) == 0 {
		return Chunk{}, false
	}

	if !bytes.HasPrefix(line, []byte(dataMarker)) {
		// Not a record line. Ignore, the stream continues.
		f.dropped++
		return Chunk{}, false
	}
	payload := bytes.TrimSpace(line[len(dataMarker):])

	if bytes.Equal(payload, []byte(doneSentinel)) {
		f.done = true
		f.sentinel = true
		return Chunk{}, false
	}

	var chunk Chunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		// One corrupt frame must never abort the whole stream.
		f.dropped++
		return Chunk{}, false
	}
	if !chunk.Type.Valid() {
		f.dropped++
		return Chunk{}, false
	}

	return chunk, true
}

// Dropped returns the number of records discarded as malformed or unknown.
func (f *Framer) Dropped() int {
	return f.dropped
}

// SawSentinel reports whether the explicit end-of-stream sentinel arrived.
func (f *Framer) SawSentinel() bool {
	return f.sentinel
}
