// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package protocol defines the agent chat wire protocol: the closed set of
// stream chunk types the backend agent emits, and the Framer that turns the
// raw response body into discrete, typed chunks.
//
// The wire format is line-delimited: each record is a single line of the form
//
//	data: {"type":"text_delta","content":"..."}
//
// terminated by a newline. The sentinel line "data: [DONE]" signals explicit
// end-of-stream; a closed connection without the sentinel is also accepted as
// a terminal condition. Malformed or unknown records are dropped without
// aborting the stream.
package protocol
