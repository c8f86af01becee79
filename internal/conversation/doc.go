// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation holds the authoritative in-memory conversation state:
// the ordered message list, the pending tool call set and the streaming flag.
//
// State moves only through the pure reducer Apply(state, chunk), dispatched
// on the chunk type. The Store wraps a single State value behind a minimal
// subscription mechanism; there is exactly one writer (the stream loop), and
// chunks are applied strictly in arrival order.
package conversation
