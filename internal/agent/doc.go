// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent provides the HTTP client for the console agent chat API.
//
// The client opens one streaming POST per outgoing user message and parses
// the response body through the protocol framer, delivering chunks to a
// callback in arrival order. At most one stream may be in flight per client;
// a second attempt fails fast with ErrStreamInFlight.
//
// Transport failures mid-stream never surface as a stuck stream: the client
// synthesizes a terminal error chunk so the consumer always reaches a
// non-streaming state. Cancellation through the context is cooperative and
// synthesizes nothing.
package agent
