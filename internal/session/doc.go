// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks the identity and phase of the current exchange
// with the agent backend.
//
// A session starts with no id; the backend mints one and announces it on
// the first message_start chunk, after which every outgoing request echoes
// it back so the backend can load conversational memory. The manager also
// enforces the single-stream guard: one send at a time, a second attempt
// is rejected before any network activity happens.
package session
