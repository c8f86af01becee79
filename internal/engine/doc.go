// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine ties the agent client, conversation store, session manager,
// and history persistence into one send/receive surface for the UI.
//
// Send is the single entry point for user input: it runs the full cycle of
// guard check, request build, stream consumption, state reduction, and
// write-behind history save, blocking until the conversation reaches a
// terminal state. Cancel may be called from any goroutine to stop the
// in-flight stream; partial output stays visible.
package engine
