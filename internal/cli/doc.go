// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the interactive terminal front end for the console
// agent.
//
// The REPL reads operator input with line editing and history, streams the
// assistant's reply token by token, and renders finished messages as
// markdown when stdout is a terminal. Ctrl+C cancels the in-flight response
// without losing the partial output; slash commands cover history, session,
// and context management.
package cli
