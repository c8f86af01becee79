// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history persists finished conversations to a local SQLite
// database so an operator can list, search, resume, and export past
// exchanges.
//
// Persistence is write-behind: the engine saves after each completed send
// cycle, and a save failure never disturbs the live conversation. The
// database lives under the user data directory by default and is safe for
// a single console process; SQLite's single-writer model is enforced by
// capping the connection pool at one.
package history
