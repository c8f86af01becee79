// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for the console agent:
// atomic file writes and unicode-safe string truncation.
package util
