// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for the
// console agent CLI.
//
// Configuration comes from three layers, lowest precedence first: built-in
// defaults, the TOML file at ~/.beacon/config.toml, and BEACON_* environment
// variables. A file watcher can reload the file layer at runtime so an
// operator does not have to restart mid-session.
package config
