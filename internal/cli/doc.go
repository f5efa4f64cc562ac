// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the kare command tree.
//
// # Commands
//
//	kare                 full-screen chat (default)
//	kare chat            line-mode chat with history
//	kare mock-server     local stand-in for the backend
//	kare config [show|path|get|set|keys|init]
//	kare version
//
// # Global Flags
//
//	-v, --verbose   debug logging
//	--config PATH   config file instead of ~/.kare/config.toml
//
// Interactive commands log to the configured log file since they own the
// terminal. The mock server logs JSON to stderr.
package cli
