// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mockserver is a local stand-in for the kare backend, used for
// development and integration tests.
//
// It serves the four backend endpoints with the same request and response
// shapes:
//
//	POST /check-user      {"user_id"} -> {"exists", "profile"}
//	POST /create-profile  {"user_id", "name", "age"} -> {"success", "message", "profile"}
//	POST /text            {"messages", "user_id"} -> {"answer"} (echoes the last message)
//	POST /voice           multipart "file" [+ "user_id"] -> {"answer", "transcript"}
//
// plus GET /healthz and GET /metrics. Profiles live in SQLite. Missing
// fields give 400 with {"error"}; creating an existing profile gives 409.
//
// # Usage
//
//	store, err := mockserver.OpenSQLite(cfg.MockServer.DBPath)
//	srv := mockserver.New(mockserver.Config{Addr: ":8000"}, store, logger)
//	err = srv.ListenAndRun(ctx)
package mockserver
