// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the aihub backend.
//
// Every endpoint wraps its payload in a uniform envelope {code, message,
// data}; the client unwraps it into typed results. The one exception is the
// completion stream, which is a raw chunked body of blank-line-delimited
// JSON records consumed by StreamReader.
//
// The client attaches the session's bearer token to every request and, on a
// 401, clears the session store before surfacing the error so the UI can
// fall back to the login screen.
package api
