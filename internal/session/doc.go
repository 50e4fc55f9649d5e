// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the authenticated session: the bearer token and the
// user profile it belongs to. The two are always set and cleared together;
// there is no state where one is present without the other.
//
// The store persists to ~/.aihub/session.json with an atomic write so that
// a crash mid-login never leaves a partial session on disk. Subscribers
// registered on the store are notified after every login/logout.
package session
