// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages
// as exchanged with the aihub backend.
//
// The backend owns all persistence; these types are the client-side cached
// representation plus helpers for display and token accounting. JSON tags
// match the backend wire names (snake_case, messages serialized as "content").
package model
