// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatstate maintains the client-side view of the chat workspace:
// the conversation list, the selected conversation's transcript, and the
// live buffer of an in-flight completion stream.
//
// Mutations follow tentative-apply/confirm-or-rollback: optimistic local
// edits are reconciled with the backend's authoritative response, and a
// failed call rolls back by refetching. Each send moves the interaction
// through Idle -> Sending -> Streaming -> {Completed|Failed|Cancelled} ->
// Idle; starting a new send cancels any stream still in flight so two
// streams can never interleave into one assistant message.
package chatstate
