// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import "encoding/json"

// =============================================================================
// ENVELOPE
// =============================================================================

// envelope is the uniform response wrapper used by every aihub endpoint.
// Data is decoded lazily so each call site can unmarshal into its own type.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// LoginRequest carries credentials for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest creates an account via POST /users/.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	Password string `json:"password"`
}

// CreateConversationRequest is the body for POST /conversations/.
type CreateConversationRequest struct {
	Title string `json:"title"`
	Model string `json:"model"`
}

// UpdateConversationRequest is a partial update for PUT /conversations/{id}.
// Nil fields are left unchanged by the backend.
type UpdateConversationRequest struct {
	Title    *string `json:"title,omitempty"`
	IsPinned *bool   `json:"is_pinned,omitempty"`
}

// streamRequest is the body for POST /conversations/{id}/stream.
type streamRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// TokenResponse is the payload of a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Summary is the auxiliary conversation summary view.
type Summary struct {
	Summary      string `json:"summary"`
	MessageCount int    `json:"message_count"`
}

// ContextWindow is the retrieved-context auxiliary view: the recent slice of
// the transcript the backend feeds to the model.
type ContextWindow struct {
	Context          string `json:"context"`
	MessageCount     int    `json:"message_count"`
	MaxContextLength int    `json:"max_context_length"`
}

// LangChainStatus is the capability probe for the optional retrieval
// pipeline. When the probe fails or Initialized is false the UI hides the
// feature indicator rather than erroring.
type LangChainStatus struct {
	Initialized bool   `json:"initialized"`
	Message     string `json:"message"`
}
