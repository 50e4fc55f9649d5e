// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sort"
	"time"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the client-side cached copy of a backend conversation.
// The backend serializes the transcript under the "content" key.
type Conversation struct {
	// Identity
	ID     string `json:"id"`
	UserID string `json:"user_id,omitempty"`
	Title  string `json:"title"`
	Model  string `json:"model"`

	// Transcript, in append order
	Messages []Message `json:"content"`

	// Backend-maintained metadata
	TotalTokens int  `json:"total_tokens"`
	IsActive    bool `json:"is_active"`
	IsPinned    bool `json:"is_pinned,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetTitle returns the title or a placeholder for untitled conversations.
func (c *Conversation) GetTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "New Conversation"
}

// MessageCount returns the number of transcript entries.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// LastMessage returns the most recent message, or nil if empty.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// LastUserMessage returns the most recent user message, or nil.
// Used by regeneration, which re-sends this message and appends a new
// assistant reply rather than mutating the previous one.
func (c *Conversation) LastUserMessage() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleUser {
			return &c.Messages[i]
		}
	}
	return nil
}

// Preview returns a one-line preview for the sidebar list.
func (c *Conversation) Preview(maxRunes int) string {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser {
			return msg.Preview(maxRunes)
		}
	}
	return "Empty conversation"
}

// =============================================================================
// LIST ORDERING
// =============================================================================

// SortConversations orders a conversation list for display: pinned first,
// then most recently updated.
func SortConversations(convs []Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		if convs[i].IsPinned != convs[j].IsPinned {
			return convs[i].IsPinned
		}
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
}
