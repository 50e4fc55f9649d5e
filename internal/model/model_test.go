// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRoleValid(t *testing.T) {
	if !RoleUser.Valid() || !RoleAssistant.Valid() {
		t.Error("user and assistant roles should be valid")
	}
	if Role("system").Valid() {
		t.Error("system is not a role the backend accepts")
	}
}

func TestMessagePreview(t *testing.T) {
	msg := NewUserMessage("line one\nline two with more text than fits")
	preview := msg.Preview(20)
	if len([]rune(preview)) > 20 {
		t.Errorf("preview too long: %q", preview)
	}
	if preview == "" {
		t.Error("preview should not be empty")
	}

	// Unicode safety
	cjk := NewUserMessage("你好世界你好世界你好世界")
	got := cjk.Preview(5)
	if len([]rune(got)) > 5 {
		t.Errorf("rune truncation failed: %q", got)
	}
}

func TestConversationWireFormat(t *testing.T) {
	// The backend serializes the transcript under "content".
	raw := `{
		"id": "c1",
		"title": "Greetings",
		"model": "deepseek-chat",
		"content": [
			{"role": "user", "content": "hi", "timestamp": "2025-07-09T12:00:00Z"},
			{"role": "assistant", "content": "hello", "timestamp": "2025-07-09T12:00:01Z"}
		],
		"total_tokens": 12,
		"is_active": true,
		"is_pinned": true,
		"created_at": "2025-07-09T11:59:00Z",
		"updated_at": "2025-07-09T12:00:01Z"
	}`

	var conv Conversation
	if err := json.Unmarshal([]byte(raw), &conv); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if conv.MessageCount() != 2 {
		t.Fatalf("expected 2 messages, got %d", conv.MessageCount())
	}
	if conv.Messages[0].Role != RoleUser || conv.Messages[1].Role != RoleAssistant {
		t.Error("roles not preserved")
	}
	if !conv.IsPinned {
		t.Error("is_pinned not decoded")
	}

	last := conv.LastUserMessage()
	if last == nil || last.Content != "hi" {
		t.Errorf("LastUserMessage = %v", last)
	}
}

func TestSortConversations(t *testing.T) {
	now := time.Now()
	convs := []Conversation{
		{ID: "old", UpdatedAt: now.Add(-2 * time.Hour)},
		{ID: "pinned", IsPinned: true, UpdatedAt: now.Add(-3 * time.Hour)},
		{ID: "new", UpdatedAt: now},
	}

	SortConversations(convs)

	if convs[0].ID != "pinned" {
		t.Errorf("pinned conversation should sort first, got %s", convs[0].ID)
	}
	if convs[1].ID != "new" || convs[2].ID != "old" {
		t.Errorf("unpinned conversations should sort by recency: %s, %s", convs[1].ID, convs[2].ID)
	}
}
