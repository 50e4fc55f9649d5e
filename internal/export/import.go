// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jeranaias/aihub-tui/internal/model"
)

// =============================================================================
// JSON IMPORT
// =============================================================================

// Import parses a JSON export back into a conversation. The restored message
// sequence is identical to the exported one: same order, roles, content, and
// timestamps.
func Import(data []byte) (*model.Conversation, error) {
	var conv model.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("parse conversation: %w", err)
	}

	for i, msg := range conv.Messages {
		if !msg.Role.Valid() {
			return nil, fmt.Errorf("message %d: invalid role %q", i, msg.Role)
		}
	}

	return &conv, nil
}

// ImportFile reads and imports a JSON export from disk.
func ImportFile(path string) (*model.Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	return Import(data)
}
