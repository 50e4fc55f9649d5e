// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/aihub-tui/internal/model"
	"github.com/jeranaias/aihub-tui/internal/ui/styles"
	"github.com/jeranaias/aihub-tui/internal/util"
)

// =============================================================================
// TRANSCRIPT RENDERER
// =============================================================================

// renderer turns a transcript into styled terminal output. Assistant messages
// are rendered as markdown through glamour when enabled; user messages stay
// plain.
type renderer struct {
	theme          *styles.Theme
	markdown       bool
	showTimestamps bool
	width          int
	term           *glamour.TermRenderer
}

func newRenderer(theme *styles.Theme, markdown, showTimestamps bool, width int) *renderer {
	r := &renderer{
		theme:          theme,
		markdown:       markdown,
		showTimestamps: showTimestamps,
		width:          width,
	}
	if markdown {
		term, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(theme.GlamourStyle()),
			glamour.WithWordWrap(width),
		)
		if err == nil {
			r.term = term
		}
		// On error, fall back to plain text rendering.
	}
	return r
}

// Transcript renders the full message list plus any in-flight stream buffer.
func (r *renderer) Transcript(messages []model.Message, streamBuffer string, streaming bool) string {
	var sb strings.Builder

	for i, msg := range messages {
		sb.WriteString(r.Message(msg))
		if i < len(messages)-1 || streaming {
			sb.WriteString("\n")
		}
	}

	if streaming {
		sb.WriteString(r.theme.AssistantLabel.Render("Assistant"))
		sb.WriteString("\n")
		if streamBuffer == "" {
			sb.WriteString(r.theme.Spinner.Render("thinking..."))
		} else {
			// The live buffer is rendered plain; markdown needs the complete
			// document to lay out fences and tables correctly.
			sb.WriteString(streamBuffer)
			sb.WriteString(r.theme.StreamCursor.Render("▌"))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// Message renders a single finalized message.
func (r *renderer) Message(msg model.Message) string {
	var sb strings.Builder

	label := r.theme.AssistantLabel.Render("Assistant")
	if msg.Role == model.RoleUser {
		label = r.theme.UserLabel.Render("You")
	}
	sb.WriteString(label)
	if r.showTimestamps && !msg.Timestamp.IsZero() {
		sb.WriteString(" ")
		sb.WriteString(r.theme.Timestamp.Render(msg.Timestamp.Format("15:04:05")))
	}
	sb.WriteString("\n")

	if msg.Role == model.RoleAssistant && r.term != nil {
		if out, err := r.term.Render(msg.Content); err == nil {
			sb.WriteString(strings.TrimRight(out, "\n"))
			sb.WriteString("\n")
			return sb.String()
		}
	}

	if msg.Role == model.RoleUser {
		sb.WriteString(r.theme.UserMessage.Render(msg.Content))
	} else {
		sb.WriteString(msg.Content)
	}
	sb.WriteString("\n")
	return sb.String()
}

// =============================================================================
// SIDEBAR RENDERING
// =============================================================================

// conversationLine formats one sidebar entry, truncated to width.
func conversationLine(theme *styles.Theme, conv model.Conversation, selected bool, width int) string {
	marker := "  "
	if conv.IsPinned {
		marker = theme.ConvPinned.Render("★ ")
	}

	title := util.TruncateWidth(conv.GetTitle(), width-2)
	line := marker + title

	if selected {
		return theme.ConvItemSelected.Render(line)
	}
	return theme.ConvItem.Render(line)
}

// phaseLabel names the interaction phase for the status bar.
func phaseLabel(streaming, sending bool) string {
	switch {
	case streaming:
		return "streaming"
	case sending:
		return "sending"
	default:
		return "ready"
	}
}

// statusSegment renders a labeled status bar segment.
func statusSegment(theme *styles.Theme, label, value string) string {
	return fmt.Sprintf("%s %s", theme.ShortcutDesc.Render(label), theme.ShortcutKey.Render(value))
}
