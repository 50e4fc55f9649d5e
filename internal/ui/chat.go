// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/aihub-tui/internal/api"
	"github.com/jeranaias/aihub-tui/internal/chatstate"
	"github.com/jeranaias/aihub-tui/internal/config"
	"github.com/jeranaias/aihub-tui/internal/export"
	"github.com/jeranaias/aihub-tui/internal/history"
	"github.com/jeranaias/aihub-tui/internal/model"
	"github.com/jeranaias/aihub-tui/internal/ui/styles"
	"github.com/jeranaias/aihub-tui/internal/util"
)

// =============================================================================
// OVERLAYS
// =============================================================================

type overlayKind int

const (
	overlayNone overlayKind = iota
	overlaySummary
	overlayContext
	overlaySearch
	overlayRename
	overlayHelp
)

// =============================================================================
// CHAT WORKSPACE MODEL
// =============================================================================

const sidebarWidth = 28

// chatModel is the main chat workspace: conversation sidebar, transcript
// viewport, input line, and status bar.
type chatModel struct {
	theme   *styles.Theme
	cfg     *config.Config
	manager *chatstate.Manager
	client  *api.Client
	hist    *history.Store // nil when the local cache is disabled
	keys    KeyMap

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	width  int
	height int

	view chatstate.View

	overlay       overlayKind
	overlayTitle  string
	overlayBody   string
	renameInput   textinput.Model
	searchInput   textinput.Model
	searchResults []history.SearchResult

	langchain *api.LangChainStatus
	statusMsg string
	errText   string
}

func newChatModel(theme *styles.Theme, cfg *config.Config, manager *chatstate.Manager, client *api.Client, hist *history.Store) chatModel {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = 8192
	input.Focus()

	rename := textinput.New()
	rename.Placeholder = "new title"
	rename.CharLimit = 256

	search := textinput.New()
	search.Placeholder = "search cached messages"
	search.CharLimit = 256

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	return chatModel{
		theme:       theme,
		cfg:         cfg,
		manager:     manager,
		client:      client,
		hist:        hist,
		keys:        DefaultKeyMap(),
		viewport:    viewport.New(0, 0),
		input:       input,
		renameInput: rename,
		searchInput: search,
		spinner:     sp,
		view:        manager.Snapshot(),
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), m.langchainCmd(), m.spinner.Tick, textinput.Blink)
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m chatModel) refreshCmd() tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		if err := mgr.RefreshConversations(context.Background()); err != nil {
			return OpFailedMsg{Err: err}
		}
		return nil
	}
}

func (m chatModel) selectCmd(id string) tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		if err := mgr.Select(context.Background(), id); err != nil {
			return OpFailedMsg{Err: err}
		}
		return nil
	}
}

func (m chatModel) createCmd() tea.Cmd {
	mgr := m.manager
	modelName := m.cfg.Chat.DefaultModel
	return func() tea.Msg {
		if _, err := mgr.Create(context.Background(), "", modelName); err != nil {
			return OpFailedMsg{Err: err}
		}
		return nil
	}
}

func (m chatModel) deleteCmd(id string) tea.Cmd {
	mgr := m.manager
	hist := m.hist
	return func() tea.Msg {
		if err := mgr.Delete(context.Background(), id); err != nil {
			return OpFailedMsg{Err: err}
		}
		if hist != nil {
			hist.Delete(id)
		}
		return nil
	}
}

func (m chatModel) renameCmd(id, title string) tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		if err := mgr.Rename(context.Background(), id, title); err != nil {
			return OpFailedMsg{Err: err}
		}
		return nil
	}
}

func (m chatModel) pinCmd(id string) tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		if err := mgr.TogglePin(context.Background(), id); err != nil {
			return OpFailedMsg{Err: err}
		}
		return nil
	}
}

func (m chatModel) sendCmd(text string) tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		if err := mgr.Send(context.Background(), text); err != nil {
			return OpFailedMsg{Err: err}
		}
		return nil
	}
}

func (m chatModel) regenerateCmd() tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		if err := mgr.Regenerate(context.Background()); err != nil {
			return OpFailedMsg{Err: err}
		}
		return nil
	}
}

func (m chatModel) summaryCmd(id string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		summary, err := client.GetSummary(context.Background(), id)
		return SummaryMsg{Summary: summary, Err: err}
	}
}

func (m chatModel) contextCmd(id string) tea.Cmd {
	client := m.client
	length := m.cfg.Chat.MaxContextLength
	return func() tea.Msg {
		window, err := client.GetContext(context.Background(), id, length)
		return ContextMsg{Window: window, Err: err}
	}
}

func (m chatModel) langchainCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		status, err := client.LangChainStatus(context.Background())
		if err != nil {
			// The probe degrades gracefully: no badge, no error surfaced.
			return LangChainMsg{Status: nil}
		}
		return LangChainMsg{Status: status}
	}
}

func (m chatModel) searchCmd(query string) tea.Cmd {
	hist := m.hist
	return func() tea.Msg {
		if hist == nil {
			return SearchResultsMsg{Query: query, Err: fmt.Errorf("local history cache is disabled")}
		}
		results, err := hist.Search(query, 20)
		return SearchResultsMsg{Query: query, Results: results, Err: err}
	}
}

func (m chatModel) exportCmd() tea.Cmd {
	conv := m.exportableConversation()
	if conv == nil {
		return func() tea.Msg {
			return ExportedMsg{Err: fmt.Errorf("nothing to export")}
		}
	}

	opts := export.DefaultOptions()
	opts.OutputDir = m.cfg.Export.Dir
	opts.IncludeTimestamps = m.cfg.UI.ShowTimestamps
	format := m.cfg.Export.Format

	return func() tea.Msg {
		exporter, err := export.ForFormat(format, opts)
		if err != nil {
			return ExportedMsg{Err: err}
		}
		path, err := export.ExportToFile(conv, exporter, opts)
		return ExportedMsg{Path: path, Err: err}
	}
}

// exportableConversation assembles the selected conversation header with the
// current transcript.
func (m chatModel) exportableConversation() *model.Conversation {
	if m.view.SelectedID == "" || len(m.view.Transcript) == 0 {
		return nil
	}
	for _, conv := range m.view.Conversations {
		if conv.ID == m.view.SelectedID {
			out := conv
			out.Messages = append([]model.Message(nil), m.view.Transcript...)
			return &out
		}
	}
	return nil
}

// =============================================================================
// UPDATE
// =============================================================================

func (m chatModel) Update(msg tea.Msg) (chatModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.syncViewport(false)
		return m, nil

	case StateUpdateMsg:
		return m.handleStateUpdate(msg.Update)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case SummaryMsg:
		if msg.Err != nil {
			m.errText = msg.Err.Error()
			return m, nil
		}
		m.overlay = overlaySummary
		m.overlayTitle = "Summary"
		m.overlayBody = fmt.Sprintf("%s\n\n%d messages", msg.Summary.Summary, msg.Summary.MessageCount)
		return m, nil

	case ContextMsg:
		if msg.Err != nil {
			m.errText = msg.Err.Error()
			return m, nil
		}
		m.overlay = overlayContext
		m.overlayTitle = fmt.Sprintf("Context window (last %d)", msg.Window.MaxContextLength)
		m.overlayBody = msg.Window.Context
		return m, nil

	case LangChainMsg:
		m.langchain = msg.Status
		return m, nil

	case SearchResultsMsg:
		if msg.Err != nil {
			m.errText = msg.Err.Error()
			m.overlay = overlayNone
			return m, nil
		}
		m.searchResults = msg.Results
		return m, nil

	case ExportedMsg:
		if msg.Err != nil {
			m.errText = msg.Err.Error()
		} else {
			m.statusMsg = "exported to " + msg.Path
		}
		return m, nil

	case OpFailedMsg:
		m.errText = msg.Err.Error()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m chatModel) handleStateUpdate(u chatstate.Update) (chatModel, tea.Cmd) {
	m.view = m.manager.Snapshot()

	switch u.Kind {
	case chatstate.UpdateStreamFailed:
		if u.Err != nil {
			m.errText = u.Err.Error()
		}
	case chatstate.UpdateStreamCancelled:
		m.statusMsg = "generation cancelled"
	case chatstate.UpdateStreamDone:
		m.statusMsg = ""
	}

	m.syncViewport(true)
	return m, nil
}

func (m chatModel) handleKey(msg tea.KeyMsg) (chatModel, tea.Cmd) {
	if m.overlay != overlayNone {
		return m.handleOverlayKey(msg)
	}

	keys := m.keys
	switch {
	case keyMatches(msg, keys.Quit):
		return m, tea.Quit

	case keyMatches(msg, keys.Cancel):
		if m.manager.Streaming() {
			m.manager.CancelStream()
			return m, nil
		}
		return m, nil

	case keyMatches(msg, keys.Submit):
		text := strings.TrimSpace(m.input.Value())
		if text == "" || m.view.SelectedID == "" {
			return m, nil
		}
		m.input.Reset()
		m.errText = ""
		return m, m.sendCmd(text)

	case keyMatches(msg, keys.NextConv):
		return m, m.moveSelection(1)

	case keyMatches(msg, keys.PrevConv):
		return m, m.moveSelection(-1)

	case keyMatches(msg, keys.NewConv):
		return m, m.createCmd()

	case keyMatches(msg, keys.Delete):
		if m.view.SelectedID != "" {
			return m, m.deleteCmd(m.view.SelectedID)
		}
		return m, nil

	case keyMatches(msg, keys.Rename):
		if m.view.SelectedID == "" {
			return m, nil
		}
		m.overlay = overlayRename
		m.renameInput.Reset()
		if conv := m.selectedConv(); conv != nil {
			m.renameInput.SetValue(conv.GetTitle())
		}
		m.input.Blur()
		return m, m.renameInput.Focus()

	case keyMatches(msg, keys.Pin):
		if m.view.SelectedID != "" {
			return m, m.pinCmd(m.view.SelectedID)
		}
		return m, nil

	case keyMatches(msg, keys.Regenerate):
		return m, m.regenerateCmd()

	case keyMatches(msg, keys.Summary):
		if m.view.SelectedID != "" {
			return m, m.summaryCmd(m.view.SelectedID)
		}
		return m, nil

	case keyMatches(msg, keys.Context):
		if m.view.SelectedID != "" {
			return m, m.contextCmd(m.view.SelectedID)
		}
		return m, nil

	case keyMatches(msg, keys.Search):
		m.overlay = overlaySearch
		m.searchInput.Reset()
		m.searchResults = nil
		m.input.Blur()
		return m, m.searchInput.Focus()

	case keyMatches(msg, keys.Export):
		return m, m.exportCmd()

	case keyMatches(msg, keys.Help):
		m.overlay = overlayHelp
		return m, nil

	case keyMatches(msg, keys.Up), keyMatches(msg, keys.Down),
		keyMatches(msg, keys.PageUp), keyMatches(msg, keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m chatModel) handleOverlayKey(msg tea.KeyMsg) (chatModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.overlay = overlayNone
		m.renameInput.Blur()
		m.searchInput.Blur()
		return m, m.input.Focus()

	case "enter":
		switch m.overlay {
		case overlayRename:
			title := strings.TrimSpace(m.renameInput.Value())
			m.overlay = overlayNone
			m.renameInput.Blur()
			if title == "" {
				return m, m.input.Focus()
			}
			return m, tea.Batch(m.input.Focus(), m.renameCmd(m.view.SelectedID, title))

		case overlaySearch:
			query := strings.TrimSpace(m.searchInput.Value())
			if query == "" {
				return m, nil
			}
			return m, m.searchCmd(query)

		default:
			m.overlay = overlayNone
			return m, m.input.Focus()
		}
	}

	var cmd tea.Cmd
	switch m.overlay {
	case overlayRename:
		m.renameInput, cmd = m.renameInput.Update(msg)
	case overlaySearch:
		m.searchInput, cmd = m.searchInput.Update(msg)
	}
	return m, cmd
}

// moveSelection selects the conversation offset places away in the sidebar.
func (m chatModel) moveSelection(offset int) tea.Cmd {
	convs := m.view.Conversations
	if len(convs) == 0 {
		return nil
	}

	idx := -1
	for i, conv := range convs {
		if conv.ID == m.view.SelectedID {
			idx = i
			break
		}
	}

	next := idx + offset
	if idx == -1 {
		next = 0
	}
	if next < 0 || next >= len(convs) {
		return nil
	}
	return m.selectCmd(convs[next].ID)
}

func (m chatModel) selectedConv() *model.Conversation {
	for i := range m.view.Conversations {
		if m.view.Conversations[i].ID == m.view.SelectedID {
			return &m.view.Conversations[i]
		}
	}
	return nil
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m *chatModel) resize() {
	contentWidth := m.width - sidebarWidth - 3
	if contentWidth < 20 {
		contentWidth = 20
	}
	contentHeight := m.height - 4 // header, input border, input, status bar
	if contentHeight < 5 {
		contentHeight = 5
	}

	m.viewport.Width = contentWidth
	m.viewport.Height = contentHeight
	m.input.Width = contentWidth - 4
}

// syncViewport re-renders the transcript into the viewport.
func (m *chatModel) syncViewport(follow bool) {
	r := newRenderer(m.theme, m.cfg.UI.Markdown, m.cfg.UI.ShowTimestamps, m.viewport.Width)
	streaming := m.view.Phase != chatstate.PhaseIdle
	m.viewport.SetContent(r.Transcript(m.view.Transcript, m.view.StreamBuffer, streaming))
	if follow {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// VIEW
// =============================================================================

func (m chatModel) View() string {
	if m.width == 0 {
		return "loading..."
	}

	sidebar := m.renderSidebar()
	transcript := m.viewport.View()

	inputLine := m.theme.InputContainer.Width(m.viewport.Width).Render(
		m.theme.InputPrompt.Render("> ") + m.input.View())

	main := lipgloss.JoinVertical(lipgloss.Left, transcript, inputLine)
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", main)

	header := m.renderHeader()
	status := m.renderStatusBar()

	screen := lipgloss.JoinVertical(lipgloss.Left, header, body, status)

	if m.overlay != overlayNone {
		return m.renderOverlay(screen)
	}
	return screen
}

func (m chatModel) renderHeader() string {
	title := "AIHub"
	if conv := m.selectedConv(); conv != nil {
		title = conv.GetTitle()
	}
	return m.theme.Header.Width(m.width).Render(util.TruncateWidth(title, m.width-4))
}

func (m chatModel) renderSidebar() string {
	height := m.height - 4
	if height < 3 {
		height = 3
	}

	var lines []string
	lines = append(lines, m.theme.SidebarTitle.Render("Conversations"))

	for _, conv := range m.view.Conversations {
		lines = append(lines, conversationLine(m.theme, conv, conv.ID == m.view.SelectedID, sidebarWidth-2))
		if len(lines) >= height {
			break
		}
	}
	if len(m.view.Conversations) == 0 {
		lines = append(lines, m.theme.ConvMeta.Render("none yet (C-n)"))
	}

	return m.theme.Sidebar.Width(sidebarWidth).Height(height).Render(strings.Join(lines, "\n"))
}

func (m chatModel) renderStatusBar() string {
	streaming := m.view.Phase == chatstate.PhaseStreaming
	sending := m.view.Phase == chatstate.PhaseSending

	segments := []string{statusSegment(m.theme, "state", phaseLabel(streaming, sending))}
	if streaming || sending {
		segments = append(segments, m.spinner.View())
	}
	if m.langchain != nil && m.langchain.Initialized {
		segments = append(segments, m.theme.SuccessStyle.Render("◈ retrieval"))
	}
	if m.errText != "" {
		segments = append(segments, m.theme.StatusError.Render(util.FirstLine(m.errText)))
	} else if m.statusMsg != "" {
		segments = append(segments, m.theme.InfoStyle.Render(m.statusMsg))
	} else {
		var hints []string
		for _, b := range m.keys.ShortHelp() {
			hints = append(hints, m.theme.ShortcutKey.Render(b.Help().Key)+" "+m.theme.ShortcutDesc.Render(b.Help().Desc))
		}
		segments = append(segments, strings.Join(hints, "  "))
	}

	return m.theme.StatusBar.Width(m.width).Render(util.TruncateWidth(strings.Join(segments, "  │  "), m.width-2))
}

func (m chatModel) renderOverlay(background string) string {
	var body string
	title := m.overlayTitle

	switch m.overlay {
	case overlaySummary, overlayContext:
		body = m.overlayBody

	case overlayRename:
		title = "Rename conversation"
		body = m.renameInput.View()

	case overlaySearch:
		title = "Search history"
		var sb strings.Builder
		sb.WriteString(m.searchInput.View())
		sb.WriteString("\n")
		for _, r := range m.searchResults {
			sb.WriteString("\n")
			sb.WriteString(m.theme.ShortcutKey.Render(util.TruncateWidth(r.Title, 24)))
			sb.WriteString(" ")
			sb.WriteString(util.TruncateWidth(util.FirstLine(r.Content), 50))
		}
		if m.searchResults == nil {
			sb.WriteString("\n")
			sb.WriteString(m.theme.ConvMeta.Render("Enter to search"))
		} else if len(m.searchResults) == 0 {
			sb.WriteString("\n")
			sb.WriteString(m.theme.ConvMeta.Render("no matches"))
		}
		body = sb.String()

	case overlayHelp:
		title = "Keyboard shortcuts"
		var sb strings.Builder
		for _, binding := range []key.Binding{
			m.keys.Submit, m.keys.Cancel, m.keys.NextConv, m.keys.PrevConv,
			m.keys.NewConv, m.keys.Delete, m.keys.Rename, m.keys.Pin,
			m.keys.Regenerate, m.keys.Summary, m.keys.Context, m.keys.Search,
			m.keys.Export, m.keys.Logout, m.keys.Quit,
		} {
			h := binding.Help()
			sb.WriteString(fmt.Sprintf("%s  %s\n",
				m.theme.ShortcutKey.Render(fmt.Sprintf("%-10s", h.Key)),
				m.theme.ShortcutDesc.Render(h.Desc)))
		}
		body = sb.String()
	}

	box := m.theme.OverlayBox.MaxWidth(m.width - 4).Render(
		m.theme.OverlayTitle.Render(title) + "\n\n" + m.theme.OverlayBody.Render(body) +
			"\n\n" + m.theme.ShortcutDesc.Render("Esc close"))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
