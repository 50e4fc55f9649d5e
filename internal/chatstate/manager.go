// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatstate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/aihub-tui/internal/api"
	"github.com/jeranaias/aihub-tui/internal/model"
)

// =============================================================================
// STATE MACHINE
// =============================================================================

// Phase is the interaction state of the selected conversation.
type Phase int

const (
	// PhaseIdle: no send in progress.
	PhaseIdle Phase = iota
	// PhaseSending: optimistic user message shown, stream not yet open.
	PhaseSending
	// PhaseStreaming: live buffer growing.
	PhaseStreaming
)

// UpdateKind tags a state change notification.
type UpdateKind int

const (
	// UpdateList: the conversation list changed.
	UpdateList UpdateKind = iota
	// UpdateTranscript: the selected transcript was replaced or appended to.
	UpdateTranscript
	// UpdateStreamChunk: the live buffer grew.
	UpdateStreamChunk
	// UpdateStreamDone: the stream completed and the assistant message was
	// appended to the transcript.
	UpdateStreamDone
	// UpdateStreamFailed: the stream failed; the partial buffer was discarded.
	UpdateStreamFailed
	// UpdateStreamCancelled: the user cancelled; the buffer was discarded.
	UpdateStreamCancelled
)

// Update notifies the UI of a state change.
type Update struct {
	Kind UpdateKind
	Err  error // set for UpdateStreamFailed
}

// UpdateFunc receives state change notifications. It may be called from the
// stream's reader goroutine; bubbletea callers forward into the program loop.
type UpdateFunc func(Update)

// TranscriptCache receives completed transcripts for local caching/search.
// Best effort: cache failures never affect the interaction.
type TranscriptCache interface {
	Upsert(conv *model.Conversation) error
}

// saveTimeout bounds the persist call that follows a completed stream.
const saveTimeout = 15 * time.Second

// ErrStreamInFlight is returned when a send is rejected because the previous
// stream is still being cancelled.
var ErrStreamInFlight = errors.New("a response is still streaming")

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns the client-side view state. All exported methods are safe for
// concurrent use; notifications are delivered outside the lock.
type Manager struct {
	mu     sync.Mutex
	client *api.Client

	conversations []model.Conversation
	selectedID    string
	transcript    []model.Message

	phase    Phase
	buffer   *api.StreamAccumulator
	streamID string // identifies the active send attempt
	handle   *api.StreamHandle

	onUpdate UpdateFunc
	cache    TranscriptCache
}

// NewManager creates a view-state manager over the API client. onUpdate may
// be nil for headless use (tests, CLI one-shots).
func NewManager(client *api.Client, onUpdate UpdateFunc) *Manager {
	if onUpdate == nil {
		onUpdate = func(Update) {}
	}
	return &Manager{
		client:   client,
		phase:    PhaseIdle,
		onUpdate: onUpdate,
	}
}

// SetCache attaches a local transcript cache.
func (m *Manager) SetCache(cache TranscriptCache) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = cache
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// View is an immutable snapshot of the state for rendering.
type View struct {
	Conversations []model.Conversation
	SelectedID    string
	Transcript    []model.Message
	Phase         Phase
	StreamBuffer  string
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	view := View{
		Conversations: append([]model.Conversation(nil), m.conversations...),
		SelectedID:    m.selectedID,
		Transcript:    append([]model.Message(nil), m.transcript...),
		Phase:         m.phase,
	}
	if m.buffer != nil {
		view.StreamBuffer = m.buffer.Content()
	}
	return view
}

// Selected returns the cached copy of the selected conversation, or nil.
func (m *Manager) Selected() *model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findLocked(m.selectedID)
}

// findLocked returns a pointer into the cached list. Caller holds the lock.
func (m *Manager) findLocked(id string) *model.Conversation {
	for i := range m.conversations {
		if m.conversations[i].ID == id {
			return &m.conversations[i]
		}
	}
	return nil
}

// =============================================================================
// CONVERSATION LIST
// =============================================================================

// RefreshConversations replaces the cached list with a fresh fetch.
func (m *Manager) RefreshConversations(ctx context.Context) error {
	convs, err := m.client.ListConversations(ctx, 0, 100)
	if err != nil {
		return err
	}
	model.SortConversations(convs)

	m.mu.Lock()
	m.conversations = convs
	if m.selectedID != "" && m.findLocked(m.selectedID) == nil {
		// Selected conversation vanished on the backend.
		m.selectedID = ""
		m.transcript = nil
	}
	m.mu.Unlock()

	m.onUpdate(Update{Kind: UpdateList})
	return nil
}

// Select makes a conversation current and replaces the in-memory transcript
// with a fresh fetch; stale local state is never merged. A stream in flight
// for the previously selected conversation is cancelled.
func (m *Manager) Select(ctx context.Context, id string) error {
	m.CancelStream()

	conv, err := m.client.GetConversation(ctx, id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.selectedID = id
	m.transcript = append([]model.Message(nil), conv.Messages...)
	if cached := m.findLocked(id); cached != nil {
		*cached = *conv
	}
	cache := m.cache
	m.mu.Unlock()

	if cache != nil {
		cache.Upsert(conv)
	}
	m.onUpdate(Update{Kind: UpdateTranscript})
	return nil
}

// Create makes a new conversation and selects it.
func (m *Manager) Create(ctx context.Context, title, modelName string) (*model.Conversation, error) {
	conv, err := m.client.CreateConversation(ctx, title, modelName)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.conversations = append([]model.Conversation{*conv}, m.conversations...)
	m.selectedID = conv.ID
	m.transcript = nil
	m.mu.Unlock()

	m.onUpdate(Update{Kind: UpdateList})
	m.onUpdate(Update{Kind: UpdateTranscript})
	return conv, nil
}

// Delete removes a conversation and drops it from the local list.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.client.DeleteConversation(ctx, id); err != nil {
		return err
	}

	m.mu.Lock()
	for i := range m.conversations {
		if m.conversations[i].ID == id {
			m.conversations = append(m.conversations[:i], m.conversations[i+1:]...)
			break
		}
	}
	if m.selectedID == id {
		m.selectedID = ""
		m.transcript = nil
	}
	m.mu.Unlock()

	m.onUpdate(Update{Kind: UpdateList})
	return nil
}

// Rename optimistically retitles a conversation, then reconciles with the
// backend's copy. On failure the list is refetched to roll back.
func (m *Manager) Rename(ctx context.Context, id, title string) error {
	m.mu.Lock()
	if conv := m.findLocked(id); conv != nil {
		conv.Title = title
	}
	m.mu.Unlock()
	m.onUpdate(Update{Kind: UpdateList})

	updated, err := m.client.UpdateConversation(ctx, id, api.UpdateConversationRequest{Title: &title})
	return m.reconcile(ctx, id, updated, err)
}

// TogglePin optimistically flips the pinned flag, then reconciles.
func (m *Manager) TogglePin(ctx context.Context, id string) error {
	m.mu.Lock()
	var pinned bool
	if conv := m.findLocked(id); conv != nil {
		conv.IsPinned = !conv.IsPinned
		pinned = conv.IsPinned
	}
	model.SortConversations(m.conversations)
	m.mu.Unlock()
	m.onUpdate(Update{Kind: UpdateList})

	updated, err := m.client.UpdateConversation(ctx, id, api.UpdateConversationRequest{IsPinned: &pinned})
	return m.reconcile(ctx, id, updated, err)
}

// reconcile replaces the optimistic copy with the backend's authoritative
// one, or rolls back by refetching the whole list when the call failed.
func (m *Manager) reconcile(ctx context.Context, id string, updated *model.Conversation, err error) error {
	if err != nil {
		// Rollback-by-refetch; refresh errors are secondary to the
		// original failure.
		_ = m.RefreshConversations(ctx)
		return err
	}

	m.mu.Lock()
	if conv := m.findLocked(id); conv != nil {
		*conv = *updated
	}
	model.SortConversations(m.conversations)
	m.mu.Unlock()

	m.onUpdate(Update{Kind: UpdateList})
	return nil
}

// =============================================================================
// SENDING AND STREAMING
// =============================================================================

// Send appends the user's message optimistically, opens the completion
// stream, and feeds chunk events into the live buffer. Any stream still in
// flight is cancelled first so buffers never interleave.
func (m *Manager) Send(ctx context.Context, text string) error {
	m.CancelStream()

	m.mu.Lock()
	conversationID := m.selectedID
	if conversationID == "" {
		m.mu.Unlock()
		return errors.New("no conversation selected")
	}

	// Optimistic append: the user sees their message immediately.
	m.transcript = append(m.transcript, model.NewUserMessage(text))
	m.phase = PhaseSending
	streamID := uuid.New().String()
	m.streamID = streamID
	m.buffer = api.NewStreamAccumulator()
	m.mu.Unlock()

	m.onUpdate(Update{Kind: UpdateTranscript})

	return m.openStream(ctx, conversationID, streamID, text)
}

// Regenerate re-sends the last user message through the streaming path and
// appends a new assistant message; the previous attempt stays in history.
func (m *Manager) Regenerate(ctx context.Context) error {
	m.CancelStream()

	m.mu.Lock()
	conversationID := m.selectedID
	var lastUser *model.Message
	for i := len(m.transcript) - 1; i >= 0; i-- {
		if m.transcript[i].Role == model.RoleUser {
			lastUser = &m.transcript[i]
			break
		}
	}
	if conversationID == "" || lastUser == nil {
		m.mu.Unlock()
		return errors.New("nothing to regenerate")
	}
	text := lastUser.Content

	m.phase = PhaseSending
	streamID := uuid.New().String()
	m.streamID = streamID
	m.buffer = api.NewStreamAccumulator()
	m.mu.Unlock()

	return m.openStream(ctx, conversationID, streamID, text)
}

// openStream issues the streaming request for one send attempt. Events are
// accepted only while streamID is still the active attempt, so a stale
// stream racing with cancellation can never touch the new buffer.
func (m *Manager) openStream(ctx context.Context, conversationID, streamID, text string) error {
	handle, err := m.client.StreamMessage(ctx, conversationID, text, func(ev api.StreamEvent) {
		m.handleEvent(conversationID, streamID, ev)
	})
	if err != nil {
		m.mu.Lock()
		if m.streamID == streamID {
			m.phase = PhaseIdle
			m.buffer = nil
			m.streamID = ""
		}
		m.mu.Unlock()
		m.onUpdate(Update{Kind: UpdateStreamFailed, Err: err})
		return err
	}

	m.mu.Lock()
	if m.streamID != streamID {
		// Cancelled between request and now.
		m.mu.Unlock()
		handle.Cancel()
		return nil
	}
	m.handle = handle
	m.phase = PhaseStreaming
	m.mu.Unlock()

	// Surface transport failures that end the stream mid-flight.
	go func() {
		if err := handle.Err(); err != nil {
			m.failStream(streamID, err)
		}
	}()
	return nil
}

// handleEvent folds one stream event into the view state.
func (m *Manager) handleEvent(conversationID, streamID string, ev api.StreamEvent) {
	m.mu.Lock()
	if m.streamID != streamID {
		// Event from a superseded stream; drop it.
		m.mu.Unlock()
		return
	}

	switch ev.Type {
	case api.EventChunk:
		m.buffer.Add(ev)
		m.mu.Unlock()
		m.onUpdate(Update{Kind: UpdateStreamChunk})

	case api.EventDone:
		content := m.buffer.Content()
		assistant := model.NewAssistantMessage(content)
		m.transcript = append(m.transcript, assistant)
		m.phase = PhaseIdle
		m.buffer = nil
		m.streamID = ""
		m.handle = nil
		cache := m.cache
		conv := m.findLocked(conversationID)
		var cached *model.Conversation
		if conv != nil {
			conv.Messages = append([]model.Message(nil), m.transcript...)
			conv.UpdatedAt = time.Now()
			copyConv := *conv
			cached = &copyConv
		}
		m.mu.Unlock()

		// The stream itself does not persist assistant output; save it
		// explicitly.
		saveCtx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if _, err := m.client.SaveStreamMessage(saveCtx, conversationID, assistant); err != nil {
			m.onUpdate(Update{Kind: UpdateStreamFailed, Err: err})
			return
		}
		if cache != nil && cached != nil {
			cache.Upsert(cached)
		}
		m.onUpdate(Update{Kind: UpdateStreamDone})

	case api.EventError:
		// Discard the partial buffer; no broken message is appended.
		msg := ev.Err
		m.phase = PhaseIdle
		m.buffer = nil
		m.streamID = ""
		m.handle = nil
		m.mu.Unlock()
		m.onUpdate(Update{Kind: UpdateStreamFailed, Err: errors.New(msg)})
	}
}

// failStream handles a transport-level failure ending the stream.
func (m *Manager) failStream(streamID string, err error) {
	m.mu.Lock()
	if m.streamID != streamID {
		m.mu.Unlock()
		return
	}
	m.phase = PhaseIdle
	m.buffer = nil
	m.streamID = ""
	m.handle = nil
	m.mu.Unlock()
	m.onUpdate(Update{Kind: UpdateStreamFailed, Err: err})
}

// CancelStream aborts any in-flight stream and discards the partial buffer.
// Cancellation is not an error: no failure update is emitted.
func (m *Manager) CancelStream() {
	m.mu.Lock()
	if m.streamID == "" {
		m.mu.Unlock()
		return
	}
	handle := m.handle
	m.phase = PhaseIdle
	m.buffer = nil
	m.streamID = ""
	m.handle = nil
	m.mu.Unlock()

	if handle != nil {
		handle.Cancel()
	}
	m.onUpdate(Update{Kind: UpdateStreamCancelled})
}

// Streaming reports whether a send is in progress.
func (m *Manager) Streaming() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase != PhaseIdle
}
