// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatstate

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/aihub-tui/internal/api"
	"github.com/jeranaias/aihub-tui/internal/model"
	"github.com/jeranaias/aihub-tui/internal/session"
)

// fakeBackend is a minimal aihub server for manager tests.
type fakeBackend struct {
	mu            sync.Mutex
	conversations map[string]*model.Conversation
	saved         []model.Message
	streamChunks  []string // content of each "message" record
	streamDelay   time.Duration
	failUpdate    bool
	streamError   string // when set, emit an error record after the chunks
}

func (b *fakeBackend) envelope(w http.ResponseWriter, data any) {
	json.NewEncoder(w).Encode(map[string]any{"code": 200, "message": "Success", "data": data})
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /conversations/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		convs := make([]model.Conversation, 0, len(b.conversations))
		for _, c := range b.conversations {
			convs = append(convs, *c)
		}
		b.mu.Unlock()
		b.envelope(w, convs)
	})

	mux.HandleFunc("GET /conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		conv, ok := b.conversations[r.PathValue("id")]
		b.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{"code": 404, "message": "conversation not found"})
			return
		}
		b.envelope(w, conv)
	})

	mux.HandleFunc("PUT /conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
		if b.failUpdate {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]any{"code": 403, "message": "update rejected"})
			return
		}
		var update api.UpdateConversationRequest
		json.NewDecoder(r.Body).Decode(&update)
		b.mu.Lock()
		conv := b.conversations[r.PathValue("id")]
		if update.Title != nil {
			conv.Title = *update.Title
		}
		if update.IsPinned != nil {
			conv.IsPinned = *update.IsPinned
		}
		out := *conv
		b.mu.Unlock()
		b.envelope(w, out)
	})

	mux.HandleFunc("POST /conversations/{id}/stream", func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for _, chunk := range b.streamChunks {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(b.streamDelay):
			}
			rec, _ := json.Marshal(map[string]any{"type": "message", "data": map[string]string{"content": chunk}})
			w.Write(rec)
			io.WriteString(w, "\n\n")
			flusher.Flush()
		}
		if b.streamError != "" {
			rec, _ := json.Marshal(map[string]any{"type": "error", "data": map[string]string{"message": b.streamError}})
			w.Write(rec)
			io.WriteString(w, "\n\n")
			flusher.Flush()
			return
		}
		io.WriteString(w, `{"type":"done","data":{"message":"finished"}}`+"\n\n")
		flusher.Flush()
	})

	mux.HandleFunc("POST /conversations/{id}/stream/save", func(w http.ResponseWriter, r *http.Request) {
		var msg model.Message
		json.NewDecoder(r.Body).Decode(&msg)
		b.mu.Lock()
		b.saved = append(b.saved, msg)
		conv := b.conversations[r.PathValue("id")]
		conv.Messages = append(conv.Messages, msg)
		out := *conv
		b.mu.Unlock()
		b.envelope(w, out)
	})

	return mux
}

type capturedUpdates struct {
	mu      sync.Mutex
	updates []Update
}

func (c *capturedUpdates) record(u Update) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, u)
}

func (c *capturedUpdates) waitFor(t *testing.T, kind UpdateKind) Update {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		for _, u := range c.updates {
			if u.Kind == kind {
				c.mu.Unlock()
				return u
			}
		}
		c.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for update kind %d", kind)
	return Update{}
}

func newTestManager(t *testing.T, backend *fakeBackend) (*Manager, *capturedUpdates, *fakeBackend) {
	t.Helper()
	if backend.conversations == nil {
		backend.conversations = map[string]*model.Conversation{
			"c1": {ID: "c1", Title: "First", Model: "deepseek-chat"},
		}
	}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	store, err := session.NewStoreWithPath(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	require.NoError(t, store.Login("tok", session.User{ID: "u1", Username: "alice"}))

	client := api.NewClientWithConfig(&api.ClientConfig{BaseURL: srv.URL}, store)
	captured := &capturedUpdates{}
	mgr := NewManager(client, captured.record)
	return mgr, captured, backend
}

func TestSendStreamsAndPersistsAssistantMessage(t *testing.T) {
	mgr, captured, backend := newTestManager(t, &fakeBackend{
		streamChunks: []string{"Hel", "lo"},
	})

	ctx := context.Background()
	require.NoError(t, mgr.RefreshConversations(ctx))
	require.NoError(t, mgr.Select(ctx, "c1"))
	require.NoError(t, mgr.Send(ctx, "say hello"))

	captured.waitFor(t, UpdateStreamDone)

	view := mgr.Snapshot()
	require.Len(t, view.Transcript, 2)
	assert.Equal(t, model.RoleUser, view.Transcript[0].Role)
	assert.Equal(t, "say hello", view.Transcript[0].Content)
	assert.Equal(t, model.RoleAssistant, view.Transcript[1].Role)
	assert.Equal(t, "Hello", view.Transcript[1].Content)
	assert.Equal(t, PhaseIdle, view.Phase)
	assert.Empty(t, view.StreamBuffer)

	// The finalized assistant message was persisted via the explicit save
	// call, not as a stream side effect.
	backend.mu.Lock()
	defer backend.mu.Unlock()
	require.Len(t, backend.saved, 1)
	assert.Equal(t, "Hello", backend.saved[0].Content)
}

func TestStreamErrorDiscardsPartialBuffer(t *testing.T) {
	mgr, captured, backend := newTestManager(t, &fakeBackend{
		streamChunks: []string{"par", "tial"},
		streamError:  "model unavailable",
	})

	ctx := context.Background()
	require.NoError(t, mgr.RefreshConversations(ctx))
	require.NoError(t, mgr.Select(ctx, "c1"))
	require.NoError(t, mgr.Send(ctx, "fail please"))

	update := captured.waitFor(t, UpdateStreamFailed)
	assert.EqualError(t, update.Err, "model unavailable")

	view := mgr.Snapshot()
	// Only the optimistic user message remains; no broken assistant
	// message was appended.
	require.Len(t, view.Transcript, 1)
	assert.Equal(t, model.RoleUser, view.Transcript[0].Role)
	assert.Empty(t, view.StreamBuffer)
	assert.Equal(t, PhaseIdle, view.Phase)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Empty(t, backend.saved)
}

func TestCancelDiscardsBufferWithoutError(t *testing.T) {
	mgr, captured, backend := newTestManager(t, &fakeBackend{
		streamChunks: []string{"a", "b", "c", "d", "e", "f"},
		streamDelay:  50 * time.Millisecond,
	})

	ctx := context.Background()
	require.NoError(t, mgr.RefreshConversations(ctx))
	require.NoError(t, mgr.Select(ctx, "c1"))
	require.NoError(t, mgr.Send(ctx, "slow reply"))

	captured.waitFor(t, UpdateStreamChunk)
	mgr.CancelStream()
	captured.waitFor(t, UpdateStreamCancelled)

	view := mgr.Snapshot()
	assert.Equal(t, PhaseIdle, view.Phase)
	assert.Empty(t, view.StreamBuffer)
	require.Len(t, view.Transcript, 1) // user message only

	// Cancellation is not a failure.
	captured.mu.Lock()
	for _, u := range captured.updates {
		assert.NotEqual(t, UpdateStreamFailed, u.Kind)
	}
	captured.mu.Unlock()

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Empty(t, backend.saved)
}

func TestNewSendCancelsPriorStream(t *testing.T) {
	mgr, captured, backend := newTestManager(t, &fakeBackend{
		streamChunks: []string{"AAA", "BBB", "CCC"},
		streamDelay:  40 * time.Millisecond,
	})

	ctx := context.Background()
	require.NoError(t, mgr.RefreshConversations(ctx))
	require.NoError(t, mgr.Select(ctx, "c1"))

	require.NoError(t, mgr.Send(ctx, "first"))
	captured.waitFor(t, UpdateStreamChunk)

	// Second send while the first stream is mid-flight.
	require.NoError(t, mgr.Send(ctx, "second"))
	captured.waitFor(t, UpdateStreamDone)

	view := mgr.Snapshot()
	// Exactly one assistant message, built only from the second stream's
	// chunks; the first stream's buffer must not bleed in.
	var assistants []model.Message
	for _, msg := range view.Transcript {
		if msg.Role == model.RoleAssistant {
			assistants = append(assistants, msg)
		}
	}
	require.Len(t, assistants, 1)
	assert.Equal(t, "AAABBBCCC", assistants[0].Content)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	require.Len(t, backend.saved, 1)
	assert.Equal(t, "AAABBBCCC", backend.saved[0].Content)
}

func TestOptimisticPinRollsBackOnFailure(t *testing.T) {
	mgr, _, _ := newTestManager(t, &fakeBackend{failUpdate: true})

	ctx := context.Background()
	require.NoError(t, mgr.RefreshConversations(ctx))

	err := mgr.TogglePin(ctx, "c1")
	require.Error(t, err)

	// Rollback-by-refetch restored the backend's state.
	view := mgr.Snapshot()
	require.Len(t, view.Conversations, 1)
	assert.False(t, view.Conversations[0].IsPinned)
}

func TestRenameReconcilesWithBackend(t *testing.T) {
	mgr, _, backend := newTestManager(t, &fakeBackend{})

	ctx := context.Background()
	require.NoError(t, mgr.RefreshConversations(ctx))
	require.NoError(t, mgr.Rename(ctx, "c1", "Renamed"))

	view := mgr.Snapshot()
	assert.Equal(t, "Renamed", view.Conversations[0].Title)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, "Renamed", backend.conversations["c1"].Title)
}

func TestRegenerateAppendsNewAttempt(t *testing.T) {
	mgr, captured, _ := newTestManager(t, &fakeBackend{
		streamChunks: []string{"take two"},
	})

	ctx := context.Background()
	require.NoError(t, mgr.RefreshConversations(ctx))
	require.NoError(t, mgr.Select(ctx, "c1"))
	require.NoError(t, mgr.Send(ctx, "question"))
	captured.waitFor(t, UpdateStreamDone)

	require.NoError(t, mgr.Regenerate(ctx))

	deadline := time.Now().Add(5 * time.Second)
	for {
		view := mgr.Snapshot()
		var assistants int
		for _, msg := range view.Transcript {
			if msg.Role == model.RoleAssistant {
				assistants++
			}
		}
		if assistants == 2 {
			// History keeps both attempts; the user message was not
			// duplicated.
			var users int
			for _, msg := range view.Transcript {
				if msg.Role == model.RoleUser {
					users++
				}
			}
			assert.Equal(t, 1, users)
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for regenerated reply")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
