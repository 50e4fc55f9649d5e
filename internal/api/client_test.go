// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jeranaias/aihub-tui/internal/model"
	"github.com/jeranaias/aihub-tui/internal/session"
)

func writeEnvelope(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"code":    200,
		"message": "Success",
		"data":    data,
	})
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *session.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store, err := session.NewStoreWithPath(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	return NewClientWithConfig(&ClientConfig{BaseURL: srv.URL}, store), store
}

func TestAuthenticateStoresSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Username != "alice" || req.Password != "secret" {
			t.Errorf("credentials = %+v", req)
		}
		writeEnvelope(w, TokenResponse{AccessToken: "tok-1", TokenType: "bearer"})
	})
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q", got)
		}
		writeEnvelope(w, session.User{ID: "u1", Username: "alice", Email: "alice@example.com"})
	})

	client, store := newTestClient(t, mux)

	sess, err := client.Authenticate(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if sess.Token != "tok-1" || sess.User.Username != "alice" {
		t.Errorf("session = %+v", sess)
	}
	if store.Token() != "tok-1" {
		t.Error("token not persisted in store")
	}
}

func TestBearerAttachedWhenPresent(t *testing.T) {
	var sawAuth string
	client, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("Authorization")
		writeEnvelope(w, []model.Conversation{})
	}))

	// Unauthenticated: header omitted.
	client.ListConversations(context.Background(), 0, 10)
	if sawAuth != "" {
		t.Errorf("Authorization sent without session: %q", sawAuth)
	}

	store.Login("tok-2", session.User{ID: "u1"})
	client.ListConversations(context.Background(), 0, 10)
	if sawAuth != "Bearer tok-2" {
		t.Errorf("Authorization = %q", sawAuth)
	}
}

func TestEnvelopeUnwrapping(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /conversations/c1", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, model.Conversation{
			ID:    "c1",
			Title: "Greetings",
			Model: "deepseek-chat",
			Messages: []model.Message{
				{Role: model.RoleUser, Content: "hi"},
			},
		})
	})

	client, store := newTestClient(t, mux)
	store.Login("tok", session.User{ID: "u1"})

	conv, err := client.GetConversation(context.Background(), "c1")
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if conv.Title != "Greetings" || conv.MessageCount() != 1 {
		t.Errorf("conversation = %+v", conv)
	}
}

func TestAPIErrorCarriesBackendMessage(t *testing.T) {
	client, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"code":    404,
			"message": "conversation not found",
			"data":    nil,
		})
	}))
	store.Login("tok", session.User{ID: "u1"})

	_, err := client.GetConversation(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error")
	}
	clientErr, ok := err.(*ClientError)
	if !ok {
		t.Fatalf("error type = %T", err)
	}
	if clientErr.Type != ErrTypeAPI || clientErr.Status != 404 {
		t.Errorf("error = %+v", clientErr)
	}
	if clientErr.Message != "conversation not found" {
		t.Errorf("message = %q", clientErr.Message)
	}
}

func TestEnvelopeErrorCodeWithHTTP200(t *testing.T) {
	// Some backend handlers report failure only through the envelope code.
	client, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"code":    403,
			"message": "not your conversation",
			"data":    nil,
		})
	}))
	store.Login("tok", session.User{ID: "u1"})

	_, err := client.GetConversation(context.Background(), "c9")
	clientErr, ok := err.(*ClientError)
	if !ok || clientErr.Status != 403 {
		t.Fatalf("err = %v", err)
	}
}

func TestUnauthorizedClearsSessionOnce(t *testing.T) {
	client, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	store.Login("tok", session.User{ID: "u1"})

	var logouts int32
	store.Subscribe(func(authenticated bool) {
		if !authenticated {
			atomic.AddInt32(&logouts, 1)
		}
	})

	// Several in-flight calls all hit the 401 at the same time.
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.ListConversations(context.Background(), 0, 10)
			if !IsUnauthorized(err) {
				t.Errorf("err = %v, want unauthorized", err)
			}
		}()
	}
	wg.Wait()

	if store.Current() != nil {
		t.Error("session should be absent")
	}
	if n := atomic.LoadInt32(&logouts); n != 1 {
		t.Errorf("logout notified %d times, want 1", n)
	}
}

func TestSaveStreamMessage(t *testing.T) {
	var saved model.Message
	mux := http.NewServeMux()
	mux.HandleFunc("POST /conversations/c1/stream/save", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&saved)
		writeEnvelope(w, model.Conversation{ID: "c1", Messages: []model.Message{saved}})
	})

	client, store := newTestClient(t, mux)
	store.Login("tok", session.User{ID: "u1"})

	msg := model.NewAssistantMessage("Hello")
	conv, err := client.SaveStreamMessage(context.Background(), "c1", msg)
	if err != nil {
		t.Fatalf("SaveStreamMessage: %v", err)
	}
	if saved.Role != model.RoleAssistant || saved.Content != "Hello" {
		t.Errorf("saved = %+v", saved)
	}
	if conv.MessageCount() != 1 {
		t.Errorf("conversation = %+v", conv)
	}
}

func TestLangChainStatusDegradesGracefully(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /conversations/langchain/status", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, LangChainStatus{Initialized: false, Message: "not configured"})
	})

	client, store := newTestClient(t, mux)
	store.Login("tok", session.User{ID: "u1"})

	status, err := client.LangChainStatus(context.Background())
	if err != nil {
		t.Fatalf("LangChainStatus: %v", err)
	}
	if status.Initialized {
		t.Error("probe should report uninitialized")
	}
}

func TestAuxiliaryViews(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /conversations/c1/summary", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, Summary{Summary: "greeting exchange", MessageCount: 4})
	})
	mux.HandleFunc("GET /conversations/c1/context", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("max_context_length"); got != "5" {
			t.Errorf("max_context_length = %q", got)
		}
		writeEnvelope(w, ContextWindow{Context: "user: hi\nassistant: hello", MessageCount: 2, MaxContextLength: 5})
	})

	client, store := newTestClient(t, mux)
	store.Login("tok", session.User{ID: "u1"})

	sum, err := client.GetSummary(context.Background(), "c1")
	if err != nil || sum.MessageCount != 4 {
		t.Errorf("summary = %+v, err = %v", sum, err)
	}

	window, err := client.GetContext(context.Background(), "c1", 5)
	if err != nil || window.MaxContextLength != 5 {
		t.Errorf("context = %+v, err = %v", window, err)
	}
}
