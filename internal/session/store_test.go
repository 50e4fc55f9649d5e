// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStoreWithPath(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatalf("NewStoreWithPath: %v", err)
	}
	return s
}

func TestLoginLogout(t *testing.T) {
	s := newTestStore(t)

	if s.Current() != nil {
		t.Fatal("fresh store should have no session")
	}

	user := User{ID: "u1", Username: "alice", Email: "alice@example.com"}
	if err := s.Login("tok-123", user); err != nil {
		t.Fatalf("Login: %v", err)
	}

	sess := s.Current()
	if sess == nil {
		t.Fatal("Current returned nil after login")
	}
	if sess.Token != "tok-123" || sess.User.Username != "alice" {
		t.Errorf("session = %+v", sess)
	}

	s.Logout()
	if s.Current() != nil {
		t.Error("session should be absent after logout")
	}
	if s.Token() != "" {
		t.Error("token should be empty after logout")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	s1, _ := NewStoreWithPath(path)
	if err := s1.Login("tok-abc", User{ID: "u2", Username: "bob", Email: "bob@example.com"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// A new store over the same path picks up the persisted session.
	s2, _ := NewStoreWithPath(path)
	sess := s2.Current()
	if sess == nil || sess.Token != "tok-abc" || sess.User.Username != "bob" {
		t.Fatalf("persisted session = %+v", sess)
	}

	// Token and profile are always present together.
	if sess.Token != "" && sess.User.ID == "" {
		t.Error("token present without user profile")
	}

	s2.Logout()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("session file should be removed on logout")
	}
}

func TestSubscribersObserveNewState(t *testing.T) {
	s := newTestStore(t)

	var got []bool
	s.Subscribe(func(authenticated bool) {
		// The store must already reflect the new state when notified.
		if authenticated != s.Authenticated() {
			t.Errorf("listener saw stale state: authenticated=%v store=%v", authenticated, s.Authenticated())
		}
		got = append(got, authenticated)
	})

	s.Login("tok", User{ID: "u3", Username: "carol"})
	s.Logout()

	if len(got) != 2 || !got[0] || got[1] {
		t.Errorf("notifications = %v, want [true false]", got)
	}
}

func TestLogoutIdempotentUnderConcurrency(t *testing.T) {
	s := newTestStore(t)
	s.Login("tok", User{ID: "u4", Username: "dave"})

	var notifications int32
	s.Subscribe(func(authenticated bool) {
		if !authenticated {
			atomic.AddInt32(&notifications, 1)
		}
	})

	// Multiple API calls can fail with 401 simultaneously; the session must
	// clear exactly once.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Logout()
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&notifications); n != 1 {
		t.Errorf("logout notified %d times, want 1", n)
	}
	if s.Current() != nil {
		t.Error("session should be absent")
	}
}
