// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jeranaias/aihub-tui/internal/util"
)

// =============================================================================
// SESSION TYPES
// =============================================================================

// User is the backend user profile, cached alongside the token.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Session pairs the bearer token with the profile it authenticates.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Listener is invoked after every session state change. The boolean is true
// when a session is present (login), false when it was cleared (logout).
type Listener func(authenticated bool)

// =============================================================================
// SESSION STORE
// =============================================================================

// Store manages the current session. All methods are safe for concurrent
// use; listeners are called outside the lock, after the state change is
// visible to Current().
type Store struct {
	mu        sync.Mutex
	current   *Session
	path      string
	listeners []Listener
}

// NewStore creates a session store persisting to the default location
// (~/.aihub/session.json) and loads any existing session from disk.
func NewStore() (*Store, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewStoreWithPath(filepath.Join(homeDir, ".aihub", "session.json"))
}

// NewStoreWithPath creates a session store persisting to a custom path.
func NewStoreWithPath(path string) (*Store, error) {
	s := &Store{path: path}
	s.load()
	return s, nil
}

// load reads a persisted session, if any. A missing or unreadable file is
// treated as "not logged in", never as an error.
func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return
	}
	if sess.Token == "" {
		return
	}
	s.current = &sess
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Login stores the token and profile together, persists them, and notifies
// subscribers. Readers never observe the token without the profile: both
// live in one Session value swapped in under the lock, and the on-disk copy
// is written atomically.
func (s *Store) Login(token string, user User) error {
	s.mu.Lock()
	sess := &Session{Token: token, User: user}
	s.current = sess

	data, err := json.MarshalIndent(sess, "", "  ")
	if err == nil {
		// 0600: the file holds a bearer credential.
		err = util.AtomicWriteFile(s.path, data, 0600)
	}
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(true)
	}
	return err
}

// Logout clears the session and notifies subscribers. Calling Logout with no
// active session is a no-op and notifies nobody, so concurrent 401 handlers
// produce exactly one logout.
func (s *Store) Logout() {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	s.current = nil
	os.Remove(s.path)
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(false)
	}
}

// =============================================================================
// READS
// =============================================================================

// Current returns a copy of the active session, or nil when logged out.
func (s *Store) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	sess := *s.current
	return &sess
}

// Token returns the bearer token, or "" when logged out.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// Authenticated reports whether a session is active.
func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Subscribe registers a listener for login/logout events. Listeners
// registered before a state change observe the new state when called.
func (s *Store) Subscribe(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
