// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/aihub-tui/internal/model"
	"github.com/jeranaias/aihub-tui/internal/session"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the aihub client.
type ClientConfig struct {
	// BaseURL is the backend API base URL including the version prefix
	// (default: http://127.0.0.1:8000/api/v1)
	BaseURL string

	// Timeout for non-streaming requests (default: 30s)
	Timeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL: "http://127.0.0.1:8000/api/v1",
		Timeout: 30 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the aihub backend.
//
// The Client is safe for concurrent use. It holds a reference to the session
// store so it can attach the bearer token to requests and clear the session
// when the backend reports the token is no longer valid.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	sessions   *session.Store
}

// NewClient creates a client with default configuration.
func NewClient(sessions *session.Store) *Client {
	return NewClientWithConfig(DefaultConfig(), sessions)
}

// NewClientWithConfig creates a client with custom configuration.
func NewClientWithConfig(config *ClientConfig, sessions *session.Store) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8000/api/v1"
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		sessions:   sessions,
	}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// newRequest builds a request with the JSON body and bearer token attached.
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.sessions.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do executes a request and unwraps the envelope into out (which may be nil
// when the caller only cares about success).
//
// A 401 clears the session before the error is returned; the store makes
// concurrent clears idempotent so parallel failing calls log out once.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return &ClientError{Type: ErrTypeConnection, Message: "request cancelled or timed out", Cause: err}
		}
		return &ClientError{Type: ErrTypeConnection, Message: "cannot reach server", Cause: err}
	}
	defer resp.Body.Close()

	return c.decodeEnvelope(resp, out)
}

// decodeEnvelope checks the status, unwraps {code, message, data} and
// decodes data into out.
func (c *Client) decodeEnvelope(resp *http.Response, out any) error {
	if resp.StatusCode == http.StatusUnauthorized {
		c.sessions.Logout()
		return ErrUnauthorized
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to read response", Cause: err}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 400 {
			return &ClientError{Type: ErrTypeAPI, Status: resp.StatusCode, Message: "request failed: " + resp.Status}
		}
		return &ClientError{Type: ErrTypeInvalidResponse, Status: resp.StatusCode, Message: "failed to decode response", Cause: err}
	}

	// The backend signals failures both via HTTP status and the envelope
	// code; either is authoritative.
	if resp.StatusCode >= 400 || (env.Code != 0 && env.Code != http.StatusOK) {
		code := env.Code
		if code == 0 {
			code = resp.StatusCode
		}
		if code == http.StatusUnauthorized {
			c.sessions.Logout()
			return ErrUnauthorized
		}
		msg := env.Message
		if msg == "" {
			msg = "request failed: " + resp.Status
		}
		return &ClientError{Type: ErrTypeAPI, Status: code, Message: msg}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Status: resp.StatusCode, Message: "failed to decode payload", Cause: err}
	}
	return nil
}

// =============================================================================
// AUTH OPERATIONS
// =============================================================================

// Login exchanges credentials for a bearer token. It does not mutate the
// session store; callers pair it with CurrentUser and Store.Login so the
// token and profile are stored together.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	var token TokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", LoginRequest{Username: username, Password: password}, &token)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, reg RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/users/", reg, nil)
}

// CurrentUser fetches the profile for the active token.
func (c *Client) CurrentUser(ctx context.Context) (*session.User, error) {
	var user session.User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate performs the full login flow: exchange credentials, fetch the
// profile for the fresh token, and persist both in the session store in one
// step so subscribers see a single login with the complete session.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*session.Session, error) {
	token, err := c.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	user, err := c.userForToken(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}
	if err := c.sessions.Login(token.AccessToken, *user); err != nil {
		return nil, err
	}
	return c.sessions.Current(), nil
}

// userForToken fetches /users/me with an explicit token, bypassing the
// session store. Used during login before the session exists.
func (c *Client) userForToken(ctx context.Context, token string) (*session.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/users/me", nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "cannot reach server", Cause: err}
	}
	defer resp.Body.Close()

	var user session.User
	if err := c.decodeEnvelope(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// =============================================================================
// CONVERSATION OPERATIONS
// =============================================================================

// ListConversations fetches a page of the user's conversations.
func (c *Client) ListConversations(ctx context.Context, skip, limit int) ([]model.Conversation, error) {
	if limit <= 0 {
		limit = 100
	}
	path := "/conversations/?skip=" + strconv.Itoa(skip) + "&limit=" + strconv.Itoa(limit)
	var convs []model.Conversation
	if err := c.do(ctx, http.MethodGet, path, nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// GetConversation fetches one conversation with its full transcript.
func (c *Client) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	if err := c.do(ctx, http.MethodGet, "/conversations/"+url.PathEscape(id), nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// CreateConversation creates an empty conversation for the given model.
func (c *Client) CreateConversation(ctx context.Context, title, modelName string) (*model.Conversation, error) {
	var conv model.Conversation
	req := CreateConversationRequest{Title: title, Model: modelName}
	if err := c.do(ctx, http.MethodPost, "/conversations/", req, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// UpdateConversation applies a partial update (rename, pin) and returns the
// backend's authoritative copy for reconciliation.
func (c *Client) UpdateConversation(ctx context.Context, id string, update UpdateConversationRequest) (*model.Conversation, error) {
	var conv model.Conversation
	if err := c.do(ctx, http.MethodPut, "/conversations/"+url.PathEscape(id), update, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// DeleteConversation removes a conversation.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/conversations/"+url.PathEscape(id), nil, nil)
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

// ListMessages fetches the transcript of a conversation.
func (c *Client) ListMessages(ctx context.Context, id string) ([]model.Message, error) {
	var msgs []model.Message
	if err := c.do(ctx, http.MethodGet, "/conversations/"+url.PathEscape(id)+"/messages", nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// AddMessage appends a message to a conversation (non-streaming path) and
// returns the updated conversation.
func (c *Client) AddMessage(ctx context.Context, id string, msg model.Message) (*model.Conversation, error) {
	var conv model.Conversation
	if err := c.do(ctx, http.MethodPost, "/conversations/"+url.PathEscape(id)+"/messages", msg, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// SaveStreamMessage persists a finalized assistant message after a stream
// completes. The stream endpoint itself does not persist assistant output.
func (c *Client) SaveStreamMessage(ctx context.Context, id string, msg model.Message) (*model.Conversation, error) {
	var conv model.Conversation
	if err := c.do(ctx, http.MethodPost, "/conversations/"+url.PathEscape(id)+"/stream/save", msg, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// =============================================================================
// AUXILIARY VIEWS
// =============================================================================

// GetSummary fetches the backend-generated conversation summary.
func (c *Client) GetSummary(ctx context.Context, id string) (*Summary, error) {
	var summary Summary
	if err := c.do(ctx, http.MethodGet, "/conversations/"+url.PathEscape(id)+"/summary", nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// GetContext fetches the retrieved context window for a conversation.
// maxContextLength <= 0 uses the backend default of 10 messages.
func (c *Client) GetContext(ctx context.Context, id string, maxContextLength int) (*ContextWindow, error) {
	path := "/conversations/" + url.PathEscape(id) + "/context"
	if maxContextLength > 0 {
		path += "?max_context_length=" + strconv.Itoa(maxContextLength)
	}
	var window ContextWindow
	if err := c.do(ctx, http.MethodGet, path, nil, &window); err != nil {
		return nil, err
	}
	return &window, nil
}

// LangChainStatus probes the optional retrieval pipeline. Errors degrade to
// "not available" at the call site; the probe failing is never fatal.
func (c *Client) LangChainStatus(ctx context.Context) (*LangChainStatus, error) {
	var status LangChainStatus
	if err := c.do(ctx, http.MethodGet, "/conversations/langchain/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
