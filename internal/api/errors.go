// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import "errors"

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeUnauthorized
	ErrTypeAPI
	ErrTypeConnection
	ErrTypeInvalidResponse
)

// ClientError represents an error from the aihub API client.
type ClientError struct {
	Type    ErrorType
	Status  int    // HTTP status, 0 for transport errors
	Message string // Backend-provided message where available
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Sentinel errors for easy checking.
var (
	ErrUnauthorized = &ClientError{Type: ErrTypeUnauthorized, Status: 401, Message: "not authenticated"}
	ErrConnection   = &ClientError{Type: ErrTypeConnection, Message: "cannot reach server"}
)

// IsUnauthorized reports whether err is an authorization failure. Callers
// use this to redirect to login; the session has already been cleared by
// the time they see it.
func IsUnauthorized(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeUnauthorized
	}
	return errors.Is(err, ErrUnauthorized)
}

// IsConnection reports whether err is a transport-level failure.
func IsConnection(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeConnection
	}
	return errors.Is(err, ErrConnection)
}
