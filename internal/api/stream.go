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
	"strings"
)

// =============================================================================
// STREAM EVENTS
// =============================================================================

// EventType tags a stream event.
type EventType int

const (
	// EventChunk carries an incremental piece of assistant text.
	EventChunk EventType = iota
	// EventDone marks a completed stream; no further events follow.
	EventDone
	// EventError carries a backend-signalled failure; no further events follow.
	EventError
)

// StreamEvent is one decoded record from the completion stream. Events are
// transient: they exist only for the duration of one exchange and are folded
// into a single assistant message once Done is observed.
type StreamEvent struct {
	Type EventType
	Text string // incremental content for EventChunk
	Err  string // backend message for EventError
}

// StreamCallback is invoked for each event, in arrival order, from the
// stream's reader goroutine.
type StreamCallback func(ev StreamEvent)

// =============================================================================
// STREAM READER
// =============================================================================

// recordDelimiter separates records in the stream body: a blank line, i.e.
// two consecutive newlines. JSON string payloads escape embedded newlines as
// \n, so the delimiter never legitimately appears inside a record.
var recordDelimiter = []byte("\n\n")

// streamRecord is the wire form of one stream record.
type streamRecord struct {
	Type string `json:"type"`
	Data struct {
		Content string `json:"content"`
		Message string `json:"message"`
	} `json:"data"`
}

// StreamReader incrementally decodes a completion stream: it reads the body
// in arbitrary-sized chunks, buffers partial records, and emits one event
// per complete blank-line-delimited JSON record. Transport fragmentation
// never changes the emitted event sequence.
type StreamReader struct {
	r   io.Reader
	buf []byte
}

// NewStreamReader creates a stream reader over r.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{r: r}
}

// Process reads the stream until a done/error record, end of stream, context
// cancellation, or a transport error. Events are delivered synchronously in
// the order their records were fully received.
//
// Returns nil on clean termination (done, error record, or EOF) and the
// context's error on cancellation. Any partial record left in the buffer at
// EOF is discarded: the backend terminates every record with the delimiter,
// so trailing bytes are an incomplete record, never a silent event.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	chunk := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := s.r.Read(chunk)
		if n > 0 {
			s.buf = append(s.buf, chunk[:n]...)
			if s.drain(callback) {
				return nil
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			if ctx.Err() != nil {
				// The body read failed because the request was
				// cancelled; not a transport error.
				return ctx.Err()
			}
			return &ClientError{Type: ErrTypeConnection, Message: "stream read failed", Cause: err}
		}
	}
}

// drain splits off every complete record in the buffer, emitting events in
// arrival order. The trailing partial record (if any) stays buffered for the
// next read. Returns true when a terminal record (done/error) was emitted.
func (s *StreamReader) drain(callback StreamCallback) bool {
	for {
		idx := bytes.Index(s.buf, recordDelimiter)
		if idx < 0 {
			return false
		}
		record := s.buf[:idx]
		s.buf = s.buf[idx+len(recordDelimiter):]

		ev, ok := parseRecord(record)
		if !ok {
			// Malformed record: skip it, the stream continues.
			continue
		}
		callback(ev)
		if ev.Type == EventDone || ev.Type == EventError {
			return true
		}
	}
}

// parseRecord decodes one record into an event. Unknown or malformed records
// report ok=false and are skipped.
func parseRecord(raw []byte) (StreamEvent, bool) {
	line := strings.TrimSpace(string(raw))
	// Tolerate the server-push framing variant that prefixes records with
	// "data:"; the payload is the same JSON either way.
	line = strings.TrimPrefix(line, "data:")
	line = strings.TrimSpace(line)
	if line == "" {
		return StreamEvent{}, false
	}

	var rec streamRecord
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return StreamEvent{}, false
	}

	switch rec.Type {
	case "message":
		return StreamEvent{Type: EventChunk, Text: rec.Data.Content}, true
	case "done":
		return StreamEvent{Type: EventDone}, true
	case "error":
		return StreamEvent{Type: EventError, Err: rec.Data.Message}, true
	default:
		return StreamEvent{}, false
	}
}

// =============================================================================
// STREAM HANDLE
// =============================================================================

// StreamHandle controls one in-flight completion stream.
type StreamHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Cancel aborts the underlying network read promptly. After Cancel returns
// no further events are delivered and no error is reported; cancellation is
// not a failure.
func (h *StreamHandle) Cancel() {
	h.cancel()
}

// Done is closed when the stream has fully terminated.
func (h *StreamHandle) Done() <-chan struct{} {
	return h.done
}

// Err returns the transport error that ended the stream, if any. It is valid
// after Done is closed. Cancellation and clean termination both return nil.
func (h *StreamHandle) Err() error {
	<-h.done
	return h.err
}

// =============================================================================
// STREAMING ENTRY POINT
// =============================================================================

// StreamMessage sends the user's text to the conversation's streaming
// endpoint and delivers decoded events to callback from a background
// goroutine, in arrival order, until the stream terminates.
//
// The request itself is issued synchronously so authorization and validation
// failures surface as an error return instead of a callback. The caller owns
// the at-most-one-stream-per-conversation invariant: start a new stream only
// after cancelling the previous handle.
func (c *Client) StreamMessage(ctx context.Context, conversationID, content string, callback StreamCallback) (*StreamHandle, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	body := streamRequest{Role: "user", Content: content}
	req, err := c.newRequest(streamCtx, http.MethodPost, "/conversations/"+conversationID+"/stream", body)
	if err != nil {
		cancel()
		return nil, err
	}

	// No client timeout for streaming; lifetime is controlled by the
	// context and the handle's Cancel.
	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		cancel()
		if errors.Is(err, context.Canceled) {
			return nil, &ClientError{Type: ErrTypeConnection, Message: "stream cancelled before connect", Cause: err}
		}
		return nil, &ClientError{Type: ErrTypeConnection, Message: "cannot reach server", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		defer cancel()
		if resp.StatusCode == http.StatusUnauthorized {
			c.sessions.Logout()
			return nil, ErrUnauthorized
		}
		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Message != "" {
			return nil, &ClientError{Type: ErrTypeAPI, Status: resp.StatusCode, Message: env.Message}
		}
		return nil, &ClientError{Type: ErrTypeAPI, Status: resp.StatusCode, Message: "stream request failed: " + resp.Status}
	}

	handle := &StreamHandle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(handle.done)
		defer resp.Body.Close()
		defer cancel()

		reader := NewStreamReader(resp.Body)
		err := reader.Process(streamCtx, callback)
		if err != nil && !errors.Is(err, context.Canceled) {
			handle.err = err
		}
	}()

	return handle, nil
}

// =============================================================================
// STREAM ACCUMULATOR
// =============================================================================

// StreamAccumulator folds chunk events into the final assistant text.
// strings.Builder avoids quadratic allocations on long completions.
type StreamAccumulator struct {
	content strings.Builder
	done    bool
	errMsg  string
}

// NewStreamAccumulator creates an empty accumulator.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{}
}

// Add processes one event. Events after a terminal event are ignored.
func (a *StreamAccumulator) Add(ev StreamEvent) {
	if a.done {
		return
	}
	switch ev.Type {
	case EventChunk:
		a.content.WriteString(ev.Text)
	case EventDone:
		a.done = true
	case EventError:
		a.done = true
		a.errMsg = ev.Err
	}
}

// Content returns the accumulated assistant text.
func (a *StreamAccumulator) Content() string {
	return a.content.String()
}

// IsDone reports whether a terminal event was observed.
func (a *StreamAccumulator) IsDone() bool {
	return a.done
}

// ErrMessage returns the backend error message, or "" when the stream
// completed normally.
func (a *StreamAccumulator) ErrMessage() string {
	return a.errMsg
}
