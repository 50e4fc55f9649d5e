// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/aihub-tui/internal/session"
)

// fragmentReader yields the input in fixed-size fragments to simulate
// arbitrary transport chunking.
type fragmentReader struct {
	data []byte
	pos  int
	size int
}

func (r *fragmentReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	end := r.pos + r.size
	if end > len(r.data) {
		end = len(r.data)
	}
	n := copy(p, r.data[r.pos:end])
	r.pos += n
	return n, nil
}

const streamBody = `{"type":"message","data":{"content":"Hel"}}` + "\n\n" +
	`{"type":"message","data":{"content":"lo"}}` + "\n\n" +
	`{"type":"done","data":{"message":"stream finished"}}` + "\n\n"

func collectEvents(t *testing.T, body string, fragmentSize int) []StreamEvent {
	t.Helper()
	reader := NewStreamReader(&fragmentReader{data: []byte(body), size: fragmentSize})

	var events []StreamEvent
	err := reader.Process(context.Background(), func(ev StreamEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	return events
}

func TestStreamFragmentationInvariance(t *testing.T) {
	// The same record sequence must produce identical events no matter how
	// the transport fragments the bytes.
	var reference []StreamEvent
	for _, size := range []int{1, 2, 3, 7, 16, len(streamBody)} {
		events := collectEvents(t, streamBody, size)

		if len(events) != 3 {
			t.Fatalf("fragment size %d: got %d events, want 3", size, len(events))
		}
		if reference == nil {
			reference = events
			continue
		}
		for i := range events {
			if events[i] != reference[i] {
				t.Errorf("fragment size %d: event %d = %+v, want %+v", size, i, events[i], reference[i])
			}
		}
	}
}

func TestStreamChunkAccumulation(t *testing.T) {
	events := collectEvents(t, streamBody, 5)

	if events[0].Type != EventChunk || events[0].Text != "Hel" {
		t.Errorf("event 0 = %+v", events[0])
	}
	if events[1].Type != EventChunk || events[1].Text != "lo" {
		t.Errorf("event 1 = %+v", events[1])
	}
	if events[2].Type != EventDone {
		t.Errorf("event 2 = %+v", events[2])
	}

	acc := NewStreamAccumulator()
	for _, ev := range events {
		acc.Add(ev)
	}
	if acc.Content() != "Hello" {
		t.Errorf("accumulated content = %q, want %q", acc.Content(), "Hello")
	}
	if !acc.IsDone() {
		t.Error("accumulator should be done")
	}
}

func TestStreamErrorRecordStopsDelivery(t *testing.T) {
	body := `{"type":"message","data":{"content":"partial"}}` + "\n\n" +
		`{"type":"error","data":{"message":"model unavailable"}}` + "\n\n" +
		`{"type":"message","data":{"content":"never delivered"}}` + "\n\n"

	events := collectEvents(t, body, 4)

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (chunk, error)", len(events))
	}
	if events[1].Type != EventError || events[1].Err != "model unavailable" {
		t.Errorf("terminal event = %+v", events[1])
	}
}

func TestStreamMalformedRecordSkipped(t *testing.T) {
	body := `{"type":"message","data":{"content":"a"}}` + "\n\n" +
		`{not json` + "\n\n" +
		`{"type":"message","data":{"content":"b"}}` + "\n\n" +
		`{"type":"done"}` + "\n\n"

	events := collectEvents(t, body, 8)

	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].Text != "a" || events[1].Text != "b" {
		t.Errorf("chunks = %q, %q", events[0].Text, events[1].Text)
	}
}

func TestStreamServerPushFramingTolerated(t *testing.T) {
	body := `data: {"type":"message","data":{"content":"x"}}` + "\n\n" +
		`data: {"type":"done"}` + "\n\n"

	events := collectEvents(t, body, 6)
	if len(events) != 2 || events[0].Text != "x" || events[1].Type != EventDone {
		t.Errorf("events = %+v", events)
	}
}

func TestStreamEOFWithoutDone(t *testing.T) {
	body := `{"type":"message","data":{"content":"cut"}}` + "\n\n" +
		`{"type":"message","data":{"co` // truncated partial record

	events := collectEvents(t, body, 10)
	if len(events) != 1 || events[0].Text != "cut" {
		t.Errorf("events = %+v", events)
	}
}

func newStreamTestClient(t *testing.T, handler http.Handler) (*Client, *session.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store, _ := session.NewStoreWithPath(filepath.Join(t.TempDir(), "session.json"))
	store.Login("tok-stream", session.User{ID: "u1", Username: "alice"})

	client := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL}, store)
	return client, store
}

func TestStreamMessageEndToEnd(t *testing.T) {
	client, _ := newStreamTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-stream" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Path != "/conversations/c1/stream" {
			t.Errorf("path = %q", r.URL.Path)
		}

		flusher := w.(http.Flusher)
		for _, part := range strings.SplitAfter(streamBody, "\n\n") {
			io.WriteString(w, part)
			flusher.Flush()
		}
	}))

	var events []StreamEvent
	handle, err := client.StreamMessage(context.Background(), "c1", "hi", func(ev StreamEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("StreamMessage: %v", err)
	}
	if err := handle.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}

	if len(events) != 3 || events[2].Type != EventDone {
		t.Fatalf("events = %+v", events)
	}
}

func TestStreamCancelReportsNoError(t *testing.T) {
	firstChunk := make(chan struct{})
	client, _ := newStreamTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		io.WriteString(w, `{"type":"message","data":{"content":"one"}}`+"\n\n")
		flusher.Flush()
		close(firstChunk)
		// Keep the stream open until the client disconnects.
		<-r.Context().Done()
	}))

	events := make(chan StreamEvent, 16)
	handle, err := client.StreamMessage(context.Background(), "c1", "hi", func(ev StreamEvent) {
		events <- ev
	})
	if err != nil {
		t.Fatalf("StreamMessage: %v", err)
	}

	<-firstChunk
	// Let the chunk propagate before cancelling.
	select {
	case ev := <-events:
		if ev.Type != EventChunk || ev.Text != "one" {
			t.Fatalf("first event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first chunk")
	}

	handle.Cancel()

	// Cancellation is not an error and delivers no further events.
	if err := handle.Err(); err != nil {
		t.Errorf("cancelled stream reported error: %v", err)
	}
	select {
	case ev := <-events:
		t.Errorf("event delivered after cancel: %+v", ev)
	default:
	}
}

func TestStreamUnauthorizedClearsSession(t *testing.T) {
	client, store := newStreamTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.StreamMessage(context.Background(), "c1", "hi", func(StreamEvent) {})
	if !IsUnauthorized(err) {
		t.Fatalf("err = %v, want unauthorized", err)
	}
	if store.Current() != nil {
		t.Error("session should be cleared after 401")
	}
}
