package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flexmod/flexmod/internal/event"
)

type mockResponseWriter struct {
	*httptest.ResponseRecorder
	flushed int
}

func (m *mockResponseWriter) Flush() {
	m.flushed++
}

func newMockResponseWriter() *mockResponseWriter {
	return &mockResponseWriter{
		ResponseRecorder: httptest.NewRecorder(),
	}
}

func TestNewSSEWriter_NoFlusher(t *testing.T) {
	w := &noFlushWriter{}
	_, err := newSSEWriter(w)
	if err == nil {
		t.Error("Expected error for writer without Flusher")
	}
}

type noFlushWriter struct{}

func (n *noFlushWriter) Header() http.Header       { return http.Header{} }
func (n *noFlushWriter) Write([]byte) (int, error) { return 0, nil }
func (n *noFlushWriter) WriteHeader(int)           {}

func TestSSEWriter_WriteEvent(t *testing.T) {
	w := newMockResponseWriter()
	sse, err := newSSEWriter(w)
	if err != nil {
		t.Fatalf("newSSEWriter failed: %v", err)
	}

	err = sse.writeEvent("message", SDKEvent{Type: event.ApplyCompleted, Properties: map[string]any{"mod": "Alpha"}})
	if err != nil {
		t.Fatalf("writeEvent failed: %v", err)
	}

	body := w.Body.String()
	want := "event: message\ndata: {\"type\":\"apply.completed\",\"properties\":{\"mod\":\"Alpha\"}}\n\n"
	if body != want {
		t.Errorf("Unexpected frame:\n%q\nwant\n%q", body, want)
	}
	if w.flushed == 0 {
		t.Error("Expected Flush to be called")
	}
}

func TestSSEWriter_WriteHeartbeat(t *testing.T) {
	w := newMockResponseWriter()
	sse, _ := newSSEWriter(w)

	sse.writeHeartbeat()

	if w.Body.String() != ": heartbeat\n\n" {
		t.Errorf("Expected heartbeat comment, got: %q", w.Body.String())
	}
	if w.flushed == 0 {
		t.Error("Expected Flush to be called")
	}
}

func TestEventMatchesMod(t *testing.T) {
	raw := event.Event{Type: event.ApplyCompleted, Data: json.RawMessage(`{"mod":"Alpha","applied":1}`)}

	tests := []struct {
		name string
		e    event.Event
		mod  string
		want bool
	}{
		{"no filter", raw, "", true},
		{"same mod", raw, "Alpha", true},
		{"other mod", raw, "Beta", false},
		{"typed data", event.Event{Data: event.ApplyCompletedData{Mod: "Alpha"}}, "Alpha", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := eventMatchesMod(tt.e, tt.mod); got != tt.want {
				t.Errorf("eventMatchesMod() = %v, want %v", got, tt.want)
			}
		})
	}
}

// readFrames reads data lines from an SSE body until n frames arrived or the
// deadline passed.
func readFrames(t *testing.T, scanner *bufio.Scanner, n int) []SDKEvent {
	t.Helper()
	var frames []SDKEvent
	for len(frames) < n && scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var e SDKEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &e); err != nil {
			t.Fatalf("bad frame %q: %v", line, err)
		}
		frames = append(frames, e)
	}
	return frames
}

func TestAllEvents_StreamsBusFilteredByMod(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()
	srv := &Server{bus: bus}

	ts := httptest.NewServer(http.HandlerFunc(srv.allEvents))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, "GET", ts.URL+"?mod=Alpha", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected Content-Type text/event-stream, got %s", ct)
	}
	if resp.Header.Get("Cache-Control") != "no-cache" {
		t.Error("Expected Cache-Control: no-cache")
	}

	scanner := bufio.NewScanner(resp.Body)
	first := readFrames(t, scanner, 1)
	if len(first) != 1 || first[0].Type != "server.connected" {
		t.Fatalf("Expected server.connected first, got %+v", first)
	}

	bus.Publish(event.Event{Type: event.ApplyCompleted, Data: event.ApplyCompletedData{Mod: "Beta", Applied: 9}})
	bus.Publish(event.Event{Type: event.ApplyCompleted, Data: event.ApplyCompletedData{Mod: "Alpha", Applied: 2}})

	frames := readFrames(t, scanner, 1)
	if len(frames) != 1 {
		t.Fatalf("Expected one event, got %d", len(frames))
	}
	if frames[0].Type != event.ApplyCompleted {
		t.Errorf("Expected apply.completed, got %s", frames[0].Type)
	}
	props, _ := frames[0].Properties.(map[string]any)
	if props["mod"] != "Alpha" || props["applied"] != float64(2) {
		t.Errorf("Unexpected properties: %v", frames[0].Properties)
	}
}
