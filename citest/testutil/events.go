package testutil

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

var errStreamClosed = errors.New("event stream closed")

// ModEvent is one payload received on the /event stream.
type ModEvent struct {
	Type string
	Data gjson.Result
}

// Properties returns the properties object of the payload.
func (e ModEvent) Properties() gjson.Result {
	return e.Data.Get("properties")
}

// Mod returns the mod the event concerns, "" for server events.
func (e ModEvent) Mod() string {
	return e.Properties().Get("mod").String()
}

// Decode unmarshals the properties object into v.
func (e ModEvent) Decode(v any) error {
	props := e.Properties()
	if !props.Exists() {
		return fmt.Errorf("%s has no properties", e.Type)
	}
	return json.Unmarshal([]byte(props.Raw), v)
}

// EventStream records the events the server sends for one mod.
type EventStream struct {
	cancel context.CancelFunc

	mu     sync.Mutex
	events []ModEvent
	next   int
	notify chan struct{}
	done   chan struct{}
}

// SubscribeMod follows /event?mod=<mod> on baseURL and returns once the
// server has greeted the subscriber.
func SubscribeMod(ctx context.Context, baseURL, mod string) (*EventStream, error) {
	ctx, cancel := context.WithCancel(ctx)

	u := baseURL + "/event?" + url.Values{"mod": {mod}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("subscribe: status %d, content type %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	s := &EventStream{
		cancel: cancel,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go s.read(resp)

	if _, err := s.WaitFor("server.connected", 5*time.Second); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// read collects the data lines of each event until the stream ends.
// Heartbeat comments are dropped.
func (s *EventStream) read(resp *http.Response) {
	defer close(s.done)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				s.add(data.String())
				data.Reset()
			}
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
}

func (s *EventStream) add(raw string) {
	payload := gjson.Parse(raw)

	s.mu.Lock()
	s.events = append(s.events, ModEvent{Type: payload.Get("type").String(), Data: payload})
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// WaitFor returns the next event of type t not yet returned by WaitFor.
func (s *EventStream) WaitFor(t string, timeout time.Duration) (*ModEvent, error) {
	deadline := time.After(timeout)
	for {
		s.mu.Lock()
		for ; s.next < len(s.events); s.next++ {
			if s.events[s.next].Type == t {
				evt := s.events[s.next]
				s.next++
				s.mu.Unlock()
				return &evt, nil
			}
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-s.done:
			s.mu.Lock()
			pending := s.next < len(s.events)
			s.mu.Unlock()
			if pending {
				continue
			}
			return nil, fmt.Errorf("waiting for %s: %w", t, errStreamClosed)
		case <-deadline:
			return nil, fmt.Errorf("timeout waiting for %s", t)
		}
	}
}

// Received returns every event received so far.
func (s *EventStream) Received() *EventMatcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	return NewEventMatcher(append([]ModEvent(nil), s.events...))
}

// Close ends the subscription.
func (s *EventStream) Close() {
	s.cancel()
	<-s.done
}
