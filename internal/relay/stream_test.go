package relay

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestEventStream_MethodNotAllowed(t *testing.T) {
	r := newTestRelay(8)
	defer r.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/events", nil)
	rec := httptest.NewRecorder()
	NewEventStream(r).ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestEventStream_DeliversStorageChanged(t *testing.T) {
	r := newTestRelay(8)
	defer r.Close()

	ts := httptest.NewServer(NewEventStream(r))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected Content-Type text/event-stream, got %s", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	sawConnected := false
	for scanner.Scan() {
		line := scanner.Text()
		if line == "event: connected" {
			sawConnected = true
			continue
		}
		if sawConnected && line == "" {
			break
		}
	}
	if !sawConnected {
		t.Fatal("expected connected event")
	}

	// The subscription is registered before the connected event is written.
	r.Publish(updated("theme"))

	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			event = strings.TrimPrefix(line, "event: ")
		}
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
			break
		}
	}

	if event != "storageChanged" {
		t.Errorf("expected storageChanged event, got %q", event)
	}
	if !strings.Contains(data, `"key":"theme"`) {
		t.Errorf("expected payload with key theme, got %s", data)
	}
}

func TestEventStream_UnsubscribesOnDisconnect(t *testing.T) {
	r := newTestRelay(8)
	defer r.Close()

	ts := httptest.NewServer(NewEventStream(r))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if r.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber while connected, got %d", r.SubscriberCount())
	}
	cancel()
	resp.Body.Close()

	deadline := time.Now().Add(2 * time.Second)
	for r.SubscriberCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if r.SubscriberCount() != 0 {
		t.Errorf("expected subscriber removed after disconnect, got %d", r.SubscriberCount())
	}
}
