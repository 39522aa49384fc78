package relay

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bobmcallan/storage-inspector/internal/models"
)

// EventStream serves relay notifications as server-sent events. Each
// connection is a relay subscriber for as long as it stays open.
type EventStream struct {
	relay *Relay
}

// NewEventStream creates the SSE handler for r.
func NewEventStream(r *Relay) *EventStream {
	return &EventStream{relay: r}
}

// ServeHTTP serves GET /api/events.
func (e *EventStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// The relay goroutine hands notifications to this handler, which owns
	// the ResponseWriter.
	events := make(chan models.ChangeNotification, e.relay.bufSize)
	_, unsubscribe := e.relay.Subscribe("", func(n models.ChangeNotification) {
		select {
		case events <- n:
		default:
		}
	})
	defer unsubscribe()

	fmt.Fprintf(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(e.relay.heartbeat)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-events:
			data, err := json.Marshal(n)
			if err != nil {
				e.relay.logger.Error().Err(err).Msg("failed to marshal notification")
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", n.Type, data)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}
