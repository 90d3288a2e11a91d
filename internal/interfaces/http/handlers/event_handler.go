package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/turtacn/datamigrate/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
)

// subscriberBuffer is the per-client event queue.  A client that cannot
// keep up has events dropped rather than blocking the publishers.
const subscriberBuffer = 16

// heartbeatInterval keeps idle SSE connections from being reaped by
// proxies.
const heartbeatInterval = 15 * time.Second

// EventHub fans run lifecycle events out to SSE subscribers.  It satisfies
// the migration service's publisher interface, so in-process events stream
// to clients without a round trip through the broker.
type EventHub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan *kafka.EventEnvelope
	logger logging.Logger
}

// NewEventHub constructs an empty hub.
func NewEventHub(logger logging.Logger) *EventHub {
	return &EventHub{
		subs:   make(map[int]chan *kafka.EventEnvelope),
		logger: logger,
	}
}

// PublishEnvelope broadcasts the envelope to every subscriber.
func (h *EventHub) PublishEnvelope(_ context.Context, _ string, _ string, envelope *kafka.EventEnvelope) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- envelope:
		default:
			// Slow client; skip this event for it.
		}
	}
	return nil
}

// subscribe registers a new client and returns its channel and an
// unsubscribe function.
func (h *EventHub) subscribe() (<-chan *kafka.EventEnvelope, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan *kafka.EventEnvelope, subscriberBuffer)
	h.subs[id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

// SubscriberCount reports the number of connected clients.
func (h *EventHub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Stream serves GET /api/v1/events as a server-sent event stream of run
// lifecycle events.
func (h *EventHub) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, unsubscribe := h.subscribe()
	defer unsubscribe()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case envelope := <-events:
			data, err := json.Marshal(envelope)
			if err != nil {
				h.logger.Warn("Dropping unmarshalable event", logging.Err(err))
				continue
			}
			fmt.Fprintf(w, "event: %s\nid: %s\ndata: %s\n\n", envelope.EventType, envelope.EventID, data)
			flusher.Flush()
		}
	}
}
