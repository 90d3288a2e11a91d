package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/datamigrate/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
)

func TestEventHubBroadcast(t *testing.T) {
	hub := NewEventHub(logging.NewNopLogger())

	events, unsubscribe := hub.subscribe()
	defer unsubscribe()
	assert.Equal(t, 1, hub.SubscriberCount())

	envelope, err := kafka.NewEventEnvelope(kafka.EventRunStarted, "test", kafka.RunEventPayload{RunID: "run-1"})
	require.NoError(t, err)
	require.NoError(t, hub.PublishEnvelope(context.Background(), kafka.TopicMigrationEvents, "run-1", envelope))

	select {
	case got := <-events:
		assert.Equal(t, kafka.EventRunStarted, got.EventType)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestEventHubUnsubscribe(t *testing.T) {
	hub := NewEventHub(logging.NewNopLogger())

	_, unsubscribe := hub.subscribe()
	unsubscribe()
	assert.Equal(t, 0, hub.SubscriberCount())
}

func TestEventHubSlowSubscriberDropsEvents(t *testing.T) {
	hub := NewEventHub(logging.NewNopLogger())

	_, unsubscribe := hub.subscribe()
	defer unsubscribe()

	// Publishing past the buffer must not block.
	envelope, err := kafka.NewEventEnvelope(kafka.EventRunProgress, "test", kafka.RunEventPayload{RunID: "run-1"})
	require.NoError(t, err)
	for i := 0; i < subscriberBuffer*2; i++ {
		require.NoError(t, hub.PublishEnvelope(context.Background(), kafka.TopicMigrationEvents, "run-1", envelope))
	}
}

func TestEventStream(t *testing.T) {
	hub := NewEventHub(logging.NewNopLogger())

	srv := httptest.NewServer(http.HandlerFunc(hub.Stream))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Wait for the subscription before publishing.
	require.Eventually(t, func() bool {
		return hub.SubscriberCount() == 1
	}, time.Second, 10*time.Millisecond)

	envelope, err := kafka.NewEventEnvelope(kafka.EventRunCompleted, "test", kafka.RunEventPayload{RunID: "run-7"})
	require.NoError(t, err)
	require.NoError(t, hub.PublishEnvelope(context.Background(), kafka.TopicMigrationEvents, "run-7", envelope))

	buf := make([]byte, 4096)
	n, err := resp.Body.Read(buf)
	require.NoError(t, err)
	body := string(buf[:n])
	assert.Contains(t, body, "event: "+kafka.EventRunCompleted)
	assert.True(t, strings.Contains(body, "run-7"))
}
