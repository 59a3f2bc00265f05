package realtime

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubReconnectAndOrdering(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	userID := uuid.New()
	channel := UserChannel(userID)

	clientA := hub.NewSSEClient(userID)
	hub.AddChannel(clientA, channel)

	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventNotificationCreated, Data: map[string]any{"seq": 1}})
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventUnreadCountChanged, Data: map[string]any{"seq": 2}})

	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventNotificationCreated {
		t.Fatalf("first event: want=%s got=%s", SSEEventNotificationCreated, got.Event)
	}
	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventUnreadCountChanged {
		t.Fatalf("second event: want=%s got=%s", SSEEventUnreadCountChanged, got.Event)
	}

	hub.CloseClient(clientA)
	hub.CloseClient(clientA)
	if _, ok := <-clientA.Outbound; ok {
		t.Fatalf("clientA outbound should be closed after disconnect")
	}
	if n := hub.Subscribers(channel); n != 0 {
		t.Fatalf("subscribers after close: want=0 got=%d", n)
	}

	clientB := hub.NewSSEClient(userID)
	hub.AddChannel(clientB, channel)
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventNotificationRead})
	if got := recvMessage(t, clientB.Outbound, time.Second); got.Event != SSEEventNotificationRead {
		t.Fatalf("reconnect event: want=%s got=%s", SSEEventNotificationRead, got.Event)
	}
}

func TestSSEHubChannelsAreIsolated(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	alice, bob := uuid.New(), uuid.New()
	ca := hub.NewSSEClient(alice)
	cb := hub.NewSSEClient(bob)
	hub.AddChannel(ca, UserChannel(alice))
	hub.AddChannel(cb, UserChannel(bob))

	if err := hub.Publish(context.Background(), SSEMessage{Channel: UserChannel(alice), Event: SSEEventNotificationCreated}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	recvMessage(t, ca.Outbound, time.Second)
	select {
	case msg := <-cb.Outbound:
		t.Fatalf("bob received alice's message: %+v", msg)
	default:
	}
}

func TestSSEHubDropsWhenBufferFull(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	userID := uuid.New()
	client := hub.NewSSEClient(userID)
	hub.AddChannel(client, UserChannel(userID))

	for i := 0; i < defaultOutboundBuffer+5; i++ {
		hub.Broadcast(SSEMessage{Channel: UserChannel(userID), Event: SSEEventNotificationCreated})
	}
	if got := len(client.Outbound); got != defaultOutboundBuffer {
		t.Fatalf("buffered: want=%d got=%d", defaultOutboundBuffer, got)
	}
}

func TestWriteEventFraming(t *testing.T) {
	var buf bytes.Buffer
	msg := SSEMessage{Channel: "user:x", Event: SSEEventNotificationCreated, Data: map[string]any{"id": "n1"}}
	if err := WriteEvent(&buf, msg); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	want := "event: notification.created\ndata: {\"channel\":\"user:x\",\"event\":\"notification.created\",\"data\":{\"id\":\"n1\"}}\n\n"
	if buf.String() != want {
		t.Fatalf("framing:\nwant=%q\ngot =%q", want, buf.String())
	}
}

func TestServeHTTPStreamsUntilClientClosed(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	userID := uuid.New()
	client := hub.NewSSEClient(userID)
	hub.AddChannel(client, UserChannel(userID))
	hub.Broadcast(SSEMessage{Channel: UserChannel(userID), Event: SSEEventNotificationCreated})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/notifications/stream", nil)
	done := make(chan struct{})
	go func() {
		hub.ServeHTTP(rec, req, client)
		close(done)
	}()

	deadline := time.After(time.Second)
	for len(client.Outbound) > 0 {
		select {
		case <-deadline:
			t.Fatalf("message was not consumed")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	hub.CloseClient(client)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("ServeHTTP did not return after CloseClient")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "event: notification.created") {
		t.Fatalf("body missing event: %q", rec.Body.String())
	}
}
