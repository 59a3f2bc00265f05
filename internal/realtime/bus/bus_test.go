package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"github.com/yungbote/wastecollect-backend/internal/realtime"
)

func TestCodecRoundTripKeepsChannelAndEvent(t *testing.T) {
	in := realtime.SSEMessage{Channel: "user:abc", Event: realtime.SSEEventNotificationCreated, Data: map[string]any{"id": "n1"}}
	raw, err := encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Channel != in.Channel || out.Event != in.Event {
		t.Fatalf("round trip: got %+v", out)
	}
	if _, err := decode([]byte(`{"event":"x"}`)); err == nil {
		t.Fatalf("expected error for message without channel")
	}
	if _, err := decode([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}

func TestNewNoneReturnsNilBus(t *testing.T) {
	b, err := New(logger.Nop(), Config{Kind: "none"})
	if err != nil || b != nil {
		t.Fatalf("none: bus=%v err=%v", b, err)
	}
	if _, err := New(logger.Nop(), Config{Kind: "kafka"}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

type loopBus struct {
	onMsg   func(realtime.SSEMessage)
	failPub bool
	pubs    int
}

func (l *loopBus) Publish(_ context.Context, msg realtime.SSEMessage) error {
	l.pubs++
	if l.failPub {
		return errors.New("down")
	}
	if l.onMsg != nil {
		l.onMsg(msg)
	}
	return nil
}

func (l *loopBus) StartForwarder(_ context.Context, onMsg func(realtime.SSEMessage)) error {
	l.onMsg = onMsg
	return nil
}

func (l *loopBus) Close() error { return nil }

func TestFanoutDeliversThroughBusOnce(t *testing.T) {
	hub := realtime.NewSSEHub(logger.Nop())
	userID := uuid.New()
	c := hub.NewSSEClient(userID)
	hub.AddChannel(c, realtime.UserChannel(userID))

	lb := &loopBus{}
	f := NewFanout(logger.Nop(), hub, lb)
	if err := f.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_ = f.Publish(context.Background(), realtime.SSEMessage{Channel: realtime.UserChannel(userID), Event: realtime.SSEEventNotificationCreated})

	select {
	case <-c.Outbound:
	case <-time.After(time.Second):
		t.Fatalf("no delivery")
	}
	if len(c.Outbound) != 0 {
		t.Fatalf("message delivered more than once")
	}
}

func TestFanoutFallsBackToLocalHub(t *testing.T) {
	hub := realtime.NewSSEHub(logger.Nop())
	userID := uuid.New()
	c := hub.NewSSEClient(userID)
	hub.AddChannel(c, realtime.UserChannel(userID))

	f := NewFanout(logger.Nop(), hub, &loopBus{failPub: true})
	if err := f.Publish(context.Background(), realtime.SSEMessage{Channel: realtime.UserChannel(userID), Event: realtime.SSEEventNotificationRead}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(c.Outbound) != 1 {
		t.Fatalf("want local delivery, buffered=%d", len(c.Outbound))
	}
}
