package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"github.com/yungbote/wastecollect-backend/internal/realtime"
)

// Bus carries realtime messages between API instances.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}

const (
	KindNone  = "none"
	KindRedis = "redis"
	KindNats  = "nats"
)

type Config struct {
	Kind  string
	Redis RedisConfig
	Nats  NatsConfig
}

// New returns nil, nil for KindNone.
func New(log *logger.Logger, cfg Config) (Bus, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", KindNone:
		return nil, nil
	case KindRedis:
		return NewRedisBus(log, cfg.Redis)
	case KindNats:
		return NewNatsBus(log, cfg.Nats)
	default:
		return nil, fmt.Errorf("unknown notify bus %q", cfg.Kind)
	}
}

func encode(msg realtime.SSEMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func decode(raw []byte) (realtime.SSEMessage, error) {
	var msg realtime.SSEMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return realtime.SSEMessage{}, err
	}
	if msg.Channel == "" {
		return realtime.SSEMessage{}, fmt.Errorf("message without channel")
	}
	return msg, nil
}

// Fanout publishes through the bus when one is configured, otherwise straight to the local hub.
// With a bus, every instance (this one included) delivers from its forwarder.
type Fanout struct {
	hub *realtime.SSEHub
	bus Bus
	log *logger.Logger
}

func NewFanout(log *logger.Logger, hub *realtime.SSEHub, b Bus) *Fanout {
	if log == nil {
		log = logger.Nop()
	}
	return &Fanout{hub: hub, bus: b, log: log.With("component", "RealtimeFanout")}
}

// Start subscribes the local hub to the bus. No-op without a bus.
func (f *Fanout) Start(ctx context.Context) error {
	if f == nil || f.bus == nil || f.hub == nil {
		return nil
	}
	return f.bus.StartForwarder(ctx, f.hub.Broadcast)
}

func (f *Fanout) Publish(ctx context.Context, msg realtime.SSEMessage) error {
	if f == nil {
		return nil
	}
	if f.bus != nil {
		if err := f.bus.Publish(ctx, msg); err != nil {
			f.log.Warn("bus publish failed; delivering locally", "error", err, "event", msg.Event)
		} else {
			return nil
		}
	}
	if f.hub != nil {
		f.hub.Broadcast(msg)
	}
	return nil
}

func (f *Fanout) Close() error {
	if f == nil || f.bus == nil {
		return nil
	}
	return f.bus.Close()
}
