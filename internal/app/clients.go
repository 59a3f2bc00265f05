package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"github.com/yungbote/wastecollect-backend/internal/platform/sendgrid"
	"github.com/yungbote/wastecollect-backend/internal/platform/stripepay"
	"github.com/yungbote/wastecollect-backend/internal/realtime"
	"github.com/yungbote/wastecollect-backend/internal/realtime/bus"
	"github.com/yungbote/wastecollect-backend/internal/services"
)

// wireMailer returns nil when SendGrid is not configured.
func wireMailer(log *logger.Logger, cfg Config) (sendgrid.Client, error) {
	if strings.TrimSpace(cfg.SendGrid.APIKey) == "" {
		log.Info("SendGrid not configured; notifications stay in-app")
		return nil, nil
	}
	c, err := sendgrid.New(log, cfg.SendGrid)
	if err != nil {
		return nil, fmt.Errorf("init sendgrid: %w", err)
	}
	return c, nil
}

// wireGateway returns nil when Stripe is not configured; CARD payments then stay PENDING.
func wireGateway(log *logger.Logger, cfg Config) (services.CardGateway, error) {
	if strings.TrimSpace(cfg.StripeAPIKey) == "" {
		log.Info("Stripe not configured; card payments stay pending")
		return nil, nil
	}
	g, err := stripepay.New(log, stripepay.Config{APIKey: cfg.StripeAPIKey, Currency: cfg.StripeCurrency})
	if err != nil {
		return nil, fmt.Errorf("init stripe: %w", err)
	}
	return g, nil
}

func wireBus(log *logger.Logger, cfg Config) (bus.Bus, error) {
	b, err := bus.New(log, bus.Config{
		Kind:  cfg.NotifyBus,
		Redis: bus.RedisConfig{Addr: cfg.RedisAddr, Channel: cfg.RedisChannel},
		Nats:  bus.NatsConfig{URL: cfg.NatsURL, Subject: cfg.NatsSubject},
	})
	if err != nil {
		return nil, fmt.Errorf("init notify bus: %w", err)
	}
	return b, nil
}

type redisBacked interface {
	Client() goredis.UniversalClient
}

// redisClientOf returns the bus connection when the bus is redis-backed.
func redisClientOf(b bus.Bus) goredis.UniversalClient {
	if rc, ok := b.(redisBacked); ok {
		return rc.Client()
	}
	return nil
}

func wireRealtime(ctx context.Context, log *logger.Logger, cfg Config) (*realtime.SSEHub, *bus.Fanout, goredis.UniversalClient, error) {
	hub := realtime.NewSSEHub(log)
	b, err := wireBus(log, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	fanout := bus.NewFanout(log, hub, b)
	if err := fanout.Start(ctx); err != nil {
		_ = fanout.Close()
		return nil, nil, nil, fmt.Errorf("start notify bus forwarder: %w", err)
	}
	return hub, fanout, redisClientOf(b), nil
}
