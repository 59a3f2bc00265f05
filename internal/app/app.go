package app

import (
	"context"
	"fmt"

	"github.com/yungbote/wastecollect-backend/internal/data/db"
	"github.com/yungbote/wastecollect-backend/internal/data/repos"
	httpserver "github.com/yungbote/wastecollect-backend/internal/http"
	httpMW "github.com/yungbote/wastecollect-backend/internal/http/middleware"
	"github.com/yungbote/wastecollect-backend/internal/observability"
	"github.com/yungbote/wastecollect-backend/internal/platform/envutil"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"github.com/yungbote/wastecollect-backend/internal/realtime"
	"github.com/yungbote/wastecollect-backend/internal/realtime/bus"
)

type Mode int

const (
	// ModeServe wires the HTTP API with every configured provider.
	ModeServe Mode = iota
	// ModeCLI wires services only, without realtime, metrics or outbound providers.
	ModeCLI
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *db.DatabaseService
	Repos    repos.Set
	Services Services
	Metrics  *observability.Metrics
	SSEHub   *realtime.SSEHub
	Server   *httpserver.Server

	fanout       *bus.Fanout
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// NewLogger honours LOG_MODE before the config is loaded.
func NewLogger() (*logger.Logger, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

func New(ctx context.Context, log *logger.Logger, mode Mode) (*App, error) {
	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	dbs, err := db.NewDatabaseService(log, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.AutoMigrateAll(dbs.DB()); err != nil {
		_ = dbs.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	a := &App{Log: log, Cfg: cfg, DB: dbs, Repos: repos.NewSet(dbs.DB(), log), cancel: cancel}

	if mode == ModeCLI {
		a.Services = wireServices(dbs.DB(), log, cfg, a.Repos, providers{})
		return a, nil
	}

	a.otelShutdown = observability.InitOTel(runCtx, log, observability.OtelConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
		Endpoint:    cfg.OtelEndpoint,
		Insecure:    cfg.OtelInsecure,
		SampleRatio: cfg.OtelSampleRatio,
	})
	a.Metrics = observability.Init(log, cfg.MetricsEnabled, cfg.MetricsScrape)

	hub, fanout, rdb, err := wireRealtime(runCtx, log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.SSEHub, a.fanout = hub, fanout

	mailer, err := wireMailer(log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	gateway, err := wireGateway(log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	store, err := resolveReportStore(runCtx, log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Services = wireServices(dbs.DB(), log, cfg, a.Repos, providers{
		Publisher: fanout,
		Mailer:    mailer,
		Gateway:   gateway,
		Reports:   store,
		Metrics:   a.Metrics,
	})
	handlers := wireHandlers(log, dbs.DB(), a.Services, hub)
	a.Server = wireServer(log, cfg, handlers, httpMW.NewAuthMiddleware(log, a.Services.Auth), a.Metrics)

	a.Metrics.StartServer(runCtx, log, cfg.MetricsAddr)
	a.Metrics.StartPostgresCollector(runCtx, log, dbs.DB())
	a.Metrics.StartBacklogCollector(runCtx, log, dbs.DB())
	a.Metrics.StartRedisCollector(runCtx, log, rdb)
	return a, nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized for serving")
	}
	a.Log.Info("Server listening", "addr", a.Cfg.Addr())
	return a.Server.Run(ctx, a.Cfg.Addr())
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if err := a.fanout.Close(); err != nil {
		a.Log.Warn("notify bus close failed", "error", err)
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
	a.Log.Sync()
}
