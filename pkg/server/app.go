package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"FinCast/internal/domain/service"
	"FinCast/internal/retrain"
	"FinCast/internal/usecase"
	pkgch "FinCast/pkg/clickhouse"
	"FinCast/pkg/config"
	xhttp "FinCast/pkg/http"
	applogger "FinCast/pkg/logger"
)

// App encapsulates the application lifecycle: candle ingestion, the
// prediction loop, the auto-retrainer and the HTTP API.
type App struct {
	cfg       *config.Config
	l         *applogger.Logger
	ingestor  *usecase.CandleIngestor
	pipeline  *usecase.Pipeline
	retrainer *retrain.AutoRetrainer
	handler   xhttp.Handler
	notifier  service.Notifier

	httpServer  *xhttp.Server
	chClient    *pkgch.Client
	redisClient *redis.Client
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	ingestor *usecase.CandleIngestor,
	pipeline *usecase.Pipeline,
	retrainer *retrain.AutoRetrainer,
	handler xhttp.Handler,
	notifier service.Notifier,
	chClient *pkgch.Client,
	redisClient *redis.Client,
) *App {
	return &App{
		cfg:         cfg,
		l:           l,
		ingestor:    ingestor,
		pipeline:    pipeline,
		retrainer:   retrainer,
		handler:     handler,
		notifier:    notifier,
		chClient:    chClient,
		redisClient: redisClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.l, a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(a.cfg.Metrics.Path),
	)

	if err := a.ingestor.Start(ctx); err != nil {
		a.l.Error("ingestor start failed", applogger.Error(err))
		return err
	}
	a.l.Info("candle ingestion started", applogger.Strings("symbols", a.cfg.Binance.Symbols))

	go a.pipeline.Start(ctx, a.cfg.Pipeline.Interval)
	a.l.Info("prediction loop started",
		applogger.String("symbol", a.cfg.Pipeline.Symbol),
		applogger.Duration("interval", a.cfg.Pipeline.Interval))

	go a.retrainer.Start(ctx, a.cfg.Retrain.Interval)
	a.l.Info("auto retrainer started", applogger.Duration("interval", a.cfg.Retrain.Interval))

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	if err := a.ingestor.Stop(); err != nil {
		a.l.Warn("ingestor stop error", applogger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if closer, ok := a.notifier.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			a.l.Warn("notifier close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.l.Warn("redis close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
