package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"CardioStage/internal/middleware"
	"CardioStage/internal/usecase"
	"CardioStage/pkg/cache"
	pkgch "CardioStage/pkg/clickhouse"
	"CardioStage/pkg/config"
	xhttp "CardioStage/pkg/http"
	pkgkafka "CardioStage/pkg/kafka"
	applogger "CardioStage/pkg/logger"
)

// App encapsulates the service lifecycle. Every component except the HTTP
// server is optional and nil when disabled by configuration.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	httpServer *xhttp.Server
	audit      *middleware.AuditPipeline
	consumer   *pkgkafka.Consumer
	records    *usecase.KafkaRecordsHandler
	producer   *pkgkafka.Producer
	chClient   *pkgch.Client
	cache      cache.Service
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	httpServer *xhttp.Server,
	audit *middleware.AuditPipeline,
	consumer *pkgkafka.Consumer,
	records *usecase.KafkaRecordsHandler,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	resultCache cache.Service,
) *App {
	return &App{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		audit:      audit,
		consumer:   consumer,
		records:    records,
		producer:   producer,
		chClient:   chClient,
		cache:      resultCache,
	}
}

// Run starts every component and blocks until SIGINT/SIGTERM or ctx ends.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		_ = a.Shutdown(context.Background())
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Start launches background workers, then the HTTP server. Artifacts are
// already loaded at this point, so no request can see a partial model.
func (a *App) Start(ctx context.Context) error {
	if a.audit != nil {
		a.audit.Start(ctx)
		a.logger.Info("audit pipeline started", applogger.String("backend", a.cfg.Audit.Backend))
	}

	if a.consumer != nil && a.records != nil {
		a.consumer.RegisterHandler(a.records)
		a.consumer.WithHook(pkgkafka.RequestIDHook())
		if err := a.consumer.Start(ctx); err != nil {
			return fmt.Errorf("start kafka consumer: %w", err)
		}
		a.logger.Info("kafka consumer started", applogger.String("topic", a.records.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}
	return nil
}

// Shutdown stops intake first, then drains and closes the backends.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.audit != nil {
		if err := a.audit.Stop(shutdownCtx); err != nil {
			a.logger.Warn("audit pipeline stop error",
				applogger.Int("pending", a.audit.Pending()),
				applogger.Error(err),
			)
		}
	}

	// flush collected logs while the producer is still open
	a.logger.RemoveCollector()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("cache close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
