package di

import (
	"context"
	"fmt"
	"time"

	"CardioStage/internal/domain/models"
	domrepo "CardioStage/internal/domain/repository"
	domsvc "CardioStage/internal/domain/service"
	"CardioStage/internal/handler/api"
	mid "CardioStage/internal/middleware"
	internalrepo "CardioStage/internal/repository"
	"CardioStage/internal/service/ratelimit"
	"CardioStage/internal/services/artifact"
	"CardioStage/internal/usecase"
	"CardioStage/pkg/cache"
	pkgch "CardioStage/pkg/clickhouse"
	"CardioStage/pkg/config"
	xhttp "CardioStage/pkg/http"
	pkgkafka "CardioStage/pkg/kafka"
	applogger "CardioStage/pkg/logger"
	"CardioStage/pkg/metrics"
	"CardioStage/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
)

// ProvideLogger creates the application logger. The error collector is
// attached only when enabled and a producer exists.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	logger, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	logger = logger.With(applogger.String("env", cfg.Environment))

	if cfg.Logging.Collector.Enabled && producer != nil {
		logger.AddCollector(&applogger.CollectionConfig{
			Service:        "cardiostage",
			TimeInterval:   cfg.Logging.Collector.Interval,
			CountThreshold: cfg.Logging.Collector.Threshold,
			Topic:          cfg.Logging.Collector.Topic,
			Publisher:      producer,
			PublishTimeout: 5 * time.Second,
		})
	}
	return logger, nil
}

// ProvideMetrics returns the Prometheus recorder, or a no-op when disabled.
func ProvideMetrics(cfg *config.Config) domrepo.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideKafkaProducer creates a Kafka producer when any component needs one.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.NeedsKafka() {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideClickHouseClient connects to ClickHouse when it is the audit backend.
// The client uses the default database; tables are always fully qualified.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Audit.Backend != config.AuditClickHouse {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideScaler loads the scaler artifact.
func ProvideScaler(cfg *config.Config) (models.ScalerParams, error) {
	return artifact.LoadScaler(cfg.Model.ScalerPath)
}

// ProvideModel loads the classifier. Failure aborts start-up.
func ProvideModel(cfg *config.Config) (domsvc.Model, error) {
	return artifact.LoadModel(artifact.Spec{
		Type:      cfg.Model.Type,
		Path:      cfg.Model.Path,
		RemoteURL: cfg.Model.RemoteURL,
		Timeout:   cfg.Model.Timeout,
		Retries:   cfg.Model.Retries,
	})
}

// ProvidePredictionStore creates the ClickHouse audit table.
func ProvidePredictionStore(cfg *config.Config, ch *pkgch.Client, logger *applogger.Logger) (domrepo.PredictionStore, error) {
	if ch == nil {
		return nil, nil
	}
	store, err := internalrepo.NewCHPredictionStore(ch, cfg.ClickHouse.Database+"."+cfg.ClickHouse.Table)
	if err != nil {
		return nil, fmt.Errorf("prediction store: %w", err)
	}
	store.SetLogger(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ch.InitSchema(ctx, []string{"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database}); err != nil {
		return nil, fmt.Errorf("clickhouse database: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvidePredictionPublisher publishes audit events when Kafka is the backend.
func ProvidePredictionPublisher(cfg *config.Config, producer *pkgkafka.Producer) domrepo.PredictionPublisher {
	if cfg.Audit.Backend != config.AuditKafka || producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPredictionPublisher(producer, cfg.Kafka.Topics.Audit)
}

// ProvideAuditPipeline builds the async audit pipeline, or nil when auditing is off.
func ProvideAuditPipeline(
	cfg *config.Config,
	pub domrepo.PredictionPublisher,
	store domrepo.PredictionStore,
	m domrepo.Metrics,
	logger *applogger.Logger,
) (*mid.AuditPipeline, error) {
	if cfg.Audit.Backend == config.AuditNone {
		return nil, nil
	}
	recorder, err := usecase.NewAuditRecorder(pub, store, m, cfg.Audit.Backend)
	if err != nil {
		return nil, fmt.Errorf("audit recorder: %w", err)
	}
	return mid.NewAuditPipeline(recorder, m,
		mid.WithBufferSize(cfg.Audit.BufferSize),
		mid.WithPipelineLogger(logger),
	), nil
}

// ProvideEvaluator composes the encoder and decision engine around the artifacts.
func ProvideEvaluator(
	cfg *config.Config,
	scaler models.ScalerParams,
	model domsvc.Model,
	pipeline *mid.AuditPipeline,
	m domrepo.Metrics,
	logger *applogger.Logger,
) *usecase.Evaluator {
	opts := []usecase.EvaluatorOption{
		usecase.WithStrictCategories(cfg.Model.StrictCategories),
		usecase.WithEvaluatorMetrics(m),
		usecase.WithEvaluatorLogger(logger),
	}
	if pipeline != nil {
		opts = append(opts, usecase.WithAuditSink(pipeline))
	}
	return usecase.NewEvaluator(scaler, model, opts...)
}

// ProvideResultCache builds the response cache for the configured backend.
func ProvideResultCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	if cfg.Cache.Backend == "memory" {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MaxEntries)), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rc, err := cache.NewRedisCache(ctx,
		cache.WithRedisAddr(cfg.Cache.Redis.Host, cfg.Cache.Redis.Port),
		cache.WithRedisAuth(cfg.Cache.Redis.Password, cfg.Cache.Redis.DB),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	if cfg.Cache.Backend == "layered" {
		return cache.NewLayeredCache(rc, cfg.Cache.MaxEntries, cfg.Cache.TTL), nil
	}
	return rc, nil
}

// ProvideRateLimiter returns the per-client limiter, or nil when disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(ratelimit.WithRate(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec))
}

// ProvidePredictHandler creates the prediction API handler.
func ProvidePredictHandler(
	cfg *config.Config,
	logger *applogger.Logger,
	evaluator *usecase.Evaluator,
	resultCache cache.Service,
	limiter *ratelimit.Limiter,
) *api.PredictHandler {
	opts := []api.PredictOption{}
	if resultCache != nil {
		opts = append(opts, api.WithResultCache(resultCache, cfg.Cache.TTL))
	}
	if limiter != nil {
		opts = append(opts, api.WithRateLimiter(limiter))
	}
	return api.NewPredictHandler(logger, evaluator, opts...)
}

// ProvideAuditHandler serves audit history when a store is configured.
func ProvideAuditHandler(logger *applogger.Logger, store domrepo.PredictionStore) *api.AuditHandler {
	if store == nil {
		return nil
	}
	return api.NewAuditHandler(logger, store)
}

// ProvideHTTPServer creates the echo server with all handlers.
func ProvideHTTPServer(
	cfg *config.Config,
	logger *applogger.Logger,
	predict *api.PredictHandler,
	audit *api.AuditHandler,
) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, cfg.Server.SlowRequest))
	}
	handlers := []xhttp.Handler{predict}
	if audit != nil {
		handlers = append(handlers, audit)
	}
	return xhttp.NewServer(logger, handlers, opts...)
}

// ProvideResultPublisher publishes batch scoring results.
func ProvideResultPublisher(cfg *config.Config, producer *pkgkafka.Producer) domrepo.ResultPublisher {
	if !cfg.Kafka.Consumer.Enabled || producer == nil {
		return nil
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.Topics.Results)
}

// ProvideKafkaConsumer creates the batch scoring consumer when enabled.
func ProvideKafkaConsumer(cfg *config.Config, logger *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	cc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(logger,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cc.GroupID),
		pkgkafka.WithConsumerWorkers(cc.Workers, cc.BufferSize),
		pkgkafka.WithConsumerRetry(cc.RetryMax, cc.BackoffMin, cc.BackoffMax),
		pkgkafka.WithConsumerDLQ(cc.DLQTopic),
		pkgkafka.WithConsumerFetch(cc.MinBytes, cc.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideRecordsHandler scores records consumed from Kafka.
func ProvideRecordsHandler(
	cfg *config.Config,
	evaluator *usecase.Evaluator,
	results domrepo.ResultPublisher,
	m domrepo.Metrics,
	logger *applogger.Logger,
) *usecase.KafkaRecordsHandler {
	if results == nil {
		return nil
	}
	return usecase.NewKafkaRecordsHandler(cfg.Kafka.Topics.Records, evaluator, results, m, logger)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	httpServer *xhttp.Server,
	pipeline *mid.AuditPipeline,
	consumer *pkgkafka.Consumer,
	records *usecase.KafkaRecordsHandler,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	resultCache cache.Service,
) *server.App {
	return server.New(cfg, logger, httpServer, pipeline, consumer, records, producer, ch, resultCache)
}
