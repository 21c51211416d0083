//go:build wireinject
// +build wireinject

package di

import (
	"CardioStage/pkg/config"
	"CardioStage/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Metrics
		ProvideMetrics,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideClickHouseClient,
		ProvideResultCache,

		// Artifacts
		ProvideScaler,
		ProvideModel,

		// Repositories
		ProvidePredictionStore,
		ProvidePredictionPublisher,
		ProvideResultPublisher,

		// Use cases
		ProvideAuditPipeline,
		ProvideEvaluator,
		ProvideRecordsHandler,

		// Transport
		ProvideRateLimiter,
		ProvidePredictHandler,
		ProvideAuditHandler,
		ProvideHTTPServer,
		ProvideKafkaConsumer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
