//go:build wireinject
// +build wireinject

package di

import (
	"SentiDash/pkg/config"
	"SentiDash/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,
		ProvideDashboardMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideCSVSeries,
		ProvideSeriesSource,
		ProvideSeriesSink,
		ProvideLedgerStore,
		ProvidePublisher,

		// Use cases
		ProvideRecorder,
		ProvideLoader,
		ProvideModelCache,
		ProvidePipeline,
		ProvideAcquirer,

		// Transport
		ProvideHub,
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
