//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"FinCast/pkg/config"
	"FinCast/pkg/server"
)

// InitializeApp wires the full application graph from configuration.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideClickHouseClient,
		ProvideRedisClient,
		ProvideCandleStore,
		ProvideCandleReader,
		ProvideCandleWriter,
		ProvideAccuracyStore,
		ProvideVersionRegistry,
		ProvideArtifactStore,
		ProvideModelManager,
		ProvideIndicatorEngine,
		ProvideFeatureModel,
		ProvideForecasters,
		ProvideCombiner,
		ProvideDetector,
		ProvideFilter,
		ProvideNotifier,
		ProvidePipeline,
		ProvideRetrainer,
		ProvideMarketStream,
		ProvideIngestBuffer,
		ProvideIngestor,
		ProvideHandler,
		ProvideApp,
	)
	return nil, nil
}
