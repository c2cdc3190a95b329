package di

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"FinCast/internal/domain/models"
	"FinCast/internal/domain/repository"
	"FinCast/internal/domain/service"
	"FinCast/internal/handler/api"
	mid "FinCast/internal/middleware"
	"FinCast/internal/modelmanager"
	"FinCast/internal/notify"
	internalrepo "FinCast/internal/repository"
	"FinCast/internal/retrain"
	"FinCast/internal/services/binance"
	"FinCast/internal/services/forecast"
	"FinCast/internal/services/indicators"
	"FinCast/internal/services/market"
	"FinCast/internal/usecase"
	pkgch "FinCast/pkg/clickhouse"
	"FinCast/pkg/config"
	xhttp "FinCast/pkg/http"
	pkgkafka "FinCast/pkg/kafka"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/metrics"
	"FinCast/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
}

// ProvideMetrics creates the Prometheus recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates the ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	l.Info("clickhouse connected",
		applogger.String("host", cfg.ClickHouse.Host),
		applogger.Int("port", cfg.ClickHouse.Port))
	return client, nil
}

// ProvideRedisClient creates the Redis client.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideCandleStore creates the ClickHouse candle store and ensures its
// schema exists.
func ProvideCandleStore(ch *pkgch.Client, l *applogger.Logger, cfg *config.Config) (*internalrepo.CHCandleStore, error) {
	store := internalrepo.NewCHCandleStore(ch, l,
		internalrepo.WithTable(cfg.ClickHouse.CandlesTable),
		internalrepo.WithMinPoints(cfg.Pipeline.MinDataPoints),
		internalrepo.WithMaxStaleness(cfg.Pipeline.MaxStaleness),
	)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ClickHouse.DialTimeout)
	defer cancel()
	if err := ch.InitSchema(ctx, store.Schema()); err != nil {
		return nil, fmt.Errorf("candle store schema: %w", err)
	}
	return store, nil
}

// ProvideCandleReader exposes the candle store read interface.
func ProvideCandleReader(s *internalrepo.CHCandleStore) repository.CandleStore {
	return s
}

// ProvideCandleWriter exposes the candle store write interface.
func ProvideCandleWriter(s *internalrepo.CHCandleStore) repository.CandleWriter {
	return s
}

// ProvideAccuracyStore creates the Redis-backed accuracy store.
func ProvideAccuracyStore(rdb *redis.Client, l *applogger.Logger) repository.AccuracyStore {
	return internalrepo.NewRedisAccuracyStore(rdb, l)
}

// ProvideVersionRegistry creates the file-backed model version registry.
func ProvideVersionRegistry(cfg *config.Config) (repository.VersionRegistry, error) {
	return modelmanager.NewFileRegistry(filepath.Join(cfg.Models.Dir, "registry.json"))
}

// ProvideArtifactStore creates the filesystem artifact store.
func ProvideArtifactStore(cfg *config.Config) repository.ArtifactStore {
	return modelmanager.NewFSArtifactStore(cfg.Models.Dir)
}

// ProvideModelManager creates the model lifecycle manager.
func ProvideModelManager(l *applogger.Logger, cfg *config.Config, registry repository.VersionRegistry, artifacts repository.ArtifactStore) *modelmanager.Manager {
	return modelmanager.New(l, modelmanager.Config{
		MaxAgeDays:        cfg.Models.MaxAgeDays,
		AccuracyThreshold: cfg.Models.AccuracyThreshold,
		KeepVersions:      cfg.Models.KeepVersions,
	}, registry, artifacts)
}

// ProvideIndicatorEngine creates the indicator engine.
func ProvideIndicatorEngine() *indicators.Engine {
	return indicators.NewEngine(indicators.DefaultConfig())
}

// ProvideFeatureModel creates the feature model and installs the current
// persisted forest when one exists.
func ProvideFeatureModel(cfg *config.Config, manager *modelmanager.Manager, l *applogger.Logger) *forecast.FeatureModel {
	model := forecast.NewFeatureModel(cfg.Forecast.FeatureWindow, forecast.ForestConfig{
		NEstimators:     cfg.Forecast.Forest.NEstimators,
		MaxDepth:        cfg.Forecast.Forest.MaxDepth,
		MinSamplesSplit: cfg.Forecast.Forest.MinSamplesSplit,
		MinSamplesLeaf:  cfg.Forecast.Forest.MinSamplesLeaf,
		Seed:            cfg.Forecast.Forest.Seed,
	})

	blob, version, err := manager.LoadModel(context.Background(), models.ModelFeatures)
	if err != nil {
		l.Info("no persisted feature model, training from scratch on first cycle")
		return model
	}
	f, err := forecast.DecodeForest(blob)
	if err != nil {
		l.Warn("persisted feature model unreadable", applogger.Error(err))
		return model
	}
	model.UsePretrained(f)
	l.Info("loaded persisted feature model",
		applogger.String("version", version.VersionID),
		applogger.String("trained_at", version.CreatedAt.Format("2006-01-02 15:04:05")))
	return model
}

// ProvideForecasters assembles the model ensemble.
func ProvideForecasters(cfg *config.Config, feature *forecast.FeatureModel) []service.Forecaster {
	return []service.Forecaster{
		forecast.NewLinearModel(cfg.Forecast.LinearWindow),
		forecast.NewPolynomialModel(cfg.Forecast.PolynomialWindow, cfg.Forecast.PolynomialDegree),
		feature,
	}
}

// ProvideCombiner creates the ensemble combiner.
func ProvideCombiner(cfg *config.Config) *forecast.Combiner {
	return &forecast.Combiner{ManualWeights: cfg.Forecast.Weights}
}

// ProvideDetector creates the market condition detector.
func ProvideDetector() *market.Detector {
	return market.NewDetector(market.DefaultDetectorConfig())
}

// ProvideFilter creates the signal filter.
func ProvideFilter() *market.Filter {
	return market.NewFilter(market.DefaultFilterConfig())
}

// ProvideNotifier creates the signal notifier. With Kafka enabled it
// publishes to the configured topic, otherwise notifications go to the log.
func ProvideNotifier(cfg *config.Config, l *applogger.Logger) (service.Notifier, error) {
	if !cfg.Kafka.Enabled {
		return notify.NewLogNotifier(l), nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, 0),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return notify.NewKafkaNotifier(l, producer, cfg.Kafka.Topic), nil
}

// ProvidePipeline creates the prediction pipeline.
func ProvidePipeline(
	l *applogger.Logger,
	cfg *config.Config,
	candles repository.CandleStore,
	engine *indicators.Engine,
	forecasters []service.Forecaster,
	combiner *forecast.Combiner,
	detector *market.Detector,
	filter *market.Filter,
	accuracy repository.AccuracyStore,
	notifier service.Notifier,
	rec repository.Metrics,
) *usecase.Pipeline {
	return usecase.NewPipeline(l, usecase.PipelineConfig{
		Symbol:         cfg.Pipeline.Symbol,
		Timeframe:      repository.NormalizeTimeframe(cfg.Pipeline.Timeframe),
		Horizon:        cfg.Pipeline.Horizon,
		Lookback:       cfg.Pipeline.Lookback,
		NoiseThreshold: cfg.Pipeline.NoiseThreshold,
	}, candles, engine, forecasters, combiner, detector, filter, accuracy, notifier, rec)
}

// ProvideRetrainer creates the auto retrainer.
func ProvideRetrainer(
	l *applogger.Logger,
	cfg *config.Config,
	accuracy repository.AccuracyStore,
	candles repository.CandleStore,
	manager *modelmanager.Manager,
	engine *indicators.Engine,
	feature *forecast.FeatureModel,
	notifier service.Notifier,
	rec repository.Metrics,
) *retrain.AutoRetrainer {
	return retrain.New(l, retrain.Config{
		MinValidations:       cfg.Retrain.MinValidations,
		DirAccuracyThreshold: cfg.Retrain.DirAccuracyThreshold,
		ModelErrorThreshold:  cfg.Retrain.ModelErrorThreshold,
		LookbackDays:         cfg.Retrain.LookbackDays,
		MinTrainingSamples:   cfg.Retrain.MinTrainingSamples,
		Symbol:               cfg.Pipeline.Symbol,
		Timeframe:            repository.NormalizeTimeframe(cfg.Pipeline.Timeframe),
	}, accuracy, candles, manager, engine, feature, notifier, rec)
}

// ProvideMarketStream creates the Binance websocket stream.
func ProvideMarketStream(cfg *config.Config, l *applogger.Logger) repository.MarketStream {
	symbols := cfg.Binance.Symbols
	if len(symbols) == 0 {
		symbols = []string{cfg.Pipeline.Symbol}
	}
	return binance.New(l,
		cfg.Binance.WebSocketURL,
		symbols,
		repository.NormalizeTimeframe(cfg.Pipeline.Timeframe),
		cfg.Binance.ReconnectDelay,
		cfg.Binance.PingInterval,
	)
}

// ProvideIngestBuffer creates the write-through candle buffer.
func ProvideIngestBuffer(writer repository.CandleWriter, rec repository.Metrics, cfg *config.Config) *mid.IngestBuffer {
	return mid.NewIngestBuffer(writer, rec, repository.NormalizeTimeframe(cfg.Pipeline.Timeframe))
}

// ProvideIngestor creates the candle ingestion loop.
func ProvideIngestor(l *applogger.Logger, stream repository.MarketStream, buffer *mid.IngestBuffer, rec repository.Metrics) *usecase.CandleIngestor {
	return usecase.NewCandleIngestor(l, stream, buffer, rec)
}

// ProvideHandler creates the HTTP API handler.
func ProvideHandler(l *applogger.Logger, pipeline *usecase.Pipeline, manager *modelmanager.Manager, retrainer *retrain.AutoRetrainer) xhttp.Handler {
	return api.NewForecastHandler(l, pipeline, manager, retrainer)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	ingestor *usecase.CandleIngestor,
	pipeline *usecase.Pipeline,
	retrainer *retrain.AutoRetrainer,
	handler xhttp.Handler,
	notifier service.Notifier,
	chClient *pkgch.Client,
	redisClient *redis.Client,
) *server.App {
	return server.New(cfg, l, ingestor, pipeline, retrainer, handler, notifier, chClient, redisClient)
}
