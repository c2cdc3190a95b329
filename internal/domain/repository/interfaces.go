package repository

import (
	"context"

	"FinCast/internal/domain/models"
)

// AccuracyStore is the append-only log of realized prediction outcomes plus
// a readable rolling summary of monotonic counters.
type AccuracyStore interface {
	Record(ctx context.Context, rec models.ValidationRecord) error
	Summary(ctx context.Context) (models.AccuracySummary, error)
}

// ArtifactStore holds model artifact blobs keyed by (model, version).
type ArtifactStore interface {
	Put(ctx context.Context, model, versionID string, blob []byte) (ref string, err error)
	Get(ctx context.Context, model, versionID string) ([]byte, error)
	Delete(ctx context.Context, model, versionID string) error
}

// VersionRegistry is the append-only model version log with a current
// pointer per model name, independent of the physical artifact backend.
type VersionRegistry interface {
	Append(ctx context.Context, v models.ModelVersion) error
	SetCurrent(ctx context.Context, model, versionID string) error
	Current(ctx context.Context, model string) (models.ModelVersion, bool, error)
	Versions(ctx context.Context, model string) ([]models.ModelVersion, error)
	Remove(ctx context.Context, model, versionID string) error
}

// MarketStream is an out-of-band candle feed that keeps the candle store
// fresh; the prediction core only consumes the store.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan models.SymbolCandle, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
}

// Metrics records operational metrics for the pipeline.
type Metrics interface {
	RecordCycle(symbol string, seconds float64)
	RecordFitScore(model string, score float64)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordRetrain(model string, success bool)
}
