package repository

import (
	"context"
	"time"

	"FinCast/internal/domain/models"
)

// Timeframe represents candle resolution buckets.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
)

// Duration returns the bucket width.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF1m:
		return time.Minute
	case TF5m:
		return 5 * time.Minute
	case TF15m:
		return 15 * time.Minute
	case TF1h:
		return time.Hour
	case TF4h:
		return 4 * time.Hour
	default:
		return time.Minute
	}
}

// CandleStore provides read access to historical candles. Implementations
// must return strictly increasing timestamps and reject series that fail
// the freshness check rather than silently truncating them.
type CandleStore interface {
	GetCandles(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) (models.PriceSeries, error)
	GetLatestNCandles(ctx context.Context, symbol string, n int, tf Timeframe) (models.PriceSeries, error)
}

// CandleWriter ingests candles from a market stream.
type CandleWriter interface {
	InsertCandles(ctx context.Context, symbol string, tf Timeframe, candles []models.Candle) error
}
