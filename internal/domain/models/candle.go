package models

import (
	"fmt"
	"time"
)

// Candle represents a single OHLCV record.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// SymbolCandle pairs a candle with its symbol for stream transport.
type SymbolCandle struct {
	Symbol string
	Candle
}

// PriceSeries is an ordered sequence of candles with strictly increasing
// timestamps. It is immutable once fetched; the pipeline never mutates it.
type PriceSeries []Candle

// Validate checks ordering and duplicate timestamps.
func (s PriceSeries) Validate() error {
	for i := 1; i < len(s); i++ {
		if !s[i].Timestamp.After(s[i-1].Timestamp) {
			return fmt.Errorf("%w: timestamp at index %d (%s) not after previous (%s)",
				ErrInsufficientData, i, s[i].Timestamp, s[i-1].Timestamp)
		}
	}
	return nil
}

// Closes returns the close column.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

// Volumes returns the volume column.
func (s PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Volume
	}
	return out
}

// LastClose returns the most recent close price, or an error for an empty series.
func (s PriceSeries) LastClose() (float64, error) {
	if len(s) == 0 {
		return 0, fmt.Errorf("%w: empty price series", ErrInsufficientData)
	}
	return s[len(s)-1].Close, nil
}

// Tail returns the trailing n candles (the whole series when shorter).
func (s PriceSeries) Tail(n int) PriceSeries {
	if n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}

// Interval returns the sampling interval inferred from the first two candles.
// Falls back to one minute for series too short to infer from.
func (s PriceSeries) Interval() time.Duration {
	if len(s) < 2 {
		return time.Minute
	}
	return s[1].Timestamp.Sub(s[0].Timestamp)
}
