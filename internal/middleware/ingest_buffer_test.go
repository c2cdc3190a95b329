package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/pkg/metrics"
)

type recordingWriter struct {
	mu      sync.Mutex
	inserts []models.Candle
	fail    bool
}

func (w *recordingWriter) InsertCandles(_ context.Context, _ string, _ domrepo.Timeframe, candles []models.Candle) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail {
		return errors.New("store unavailable")
	}
	w.inserts = append(w.inserts, candles...)
	return nil
}

func (w *recordingWriter) setFail(fail bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fail = fail
}

func (w *recordingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.inserts)
}

func validCandle() models.SymbolCandle {
	return models.SymbolCandle{
		Symbol: "BTCUSDT",
		Candle: models.Candle{
			Timestamp: time.Now().UTC().Truncate(15 * time.Minute),
			Open:      100, High: 101, Low: 99, Close: 100.5,
			Volume: 12.5,
		},
	}
}

func TestProcessWritesThrough(t *testing.T) {
	w := &recordingWriter{}
	b := NewIngestBuffer(w, metrics.NopRecorder{}, domrepo.TF15m)

	require.NoError(t, b.Process(context.Background(), validCandle()))
	assert.Equal(t, 1, w.count())
}

func TestProcessRejectsInvalidCandles(t *testing.T) {
	w := &recordingWriter{}
	b := NewIngestBuffer(w, metrics.NopRecorder{}, domrepo.TF15m)
	ctx := context.Background()

	missingSymbol := validCandle()
	missingSymbol.Symbol = ""
	assert.Error(t, b.Process(ctx, missingSymbol))

	zeroTime := validCandle()
	zeroTime.Timestamp = time.Time{}
	assert.Error(t, b.Process(ctx, zeroTime))

	inverted := validCandle()
	inverted.High, inverted.Low = 99.0, 101.0
	assert.Error(t, b.Process(ctx, inverted))

	negVolume := validCandle()
	negVolume.Volume = -1
	assert.Error(t, b.Process(ctx, negVolume))

	assert.Zero(t, w.count())
}

func TestProcessBuffersOnWriteFailure(t *testing.T) {
	w := &recordingWriter{}
	w.setFail(true)
	b := NewIngestBuffer(w, metrics.NopRecorder{}, domrepo.TF15m, WithBufferSize(4))

	err := b.Process(context.Background(), validCandle())
	require.Error(t, err)
	assert.Zero(t, w.count())
	assert.Len(t, b.bufCh, 1)
}

func TestStartFlushesBufferedCandlesAfterRecovery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := &recordingWriter{}
	w.setFail(true)
	b := NewIngestBuffer(w, metrics.NopRecorder{}, domrepo.TF15m, WithBufferSize(4))

	require.Error(t, b.Process(ctx, validCandle()))

	w.setFail(false)
	b.Start(ctx)
	defer b.Stop()

	require.Eventually(t, func() bool { return w.count() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestStopIsIdempotent(t *testing.T) {
	b := NewIngestBuffer(&recordingWriter{}, metrics.NopRecorder{}, domrepo.TF15m)
	b.Start(context.Background())
	b.Stop()
	b.Stop()
}
