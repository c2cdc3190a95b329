package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
)

// IngestBuffer sits between the market stream and the candle store. It
// validates candles, writes them through, and buffers with retry when
// the store is temporarily unavailable so a storage hiccup does not
// lose closed candles.
type IngestBuffer struct {
	writer  domrepo.CandleWriter
	metrics domrepo.Metrics
	tf      domrepo.Timeframe
	bufSize int
	bufCh   chan models.SymbolCandle
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
}

type BufferOption func(*IngestBuffer)

// WithBufferSize sets the buffer capacity used while the store is down.
func WithBufferSize(n int) BufferOption {
	return func(b *IngestBuffer) {
		if n > 0 {
			b.bufSize = n
		}
	}
}

func NewIngestBuffer(writer domrepo.CandleWriter, metrics domrepo.Metrics, tf domrepo.Timeframe, opts ...BufferOption) *IngestBuffer {
	b := &IngestBuffer{
		writer:  writer,
		metrics: metrics,
		tf:      tf,
		bufSize: 1000,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.bufCh = make(chan models.SymbolCandle, b.bufSize)
	return b
}

// Start launches background flushing of buffered candles.
func (b *IngestBuffer) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-b.stopCh:
				return
			case <-ctx.Done():
				return
			case sc := <-b.bufCh:
				err := b.writer.InsertCandles(ctx, sc.Symbol, b.tf, []models.Candle{sc.Candle})
				if err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					b.metrics.RecordError("ingest_flush")
					time.Sleep(backoff)
					select {
					case b.bufCh <- sc:
					default:
						b.metrics.RecordError("ingest_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops background flushing.
func (b *IngestBuffer) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return
	}
	b.started = false
	close(b.stopCh)
}

// Process validates and writes one candle, buffering it on write failure.
func (b *IngestBuffer) Process(ctx context.Context, sc models.SymbolCandle) error {
	if err := validateCandle(sc); err != nil {
		b.metrics.RecordError("ingest_validate")
		return err
	}

	if err := b.writer.InsertCandles(ctx, sc.Symbol, b.tf, []models.Candle{sc.Candle}); err != nil {
		b.metrics.RecordError("ingest_write")
		select {
		case b.bufCh <- sc:
		default:
			b.metrics.RecordError("ingest_buffer_full")
		}
		return fmt.Errorf("candle write: %w", err)
	}
	return nil
}

func validateCandle(sc models.SymbolCandle) error {
	if sc.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if sc.Timestamp.IsZero() {
		return fmt.Errorf("timestamp zero")
	}
	if sc.Open < 0 || sc.High < 0 || sc.Low < 0 || sc.Close < 0 || sc.Volume < 0 {
		return fmt.Errorf("negative price/volume")
	}
	if sc.High < sc.Low {
		return fmt.Errorf("high below low")
	}
	return nil
}
