package usecase

import (
	"context"

	mid "FinCast/internal/middleware"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
	applogger "FinCast/pkg/logger"
)

// CandleIngestor consumes closed candles from the market stream and
// persists them, keeping the candle store fresh for the prediction
// pipeline. The prediction core never reads from the stream directly.
type CandleIngestor struct {
	l       *applogger.Logger
	stream  drepo.MarketStream
	buffer  *mid.IngestBuffer
	metrics drepo.Metrics
}

func NewCandleIngestor(l *applogger.Logger, stream drepo.MarketStream, buffer *mid.IngestBuffer, metrics drepo.Metrics) *CandleIngestor {
	return &CandleIngestor{l: l, stream: stream, buffer: buffer, metrics: metrics}
}

// Start connects, subscribes and begins consuming until ctx ends.
func (c *CandleIngestor) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	c.buffer.Start(ctx)
	go c.consume(ctx)
	return nil
}

func (c *CandleIngestor) consume(ctx context.Context) {
	candles, errs := c.stream.Read(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok || err != nil {
				if err != nil {
					c.l.Warn("market stream error, reconnecting", applogger.Error(err))
					c.metrics.RecordError("stream")
				}
				if !c.reconnect(ctx, &candles, &errs) {
					return
				}
			}
		case sc, ok := <-candles:
			if !ok {
				// channels close together after a read error
				if !c.reconnect(ctx, &candles, &errs) {
					return
				}
				continue
			}
			if err := c.buffer.Process(ctx, sc); err != nil {
				c.l.Error("candle ingest failed",
					applogger.String("symbol", sc.Symbol),
					applogger.Error(err))
				continue
			}
			c.metrics.RecordLastPrice(sc.Symbol, sc.Close)
		}
	}
}

// reconnect re-establishes the stream and swaps in fresh channels.
func (c *CandleIngestor) reconnect(ctx context.Context, candles *<-chan models.SymbolCandle, errs *<-chan error) bool {
	if ctx.Err() != nil {
		return false
	}
	if err := c.stream.Reconnect(ctx); err != nil {
		c.l.Error("market stream reconnect failed", applogger.Error(err))
		return false
	}
	*candles, *errs = c.stream.Read(ctx)
	return true
}

// Stop closes the stream and drains the buffer.
func (c *CandleIngestor) Stop() error {
	c.buffer.Stop()
	return c.stream.Close()
}
