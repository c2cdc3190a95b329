package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	pkgch "FinCast/pkg/clickhouse"
	applogger "FinCast/pkg/logger"
	xutil "FinCast/pkg/util"
)

// CHCandleStore implements CandleStore and CandleWriter backed by a
// single ClickHouse candles table partitioned by symbol and timeframe.
type CHCandleStore struct {
	db           *sql.DB
	l            *applogger.Logger
	table        string
	minPoints    int
	maxStaleness time.Duration
}

// CHCandleStoreOption configures CHCandleStore.
type CHCandleStoreOption func(*CHCandleStore)

// WithTable overrides the candles table name.
func WithTable(table string) CHCandleStoreOption {
	return func(s *CHCandleStore) { s.table = table }
}

// WithMinPoints sets the minimum series length accepted by reads.
func WithMinPoints(n int) CHCandleStoreOption {
	return func(s *CHCandleStore) { s.minPoints = n }
}

// WithMaxStaleness sets the freshness window for the newest candle.
func WithMaxStaleness(d time.Duration) CHCandleStoreOption {
	return func(s *CHCandleStore) { s.maxStaleness = d }
}

func NewCHCandleStore(ch *pkgch.Client, l *applogger.Logger, opts ...CHCandleStoreOption) *CHCandleStore {
	s := &CHCandleStore{
		db:           ch.DB(),
		l:            l,
		table:        "candles",
		minPoints:    100,
		maxStaleness: 60 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schema returns idempotent DDL for the candles table.
func (s *CHCandleStore) Schema() []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            symbol LowCardinality(String),
            tf     LowCardinality(String),
            ts     DateTime64(3, 'UTC'),
            open   Float64,
            high   Float64,
            low    Float64,
            close  Float64,
            vol    Float64
        )
        ENGINE = ReplacingMergeTree
        PARTITION BY toYYYYMM(ts)
        ORDER BY (symbol, tf, ts)
    `, s.table)}
}

func (s *CHCandleStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) (models.PriceSeries, error) {
	start := time.Now()
	const qtpl = `
        SELECT ts, open, high, low, close, vol
        FROM %s
        WHERE symbol = ? AND tf = ? AND ts >= ? AND ts <= ?
        ORDER BY ts ASC
    `
	q := fmt.Sprintf(qtpl, s.table)
	from, to = xutil.AlignFromTo(from, to, tf.Duration())
	rows, err := s.db.QueryContext(ctx, q, symbol, string(tf), from, to)
	if err != nil {
		s.l.Error("clickhouse get_candles query error",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("get candles: %w", err)
	}
	defer rows.Close()

	series, err := s.scanSeries(rows)
	if err != nil {
		return nil, err
	}

	if err := s.checkSeries(symbol, tf, series); err != nil {
		return nil, err
	}

	s.l.Debug("clickhouse get_candles ok",
		applogger.String("symbol", symbol),
		applogger.String("tf", string(tf)),
		applogger.Int("rows", len(series)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return series, nil
}

func (s *CHCandleStore) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) (models.PriceSeries, error) {
	start := time.Now()
	const qtpl = `
        SELECT ts, open, high, low, close, vol
        FROM (
            SELECT ts, open, high, low, close, vol
            FROM %s
            WHERE symbol = ? AND tf = ?
            ORDER BY ts DESC
            LIMIT ?
        )
        ORDER BY ts ASC
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, string(tf), n)
	if err != nil {
		s.l.Error("clickhouse latest_candles query error",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Int("limit", n),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	defer rows.Close()

	series, err := s.scanSeries(rows)
	if err != nil {
		return nil, err
	}

	if err := s.checkSeries(symbol, tf, series); err != nil {
		return nil, err
	}

	s.l.Debug("clickhouse latest_candles ok",
		applogger.String("symbol", symbol),
		applogger.String("tf", string(tf)),
		applogger.Int("rows", len(series)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return series, nil
}

func (s *CHCandleStore) InsertCandles(ctx context.Context, symbol string, tf domrepo.Timeframe, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}

	q := fmt.Sprintf(
		"INSERT INTO %s (symbol, tf, ts, open, high, low, close, vol) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		s.table,
	)
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, symbol, string(tf), c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert candle: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}

	s.l.Debug("clickhouse candles inserted",
		applogger.String("symbol", symbol),
		applogger.String("tf", string(tf)),
		applogger.Int("rows", len(candles)),
	)
	return nil
}

func (s *CHCandleStore) scanSeries(rows *sql.Rows) (models.PriceSeries, error) {
	out := make(models.PriceSeries, 0, 1024)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// checkSeries enforces length, ordering and freshness before the series
// reaches the pipeline.
func (s *CHCandleStore) checkSeries(symbol string, tf domrepo.Timeframe, series models.PriceSeries) error {
	if len(series) < s.minPoints {
		return fmt.Errorf("%w: got %d candles for %s/%s, need %d",
			models.ErrInsufficientData, len(series), symbol, tf, s.minPoints)
	}
	if err := series.Validate(); err != nil {
		return err
	}
	if s.maxStaleness > 0 {
		newest := series[len(series)-1].Timestamp
		if age := time.Since(newest); age > s.maxStaleness+tf.Duration() {
			return fmt.Errorf("%w: newest candle for %s/%s is %s old",
				models.ErrStaleData, symbol, tf, age.Round(time.Second))
		}
	}
	return nil
}
