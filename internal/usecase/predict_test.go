package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
	"FinCast/internal/domain/service"
	"FinCast/internal/notify"
	internalrepo "FinCast/internal/repository"
	"FinCast/internal/services/forecast"
	"FinCast/internal/services/indicators"
	"FinCast/internal/services/market"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/metrics"
)

type stubCandleStore struct {
	series models.PriceSeries
	err    error
}

func (s *stubCandleStore) GetCandles(_ context.Context, _ string, from, to time.Time, _ drepo.Timeframe) (models.PriceSeries, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.series, nil
}

func (s *stubCandleStore) GetLatestNCandles(_ context.Context, _ string, n int, _ drepo.Timeframe) (models.PriceSeries, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.series.Tail(n), nil
}

// stubForecaster forecasts a flat path at a fixed price.
type stubForecaster struct {
	name  string
	price float64
	score float64
	err   error
}

func (f *stubForecaster) Name() string { return f.name }

func (f *stubForecaster) FitAndForecast(_ context.Context, _ *models.FeatureFrame, horizon int) (models.ForecastResult, error) {
	if f.err != nil {
		return models.ForecastResult{}, f.err
	}
	path := make([]float64, horizon)
	for i := range path {
		path[i] = f.price
	}
	return models.ForecastResult{Model: f.name, Path: path, FitScore: f.score, Horizon: horizon}, nil
}

func risingSeries(n int) models.PriceSeries {
	base := time.Now().UTC().Add(-time.Duration(n) * 15 * time.Minute)
	s := make(models.PriceSeries, n)
	for i := range s {
		price := 100 + float64(i)*0.1
		s[i] = models.Candle{
			Timestamp: base.Add(time.Duration(i) * 15 * time.Minute),
			Open:      price, High: price * 1.002, Low: price * 0.998, Close: price,
			Volume: 1000,
		}
	}
	return s
}

func newTestPipeline(store drepo.CandleStore, accuracy drepo.AccuracyStore, forecasters []service.Forecaster) *Pipeline {
	return NewPipeline(
		applogger.Nop(),
		PipelineConfig{Symbol: "BTCUSDT", Timeframe: drepo.TF15m, Horizon: 10, Lookback: 500, NoiseThreshold: 0.001},
		store,
		indicators.NewEngine(indicators.DefaultConfig()),
		forecasters,
		&forecast.Combiner{},
		market.NewDetector(market.DefaultDetectorConfig()),
		market.NewFilter(market.DefaultFilterConfig()),
		accuracy,
		notify.NewLogNotifier(applogger.Nop()),
		metrics.NopRecorder{},
	)
}

func TestPredictProducesSignalAndCondition(t *testing.T) {
	series := risingSeries(300)
	current := series[len(series)-1].Close
	p := newTestPipeline(
		&stubCandleStore{series: series},
		internalrepo.NewMemoryAccuracyStore(),
		[]service.Forecaster{
			&stubForecaster{name: models.ModelLinear, price: current * 1.02, score: 0.9},
			&stubForecaster{name: models.ModelPolynomial, price: current * 1.01, score: 0.6},
		},
	)

	pred, err := p.Predict(context.Background(), "BTCUSDT", 500, drepo.TF15m, 10)
	require.NoError(t, err)

	require.NotNil(t, pred.Ensemble)
	require.NotNil(t, pred.Condition)
	require.NotNil(t, pred.Signal)
	assert.InDelta(t, current, pred.CurrentPrice, 1e-9)
	assert.Len(t, pred.Ensemble.CombinedPath, 10)
	assert.Empty(t, pred.ModelErrors)

	// an upside forecast in an uptrend passes the gate as a BUY
	assert.Equal(t, models.SignalBuy, pred.Signal.Signal)
	assert.Greater(t, pred.Signal.Target, pred.Signal.Entry)
	assert.Less(t, pred.Signal.StopLoss, pred.Signal.Entry)
}

func TestPredictPartialModelFailure(t *testing.T) {
	series := risingSeries(300)
	current := series[len(series)-1].Close
	p := newTestPipeline(
		&stubCandleStore{series: series},
		internalrepo.NewMemoryAccuracyStore(),
		[]service.Forecaster{
			&stubForecaster{name: models.ModelLinear, price: current, score: 0.9},
			&stubForecaster{name: models.ModelFeatures, err: errors.New("fit blew up")},
		},
	)

	pred, err := p.Predict(context.Background(), "BTCUSDT", 500, drepo.TF15m, 10)
	require.NoError(t, err)

	assert.Contains(t, pred.ModelErrors, models.ModelFeatures)
	assert.NotContains(t, pred.Ensemble.Paths, models.ModelFeatures)
	assert.Contains(t, pred.Ensemble.Paths, models.ModelLinear)
}

func TestPredictAllModelsFailed(t *testing.T) {
	p := newTestPipeline(
		&stubCandleStore{series: risingSeries(300)},
		internalrepo.NewMemoryAccuracyStore(),
		[]service.Forecaster{
			&stubForecaster{name: models.ModelLinear, err: errors.New("boom")},
		},
	)

	_, err := p.Predict(context.Background(), "BTCUSDT", 500, drepo.TF15m, 10)
	assert.ErrorIs(t, err, models.ErrModelFit)
}

func TestPredictStorePropagatesError(t *testing.T) {
	p := newTestPipeline(
		&stubCandleStore{err: models.ErrStaleData},
		internalrepo.NewMemoryAccuracyStore(),
		nil,
	)

	_, err := p.Predict(context.Background(), "BTCUSDT", 500, drepo.TF15m, 10)
	assert.ErrorIs(t, err, models.ErrStaleData)
}

func TestRawSignalNoiseBand(t *testing.T) {
	p := newTestPipeline(&stubCandleStore{}, internalrepo.NewMemoryAccuracyStore(), nil)

	hold := p.rawSignal("BTCUSDT", 100, models.EnsembleResult{CombinedPath: []float64{100.05}})
	assert.Equal(t, models.SignalHold, hold.Signal)

	buy := p.rawSignal("BTCUSDT", 100, models.EnsembleResult{CombinedPath: []float64{101}})
	assert.Equal(t, models.SignalBuy, buy.Signal)

	sell := p.rawSignal("BTCUSDT", 100, models.EnsembleResult{CombinedPath: []float64{99}})
	assert.Equal(t, models.SignalSell, sell.Signal)
}

func TestRunCycleRegistersAndSettlesValidations(t *testing.T) {
	ctx := context.Background()
	// stale data timestamps put every registered forecast immediately past due
	series := risingSeries(300)
	shift := 3 * time.Hour
	for i := range series {
		series[i].Timestamp = series[i].Timestamp.Add(-shift)
	}
	current := series[len(series)-1].Close

	accuracy := internalrepo.NewMemoryAccuracyStore()
	p := newTestPipeline(
		&stubCandleStore{series: series},
		accuracy,
		[]service.Forecaster{&stubForecaster{name: models.ModelLinear, price: current * 1.02, score: 0.9}},
	)

	_, err := p.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, p.PendingValidations())

	// horizon is 10 x 15m = 2.5h; the shifted timestamps make the first
	// cycle's forecast due by the second cycle
	_, err = p.RunCycle(ctx)
	require.NoError(t, err)

	summary, err := accuracy.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.TotalValidations)
	assert.Contains(t, summary.AvgErrorPct, models.ModelLinear)
}

func TestSameDirectionConvention(t *testing.T) {
	assert.True(t, sameDirection(1, 2))
	assert.True(t, sameDirection(-1, -3))
	assert.False(t, sameDirection(1, -1))
	// flat moves count as up on both sides
	assert.True(t, sameDirection(0, 0))
	assert.True(t, sameDirection(0, 1))
}

func TestConditionAdHoc(t *testing.T) {
	p := newTestPipeline(&stubCandleStore{series: risingSeries(300)}, internalrepo.NewMemoryAccuracyStore(), nil)

	cond, err := p.Condition(context.Background(), "BTCUSDT", 500, drepo.TF15m)
	require.NoError(t, err)
	assert.NotEmpty(t, cond.Label())
	assert.Equal(t, models.TrendBull, cond.Trend)
}
