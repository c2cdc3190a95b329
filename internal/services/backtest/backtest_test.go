package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	applogger "FinCast/pkg/logger"
)

func seriesFrom(closes []float64) models.PriceSeries {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s := make(models.PriceSeries, len(closes))
	for i, c := range closes {
		s[i] = models.Candle{
			Timestamp: base.Add(time.Duration(i) * 15 * time.Minute),
			Open:      c, High: c, Low: c, Close: c,
			Volume: 1000,
		}
	}
	return s
}

func lastCloseModel(train models.PriceSeries, _ int) (float64, error) {
	return train[len(train)-1].Close, nil
}

func TestCalculateMetricsFlatSeriesDirectionUndefined(t *testing.T) {
	actuals := []float64{100, 100, 100, 100}
	preds := []float64{100, 100, 100, 100}

	m, err := CalculateMetrics(actuals, preds)
	require.NoError(t, err)

	assert.False(t, m.DirectionDefined)
	assert.Zero(t, m.DirectionSteps)
	assert.Zero(t, m.RMSE)
	assert.Zero(t, m.MAE)
	assert.Equal(t, 4, m.Samples)
}

func TestCalculateMetricsPerfectFit(t *testing.T) {
	actuals := []float64{100, 102, 101, 105, 103}
	preds := []float64{100, 102, 101, 105, 103}

	m, err := CalculateMetrics(actuals, preds)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, m.R2, 1e-9)
	assert.Zero(t, m.RMSE)
	assert.True(t, m.DirectionDefined)
	assert.InDelta(t, 100.0, m.DirectionalAccuracy, 1e-9)
}

func TestCalculateMetricsLengthMismatch(t *testing.T) {
	_, err := CalculateMetrics([]float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestRollingBacktestNaiveModel(t *testing.T) {
	closes := make([]float64, 80)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	r := NewRunner(applogger.Nop(), 1)

	res, err := r.RollingBacktest(context.Background(), seriesFrom(closes), lastCloseModel, 20, 5)
	require.NoError(t, err)

	wantSteps := 80 - 20 - 5
	require.Len(t, res.Predictions, wantSteps)
	require.Len(t, res.Actuals, wantSteps)
	require.Len(t, res.Timestamps, wantSteps)
	assert.Zero(t, res.Failures)
	assert.Equal(t, 15*time.Minute, res.Interval)

	// last-close prediction lags a rising series by the horizon
	for i := range res.Predictions {
		assert.InDelta(t, 5.0, res.Actuals[i]-res.Predictions[i], 1e-9)
	}
}

func TestRollingBacktestInsufficientHistory(t *testing.T) {
	r := NewRunner(applogger.Nop(), 1)
	_, err := r.RollingBacktest(context.Background(), seriesFrom([]float64{1, 2, 3}), lastCloseModel, 20, 5)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestRollingBacktestBadConfig(t *testing.T) {
	r := NewRunner(applogger.Nop(), 1)
	_, err := r.RollingBacktest(context.Background(), seriesFrom([]float64{1, 2, 3}), lastCloseModel, 0, 5)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestRollingBacktestParallelMatchesSerial(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + float64(i%13)
	}
	series := seriesFrom(closes)

	serial, err := NewRunner(applogger.Nop(), 1).RollingBacktest(context.Background(), series, lastCloseModel, 30, 3)
	require.NoError(t, err)
	parallel, err := NewRunner(applogger.Nop(), 4).RollingBacktest(context.Background(), series, lastCloseModel, 30, 3)
	require.NoError(t, err)

	assert.Equal(t, serial.Predictions, parallel.Predictions)
	assert.Equal(t, serial.Actuals, parallel.Actuals)
	assert.Equal(t, serial.Timestamps, parallel.Timestamps)
}

func TestSimulateStrategyAlwaysLongOnRisingSeries(t *testing.T) {
	n := 30
	actuals := make([]float64, n)
	preds := make([]float64, n)
	for i := range actuals {
		actuals[i] = 100 + float64(i)
		preds[i] = actuals[i] * 1.02
	}
	res := &Result{Predictions: preds, Actuals: actuals, Interval: 15 * time.Minute}

	rep, err := SimulateStrategy(res, 0)
	require.NoError(t, err)

	assert.Equal(t, n-1, rep.Trades)
	assert.Equal(t, n-1, rep.LongTrades)
	assert.Zero(t, rep.ShortTrades)
	assert.Greater(t, rep.TotalReturnPct, 0.0)
	assert.InDelta(t, 100.0, rep.WinRatePct, 1e-9)
}

func TestSimulateStrategyTooFewSteps(t *testing.T) {
	res := &Result{Predictions: []float64{1}, Actuals: []float64{1}}
	_, err := SimulateStrategy(res, 0)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestValidateStability(t *testing.T) {
	n := 40
	actuals := make([]float64, n)
	preds := make([]float64, n)
	for i := range actuals {
		actuals[i] = 100 + float64(i)
		preds[i] = actuals[i] + 0.5
	}
	res := &Result{Predictions: preds, Actuals: actuals}

	rep, err := ValidateStability(res, 10)
	require.NoError(t, err)

	assert.Equal(t, n-10+1, rep.Windows)
	assert.Greater(t, rep.MeanRollingR2, 0.9)
	assert.InDelta(t, 0.5, rep.MeanRollingRMSE, 1e-9)
	assert.LessOrEqual(t, rep.MinRollingR2, rep.MaxRollingR2)
}

func TestValidateStabilityInsufficientSteps(t *testing.T) {
	res := &Result{Predictions: make([]float64, 5), Actuals: make([]float64, 5)}
	_, err := ValidateStability(res, 10)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}
