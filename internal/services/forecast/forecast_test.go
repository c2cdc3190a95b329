package forecast

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	"FinCast/internal/services/indicators"
)

func frameFrom(t *testing.T, closes []float64) *models.FeatureFrame {
	t.Helper()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	series := make(models.PriceSeries, len(closes))
	for i, c := range closes {
		series[i] = models.Candle{
			Timestamp: base.Add(time.Duration(i) * 15 * time.Minute),
			Open:      c,
			High:      c * 1.01,
			Low:       c * 0.99,
			Close:     c,
			Volume:    1000 + float64(i%7)*50,
		}
	}
	engine := indicators.NewEngine(indicators.DefaultConfig())
	frame, err := engine.Compute(series)
	require.NoError(t, err)
	return frame
}

func linearCloses(n int, start, slope float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + slope*float64(i)
	}
	return out
}

func TestLinearModelOnLinearSeries(t *testing.T) {
	frame := frameFrom(t, linearCloses(120, 100, 0.5))
	m := NewLinearModel(100)

	res, err := m.FitAndForecast(context.Background(), frame, 10)
	require.NoError(t, err)
	require.Len(t, res.Path, 10)

	assert.InDelta(t, 1.0, res.FitScore, 1e-9)
	// last close is 159.5, slope 0.5 per step
	assert.InDelta(t, 160.0, res.Path[0], 1e-6)
	assert.InDelta(t, 164.5, res.Path[9], 1e-6)
}

func TestPolynomialModelCapturesCurvature(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		x := float64(i)
		closes[i] = 100 + 0.01*x*x
	}
	frame := frameFrom(t, closes)

	lin, err := NewLinearModel(100).FitAndForecast(context.Background(), frame, 5)
	require.NoError(t, err)
	poly, err := NewPolynomialModel(100, 2).FitAndForecast(context.Background(), frame, 5)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, poly.FitScore, 1e-9)
	assert.Greater(t, poly.FitScore, lin.FitScore)
}

func TestTrendForecastInsufficientData(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	series := models.PriceSeries{
		{Timestamp: base, Close: 100},
		{Timestamp: base.Add(15 * time.Minute), Close: 101},
	}
	frame := models.NewFeatureFrame(series)

	_, err := NewPolynomialModel(100, 2).FitAndForecast(context.Background(), frame, 5)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestCombinerWeightsProportionalToScores(t *testing.T) {
	c := &Combiner{}
	res, err := c.Combine([]models.ForecastResult{
		{Model: models.ModelLinear, Path: []float64{100, 100}, FitScore: 0.9, Horizon: 2},
		{Model: models.ModelPolynomial, Path: []float64{200, 200}, FitScore: 0.3, Horizon: 2},
	})
	require.NoError(t, err)

	sum := 0.0
	for _, w := range res.Weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.InDelta(t, 0.75, res.Weights[models.ModelLinear], 1e-9)
	assert.InDelta(t, 0.25, res.Weights[models.ModelPolynomial], 1e-9)
	assert.InDelta(t, 125.0, res.CombinedPath[0], 1e-9)
}

func TestCombinerUniformWhenNoPositiveScore(t *testing.T) {
	c := &Combiner{}
	res, err := c.Combine([]models.ForecastResult{
		{Model: models.ModelLinear, Path: []float64{100}, FitScore: -0.2, Horizon: 1},
		{Model: models.ModelPolynomial, Path: []float64{200}, FitScore: 0, Horizon: 1},
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.5, res.Weights[models.ModelLinear], 1e-9)
	assert.InDelta(t, 0.5, res.Weights[models.ModelPolynomial], 1e-9)
	assert.InDelta(t, 150.0, res.CombinedPath[0], 1e-9)
}

func TestCombinerManualWeightsOverrideScores(t *testing.T) {
	c := &Combiner{ManualWeights: map[string]float64{
		models.ModelLinear:     1,
		models.ModelPolynomial: 3,
	}}
	res, err := c.Combine([]models.ForecastResult{
		{Model: models.ModelLinear, Path: []float64{100}, FitScore: 0.99, Horizon: 1},
		{Model: models.ModelPolynomial, Path: []float64{200}, FitScore: 0.01, Horizon: 1},
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.25, res.Weights[models.ModelLinear], 1e-9)
	assert.InDelta(t, 0.75, res.Weights[models.ModelPolynomial], 1e-9)
	assert.InDelta(t, 175.0, res.CombinedPath[0], 1e-9)
}

func TestCombinerManualWeightsIgnoredWhenNoMass(t *testing.T) {
	// pinned weights that cover none of the models fall back to scores
	c := &Combiner{ManualWeights: map[string]float64{"other": 1}}
	res, err := c.Combine([]models.ForecastResult{
		{Model: models.ModelLinear, Path: []float64{100}, FitScore: 0.9, Horizon: 1},
		{Model: models.ModelPolynomial, Path: []float64{200}, FitScore: 0.3, Horizon: 1},
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.75, res.Weights[models.ModelLinear], 1e-9)
}

func TestCombinerRejectsMismatchedHorizons(t *testing.T) {
	c := &Combiner{}
	_, err := c.Combine([]models.ForecastResult{
		{Model: models.ModelLinear, Path: []float64{1, 2}, FitScore: 0.5, Horizon: 2},
		{Model: models.ModelPolynomial, Path: []float64{1}, FitScore: 0.5, Horizon: 1},
	})
	assert.ErrorIs(t, err, models.ErrModelFit)
}

func TestCombinerEmptyInput(t *testing.T) {
	c := &Combiner{}
	_, err := c.Combine(nil)
	assert.ErrorIs(t, err, models.ErrModelFit)
}

func TestForestTrainPredictDeterministic(t *testing.T) {
	// y = 2*x0 + x1 with a fixed seed; two runs must agree exactly
	n := 300
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x0 := float64(i % 17)
		x1 := float64(i % 5)
		X[i] = []float64{x0, x1}
		y[i] = 2*x0 + x1
	}

	cfg := DefaultForestConfig()
	f1, err := TrainForest(X, y, cfg)
	require.NoError(t, err)
	f2, err := TrainForest(X, y, cfg)
	require.NoError(t, err)

	probe := []float64{8, 3}
	assert.Equal(t, f1.Predict(probe), f2.Predict(probe))
	assert.InDelta(t, 19.0, f1.Predict(probe), 3.0)
	assert.Greater(t, f1.Score(X, y), 0.8)
}

func TestForestEncodeDecodeRoundTrip(t *testing.T) {
	n := 120
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		X[i] = []float64{float64(i), float64(i % 3)}
		y[i] = float64(i) * 1.5
	}
	f, err := TrainForest(X, y, DefaultForestConfig())
	require.NoError(t, err)

	blob, err := EncodeForest(f)
	require.NoError(t, err)
	restored, err := DecodeForest(blob)
	require.NoError(t, err)

	probe := []float64{60, 1}
	assert.Equal(t, f.Predict(probe), restored.Predict(probe))
}

func TestFeatureModelForecast(t *testing.T) {
	frame := frameFrom(t, linearCloses(400, 100, 0.25))
	m := NewFeatureModel(200, DefaultForestConfig())

	res, err := m.FitAndForecast(context.Background(), frame, 5)
	require.NoError(t, err)
	require.Len(t, res.Path, 5)
	assert.Equal(t, models.ModelFeatures, res.Model)
	for _, v := range res.Path {
		assert.Greater(t, v, 0.0)
	}
}

func TestFeatureModelInsufficientRows(t *testing.T) {
	frame := frameFrom(t, linearCloses(12, 100, 0.25))
	m := NewFeatureModel(200, DefaultForestConfig())

	_, err := m.FitAndForecast(context.Background(), frame, 5)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestFeatureModelPretrainedSwapDuringForecast(t *testing.T) {
	frame := frameFrom(t, linearCloses(400, 100, 0.5))
	model := NewFeatureModel(200, DefaultForestConfig())

	X, y, err := model.TrainingSet(frame)
	require.NoError(t, err)
	forest, err := TrainForest(X, y, DefaultForestConfig())
	require.NoError(t, err)

	// one goroutine swaps the installed forest while another runs
	// inference; forecasts must stay error-free throughout
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			model.UsePretrained(forest)
			model.UsePretrained(nil)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			_, ferr := model.FitAndForecast(context.Background(), frame, 2)
			assert.NoError(t, ferr)
		}
	}()
	wg.Wait()
}
