package retrain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
	"FinCast/internal/modelmanager"
	"FinCast/internal/notify"
	internalrepo "FinCast/internal/repository"
	"FinCast/internal/services/forecast"
	"FinCast/internal/services/indicators"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/metrics"
)

type memCandleStore struct {
	series models.PriceSeries
}

func (s *memCandleStore) GetCandles(_ context.Context, _ string, from, to time.Time, _ drepo.Timeframe) (models.PriceSeries, error) {
	var out models.PriceSeries
	for _, c := range s.series {
		if !c.Timestamp.Before(from) && !c.Timestamp.After(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memCandleStore) GetLatestNCandles(_ context.Context, _ string, n int, _ drepo.Timeframe) (models.PriceSeries, error) {
	return s.series.Tail(n), nil
}

func testSeries(n int) models.PriceSeries {
	base := time.Now().UTC().Add(-time.Duration(n) * 15 * time.Minute)
	s := make(models.PriceSeries, n)
	price := 100.0
	for i := range s {
		price *= 1 + 0.0005*float64(i%7-3)
		s[i] = models.Candle{
			Timestamp: base.Add(time.Duration(i) * 15 * time.Minute),
			Open:      price, High: price * 1.002, Low: price * 0.998, Close: price,
			Volume: 1000 + float64(i%11)*40,
		}
	}
	return s
}

func newTestRetrainer(t *testing.T, accuracy drepo.AccuracyStore, candles drepo.CandleStore) (*AutoRetrainer, *modelmanager.Manager) {
	t.Helper()
	manager := modelmanager.New(applogger.Nop(), modelmanager.DefaultConfig(),
		modelmanager.NewMemoryRegistry(), modelmanager.NewMemoryArtifactStore())
	feature := forecast.NewFeatureModel(200, forecast.DefaultForestConfig())
	r := New(applogger.Nop(), Config{
		MinValidations:       10,
		DirAccuracyThreshold: 50,
		ModelErrorThreshold:  5,
		LookbackDays:         30,
		MinTrainingSamples:   200,
		Symbol:               "BTCUSDT",
		Timeframe:            drepo.TF15m,
	}, accuracy, candles, manager, indicators.NewEngine(indicators.DefaultConfig()),
		feature, notify.NewLogNotifier(applogger.Nop()), metrics.NopRecorder{})
	return r, manager
}

func TestCheckRetrainingNeededTooFewValidations(t *testing.T) {
	ctx := context.Background()
	store := internalrepo.NewMemoryAccuracyStore()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, models.ValidationRecord{
			ModelName: models.ModelLinear, ErrorPct: 1, DirectionCorrect: true,
		}))
	}
	r, _ := newTestRetrainer(t, store, &memCandleStore{})

	decision, err := r.CheckRetrainingNeeded(ctx)
	require.NoError(t, err)
	assert.False(t, decision.RetrainNeeded)
	assert.Empty(t, decision.Models)
	require.Len(t, decision.Reasons, 1)
	assert.Contains(t, decision.Reasons[0], "validations")
}

func TestCheckRetrainingNeededLowDirectionalAccuracy(t *testing.T) {
	ctx := context.Background()
	store := internalrepo.NewMemoryAccuracyStore()
	for i := 0; i < 20; i++ {
		require.NoError(t, store.Record(ctx, models.ValidationRecord{
			ModelName:        models.ModelLinear,
			ErrorPct:         1,
			DirectionCorrect: i%4 == 0, // 25% hit rate
		}))
	}
	r, _ := newTestRetrainer(t, store, &memCandleStore{})

	decision, err := r.CheckRetrainingNeeded(ctx)
	require.NoError(t, err)
	assert.True(t, decision.RetrainNeeded)
	assert.Equal(t, []string{models.ModelLinear, models.ModelPolynomial, models.ModelFeatures}, decision.Models)
}

func TestCheckRetrainingNeededPerModelError(t *testing.T) {
	ctx := context.Background()
	store := internalrepo.NewMemoryAccuracyStore()
	for i := 0; i < 20; i++ {
		require.NoError(t, store.Record(ctx, models.ValidationRecord{
			ModelName:        models.ModelPolynomial,
			ErrorPct:         8, // above the 5% threshold
			DirectionCorrect: true,
		}))
	}
	r, manager := newTestRetrainer(t, store, &memCandleStore{})
	_, err := manager.SaveModel(ctx, models.ModelFeatures, []byte("{}"), nil, nil)
	require.NoError(t, err)

	decision, err := r.CheckRetrainingNeeded(ctx)
	require.NoError(t, err)
	assert.True(t, decision.RetrainNeeded)
	assert.Equal(t, []string{models.ModelPolynomial}, decision.Models)
}

func TestCheckRetrainingNeededIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := internalrepo.NewMemoryAccuracyStore()
	for i := 0; i < 20; i++ {
		require.NoError(t, store.Record(ctx, models.ValidationRecord{
			ModelName: models.ModelLinear, ErrorPct: 1, DirectionCorrect: false,
		}))
	}
	r, _ := newTestRetrainer(t, store, &memCandleStore{})

	first, err := r.CheckRetrainingNeeded(ctx)
	require.NoError(t, err)
	second, err := r.CheckRetrainingNeeded(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRetrainModelsTrendModelsAreNoOps(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRetrainer(t, internalrepo.NewMemoryAccuracyStore(), &memCandleStore{series: testSeries(400)})

	results := r.RetrainModels(ctx, []string{models.ModelLinear, models.ModelPolynomial})
	require.Len(t, results, 2)
	assert.NoError(t, results[models.ModelLinear])
	assert.NoError(t, results[models.ModelPolynomial])
}

func TestRetrainFeatureModelPersistsVersion(t *testing.T) {
	ctx := context.Background()
	r, manager := newTestRetrainer(t, internalrepo.NewMemoryAccuracyStore(), &memCandleStore{series: testSeries(600)})

	results := r.RetrainModels(ctx, []string{models.ModelFeatures})
	require.NoError(t, results[models.ModelFeatures])

	blob, v, err := manager.LoadModel(ctx, models.ModelFeatures)
	require.NoError(t, err)
	assert.NotEmpty(t, blob)
	assert.Equal(t, models.ModelFeatures, v.ModelName)

	_, err = forecast.DecodeForest(blob)
	assert.NoError(t, err)
}

func TestRetrainFeatureModelInsufficientSamples(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRetrainer(t, internalrepo.NewMemoryAccuracyStore(), &memCandleStore{series: testSeries(120)})

	results := r.RetrainModels(ctx, []string{models.ModelFeatures})
	assert.ErrorIs(t, results[models.ModelFeatures], models.ErrInsufficientData)
}
