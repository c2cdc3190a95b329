package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"FinCast/internal/domain/models"
)

// FeatureColumns is the indicator vector the feature model consumes, in
// input order. The current close is prepended as feature zero so the
// iterative forecast can feed each predicted price back in.
var FeatureColumns = []string{
	models.FeatSMA5, models.FeatSMA10, models.FeatSMA20,
	models.FeatEMA5, models.FeatEMA10,
	models.FeatRSI, models.FeatMACD, models.FeatMACDHist,
	models.FeatMomentum, models.FeatVolatility, models.FeatVolumeRatio,
}

// FeatureModel trains a random forest on the indicator feature vector with
// the next-period close as target, then forecasts iteratively.
//
// Multi-step forecasting follows a held-constant auxiliary features policy:
// each step's predicted close replaces the current price input, while every
// indicator feature stays frozen at its last observed value instead of
// being re-simulated. This is a known approximation that drifts over long
// horizons; it is deliberate, not hidden.
type FeatureModel struct {
	window int
	cfg    ForestConfig

	// pretrained, when set, is used instead of fitting at predict time
	// (loaded from a persisted artifact by the model manager). The
	// retrainer swaps it while inference reads it, so access goes
	// through the mutex.
	mu         sync.RWMutex
	pretrained *Forest
}

func NewFeatureModel(window int, cfg ForestConfig) *FeatureModel {
	return &FeatureModel{window: window, cfg: cfg}
}

func (m *FeatureModel) Name() string { return models.ModelFeatures }

// UsePretrained installs a persisted forest for inference.
func (m *FeatureModel) UsePretrained(f *Forest) {
	m.mu.Lock()
	m.pretrained = f
	m.mu.Unlock()
}

func (m *FeatureModel) loadPretrained() *Forest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pretrained
}

// TrainingSet extracts (X, y) pairs from the frame's trailing window,
// dropping rows where any feature is undefined. X rows are
// [close, indicators...]; y is the next row's close.
func (m *FeatureModel) TrainingSet(frame *models.FeatureFrame) ([][]float64, []float64, error) {
	return trainingSet(frame, m.window)
}

func trainingSet(frame *models.FeatureFrame, window int) ([][]float64, []float64, error) {
	n := frame.Len()
	if n < 2 {
		return nil, nil, fmt.Errorf("%w: %d rows", models.ErrInsufficientData, n)
	}
	start := 0
	if window > 0 && n > window {
		start = n - window
	}

	var X [][]float64
	var y []float64
	for i := start; i < n-1; i++ {
		vec, ok := frame.FeatureVector(i, FeatureColumns)
		if !ok {
			continue
		}
		row := append([]float64{frame.Series[i].Close}, vec...)
		X = append(X, row)
		y = append(y, frame.Series[i+1].Close)
	}
	if len(X) == 0 {
		return nil, nil, fmt.Errorf("%w: no rows with a fully defined feature vector", models.ErrInsufficientData)
	}
	return X, y, nil
}

func (m *FeatureModel) FitAndForecast(ctx context.Context, frame *models.FeatureFrame, horizon int) (models.ForecastResult, error) {
	if horizon < 1 {
		return models.ForecastResult{}, fmt.Errorf("%w: horizon %d", models.ErrModelFit, horizon)
	}

	X, y, err := m.TrainingSet(frame)
	if err != nil {
		return models.ForecastResult{}, fmt.Errorf("%s: %w", m.Name(), err)
	}

	forest := m.loadPretrained()
	if forest == nil {
		forest, err = TrainForest(X, y, m.cfg)
		if err != nil {
			return models.ForecastResult{}, fmt.Errorf("%s: %w", m.Name(), err)
		}
	}
	score := forest.Score(X, y)

	last := frame.Len() - 1
	vec, ok := frame.FeatureVector(last, FeatureColumns)
	if !ok {
		return models.ForecastResult{}, fmt.Errorf("%w: %s latest row has undefined features", models.ErrInsufficientData, m.Name())
	}

	// iterative forecast: only feature zero (current close) is updated
	current := append([]float64{frame.Series[last].Close}, vec...)
	path := make([]float64, horizon)
	for step := 0; step < horizon; step++ {
		select {
		case <-ctx.Done():
			return models.ForecastResult{}, ctx.Err()
		default:
		}
		pred := forest.Predict(current)
		path[step] = pred
		current[0] = pred
	}

	return models.ForecastResult{Model: m.Name(), Path: path, FitScore: score, Horizon: horizon}, nil
}

// Train fits a forest for persistence without forecasting; the retrainer
// uses this path. It trains over the whole frame, not the inference
// window; the caller bounds the history it passes in.
func (m *FeatureModel) Train(frame *models.FeatureFrame, cfg ForestConfig) (*Forest, map[string]float64, error) {
	X, y, err := trainingSet(frame, 0)
	if err != nil {
		return nil, nil, err
	}
	forest, err := TrainForest(X, y, cfg)
	if err != nil {
		return nil, nil, err
	}
	metrics := map[string]float64{
		"train_r2_score": forest.Score(X, y),
		"n_samples":      float64(len(X)),
		"n_features":     float64(len(X[0])),
	}
	return forest, metrics, nil
}

// EncodeForest serializes a trained forest for the artifact store.
func EncodeForest(f *Forest) ([]byte, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("%w: encode forest: %v", models.ErrArtifactIO, err)
	}
	return b, nil
}

// DecodeForest restores a forest from artifact bytes.
func DecodeForest(b []byte) (*Forest, error) {
	var f Forest
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("%w: decode forest: %v", models.ErrArtifactIO, err)
	}
	return &f, nil
}
