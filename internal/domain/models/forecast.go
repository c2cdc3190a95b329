package models

// Model names used across forecasting, accuracy tracking and retraining.
const (
	ModelLinear     = "linear"
	ModelPolynomial = "polynomial"
	ModelFeatures   = "ml_features"
)

// ForecastResult is a single model's multi-step price path. Path length
// always equals the requested horizon; FitScore is the in-sample R².
type ForecastResult struct {
	Model    string
	Path     []float64
	FitScore float64
	Horizon  int
}

// EnsembleResult merges several forecast paths into one combined path.
// Weights are non-negative and sum to 1; when every fit score is
// non-positive the weights are uniform.
type EnsembleResult struct {
	CombinedPath []float64
	Paths        map[string][]float64
	Scores       map[string]float64
	Weights      map[string]float64
	Horizon      int
}
