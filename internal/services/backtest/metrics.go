package backtest

import (
	"fmt"
	"math"

	"FinCast/internal/domain/models"
)

// Metrics is a comprehensive accuracy report over aligned prediction and
// actual series.
type Metrics struct {
	R2                  float64 `json:"r2_score"`
	RMSE                float64 `json:"rmse"`
	MAE                 float64 `json:"mae"`
	MAPE                float64 `json:"mape"`
	DirectionalAccuracy float64 `json:"directional_accuracy"`
	MaxError            float64 `json:"max_error"`
	Samples             int     `json:"n_samples"`

	// DirectionSteps counts the step pairs that entered the directional
	// check. Steps where both sides are flat carry no direction and are
	// excluded; a constant series therefore reports zero steps and
	// DirectionDefined false rather than a fake 100%.
	DirectionSteps   int  `json:"direction_steps"`
	DirectionDefined bool `json:"direction_defined"`
}

// CalculateMetrics derives R², RMSE, MAE, MAPE, directional accuracy and
// max absolute error.
func CalculateMetrics(actuals, predictions []float64) (Metrics, error) {
	if len(actuals) == 0 || len(actuals) != len(predictions) {
		return Metrics{}, fmt.Errorf("%w: %d actuals / %d predictions",
			models.ErrInsufficientData, len(actuals), len(predictions))
	}

	var sumAbs, sumSq, sumPct, maxErr float64
	pctSamples := 0
	for i := range actuals {
		d := math.Abs(actuals[i] - predictions[i])
		sumAbs += d
		sumSq += d * d
		if d > maxErr {
			maxErr = d
		}
		if actuals[i] != 0 {
			sumPct += d / math.Abs(actuals[i])
			pctSamples++
		}
	}
	n := float64(len(actuals))

	m := Metrics{
		R2:       rSquared(actuals, predictions),
		RMSE:     math.Sqrt(sumSq / n),
		MAE:      sumAbs / n,
		MaxError: maxErr,
		Samples:  len(actuals),
	}
	if pctSamples > 0 {
		m.MAPE = sumPct / float64(pctSamples) * 100
	}

	agree := 0
	for i := 1; i < len(actuals); i++ {
		actualDir := sign(actuals[i] - actuals[i-1])
		predDir := sign(predictions[i] - predictions[i-1])
		if actualDir == 0 && predDir == 0 {
			continue
		}
		if actualDir == predDir {
			agree++
		}
		m.DirectionSteps++
	}
	if m.DirectionSteps > 0 {
		m.DirectionDefined = true
		m.DirectionalAccuracy = float64(agree) / float64(m.DirectionSteps) * 100
	}
	return m, nil
}

func rSquared(actual, predicted []float64) float64 {
	mean := 0.0
	for _, v := range actual {
		mean += v
	}
	mean /= float64(len(actual))

	var ssRes, ssTot float64
	for i := range actual {
		d := actual[i] - predicted[i]
		ssRes += d * d
		t := actual[i] - mean
		ssTot += t * t
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
