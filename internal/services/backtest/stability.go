package backtest

import (
	"fmt"
	"math"

	"FinCast/internal/domain/models"
)

// StabilityReport characterizes how a model's performance varies over
// time, not just its average: rolling R² and RMSE over trailing
// sub-windows of the backtest.
type StabilityReport struct {
	MeanRollingR2   float64 `json:"mean_rolling_r2"`
	StdRollingR2    float64 `json:"std_rolling_r2"`
	MinRollingR2    float64 `json:"min_rolling_r2"`
	MaxRollingR2    float64 `json:"max_rolling_r2"`
	MeanRollingRMSE float64 `json:"mean_rolling_rmse"`
	StdRollingRMSE  float64 `json:"std_rolling_rmse"`
	Windows         int     `json:"windows"`
}

// ValidateStability recomputes R²/RMSE over each trailing sub-window of
// the given size.
func ValidateStability(res *Result, window int) (StabilityReport, error) {
	if window < 2 {
		return StabilityReport{}, fmt.Errorf("%w: stability window %d", models.ErrConfiguration, window)
	}
	if len(res.Predictions) <= window {
		return StabilityReport{}, fmt.Errorf("%w: %d backtest steps for stability window %d",
			models.ErrInsufficientData, len(res.Predictions), window)
	}

	var r2s, rmses []float64
	for i := window; i <= len(res.Predictions); i++ {
		actuals := res.Actuals[i-window : i]
		preds := res.Predictions[i-window : i]

		r2s = append(r2s, rSquared(actuals, preds))
		var sumSq float64
		for j := range actuals {
			d := actuals[j] - preds[j]
			sumSq += d * d
		}
		rmses = append(rmses, math.Sqrt(sumSq/float64(window)))
	}

	r2Mean, r2Std := meanStd(r2s)
	rmseMean, rmseStd := meanStd(rmses)
	rep := StabilityReport{
		MeanRollingR2:   r2Mean,
		StdRollingR2:    r2Std,
		MinRollingR2:    minOf(r2s),
		MaxRollingR2:    maxOf(r2s),
		MeanRollingRMSE: rmseMean,
		StdRollingRMSE:  rmseStd,
		Windows:         len(r2s),
	}
	return rep, nil
}

func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	mean := 0.0
	for _, v := range xs {
		mean += v
	}
	mean /= float64(len(xs))
	var ss float64
	for _, v := range xs {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(xs)))
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, v := range xs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, v := range xs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
