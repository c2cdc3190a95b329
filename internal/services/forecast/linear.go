package forecast

import (
	"context"
	"fmt"

	"FinCast/internal/domain/models"
)

// LinearModel fits close price against the time index over the most recent
// training window and extrapolates linearly.
type LinearModel struct {
	window int
}

// NewLinearModel creates a linear trend forecaster. window is the number of
// trailing periods used for fitting.
func NewLinearModel(window int) *LinearModel {
	return &LinearModel{window: window}
}

func (m *LinearModel) Name() string { return models.ModelLinear }

func (m *LinearModel) FitAndForecast(ctx context.Context, frame *models.FeatureFrame, horizon int) (models.ForecastResult, error) {
	return trendForecast(m.Name(), frame.Series, m.window, 1, horizon)
}

// PolynomialModel fits a degree-D polynomial of the time index over the
// same training window, capturing curvature the linear model misses.
type PolynomialModel struct {
	window int
	degree int
}

func NewPolynomialModel(window, degree int) *PolynomialModel {
	return &PolynomialModel{window: window, degree: degree}
}

func (m *PolynomialModel) Name() string { return models.ModelPolynomial }

func (m *PolynomialModel) FitAndForecast(ctx context.Context, frame *models.FeatureFrame, horizon int) (models.ForecastResult, error) {
	return trendForecast(m.Name(), frame.Series, m.window, m.degree, horizon)
}

func trendForecast(name string, series models.PriceSeries, window, degree, horizon int) (models.ForecastResult, error) {
	if horizon < 1 {
		return models.ForecastResult{}, fmt.Errorf("%w: horizon %d", models.ErrModelFit, horizon)
	}
	if len(series) < degree+2 {
		return models.ForecastResult{}, fmt.Errorf("%w: %s needs at least %d rows, have %d",
			models.ErrInsufficientData, name, degree+2, len(series))
	}
	train := series.Tail(window)

	x := make([]float64, len(train))
	y := make([]float64, len(train))
	for i, c := range train {
		x[i] = float64(i)
		y[i] = c.Close
	}

	coeffs, err := polyFit(x, y, degree)
	if err != nil {
		return models.ForecastResult{}, fmt.Errorf("%s: %w", name, err)
	}

	fitted := make([]float64, len(x))
	for i := range x {
		fitted[i] = polyEval(coeffs, x[i])
	}
	score := rSquared(y, fitted)

	lastIdx := float64(len(train) - 1)
	path := make([]float64, horizon)
	for step := 1; step <= horizon; step++ {
		path[step-1] = polyEval(coeffs, lastIdx+float64(step))
	}

	return models.ForecastResult{Model: name, Path: path, FitScore: score, Horizon: horizon}, nil
}
