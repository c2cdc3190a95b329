package service

import (
	"context"

	"FinCast/internal/domain/models"
)

// Forecaster produces a multi-step price path from a feature frame.
// Implementations return an explicit error when they cannot obtain a fit;
// a zero-confidence silent result is never valid.
type Forecaster interface {
	Name() string
	FitAndForecast(ctx context.Context, frame *models.FeatureFrame, horizon int) (models.ForecastResult, error)
}

// AlertLevel classifies notification severity.
type AlertLevel string

const (
	AlertCritical AlertLevel = "critical"
	AlertError    AlertLevel = "error"
	AlertWarning  AlertLevel = "warning"
	AlertInfo     AlertLevel = "info"
	AlertSuccess  AlertLevel = "success"
)

// Notifier delivers leveled messages with optional structured context.
// Delivery failures must not abort the pipeline; implementations log and
// swallow transport errors.
type Notifier interface {
	Notify(ctx context.Context, level AlertLevel, message string, fields map[string]any)
	NotifySignal(ctx context.Context, sig models.TradeSignal, pred *models.Prediction)
}
