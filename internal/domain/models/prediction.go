package models

import "time"

// Prediction is the consolidated output of one pipeline cycle.
// Note: no transport (json/http) concerns here.
type Prediction struct {
	Symbol        string
	GeneratedAt   time.Time
	DataTimestamp time.Time
	CurrentPrice  float64

	Ensemble  *EnsembleResult
	Condition *MarketCondition
	Signal    *TradeSignal

	// ModelErrors collects per-model fit failures from the cycle; the
	// ensemble still combines whatever models succeeded.
	ModelErrors map[string]string
}

// PredictedAt returns the combined forecast value step periods ahead
// (1-based). ok is false when the horizon does not cover the step.
func (p *Prediction) PredictedAt(step int) (float64, bool) {
	if p.Ensemble == nil || step < 1 || step > len(p.Ensemble.CombinedPath) {
		return 0, false
	}
	return p.Ensemble.CombinedPath[step-1], true
}

// ChangePct returns the forecast percent change at a step relative to the
// current price.
func (p *Prediction) ChangePct(step int) (float64, bool) {
	v, ok := p.PredictedAt(step)
	if !ok || p.CurrentPrice == 0 {
		return 0, false
	}
	return (v/p.CurrentPrice - 1) * 100, true
}
