package models

import "time"

// ValidationRecord is one realized prediction outcome, appended to the
// accuracy store when a forecast's horizon elapses.
type ValidationRecord struct {
	Timestamp        time.Time `json:"timestamp"`
	ModelName        string    `json:"model_name"`
	Predicted        float64   `json:"predicted"`
	Actual           float64   `json:"actual"`
	ErrorPct         float64   `json:"error_pct"`
	DirectionCorrect bool      `json:"direction_correct"`
}

// AccuracySummary holds monotonically accumulated counters read as a
// rolling cache; it is never recomputed from raw history in the hot path.
type AccuracySummary struct {
	TotalValidations       int64              `json:"total_validations"`
	DirectionalAccuracyPct float64            `json:"directional_accuracy_pct"`
	AvgErrorPct            map[string]float64 `json:"avg_error_pct"`
}

// RetrainDecision is derived from an AccuracySummary, never stored.
// Identical summaries always yield identical decisions.
type RetrainDecision struct {
	RetrainNeeded bool     `json:"retrain_needed"`
	Reasons       []string `json:"reasons"`
	Models        []string `json:"models_to_retrain"`
}
