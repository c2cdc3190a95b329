package models

import "time"

// ModelVersion is one immutable entry in a model's append-only version list.
type ModelVersion struct {
	ModelName       string             `json:"model_name"`
	VersionID       string             `json:"version_id"`
	CreatedAt       time.Time          `json:"created_at"`
	Hyperparameters map[string]float64 `json:"hyperparameters"`
	Metrics         map[string]float64 `json:"performance_metrics"`
	ArtifactRef     string             `json:"artifact_ref"`
}

// ModelInfo summarizes a model's lifecycle state for reporting.
type ModelInfo struct {
	Name            string             `json:"name"`
	Trained         bool               `json:"trained"`
	CurrentVersion  string             `json:"current_version,omitempty"`
	CreatedAt       time.Time          `json:"created_at,omitempty"`
	AgeDays         int                `json:"age_days"`
	Hyperparameters map[string]float64 `json:"hyperparameters,omitempty"`
	Metrics         map[string]float64 `json:"performance,omitempty"`
	TotalVersions   int                `json:"total_versions"`
}
