package models

import "errors"

// Error kinds surfaced by the prediction core. Callers match with errors.Is.
var (
	// ErrInsufficientData marks operations given fewer rows/samples than
	// their minimum. Always fatal to the specific operation; never padded
	// with synthetic data.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrStaleData marks a series that failed the freshness check. The
	// pipeline must not produce predictions from it.
	ErrStaleData = errors.New("stale data")

	// ErrModelFit marks a forecaster that could not obtain a fit. Isolated
	// to that model; the ensemble continues with the remaining ones.
	ErrModelFit = errors.New("model fit failed")

	// ErrArtifactIO marks a model artifact load/save failure.
	ErrArtifactIO = errors.New("artifact io failed")

	// ErrConfiguration marks an invalid hyperparameter or threshold.
	// Fatal at startup, never raised mid-run.
	ErrConfiguration = errors.New("invalid configuration")
)
