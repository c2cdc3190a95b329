package forecast

import (
	"fmt"

	"FinCast/internal/domain/models"
)

// Combiner merges per-model forecast paths into one ensemble path.
type Combiner struct {
	// ManualWeights pins the weight map instead of deriving it from fit
	// scores. Keys are model names; missing models get weight zero.
	ManualWeights map[string]float64
}

// Combine weights each model's path by its share of the positive fit-score
// mass. When no model reports a positive score the weights are uniform.
// All inputs must share the same horizon; the output weights sum to 1.
func (c *Combiner) Combine(results []models.ForecastResult) (models.EnsembleResult, error) {
	if len(results) == 0 {
		return models.EnsembleResult{}, fmt.Errorf("%w: no successful forecasts to combine", models.ErrModelFit)
	}
	horizon := results[0].Horizon
	for _, r := range results {
		if r.Horizon != horizon || len(r.Path) != horizon {
			return models.EnsembleResult{}, fmt.Errorf("%w: model %s path length %d does not match horizon %d",
				models.ErrModelFit, r.Model, len(r.Path), horizon)
		}
	}

	weights := c.weightsFor(results)

	combined := make([]float64, horizon)
	paths := make(map[string][]float64, len(results))
	scores := make(map[string]float64, len(results))
	for _, r := range results {
		w := weights[r.Model]
		for i, v := range r.Path {
			combined[i] += w * v
		}
		paths[r.Model] = r.Path
		scores[r.Model] = r.FitScore
	}

	return models.EnsembleResult{
		CombinedPath: combined,
		Paths:        paths,
		Scores:       scores,
		Weights:      weights,
		Horizon:      horizon,
	}, nil
}

func (c *Combiner) weightsFor(results []models.ForecastResult) map[string]float64 {
	weights := make(map[string]float64, len(results))

	if len(c.ManualWeights) > 0 {
		total := 0.0
		for _, r := range results {
			total += c.ManualWeights[r.Model]
		}
		if total > 0 {
			for _, r := range results {
				weights[r.Model] = c.ManualWeights[r.Model] / total
			}
			return weights
		}
	}

	// negative fit scores carry no weight; they must not flip a path's sign
	total := 0.0
	for _, r := range results {
		if r.FitScore > 0 {
			total += r.FitScore
		}
	}
	if total <= 0 {
		uniform := 1.0 / float64(len(results))
		for _, r := range results {
			weights[r.Model] = uniform
		}
		return weights
	}
	for _, r := range results {
		if r.FitScore > 0 {
			weights[r.Model] = r.FitScore / total
		} else {
			weights[r.Model] = 0
		}
	}
	return weights
}
