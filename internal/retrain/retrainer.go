package retrain

import (
	"context"
	"fmt"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/internal/domain/repository"
	"FinCast/internal/domain/service"
	"FinCast/internal/modelmanager"
	"FinCast/internal/services/forecast"
	"FinCast/internal/services/indicators"
	applogger "FinCast/pkg/logger"
)

// Config tunes the retraining policy.
type Config struct {
	MinValidations       int
	DirAccuracyThreshold float64
	ModelErrorThreshold  float64
	LookbackDays         int
	MinTrainingSamples   int
	Symbol               string
	Timeframe            repository.Timeframe
}

func DefaultConfig() Config {
	return Config{
		MinValidations:       10,
		DirAccuracyThreshold: 50,
		ModelErrorThreshold:  5,
		LookbackDays:         30,
		MinTrainingSamples:   200,
	}
}

// AutoRetrainer decides when models need retraining based on realized
// accuracy and executes the retraining run. Decisions are a pure
// function of the accuracy summary and the version registry state, so
// repeating a check against unchanged inputs yields the same decision.
type AutoRetrainer struct {
	l        *applogger.Logger
	cfg      Config
	accuracy repository.AccuracyStore
	candles  repository.CandleStore
	manager  *modelmanager.Manager
	engine   *indicators.Engine
	feature  *forecast.FeatureModel
	notifier service.Notifier
	metrics  repository.Metrics
}

func New(
	l *applogger.Logger,
	cfg Config,
	accuracy repository.AccuracyStore,
	candles repository.CandleStore,
	manager *modelmanager.Manager,
	engine *indicators.Engine,
	feature *forecast.FeatureModel,
	notifier service.Notifier,
	metrics repository.Metrics,
) *AutoRetrainer {
	if cfg.MinValidations <= 0 {
		cfg.MinValidations = 10
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 30
	}
	if cfg.MinTrainingSamples <= 0 {
		cfg.MinTrainingSamples = 200
	}
	return &AutoRetrainer{
		l:        l,
		cfg:      cfg,
		accuracy: accuracy,
		candles:  candles,
		manager:  manager,
		engine:   engine,
		feature:  feature,
		notifier: notifier,
		metrics:  metrics,
	}
}

// CheckRetrainingNeeded derives a retraining decision from the accuracy
// summary and model lifecycle state.
func (r *AutoRetrainer) CheckRetrainingNeeded(ctx context.Context) (models.RetrainDecision, error) {
	summary, err := r.accuracy.Summary(ctx)
	if err != nil {
		return models.RetrainDecision{}, fmt.Errorf("accuracy summary: %w", err)
	}

	decision := models.RetrainDecision{}

	if summary.TotalValidations < int64(r.cfg.MinValidations) {
		decision.Reasons = append(decision.Reasons,
			fmt.Sprintf("only %d validations recorded, need %d", summary.TotalValidations, r.cfg.MinValidations))
		return decision, nil
	}

	flagged := make(map[string]bool)

	if summary.DirectionalAccuracyPct < r.cfg.DirAccuracyThreshold {
		decision.Reasons = append(decision.Reasons,
			fmt.Sprintf("directional accuracy %.1f%% below %.1f%%",
				summary.DirectionalAccuracyPct, r.cfg.DirAccuracyThreshold))
		flagged[models.ModelLinear] = true
		flagged[models.ModelPolynomial] = true
		flagged[models.ModelFeatures] = true
	}

	for model, avgErr := range summary.AvgErrorPct {
		if avgErr > r.cfg.ModelErrorThreshold {
			decision.Reasons = append(decision.Reasons,
				fmt.Sprintf("%s avg error %.2f%% above %.2f%%", model, avgErr, r.cfg.ModelErrorThreshold))
			flagged[model] = true
		}
	}

	// lifecycle policy for the persisted model
	hit := summary.DirectionalAccuracyPct / 100
	need, reasons, err := r.manager.ShouldRetrain(ctx, models.ModelFeatures, hit)
	if err != nil {
		return models.RetrainDecision{}, err
	}
	if need {
		for _, reason := range reasons {
			decision.Reasons = append(decision.Reasons, models.ModelFeatures+": "+reason)
		}
		flagged[models.ModelFeatures] = true
	}

	for _, name := range []string{models.ModelLinear, models.ModelPolynomial, models.ModelFeatures} {
		if flagged[name] {
			decision.Models = append(decision.Models, name)
		}
	}
	decision.RetrainNeeded = len(decision.Models) > 0
	return decision, nil
}

// RetrainModels retrains the named models against recent history.
// Returns per-model errors; a partial failure does not abort the rest.
func (r *AutoRetrainer) RetrainModels(ctx context.Context, names []string) map[string]error {
	results := make(map[string]error, len(names))
	if len(names) == 0 {
		return results
	}

	frame, err := r.trainingFrame(ctx)
	for _, name := range names {
		if err != nil {
			results[name] = err
			r.metrics.RecordRetrain(name, false)
			continue
		}
		results[name] = r.retrainOne(ctx, name, frame)
		r.metrics.RecordRetrain(name, results[name] == nil)
	}
	return results
}

func (r *AutoRetrainer) retrainOne(ctx context.Context, name string, frame *models.FeatureFrame) error {
	switch name {
	case models.ModelLinear, models.ModelPolynomial:
		// trend models refit on every prediction cycle; there is no
		// artifact to rebuild
		r.l.Info("model refits per cycle, nothing to persist", applogger.String("model", name))
		return nil
	case models.ModelFeatures:
		return r.retrainFeatureModel(ctx, frame)
	default:
		return fmt.Errorf("unknown model %q", name)
	}
}

func (r *AutoRetrainer) retrainFeatureModel(ctx context.Context, frame *models.FeatureFrame) error {
	summary, err := r.accuracy.Summary(ctx)
	if err != nil {
		return fmt.Errorf("accuracy summary: %w", err)
	}

	base := forecast.DefaultForestConfig()
	if _, v, err := r.manager.LoadModel(ctx, models.ModelFeatures); err == nil {
		base = forestConfigFrom(v.Hyperparameters, base)
	}

	tuned := r.manager.OptimizeHyperparameters(base.Map(), summary.AvgErrorPct[models.ModelFeatures])
	cfg := forestConfigFrom(tuned, base)

	forestModel, metrics, err := r.feature.Train(frame, cfg)
	if err != nil {
		return err
	}
	if int(metrics["n_samples"]) < r.cfg.MinTrainingSamples {
		return fmt.Errorf("%w: %d clean training samples, need %d",
			models.ErrInsufficientData, int(metrics["n_samples"]), r.cfg.MinTrainingSamples)
	}

	blob, err := forecast.EncodeForest(forestModel)
	if err != nil {
		return err
	}

	v, err := r.manager.SaveModel(ctx, models.ModelFeatures, blob, cfg.Map(), metrics)
	if err != nil {
		return err
	}
	if _, err := r.manager.CleanupOldVersions(ctx, models.ModelFeatures, 0); err != nil {
		r.l.Warn("version cleanup failed", applogger.Error(err))
	}

	r.feature.UsePretrained(forestModel)
	r.l.Info("feature model retrained",
		applogger.String("version", v.VersionID),
		applogger.Float64("train_r2", metrics["train_r2_score"]),
		applogger.Int("samples", int(metrics["n_samples"])))
	return nil
}

// trainingFrame fetches the lookback window and computes indicators.
func (r *AutoRetrainer) trainingFrame(ctx context.Context) (*models.FeatureFrame, error) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -r.cfg.LookbackDays)

	series, err := r.candles.GetCandles(ctx, r.cfg.Symbol, from, to, r.cfg.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("fetch training candles: %w", err)
	}
	return r.engine.Compute(series)
}

// Run executes one check-and-retrain pass.
func (r *AutoRetrainer) Run(ctx context.Context) error {
	decision, err := r.CheckRetrainingNeeded(ctx)
	if err != nil {
		return err
	}
	if !decision.RetrainNeeded {
		r.l.Debug("no retraining needed", applogger.Strings("reasons", decision.Reasons))
		return nil
	}

	r.notifier.Notify(ctx, service.AlertWarning, "model retraining triggered", map[string]any{
		"models":  decision.Models,
		"reasons": decision.Reasons,
	})

	results := r.RetrainModels(ctx, decision.Models)
	failed := 0
	for name, rerr := range results {
		if rerr != nil {
			failed++
			r.l.Error("retraining failed", applogger.String("model", name), applogger.Error(rerr))
		}
	}

	level := service.AlertSuccess
	msg := "model retraining completed"
	if failed > 0 {
		level = service.AlertError
		msg = fmt.Sprintf("model retraining completed with %d failures", failed)
	}
	r.notifier.Notify(ctx, level, msg, map[string]any{
		"models": decision.Models,
		"failed": failed,
	})

	if failed > 0 {
		return fmt.Errorf("retraining: %d of %d models failed", failed, len(results))
	}
	return nil
}

// Start runs retraining passes on a fixed interval until ctx ends.
func (r *AutoRetrainer) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Run(ctx); err != nil {
				r.l.Error("retraining pass failed", applogger.Error(err))
				r.metrics.RecordError("retrain")
			}
		}
	}
}

func forestConfigFrom(h map[string]float64, base forecast.ForestConfig) forecast.ForestConfig {
	cfg := base
	if v, ok := h["n_estimators"]; ok {
		cfg.NEstimators = int(v)
	}
	if v, ok := h["max_depth"]; ok {
		cfg.MaxDepth = int(v)
	}
	if v, ok := h["min_samples_split"]; ok {
		cfg.MinSamplesSplit = int(v)
	}
	if v, ok := h["min_samples_leaf"]; ok {
		cfg.MinSamplesLeaf = int(v)
	}
	return cfg
}
