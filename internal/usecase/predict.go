package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
	"FinCast/internal/domain/service"
	"FinCast/internal/services/forecast"
	"FinCast/internal/services/indicators"
	"FinCast/internal/services/market"
	applogger "FinCast/pkg/logger"
)

// PipelineConfig tunes one symbol's prediction loop.
type PipelineConfig struct {
	Symbol         string
	Timeframe      drepo.Timeframe
	Horizon        int
	Lookback       int
	NoiseThreshold float64
}

// pendingValidation is a forecast waiting for its horizon to elapse so
// the realized outcome can be recorded.
type pendingValidation struct {
	model     string
	predicted float64
	basePrice float64
	dueAt     time.Time
}

// Pipeline runs the full prediction cycle: candles in, indicators,
// model ensemble, market condition, gated trade signal out. Models that
// fail to fit are reported in the prediction; only a cycle where every
// model fails is fatal.
type Pipeline struct {
	l           *applogger.Logger
	cfg         PipelineConfig
	candles     drepo.CandleStore
	engine      *indicators.Engine
	forecasters []service.Forecaster
	combiner    *forecast.Combiner
	detector    *market.Detector
	filter      *market.Filter
	accuracy    drepo.AccuracyStore
	notifier    service.Notifier
	metrics     drepo.Metrics

	mu      sync.Mutex
	pending []pendingValidation
}

func NewPipeline(
	l *applogger.Logger,
	cfg PipelineConfig,
	candles drepo.CandleStore,
	engine *indicators.Engine,
	forecasters []service.Forecaster,
	combiner *forecast.Combiner,
	detector *market.Detector,
	filter *market.Filter,
	accuracy drepo.AccuracyStore,
	notifier service.Notifier,
	metrics drepo.Metrics,
) *Pipeline {
	if cfg.Horizon <= 0 {
		cfg.Horizon = 10
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 500
	}
	if cfg.NoiseThreshold <= 0 {
		cfg.NoiseThreshold = 0.001
	}
	return &Pipeline{
		l:           l,
		cfg:         cfg,
		candles:     candles,
		engine:      engine,
		forecasters: forecasters,
		combiner:    combiner,
		detector:    detector,
		filter:      filter,
		accuracy:    accuracy,
		notifier:    notifier,
		metrics:     metrics,
	}
}

// RunCycle executes one full prediction cycle for the configured symbol.
func (p *Pipeline) RunCycle(ctx context.Context) (*models.Prediction, error) {
	start := time.Now()

	pred, err := p.Predict(ctx, p.cfg.Symbol, p.cfg.Lookback, p.cfg.Timeframe, p.cfg.Horizon)
	if err != nil {
		p.metrics.RecordError("cycle")
		return nil, err
	}

	p.settleDue(ctx, pred.CurrentPrice, time.Now())
	p.registerPending(pred)

	if sig := pred.Signal; sig != nil && (sig.Signal == models.SignalBuy || sig.Signal == models.SignalSell) {
		p.notifier.NotifySignal(ctx, *sig, pred)
	}

	p.metrics.RecordCycle(p.cfg.Symbol, time.Since(start).Seconds())
	p.metrics.RecordLastPrice(p.cfg.Symbol, pred.CurrentPrice)

	p.l.Info("prediction cycle complete",
		applogger.String("symbol", pred.Symbol),
		applogger.String("signal", string(pred.Signal.Signal)),
		applogger.String("condition", pred.Condition.Label()),
		applogger.Int("model_failures", len(pred.ModelErrors)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return pred, nil
}

// Predict runs the forecasting stages without touching validation
// bookkeeping; the HTTP API uses this path for ad-hoc requests.
func (p *Pipeline) Predict(ctx context.Context, symbol string, n int, tf drepo.Timeframe, horizon int) (*models.Prediction, error) {
	series, err := p.candles.GetLatestNCandles(ctx, symbol, n, tf)
	if err != nil {
		return nil, err
	}

	currentPrice, err := series.LastClose()
	if err != nil {
		return nil, err
	}

	frame, err := p.engine.Compute(series)
	if err != nil {
		return nil, err
	}

	pred := &models.Prediction{
		Symbol:        symbol,
		GeneratedAt:   time.Now().UTC(),
		DataTimestamp: series[len(series)-1].Timestamp,
		CurrentPrice:  currentPrice,
		ModelErrors:   make(map[string]string),
	}

	results := make([]models.ForecastResult, 0, len(p.forecasters))
	for _, f := range p.forecasters {
		res, ferr := f.FitAndForecast(ctx, frame, horizon)
		if ferr != nil {
			p.l.Warn("model fit failed",
				applogger.String("model", f.Name()),
				applogger.Error(ferr))
			pred.ModelErrors[f.Name()] = ferr.Error()
			p.metrics.RecordError("model_fit")
			continue
		}
		p.metrics.RecordFitScore(f.Name(), res.FitScore)
		results = append(results, res)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("%w: all %d models failed for %s",
			models.ErrModelFit, len(p.forecasters), symbol)
	}

	ensemble, err := p.combiner.Combine(results)
	if err != nil {
		return nil, err
	}
	pred.Ensemble = &ensemble

	condition := p.detector.Detect(frame)
	pred.Condition = &condition

	raw := p.rawSignal(symbol, currentPrice, ensemble)
	final := p.filter.ApplyFilters(raw, frame.Series)
	pred.Signal = &final

	return pred, nil
}

// Condition detects the market condition for ad-hoc API requests.
func (p *Pipeline) Condition(ctx context.Context, symbol string, n int, tf drepo.Timeframe) (models.MarketCondition, error) {
	series, err := p.candles.GetLatestNCandles(ctx, symbol, n, tf)
	if err != nil {
		return models.MarketCondition{}, err
	}
	frame, err := p.engine.Compute(series)
	if err != nil {
		return models.MarketCondition{}, err
	}
	return p.detector.Detect(frame), nil
}

// rawSignal turns the combined forecast endpoint into a directional
// call. Moves inside the noise band are HOLD.
func (p *Pipeline) rawSignal(symbol string, currentPrice float64, ensemble models.EnsembleResult) models.TradeSignal {
	sig := models.TradeSignal{
		Symbol:    symbol,
		Signal:    models.SignalHold,
		Timestamp: time.Now().UTC(),
	}
	if len(ensemble.CombinedPath) == 0 || currentPrice == 0 {
		return sig
	}

	end := ensemble.CombinedPath[len(ensemble.CombinedPath)-1]
	change := end/currentPrice - 1
	switch {
	case change > p.cfg.NoiseThreshold:
		sig.Signal = models.SignalBuy
	case change < -p.cfg.NoiseThreshold:
		sig.Signal = models.SignalSell
	}
	return sig
}

// registerPending queues each successful model's endpoint forecast for
// validation once the horizon elapses.
func (p *Pipeline) registerPending(pred *models.Prediction) {
	if pred.Ensemble == nil {
		return
	}
	due := pred.DataTimestamp.Add(time.Duration(p.cfg.Horizon) * p.cfg.Timeframe.Duration())

	p.mu.Lock()
	defer p.mu.Unlock()
	for name, path := range pred.Ensemble.Paths {
		if len(path) == 0 {
			continue
		}
		p.pending = append(p.pending, pendingValidation{
			model:     name,
			predicted: path[len(path)-1],
			basePrice: pred.CurrentPrice,
			dueAt:     due,
		})
	}
}

// settleDue records outcomes for forecasts whose horizon has elapsed.
func (p *Pipeline) settleDue(ctx context.Context, actual float64, now time.Time) {
	p.mu.Lock()
	var due []pendingValidation
	remaining := p.pending[:0]
	for _, pv := range p.pending {
		if now.After(pv.dueAt) {
			due = append(due, pv)
		} else {
			remaining = append(remaining, pv)
		}
	}
	p.pending = remaining
	p.mu.Unlock()

	for _, pv := range due {
		rec := models.ValidationRecord{
			Timestamp:        now.UTC(),
			ModelName:        pv.model,
			Predicted:        pv.predicted,
			Actual:           actual,
			DirectionCorrect: sameDirection(pv.predicted-pv.basePrice, actual-pv.basePrice),
		}
		if actual != 0 {
			rec.ErrorPct = abs(pv.predicted-actual) / actual * 100
		}
		if err := p.accuracy.Record(ctx, rec); err != nil {
			p.l.Warn("validation record failed",
				applogger.String("model", pv.model),
				applogger.Error(err))
		}
	}
}

// PendingValidations reports how many forecasts await settlement.
func (p *Pipeline) PendingValidations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Start runs prediction cycles on a fixed interval until ctx ends.
func (p *Pipeline) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.RunCycle(ctx); err != nil {
				p.l.Error("prediction cycle failed", applogger.Error(err))
			}
		}
	}
}

func sameDirection(a, b float64) bool {
	return (a >= 0 && b >= 0) || (a < 0 && b < 0)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
