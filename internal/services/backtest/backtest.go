package backtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"FinCast/internal/domain/models"
	applogger "FinCast/pkg/logger"
)

// ModelFunc trains on the given window and returns the predicted close for
// `horizon` periods past the window's end.
type ModelFunc func(train models.PriceSeries, horizon int) (float64, error)

// Result collects one backtest run's aligned predictions and actuals.
// Indices where the model failed are absent; the run is tolerant of
// per-index failures.
type Result struct {
	Predictions []float64
	Actuals     []float64
	Timestamps  []time.Time
	Failures    int
	Interval    time.Duration
}

// Runner replays a model function over rolling historical windows.
type Runner struct {
	l       *applogger.Logger
	workers int
}

// NewRunner creates a backtest runner. workers > 1 parallelizes across
// rolling indices; each iteration trains on a read-only slice of the
// shared series, so no synchronization of the input is needed.
func NewRunner(l *applogger.Logger, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{l: l, workers: workers}
}

// RollingBacktest trains modelFn on each trailing window and records its
// prediction for index i+horizon-1 against the realized close. A model
// failure at one index is logged and skipped without aborting the run.
// Cancellation via ctx abandons remaining indices; the partial result
// already computed is returned and stays valid.
func (r *Runner) RollingBacktest(ctx context.Context, series models.PriceSeries, modelFn ModelFunc, window, horizon int) (*Result, error) {
	if window < 1 || horizon < 1 {
		return nil, fmt.Errorf("%w: window %d / horizon %d", models.ErrConfiguration, window, horizon)
	}
	if len(series) < window+horizon {
		return nil, fmt.Errorf("%w: need at least %d points, have %d",
			models.ErrInsufficientData, window+horizon, len(series))
	}

	type step struct {
		idx       int
		pred      float64
		actual    float64
		timestamp time.Time
		err       error
	}

	indices := make(chan int)
	out := make(chan step, r.workers)
	var wg sync.WaitGroup

	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				train := series[i-window : i]
				target := series[i+horizon-1]
				pred, err := modelFn(train, horizon)
				out <- step{idx: i, pred: pred, actual: target.Close, timestamp: target.Timestamp, err: err}
			}
		}()
	}

	go func() {
		defer close(indices)
		for i := window; i < len(series)-horizon; i++ {
			select {
			case <-ctx.Done():
				return
			case indices <- i:
			}
		}
	}()
	go func() { wg.Wait(); close(out) }()

	steps := make([]step, 0, len(series))
	failures := 0
	for s := range out {
		if s.err != nil {
			failures++
			if r.l != nil {
				r.l.Warn("backtest model failure",
					applogger.Int("index", s.idx),
					applogger.Error(s.err),
				)
			}
			continue
		}
		steps = append(steps, s)
	}
	sort.Slice(steps, func(a, b int) bool { return steps[a].idx < steps[b].idx })

	res := &Result{
		Predictions: make([]float64, 0, len(steps)),
		Actuals:     make([]float64, 0, len(steps)),
		Timestamps:  make([]time.Time, 0, len(steps)),
		Failures:    failures,
		Interval:    series.Interval(),
	}
	for _, s := range steps {
		res.Predictions = append(res.Predictions, s.pred)
		res.Actuals = append(res.Actuals, s.actual)
		res.Timestamps = append(res.Timestamps, s.timestamp)
	}
	return res, nil
}
