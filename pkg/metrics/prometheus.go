package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cyclesTotal   *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
	fitScore      *prometheus.GaugeVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	retrainsTotal *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cyclesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_prediction_cycles_total",
				Help: "Total number of prediction cycles run",
			},
			[]string{"symbol"},
		),
		cycleDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fincast_prediction_cycle_duration_seconds",
				Help:    "Duration of prediction cycles in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"symbol"},
		),
		fitScore: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fincast_model_fit_score",
				Help: "Latest in-sample fit score per model",
			},
			[]string{"model"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fincast_last_price",
				Help: "Last observed close price for a symbol",
			},
			[]string{"symbol"},
		),
		retrainsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_retrains_total",
				Help: "Total number of model retraining runs",
			},
			[]string{"model", "outcome"},
		),
	}
}

// RecordCycle records a completed prediction cycle.
func (r *Recorder) RecordCycle(symbol string, seconds float64) {
	r.cyclesTotal.WithLabelValues(symbol).Inc()
	r.cycleDuration.WithLabelValues(symbol).Observe(seconds)
}

// RecordFitScore records the latest fit score for a model.
func (r *Recorder) RecordFitScore(model string, score float64) {
	r.fitScore.WithLabelValues(model).Set(score)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last close price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordRetrain records a retraining run outcome.
func (r *Recorder) RecordRetrain(model string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	r.retrainsTotal.WithLabelValues(model, outcome).Inc()
}
