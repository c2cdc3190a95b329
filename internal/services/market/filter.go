package market

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"FinCast/internal/domain/models"
)

// FilterConfig holds the signal gate's thresholds.
type FilterConfig struct {
	MAShort int
	MALong  int

	// SRTolerance is the support/resistance proximity threshold as a
	// fraction of price (0.015 = 1.5%).
	SRTolerance float64
	// SRMaxLevels caps the retained level set.
	SRMaxLevels int

	TargetPct   float64
	StopLossPct float64
}

func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MAShort:     50,
		MALong:      200,
		SRTolerance: 0.015,
		SRMaxLevels: 10,
		TargetPct:   0.03,
		StopLossPct: 0.02,
	}
}

// TrendInfo is the filter's own moving-average trend read, separate from
// the condition detector's regime classification.
type TrendInfo struct {
	Direction    int // +1 up, -1 down, 0 flat
	MAShort      float64
	MALong       float64
	CurrentPrice float64
	Strength     float64 // 0..1
}

// SRInfo describes proximity to the retained support/resistance level set.
type SRInfo struct {
	NearLevel    bool
	ClosestLevel float64
	DistancePct  float64
}

// GateDecision is the outcome of the trade gate.
type GateDecision struct {
	TakeTrade  bool
	Confidence float64
	Reasons    []string
}

// Filter gates directional signals against trend context and
// support/resistance levels. The level set is identified once per data
// batch and retained until the next IdentifySupportResistance call, not
// recomputed per gate decision. Safe for concurrent use; the pipeline
// loop and HTTP handlers share one instance.
type Filter struct {
	cfg FilterConfig

	mu     sync.RWMutex
	levels []float64
}

func NewFilter(cfg FilterConfig) *Filter { return &Filter{cfg: cfg} }

// Levels returns the retained support/resistance level set.
func (f *Filter) Levels() []float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.levels
}

func (f *Filter) setLevels(levels []float64) []float64 {
	f.mu.Lock()
	f.levels = levels
	f.mu.Unlock()
	return levels
}

// CalculateTrend reads the moving-average trend. Windows shrink to the
// series length when history is short.
func (f *Filter) CalculateTrend(series models.PriceSeries) TrendInfo {
	if len(series) == 0 {
		return TrendInfo{}
	}
	shortW := f.cfg.MAShort
	if len(series) < shortW {
		shortW = len(series)
	}
	longW := f.cfg.MALong
	if len(series) < longW {
		longW = len(series)
	}

	maShort := tailMean(series, shortW)
	maLong := tailMean(series, longW)
	current := series[len(series)-1].Close

	info := TrendInfo{MAShort: maShort, MALong: maLong, CurrentPrice: current}
	// distance from the long MA saturates at 5%
	switch {
	case current > maLong:
		info.Direction = 1
		info.Strength = math.Min(1, (current-maLong)/maLong/0.05)
	case current < maLong:
		info.Direction = -1
		info.Strength = math.Min(1, (maLong-current)/maLong/0.05)
	}
	return info
}

// IdentifySupportResistance finds price levels where the historical price
// distribution clusters: a histogram over closes, local maxima with a
// minimum prominence, top levels by mass. The result replaces the retained
// level set.
func (f *Filter) IdentifySupportResistance(series models.PriceSeries) []float64 {
	prices := series.Closes()
	if len(prices) < 2 {
		return f.setLevels(nil)
	}

	bins := len(prices) / 10
	if bins > 50 {
		bins = 50
	}
	if bins < 2 {
		bins = 2
	}

	lo, hi := prices[0], prices[0]
	for _, p := range prices {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	if hi == lo {
		return f.setLevels([]float64{lo})
	}

	hist := make([]int, bins)
	width := (hi - lo) / float64(bins)
	for _, p := range prices {
		idx := int((p - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		hist[idx]++
	}

	prominence := len(prices) / 100
	if prominence < 2 {
		prominence = 2
	}

	type peak struct {
		level float64
		mass  int
	}
	var peaks []peak
	for i := 1; i < bins-1; i++ {
		if hist[i] >= hist[i-1] && hist[i] > hist[i+1] && hist[i] >= prominence {
			level := lo + width*(float64(i)+0.5)
			peaks = append(peaks, peak{level: level, mass: hist[i]})
		}
	}

	sort.Slice(peaks, func(a, b int) bool { return peaks[a].mass > peaks[b].mass })
	if len(peaks) > f.cfg.SRMaxLevels {
		peaks = peaks[:f.cfg.SRMaxLevels]
	}
	levels := make([]float64, len(peaks))
	for i, p := range peaks {
		levels[i] = p.level
	}
	return f.setLevels(levels)
}

// CheckNearSupportResistance checks price proximity to the retained level
// set at the configured tolerance.
func (f *Filter) CheckNearSupportResistance(price float64) SRInfo {
	levels := f.Levels()
	if len(levels) == 0 || price == 0 {
		return SRInfo{}
	}
	closest := levels[0]
	minDist := math.Abs(price - closest)
	for _, l := range levels[1:] {
		if d := math.Abs(price - l); d < minDist {
			minDist = d
			closest = l
		}
	}
	distPct := minDist / price
	return SRInfo{
		NearLevel:    distPct < f.cfg.SRTolerance,
		ClosestLevel: closest,
		DistancePct:  distPct,
	}
}

// ShouldTakeTrade gates a directional call. A call against the detected
// trend is a hard veto: confidence zero, trade refused. Aligned calls
// start at 0.5, gain up to 0.2 for trend strength, lose 0.15 near a
// support/resistance level (gain 0.1 when clear), clamp to [0,1], accept
// at 0.5 and above.
func (f *Filter) ShouldTakeTrade(direction int, trend TrendInfo, sr SRInfo) GateDecision {
	var reasons []string

	aligned := (trend.Direction == 1 && direction == 1) || (trend.Direction == -1 && direction == -1)
	if !aligned {
		reasons = append(reasons, fmt.Sprintf("signal conflicts with %s trend", trendName(trend.Direction)))
		return GateDecision{TakeTrade: false, Confidence: 0, Reasons: reasons}
	}

	confidence := 0.5
	reasons = append(reasons, fmt.Sprintf("aligned with %s trend", trendName(trend.Direction)))
	confidence += 0.2 * trend.Strength

	if sr.NearLevel {
		reasons = append(reasons, fmt.Sprintf("near S/R level %.2f - reduced confidence", sr.ClosestLevel))
		confidence -= 0.15
	} else {
		reasons = append(reasons, "clear of S/R levels")
		confidence += 0.1
	}

	confidence = math.Max(0, math.Min(1, confidence))
	return GateDecision{TakeTrade: confidence >= 0.5, Confidence: confidence, Reasons: reasons}
}

// ApplyFilters runs the gate over a directional signal and returns the
// final signal. Rejected BUY/SELL calls are downgraded to a sticky WAIT
// with FILTERED confidence; HOLD and WAIT pass through untouched.
func (f *Filter) ApplyFilters(sig models.TradeSignal, series models.PriceSeries) models.TradeSignal {
	direction := sig.Direction()
	if direction == 0 {
		return sig
	}

	trend := f.CalculateTrend(series)
	// each batch replaces the retained level set; gating against a prior
	// batch's histogram goes stale as price leaves its range
	f.IdentifySupportResistance(series)
	sr := f.CheckNearSupportResistance(trend.CurrentPrice)

	decision := f.ShouldTakeTrade(direction, trend, sr)
	sig.FilterConfidence = decision.Confidence
	sig.Reasons = append(sig.Reasons, decision.Reasons...)

	if !decision.TakeTrade {
		sig.Signal = models.SignalWait
		sig.Confidence = models.ConfidenceFiltered
		sig.Entry, sig.Target, sig.StopLoss = 0, 0, 0
		return sig
	}

	switch {
	case decision.Confidence >= 0.7:
		sig.Confidence = models.ConfidenceHigh
	case decision.Confidence >= 0.5:
		sig.Confidence = models.ConfidenceMedium
	default:
		sig.Confidence = models.ConfidenceLow
	}

	sig.Entry = trend.CurrentPrice
	if direction == 1 {
		sig.Target = trend.CurrentPrice * (1 + f.cfg.TargetPct)
		sig.StopLoss = trend.CurrentPrice * (1 - f.cfg.StopLossPct)
	} else {
		sig.Target = trend.CurrentPrice * (1 - f.cfg.TargetPct)
		sig.StopLoss = trend.CurrentPrice * (1 + f.cfg.StopLossPct)
	}
	return sig
}

func tailMean(series models.PriceSeries, n int) float64 {
	tail := series.Tail(n)
	if len(tail) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range tail {
		sum += c.Close
	}
	return sum / float64(len(tail))
}

func trendName(direction int) string {
	switch direction {
	case 1:
		return "up"
	case -1:
		return "down"
	default:
		return "neutral"
	}
}
