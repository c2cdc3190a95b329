package market

import (
	"math"
	"time"

	"FinCast/internal/domain/models"
)

// DetectorConfig holds the condition detector's windows and thresholds.
type DetectorConfig struct {
	TrendWindow      int
	VolatilityWindow int
	VolumeWindow     int
	MomentumWindow   int

	HighVolatilityPct   float64
	MediumVolatilityPct float64
}

func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		TrendWindow:         50,
		VolatilityWindow:    20,
		VolumeWindow:        20,
		MomentumWindow:      10,
		HighVolatilityPct:   3.0,
		MediumVolatilityPct: 1.5,
	}
}

// Detector classifies the current market regime from a FeatureFrame's
// final rows. All methods are pure; nothing is carried between calls.
type Detector struct {
	cfg DetectorConfig
}

func NewDetector(cfg DetectorConfig) *Detector { return &Detector{cfg: cfg} }

// Detect runs every classifier and scores their agreement. Confidence is
// the fraction of three independent checks (trend vs momentum, trend vs
// RSI, trend vs MACD) that agree: one of {0, 1/3, 2/3, 1}.
func (d *Detector) Detect(frame *models.FeatureFrame) models.MarketCondition {
	cond := models.MarketCondition{
		Trend:       d.DetectTrend(frame),
		Volatility:  d.DetectVolatility(frame),
		Momentum:    d.DetectMomentum(frame),
		VolumeTrend: d.DetectVolumeTrend(frame),
		RSIState:    d.DetectRSIState(frame),
		MACDState:   d.DetectMACDState(frame),
		Timestamp:   time.Now(),
	}

	agreements := 0
	if trendMomentumAgree(cond.Trend, cond.Momentum) {
		agreements++
	}
	if trendRSIAgree(cond.Trend, cond.RSIState) {
		agreements++
	}
	if trendMACDAgree(cond.Trend, cond.MACDState) {
		agreements++
	}
	cond.Confidence = float64(agreements) / 3
	return cond
}

// DetectTrend compares the current price against the window mean and the
// percent change across the window.
func (d *Detector) DetectTrend(frame *models.FeatureFrame) models.Trend {
	series := frame.Series
	if len(series) < d.cfg.TrendWindow {
		return models.TrendNeutral
	}
	recent := series.Tail(d.cfg.TrendWindow)
	current := recent[len(recent)-1].Close
	first := recent[0].Close

	mean := 0.0
	for _, c := range recent {
		mean += c.Close
	}
	mean /= float64(len(recent))

	changePct := 0.0
	if first != 0 {
		changePct = (current - first) / first * 100
	}

	switch {
	case current > mean && changePct > 2:
		return models.TrendBull
	case current < mean && changePct < -2:
		return models.TrendBear
	default:
		return models.TrendNeutral
	}
}

// DetectVolatility classifies the rolling standard deviation as a percent
// of the window's mean price.
func (d *Detector) DetectVolatility(frame *models.FeatureFrame) models.VolatilityLevel {
	series := frame.Series
	if len(series) < d.cfg.VolatilityWindow {
		return models.VolatilityMedium
	}
	recent := series.Tail(d.cfg.VolatilityWindow)

	mean := 0.0
	for _, c := range recent {
		mean += c.Close
	}
	mean /= float64(len(recent))
	if mean == 0 {
		return models.VolatilityMedium
	}

	var ss float64
	for _, c := range recent {
		dv := c.Close - mean
		ss += dv * dv
	}
	sd := 0.0
	if len(recent) > 1 {
		sd = math.Sqrt(ss / float64(len(recent)-1))
	}
	volPct := sd / mean * 100

	switch {
	case volPct > d.cfg.HighVolatilityPct:
		return models.VolatilityHigh
	case volPct > d.cfg.MediumVolatilityPct:
		return models.VolatilityMedium
	default:
		return models.VolatilityLow
	}
}

// DetectMomentum classifies the percent price change over the momentum
// window.
func (d *Detector) DetectMomentum(frame *models.FeatureFrame) models.Momentum {
	series := frame.Series
	if len(series) < d.cfg.MomentumWindow {
		return models.MomentumNeutral
	}
	recent := series.Tail(d.cfg.MomentumWindow)
	first := recent[0].Close
	if first == 0 {
		return models.MomentumNeutral
	}
	pct := (recent[len(recent)-1].Close - first) / first * 100

	switch {
	case pct > 2:
		return models.MomentumStrongUp
	case pct > 0.5:
		return models.MomentumWeakUp
	case pct < -2:
		return models.MomentumStrongDown
	case pct < -0.5:
		return models.MomentumWeakDown
	default:
		return models.MomentumNeutral
	}
}

// DetectVolumeTrend compares the last 5 candles' volume to the window
// average.
func (d *Detector) DetectVolumeTrend(frame *models.FeatureFrame) models.VolumeTrend {
	series := frame.Series
	if len(series) < d.cfg.VolumeWindow {
		return models.VolumeStable
	}
	recent := series.Tail(d.cfg.VolumeWindow)

	overall := 0.0
	for _, c := range recent {
		overall += c.Volume
	}
	overall /= float64(len(recent))
	if overall == 0 {
		return models.VolumeStable
	}

	tail := recent.Tail(5)
	tailAvg := 0.0
	for _, c := range tail {
		tailAvg += c.Volume
	}
	tailAvg /= float64(len(tail))

	changePct := (tailAvg - overall) / overall * 100
	switch {
	case changePct > 20:
		return models.VolumeIncreasing
	case changePct < -20:
		return models.VolumeDecreasing
	default:
		return models.VolumeStable
	}
}

// DetectRSIState reads the latest RSI cell; undefined degrades to neutral.
func (d *Detector) DetectRSIState(frame *models.FeatureFrame) models.RSIState {
	rsi, ok := frame.LastValue(models.FeatRSI)
	if !ok {
		return models.RSINeutral
	}
	switch {
	case rsi > 70:
		return models.RSIOverbought
	case rsi < 30:
		return models.RSIOversold
	default:
		return models.RSINeutral
	}
}

// DetectMACDState checks for a crossover between the last two rows, then
// falls back to continuation.
func (d *Detector) DetectMACDState(frame *models.FeatureFrame) models.MACDState {
	last := frame.Len() - 1
	if last < 1 {
		return models.MACDNeutral
	}
	macd, ok1 := frame.Value(models.FeatMACD, last)
	sig, ok2 := frame.Value(models.FeatMACDSignal, last)
	prevMACD, ok3 := frame.Value(models.FeatMACD, last-1)
	prevSig, ok4 := frame.Value(models.FeatMACDSignal, last-1)
	if !ok1 || !ok2 {
		return models.MACDNeutral
	}

	if ok3 && ok4 {
		if prevMACD <= prevSig && macd > sig {
			return models.MACDBullish
		}
		if prevMACD >= prevSig && macd < sig {
			return models.MACDBearish
		}
	}
	switch {
	case macd > sig:
		return models.MACDBullish
	case macd < sig:
		return models.MACDBearish
	default:
		return models.MACDNeutral
	}
}

func trendMomentumAgree(t models.Trend, m models.Momentum) bool {
	switch t {
	case models.TrendBull:
		return m == models.MomentumStrongUp || m == models.MomentumWeakUp
	case models.TrendBear:
		return m == models.MomentumStrongDown || m == models.MomentumWeakDown
	default:
		return m == models.MomentumNeutral
	}
}

func trendRSIAgree(t models.Trend, r models.RSIState) bool {
	switch t {
	case models.TrendBull:
		return r != models.RSIOversold
	case models.TrendBear:
		return r != models.RSIOverbought
	default:
		return true
	}
}

func trendMACDAgree(t models.Trend, m models.MACDState) bool {
	switch t {
	case models.TrendBull:
		return m == models.MACDBullish
	case models.TrendBear:
		return m == models.MACDBearish
	default:
		return true
	}
}
