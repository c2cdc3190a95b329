package models

import "time"

type Trend string

const (
	TrendBull    Trend = "BULL"
	TrendBear    Trend = "BEAR"
	TrendNeutral Trend = "NEUTRAL"
)

type VolatilityLevel string

const (
	VolatilityLow    VolatilityLevel = "LOW"
	VolatilityMedium VolatilityLevel = "MEDIUM"
	VolatilityHigh   VolatilityLevel = "HIGH"
)

type Momentum string

const (
	MomentumStrongUp   Momentum = "STRONG_UP"
	MomentumWeakUp     Momentum = "WEAK_UP"
	MomentumNeutral    Momentum = "NEUTRAL"
	MomentumWeakDown   Momentum = "WEAK_DOWN"
	MomentumStrongDown Momentum = "STRONG_DOWN"
)

type RSIState string

const (
	RSIOverbought RSIState = "OVERBOUGHT"
	RSIOversold   RSIState = "OVERSOLD"
	RSINeutral    RSIState = "NEUTRAL"
)

type MACDState string

const (
	MACDBullish MACDState = "BULLISH"
	MACDBearish MACDState = "BEARISH"
	MACDNeutral MACDState = "NEUTRAL"
)

type VolumeTrend string

const (
	VolumeIncreasing VolumeTrend = "INCREASING"
	VolumeDecreasing VolumeTrend = "DECREASING"
	VolumeStable     VolumeTrend = "STABLE"
)

// MarketCondition is the detector's regime classification for one cycle.
// It is recomputed from a FeatureFrame every cycle and never persisted as
// authoritative state.
type MarketCondition struct {
	Trend       Trend
	Volatility  VolatilityLevel
	Momentum    Momentum
	VolumeTrend VolumeTrend
	RSIState    RSIState
	MACDState   MACDState

	// Confidence is the fraction of independent agreement checks
	// (trend-momentum, trend-RSI, trend-MACD) that agree: 0, 1/3, 2/3 or 1.
	Confidence float64
	Timestamp  time.Time
}

// Label is the combined condition key, e.g. "bull_low_volatility".
func (c MarketCondition) Label() string {
	return lower(string(c.Trend)) + "_" + lower(string(c.Volatility)) + "_volatility"
}

func lower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
