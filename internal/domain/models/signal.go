package models

import "time"

type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
	SignalHold SignalType = "HOLD"
	SignalWait SignalType = "WAIT"
)

type ConfidenceLabel string

const (
	ConfidenceHigh     ConfidenceLabel = "HIGH"
	ConfidenceMedium   ConfidenceLabel = "MEDIUM"
	ConfidenceLow      ConfidenceLabel = "LOW"
	ConfidenceFiltered ConfidenceLabel = "FILTERED"
)

// TradeSignal is the filter stage's final output. WAIT with FILTERED
// confidence is a sticky override: it discards the upstream directional
// call and its trade levels.
type TradeSignal struct {
	Symbol     string
	Signal     SignalType
	Confidence ConfidenceLabel

	Entry    float64
	Target   float64
	StopLoss float64

	// FilterConfidence is the gate's numeric confidence in [0,1];
	// zero when the signal was vetoed.
	FilterConfidence float64

	// Reasons records the gate's decision trail in order.
	Reasons []string

	Timestamp time.Time
}

// Direction maps the signal to +1/-1/0 for accuracy bookkeeping.
func (s TradeSignal) Direction() int {
	switch s.Signal {
	case SignalBuy:
		return 1
	case SignalSell:
		return -1
	default:
		return 0
	}
}
