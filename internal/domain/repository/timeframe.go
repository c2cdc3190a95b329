package repository

// IsValidTimeframe reports whether tf is one of the supported candle
// intervals.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF1m, TF5m, TF15m, TF1h, TF4h:
		return true
	}
	return false
}

// DefaultTimeframe is the interval used when a request leaves it blank.
func DefaultTimeframe() Timeframe { return TF1m }

// NormalizeTimeframe maps a raw request string onto a supported timeframe,
// falling back to the default for anything unrecognized.
func NormalizeTimeframe(s string) Timeframe {
	if tf := Timeframe(s); IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}
