package models

import "math"

// Feature column names produced by the indicator engine.
const (
	FeatSMA5        = "SMA_5"
	FeatSMA10       = "SMA_10"
	FeatSMA20       = "SMA_20"
	FeatSMA50       = "SMA_50"
	FeatEMA5        = "EMA_5"
	FeatEMA10       = "EMA_10"
	FeatEMA20       = "EMA_20"
	FeatRSI         = "RSI"
	FeatMACD        = "MACD"
	FeatMACDSignal  = "MACD_signal"
	FeatMACDHist    = "MACD_hist"
	FeatBBUpper     = "BB_upper"
	FeatBBMiddle    = "BB_middle"
	FeatBBLower     = "BB_lower"
	FeatMomentum    = "momentum"
	FeatVolatility  = "volatility"
	FeatVolumeSMA   = "volume_sma"
	FeatVolumeRatio = "volume_ratio"
)

// FeatureFrame is a PriceSeries augmented with derived indicator columns.
// Rows that lack the look-back history for a column carry an undefined
// marker; use Value to read cells, never the raw slice, so undefined is
// handled explicitly instead of leaking NaN into numeric code.
type FeatureFrame struct {
	Series  PriceSeries
	columns map[string][]float64
}

// NewFeatureFrame creates an empty frame over a series.
func NewFeatureFrame(series PriceSeries) *FeatureFrame {
	return &FeatureFrame{Series: series, columns: make(map[string][]float64)}
}

// Undefined is the marker stored in cells whose look-back window is not full.
func Undefined() float64 { return math.NaN() }

// SetColumn attaches a derived column. The column must be row-aligned with
// the underlying series.
func (f *FeatureFrame) SetColumn(name string, values []float64) {
	f.columns[name] = values
}

// Len returns the number of rows.
func (f *FeatureFrame) Len() int { return len(f.Series) }

// Columns returns the attached column names.
func (f *FeatureFrame) Columns() []string {
	out := make([]string, 0, len(f.columns))
	for name := range f.columns {
		out = append(out, name)
	}
	return out
}

// Value reads one cell. ok is false for unknown columns, out-of-range rows
// and undefined cells.
func (f *FeatureFrame) Value(name string, row int) (float64, bool) {
	col, found := f.columns[name]
	if !found || row < 0 || row >= len(col) {
		return 0, false
	}
	v := col[row]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// LastValue reads the final row of a column.
func (f *FeatureFrame) LastValue(name string) (float64, bool) {
	return f.Value(name, f.Len()-1)
}

// RowDefined reports whether every listed column is defined at the row.
func (f *FeatureFrame) RowDefined(row int, names []string) bool {
	for _, name := range names {
		if _, ok := f.Value(name, row); !ok {
			return false
		}
	}
	return true
}

// FeatureVector extracts the listed columns at a row. ok is false when any
// of them is undefined.
func (f *FeatureFrame) FeatureVector(row int, names []string) ([]float64, bool) {
	out := make([]float64, len(names))
	for i, name := range names {
		v, ok := f.Value(name, row)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
