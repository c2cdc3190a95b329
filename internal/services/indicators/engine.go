package indicators

import (
	"fmt"

	"FinCast/internal/domain/models"
)

// Config enumerates every indicator window the engine recognizes.
type Config struct {
	SMAPeriods   []int
	EMAPeriods   []int
	RSIPeriod    int
	MACDFast     int
	MACDSlow     int
	MACDSignal   int
	BBPeriod     int
	BBStdDev     float64
	MomentumLag  int
	VolWindow    int
	VolumeWindow int
}

// DefaultConfig returns the standard indicator vocabulary.
func DefaultConfig() Config {
	return Config{
		SMAPeriods:   []int{5, 10, 20, 50},
		EMAPeriods:   []int{5, 10, 20},
		RSIPeriod:    14,
		MACDFast:     12,
		MACDSlow:     26,
		MACDSignal:   9,
		BBPeriod:     20,
		BBStdDev:     2,
		MomentumLag:  10,
		VolWindow:    20,
		VolumeWindow: 20,
	}
}

// Engine computes the full indicator vocabulary over a price series.
// Stateless; Compute is a pure function of its input.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine { return &Engine{cfg: cfg} }

// Compute derives a FeatureFrame from the series. Rows before an
// indicator's window is full keep the undefined marker; callers read cells
// through FeatureFrame.Value and must never treat undefined as numeric.
// A series shorter than the longest window still yields usable
// shorter-window columns.
func (e *Engine) Compute(series models.PriceSeries) (*models.FeatureFrame, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: empty series", models.ErrInsufficientData)
	}
	closes := series.Closes()
	volumes := series.Volumes()

	frame := models.NewFeatureFrame(series)
	for _, p := range e.cfg.SMAPeriods {
		frame.SetColumn(fmt.Sprintf("SMA_%d", p), SMA(closes, p))
	}
	for _, p := range e.cfg.EMAPeriods {
		frame.SetColumn(fmt.Sprintf("EMA_%d", p), EMA(closes, p))
	}
	frame.SetColumn(models.FeatRSI, RSI(closes, e.cfg.RSIPeriod))

	line, sig, hist := MACD(closes, e.cfg.MACDFast, e.cfg.MACDSlow, e.cfg.MACDSignal)
	frame.SetColumn(models.FeatMACD, line)
	frame.SetColumn(models.FeatMACDSignal, sig)
	frame.SetColumn(models.FeatMACDHist, hist)

	upper, middle, lower := BollingerBands(closes, e.cfg.BBPeriod, e.cfg.BBStdDev)
	frame.SetColumn(models.FeatBBUpper, upper)
	frame.SetColumn(models.FeatBBMiddle, middle)
	frame.SetColumn(models.FeatBBLower, lower)

	frame.SetColumn(models.FeatMomentum, Momentum(closes, e.cfg.MomentumLag))
	frame.SetColumn(models.FeatVolatility, RollingStdDev(closes, e.cfg.VolWindow))
	frame.SetColumn(models.FeatVolumeSMA, SMA(volumes, e.cfg.VolumeWindow))
	frame.SetColumn(models.FeatVolumeRatio, VolumeRatio(volumes, e.cfg.VolumeWindow))

	return frame, nil
}

// Summary describes the latest row's indicator state.
type Summary struct {
	Trend        models.Trend
	RSI          float64
	RSIState     models.RSIState
	MACDState    models.MACDState
	BBPosition   string
	CurrentPrice float64
}

// Summarize classifies the final row. Undefined cells degrade to neutral
// readings rather than being treated as numbers.
func (e *Engine) Summarize(frame *models.FeatureFrame) Summary {
	last := frame.Len() - 1
	price := frame.Series[last].Close
	s := Summary{Trend: models.TrendNeutral, RSIState: models.RSINeutral, MACDState: models.MACDNeutral, BBPosition: "MIDDLE", CurrentPrice: price}

	sma20, ok20 := frame.Value(models.FeatSMA20, last)
	sma5, ok5 := frame.Value(models.FeatSMA5, last)
	if ok20 && ok5 {
		switch {
		case price > sma20 && sma5 > sma20:
			s.Trend = models.TrendBull
		case price < sma20 && sma5 < sma20:
			s.Trend = models.TrendBear
		}
	}

	if rsi, ok := frame.Value(models.FeatRSI, last); ok {
		s.RSI = rsi
		switch {
		case rsi > 70:
			s.RSIState = models.RSIOverbought
		case rsi < 30:
			s.RSIState = models.RSIOversold
		}
	}

	macd, okM := frame.Value(models.FeatMACD, last)
	macdSig, okS := frame.Value(models.FeatMACDSignal, last)
	if okM && okS {
		switch {
		case macd > macdSig:
			s.MACDState = models.MACDBullish
		case macd < macdSig:
			s.MACDState = models.MACDBearish
		}
	}

	bbU, okU := frame.Value(models.FeatBBUpper, last)
	bbL, okL := frame.Value(models.FeatBBLower, last)
	if okU && okL {
		switch {
		case price > bbU:
			s.BBPosition = "ABOVE_UPPER"
		case price < bbL:
			s.BBPosition = "BELOW_LOWER"
		}
	}
	return s
}
