package indicators

import (
	"math"

	"FinCast/internal/domain/models"
)

// Rolling indicator primitives. Each returns a slice row-aligned with the
// input; rows before the trailing window is full carry the undefined marker.

// SMA computes a simple moving average over a fixed trailing window.
func SMA(data []float64, periods int) []float64 {
	out := undefinedSlice(len(data))
	if periods <= 0 || len(data) < periods {
		return out
	}
	sum := 0.0
	for i, v := range data {
		sum += v
		if i >= periods {
			sum -= data[i-periods]
		}
		if i >= periods-1 {
			out[i] = sum / float64(periods)
		}
	}
	return out
}

// EMA computes an exponential moving average with span-style smoothing
// alpha = 2/(periods+1), seeded from the first value.
func EMA(data []float64, periods int) []float64 {
	out := undefinedSlice(len(data))
	if periods <= 0 || len(data) == 0 {
		return out
	}
	alpha := 2.0 / (float64(periods) + 1.0)
	ema := data[0]
	out[0] = ema
	for i := 1; i < len(data); i++ {
		ema = alpha*data[i] + (1-alpha)*ema
		out[i] = ema
	}
	return out
}

// RSI computes the relative strength index over the given period using
// simple moving averages of gains and losses. When the average loss is
// zero RSI is defined as 100, never infinity or the undefined marker.
func RSI(data []float64, periods int) []float64 {
	out := undefinedSlice(len(data))
	if periods <= 0 || len(data) <= periods {
		return out
	}
	gains := make([]float64, len(data))
	losses := make([]float64, len(data))
	for i := 1; i < len(data); i++ {
		delta := data[i] - data[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}
	avgGain := SMA(gains[1:], periods)
	avgLoss := SMA(losses[1:], periods)
	for i := periods - 1; i < len(avgGain); i++ {
		g, l := avgGain[i], avgLoss[i]
		if math.IsNaN(g) || math.IsNaN(l) {
			continue
		}
		if l == 0 {
			out[i+1] = 100
			continue
		}
		rs := g / l
		out[i+1] = 100 - 100/(1+rs)
	}
	return out
}

// MACD computes the MACD line, signal line and histogram.
func MACD(data []float64, fast, slow, signal int) (line, sig, hist []float64) {
	fastEMA := EMA(data, fast)
	slowEMA := EMA(data, slow)
	line = make([]float64, len(data))
	for i := range data {
		line[i] = fastEMA[i] - slowEMA[i]
	}
	sig = EMA(line, signal)
	hist = make([]float64, len(data))
	for i := range data {
		hist[i] = line[i] - sig[i]
	}
	return line, sig, hist
}

// BollingerBands computes middle band (SMA), and upper/lower bands at
// stdDev rolling standard deviations around it.
func BollingerBands(data []float64, periods int, stdDev float64) (upper, middle, lower []float64) {
	middle = SMA(data, periods)
	sd := RollingStdDev(data, periods)
	upper = undefinedSlice(len(data))
	lower = undefinedSlice(len(data))
	for i := range data {
		if math.IsNaN(middle[i]) || math.IsNaN(sd[i]) {
			continue
		}
		upper[i] = middle[i] + sd[i]*stdDev
		lower[i] = middle[i] - sd[i]*stdDev
	}
	return upper, middle, lower
}

// Momentum computes the fractional price change over a fixed lag.
func Momentum(data []float64, periods int) []float64 {
	out := undefinedSlice(len(data))
	for i := periods; i < len(data); i++ {
		if data[i-periods] == 0 {
			continue
		}
		out[i] = data[i]/data[i-periods] - 1
	}
	return out
}

// RollingStdDev computes the sample standard deviation over a trailing
// window.
func RollingStdDev(data []float64, periods int) []float64 {
	out := undefinedSlice(len(data))
	if periods <= 1 || len(data) < periods {
		return out
	}
	for i := periods - 1; i < len(data); i++ {
		out[i] = stdDev(data[i-periods+1 : i+1])
	}
	return out
}

// VolumeRatio computes volume relative to its rolling average.
func VolumeRatio(volume []float64, periods int) []float64 {
	avg := SMA(volume, periods)
	out := undefinedSlice(len(volume))
	for i := range volume {
		if math.IsNaN(avg[i]) || avg[i] == 0 {
			continue
		}
		out[i] = volume[i] / avg[i]
	}
	return out
}

func stdDev(window []float64) float64 {
	n := float64(len(window))
	mean := 0.0
	for _, v := range window {
		mean += v
	}
	mean /= n
	var ss float64
	for _, v := range window {
		d := v - mean
		ss += d * d
	}
	// sample variance, matching a rolling std with one degree of freedom
	return math.Sqrt(ss / (n - 1))
}

func undefinedSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = models.Undefined()
	}
	return out
}
