package backtest

import (
	"fmt"
	"math"
	"time"

	"FinCast/internal/domain/models"
)

// StrategyReport summarizes a simple long/short/flat simulation driven by
// the backtest predictions.
type StrategyReport struct {
	TotalReturnPct    float64 `json:"total_return_pct"`
	AvgReturnPct      float64 `json:"avg_return_per_trade_pct"`
	SharpeRatio       float64 `json:"sharpe_ratio"`
	WinRatePct        float64 `json:"win_rate_pct"`
	Trades            int     `json:"num_trades"`
	LongTrades        int     `json:"long_trades"`
	ShortTrades       int     `json:"short_trades"`
	TransactionCost   float64 `json:"transaction_cost"`
	AnnualizationRoot float64 `json:"annualization_root"`
}

// noiseThreshold keeps the strategy flat on sub-0.1% predicted moves.
const noiseThreshold = 0.001

// SimulateStrategy converts predictions into positions: long when the
// prediction exceeds the current price by the noise threshold, short when
// below it, flat otherwise. Per-step returns are net of the transaction
// cost; the Sharpe ratio is annualized by the root of the series'
// periods-per-year.
func SimulateStrategy(res *Result, transactionCost float64) (StrategyReport, error) {
	preds, actuals := res.Predictions, res.Actuals
	if len(preds) < 2 || len(preds) != len(actuals) {
		return StrategyReport{}, fmt.Errorf("%w: %d aligned steps", models.ErrInsufficientData, len(preds))
	}

	report := StrategyReport{TransactionCost: transactionCost}
	returns := make([]float64, 0, len(preds)-1)
	wins := 0

	for i := 0; i < len(preds)-1; i++ {
		current := actuals[i]
		position := 0
		switch {
		case preds[i] > current*(1+noiseThreshold):
			position = 1
			report.LongTrades++
		case preds[i] < current*(1-noiseThreshold):
			position = -1
			report.ShortTrades++
		}

		priceReturn := 0.0
		if current != 0 {
			priceReturn = (actuals[i+1] - current) / current
		}
		stepReturn := float64(position)*priceReturn - math.Abs(float64(position))*transactionCost
		returns = append(returns, stepReturn)
		if stepReturn > 0 {
			wins++
		}
	}

	total, mean := 0.0, 0.0
	for _, r := range returns {
		total += r
	}
	mean = total / float64(len(returns))

	report.Trades = len(returns)
	report.TotalReturnPct = total * 100
	report.AvgReturnPct = mean * 100
	report.WinRatePct = float64(wins) / float64(len(returns)) * 100
	report.AnnualizationRoot = math.Sqrt(periodsPerYear(res.Interval))
	report.SharpeRatio = sharpeRatio(returns, report.AnnualizationRoot)
	return report, nil
}

// sharpeRatio is mean/std of per-step returns scaled by the annualization
// root; zero when the returns have no variance.
func sharpeRatio(returns []float64, annualizationRoot float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var ss float64
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(returns)))
	if std == 0 {
		return 0
	}
	return mean / std * annualizationRoot
}

func periodsPerYear(interval time.Duration) float64 {
	if interval <= 0 {
		interval = time.Minute
	}
	return float64(365*24*time.Hour) / float64(interval)
}
