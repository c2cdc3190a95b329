package api

import (
	"time"

	models "FinCast/internal/domain/models"
)

// Response DTOs; domain types stay free of transport tags.

type SignalView struct {
	Signal           string   `json:"signal"`
	Confidence       string   `json:"confidence"`
	Entry            float64  `json:"entry,omitempty"`
	Target           float64  `json:"target,omitempty"`
	StopLoss         float64  `json:"stop_loss,omitempty"`
	FilterConfidence float64  `json:"filter_confidence"`
	Reasons          []string `json:"reasons,omitempty"`
}

type EnsembleView struct {
	CombinedPath []float64            `json:"combined_path"`
	Paths        map[string][]float64 `json:"paths"`
	Scores       map[string]float64   `json:"scores"`
	Weights      map[string]float64   `json:"weights"`
	Horizon      int                  `json:"horizon"`
}

type ConditionView struct {
	Trend      string  `json:"trend"`
	Volatility string  `json:"volatility"`
	Momentum   string  `json:"momentum"`
	RSI        string  `json:"rsi"`
	MACD       string  `json:"macd"`
	Volume     string  `json:"volume"`
	Confidence float64 `json:"confidence"`
	Label      string  `json:"label"`
}

type PredictionView struct {
	Symbol        string            `json:"symbol"`
	GeneratedAt   time.Time         `json:"generated_at"`
	DataTimestamp time.Time         `json:"data_timestamp"`
	CurrentPrice  float64           `json:"current_price"`
	Ensemble      *EnsembleView     `json:"ensemble,omitempty"`
	Condition     *ConditionView    `json:"condition,omitempty"`
	Signal        *SignalView       `json:"signal,omitempty"`
	ModelErrors   map[string]string `json:"model_errors,omitempty"`
}

func conditionView(c models.MarketCondition) ConditionView {
	return ConditionView{
		Trend:      string(c.Trend),
		Volatility: string(c.Volatility),
		Momentum:   string(c.Momentum),
		RSI:        string(c.RSIState),
		MACD:       string(c.MACDState),
		Volume:     string(c.VolumeTrend),
		Confidence: c.Confidence,
		Label:      c.Label(),
	}
}

func predictionView(p *models.Prediction) PredictionView {
	view := PredictionView{
		Symbol:        p.Symbol,
		GeneratedAt:   p.GeneratedAt,
		DataTimestamp: p.DataTimestamp,
		CurrentPrice:  p.CurrentPrice,
		ModelErrors:   p.ModelErrors,
	}
	if p.Ensemble != nil {
		view.Ensemble = &EnsembleView{
			CombinedPath: p.Ensemble.CombinedPath,
			Paths:        p.Ensemble.Paths,
			Scores:       p.Ensemble.Scores,
			Weights:      p.Ensemble.Weights,
			Horizon:      p.Ensemble.Horizon,
		}
	}
	if p.Condition != nil {
		c := conditionView(*p.Condition)
		view.Condition = &c
	}
	if p.Signal != nil {
		view.Signal = &SignalView{
			Signal:           string(p.Signal.Signal),
			Confidence:       string(p.Signal.Confidence),
			Entry:            p.Signal.Entry,
			Target:           p.Signal.Target,
			StopLoss:         p.Signal.StopLoss,
			FilterConfidence: p.Signal.FilterConfidence,
			Reasons:          p.Signal.Reasons,
		}
	}
	return view
}
