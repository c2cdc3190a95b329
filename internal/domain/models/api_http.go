package models

// HTTP request shapes for the prediction API. Defaults and validation run
// through pkg/http ReadAndValidateRequest.

type PredictRequest struct {
	Symbol  string `query:"symbol" json:"symbol" validate:"required"`
	Horizon int    `query:"horizon" json:"horizon" default:"60" validate:"gte=1,lte=1440"`
	N       int    `query:"n" json:"n" default:"500" validate:"gte=0"`
	TF      string `query:"tf" json:"tf" default:"1m"`
}

type ConditionRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	N      int    `query:"n" json:"n" default:"500" validate:"gte=0"`
	TF     string `query:"tf" json:"tf" default:"1m"`
}

type ModelInfoRequest struct {
	Name string `query:"name" json:"name" validate:"required"`
}

type RetrainRequest struct {
	// Models to retrain; empty means "whatever the decision policy flags".
	Models []string `json:"models"`
	Force  bool     `json:"force"`
}
