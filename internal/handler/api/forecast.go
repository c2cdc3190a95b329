package api

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	models "FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/modelmanager"
	"FinCast/internal/retrain"
	"FinCast/internal/services/cache"
	"FinCast/internal/usecase"
	xhttp "FinCast/pkg/http"
	xmw "FinCast/pkg/http/middleware"
	xlogger "FinCast/pkg/logger"
)

const conditionCacheTTL = 15 * time.Second

// ForecastHandler exposes the prediction pipeline over HTTP.
type ForecastHandler struct {
	logger    *xlogger.Logger
	pipeline  *usecase.Pipeline
	manager   *modelmanager.Manager
	retrainer *retrain.AutoRetrainer
	cache     *cache.TTLCache
}

func NewForecastHandler(logger *xlogger.Logger, pipeline *usecase.Pipeline, manager *modelmanager.Manager, retrainer *retrain.AutoRetrainer) *ForecastHandler {
	return &ForecastHandler{
		logger:    logger,
		pipeline:  pipeline,
		manager:   manager,
		retrainer: retrainer,
		cache:     cache.NewTTLCache(),
	}
}

func (h *ForecastHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api", xmw.RateLimit(20, 10))
	g.GET("/predict", h.Predict)
	g.GET("/condition", h.Condition)
	g.GET("/models", h.ModelInfo)
	g.POST("/retrain", h.Retrain)
}

func (h *ForecastHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.TF)

	pred, err := h.pipeline.Predict(c.Request().Context(), req.Symbol, req.N, tf, req.Horizon)
	if err != nil {
		h.logger.Error("predict usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, predictionView(pred))
}

func (h *ForecastHandler) Condition(c echo.Context) error {
	req := &models.ConditionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.TF)

	key := "condition:" + req.Symbol + ":" + string(tf)
	if cached, ok := h.cache.Get(key); ok {
		return xhttp.SuccessResponse(c, cached)
	}

	cond, err := h.pipeline.Condition(c.Request().Context(), req.Symbol, req.N, tf)
	if err != nil {
		h.logger.Error("condition usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}

	view := conditionView(cond)
	h.cache.Set(key, view, conditionCacheTTL)
	return xhttp.SuccessResponse(c, view)
}

func (h *ForecastHandler) ModelInfo(c echo.Context) error {
	req := &models.ModelInfoRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	info, err := h.manager.GetModelInfo(c.Request().Context(), req.Name)
	if err != nil {
		h.logger.Error("model info error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, info)
}

func (h *ForecastHandler) Retrain(c echo.Context) error {
	req := &models.RetrainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	names := req.Models
	var reasons []string

	if len(names) == 0 {
		decision, err := h.retrainer.CheckRetrainingNeeded(ctx)
		if err != nil {
			h.logger.Error("retrain check error", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, mapDomainError(err))
		}
		reasons = decision.Reasons
		if !decision.RetrainNeeded && !req.Force {
			return xhttp.SuccessResponse(c, map[string]any{
				"retrain_needed": false,
				"reasons":        decision.Reasons,
			})
		}
		names = decision.Models
		if len(names) == 0 && req.Force {
			names = []string{models.ModelFeatures}
		}
	}

	// run async; retraining can take a while
	go func() {
		bg, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		for name, err := range h.retrainer.RetrainModels(bg, names) {
			if err != nil {
				h.logger.Error("retraining failed",
					xlogger.String("model", name),
					xlogger.Error(err))
			}
		}
	}()

	return xhttp.AcceptedResponse(c, map[string]any{
		"retrain_needed": true,
		"models":         names,
		"reasons":        reasons,
	})
}

// mapDomainError converts domain sentinels into transport errors.
func mapDomainError(err error) error {
	switch {
	case errors.Is(err, models.ErrInsufficientData):
		return xhttp.UnprocessableError(err.Error())
	case errors.Is(err, models.ErrStaleData):
		return xhttp.UnprocessableError(err.Error())
	case errors.Is(err, models.ErrConfiguration):
		return xhttp.BadRequestError(err.Error())
	case errors.Is(err, models.ErrArtifactIO):
		return xhttp.NotFoundError(err.Error())
	default:
		return xhttp.InternalError(err.Error())
	}
}
