package http

import (
	"errors"
	"net/http"

	"crypto-signals/internal/dto"
	"crypto-signals/internal/repository"
	"crypto-signals/internal/service"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupSignals(base *echo.Group) {
	v1 := base.Group("/v1/signals")
	{
		v1.POST("/generate", h.GenerateSignal)
		v1.POST("/generate/batch", h.GenerateSignalBatch)
		v1.POST("/:id/distribute", h.DistributeSignal)
		v1.POST("/:id/cancel", h.CancelSignal)
		v1.POST("/executed", h.MarkExecuted)
		v1.POST("/close-out", h.RecordCloseOut)
		v1.POST("/expire-sweep", h.ExpireSweep)
		v1.GET("/stats", h.SignalStats)
	}
}

func (h *HttpAPIHandler) GenerateSignal(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.Prediction)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	result, err := h.service.GeneratorService.GenerateFromPrediction(ctx, *req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, "failed to generate signal", nil))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse(result.Message, result))
}

func (h *HttpAPIHandler) GenerateSignalBatch(c echo.Context) error {
	ctx := c.Request().Context()

	var req []dto.Prediction
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if len(req) == 0 {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("empty prediction batch"))
	}
	for i := range req {
		if err := h.validator.Struct(&req[i]); err != nil {
			return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
		}
	}

	result := h.service.GeneratorService.GenerateBatch(ctx, req)
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("batch processed", result))
}

func (h *HttpAPIHandler) DistributeSignal(c echo.Context) error {
	ctx := c.Request().Context()
	signalID := c.Param("id")

	result, err := h.service.DistributorService.Distribute(ctx, signalID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSignalNotFound):
			return c.JSON(http.StatusNotFound, dto.NewNotFoundResponse(err.Error()))
		case errors.Is(err, service.ErrSignalExpired):
			return c.JSON(http.StatusConflict, dto.NewBaseResponse(http.StatusConflict, err.Error(), result))
		default:
			return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
		}
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("signal distributed", result))
}

func (h *HttpAPIHandler) CancelSignal(c echo.Context) error {
	ctx := c.Request().Context()
	signalID := c.Param("id")

	if err := h.service.GeneratorService.CancelSignal(ctx, signalID); err != nil {
		if errors.Is(err, repository.ErrSignalNotFound) {
			return c.JSON(http.StatusNotFound, dto.NewNotFoundResponse(err.Error()))
		}
		return c.JSON(http.StatusConflict, dto.NewBaseResponse(http.StatusConflict, err.Error(), nil))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("signal cancelled", nil))
}

func (h *HttpAPIHandler) MarkExecuted(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.ExecutionRecord)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	if err := h.service.DistributorService.MarkExecuted(ctx, *req); err != nil {
		if errors.Is(err, repository.ErrReceiptNotFound) {
			return c.JSON(http.StatusNotFound, dto.NewNotFoundResponse(err.Error()))
		}
		return c.JSON(http.StatusConflict, dto.NewBaseResponse(http.StatusConflict, err.Error(), nil))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("execution recorded", nil))
}

func (h *HttpAPIHandler) RecordCloseOut(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.CloseOutRecord)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	if err := h.service.DistributorService.RecordCloseOut(ctx, *req); err != nil {
		if errors.Is(err, repository.ErrReceiptNotFound) {
			return c.JSON(http.StatusNotFound, dto.NewNotFoundResponse(err.Error()))
		}
		return c.JSON(http.StatusConflict, dto.NewBaseResponse(http.StatusConflict, err.Error(), nil))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("close out recorded", nil))
}

func (h *HttpAPIHandler) ExpireSweep(c echo.Context) error {
	ctx := c.Request().Context()

	expired, err := h.service.GeneratorService.ExpireStaleSignals(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, "failed to expire signals", nil))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("expire sweep completed", map[string]int64{"expired": expired}))
}

func (h *HttpAPIHandler) SignalStats(c echo.Context) error {
	ctx := c.Request().Context()

	stats, err := h.service.StatsService.SignalStats(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, "failed to collect stats", nil))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("signal stats", stats))
}
