package http

import (
	"errors"
	"net/http"
	"strconv"

	"crypto-signals/internal/dto"
	"crypto-signals/internal/model"
	"crypto-signals/internal/repository"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupSubscribers(base *echo.Group) {
	v1 := base.Group("/v1/subscribers")
	{
		v1.GET("/:id/usage", h.SubscriberUsage)
		v1.GET("/:id/history", h.SubscriberHistory)
	}
}

func (h *HttpAPIHandler) SubscriberUsage(c echo.Context) error {
	ctx := c.Request().Context()

	subscriberID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid subscriber id"))
	}

	kind := model.ReceiptKindSignalFeed
	if c.QueryParam("kind") == string(model.ReceiptKindSurgeAlert) {
		kind = model.ReceiptKindSurgeAlert
	}

	usage, err := h.service.StatsService.SubscriberUsage(ctx, uint(subscriberID), kind)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriberNotFound) {
			return c.JSON(http.StatusNotFound, dto.NewNotFoundResponse(err.Error()))
		}
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, "failed to collect usage", nil))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("subscriber usage", usage))
}

func (h *HttpAPIHandler) SubscriberHistory(c echo.Context) error {
	ctx := c.Request().Context()

	subscriberID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid subscriber id"))
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid limit"))
		}
	}

	receipts, err := h.service.StatsService.SubscriberHistory(ctx, uint(subscriberID), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, "failed to load history", nil))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("subscriber history", receipts))
}
