package http

import (
	"net/http"

	"crypto-signals/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupWorker(base *echo.Group) {
	v1 := base.Group("/v1/worker")
	{
		v1.GET("/status", h.WorkerStatus)
		v1.GET("/prices/:market", h.WorkerLastPrice)
	}
}

func (h *HttpAPIHandler) WorkerStatus(c echo.Context) error {
	status := map[string]bool{"running": h.service.AutoTradeWorker.IsRunning()}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("worker status", status))
}

func (h *HttpAPIHandler) WorkerLastPrice(c echo.Context) error {
	market := c.Param("market")

	price, ok := h.service.AutoTradeWorker.LastPrice(market)
	if !ok {
		return c.JSON(http.StatusNotFound, dto.NewNotFoundResponse("no recent price for market"))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("last price", map[string]interface{}{
		"market": market,
		"price":  price,
	}))
}
