package repository

import (
	"context"
	"fmt"
	"net/http"

	"crypto-signals/config"
	"crypto-signals/internal/dto"
	"crypto-signals/pkg/httpclient"
	"crypto-signals/pkg/logger"
	"crypto-signals/pkg/ratelimit"
)

// OrderRepository is the opaque order placement collaborator. The engine never
// inspects the exchange protocol beyond the fill summary.
type OrderRepository interface {
	PlaceOrder(ctx context.Context, subscriberID uint, market string, amount float64) (*dto.OrderResult, error)
}

type exchangeOrderRepository struct {
	httpClient   httpclient.HTTPClient
	cfg          *config.Config
	logger       *logger.Logger
	orderLimiter *ratelimit.TokenLimiter
}

func NewExchangeOrderRepository(cfg *config.Config, log *logger.Logger) OrderRepository {
	return &exchangeOrderRepository{
		httpClient:   httpclient.New(cfg.Exchange.BaseURL, cfg.Exchange.Timeout, cfg.Exchange.APIKey),
		cfg:          cfg,
		logger:       log,
		orderLimiter: ratelimit.NewTokenLimiter(30),
	}
}

type placeOrderRequest struct {
	SubscriberID uint    `json:"subscriber_id"`
	Market       string  `json:"market"`
	Amount       float64 `json:"amount"`
	Side         string  `json:"side"`
}

func (r *exchangeOrderRepository) PlaceOrder(ctx context.Context, subscriberID uint, market string, amount float64) (*dto.OrderResult, error) {
	if err := r.orderLimiter.Wait(ctx, 1); err != nil {
		return nil, err
	}

	var result dto.OrderResult
	resp, err := r.httpClient.Post(ctx, "/v1/orders", placeOrderRequest{
		SubscriberID: subscriberID,
		Market:       market,
		Amount:       amount,
		Side:         "buy",
	}, nil, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		r.logger.Error("Exchange API rejected order",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("market", market),
			logger.StringField("body", string(resp.Body)))
		return nil, fmt.Errorf("exchange api returned status: %d", resp.StatusCode)
	}

	return &result, nil
}
