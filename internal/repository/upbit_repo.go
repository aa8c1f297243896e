package repository

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"crypto-signals/config"
	"crypto-signals/internal/dto"
	"crypto-signals/pkg/httpclient"
	"crypto-signals/pkg/logger"
)

// PriceFeedRepository is the read-only market data collaborator.
type PriceFeedRepository interface {
	GetCurrentPrices(ctx context.Context, markets []string) (map[string]float64, error)
	GetCandles(ctx context.Context, market string, count int) ([]dto.Candle, error)
}

type upbitRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

func NewUpbitRepository(cfg *config.Config, log *logger.Logger) PriceFeedRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.PriceFeed.MaxRequestPerMin)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	return &upbitRepository{
		httpClient:     httpclient.New(cfg.PriceFeed.BaseURL, cfg.PriceFeed.Timeout, ""),
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
	}
}

func (r *upbitRepository) GetCurrentPrices(ctx context.Context, markets []string) (map[string]float64, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	var tickers []dto.UpbitTicker
	resp, err := r.httpClient.Get(ctx, "/v1/ticker", map[string]string{
		"markets": strings.Join(markets, ","),
	}, nil, &tickers)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tickers from upbit: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		r.logger.Error("Upbit API returned Non-OK status for ticker",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("body", string(resp.Body)))
		return nil, fmt.Errorf("upbit api returned status: %d", resp.StatusCode)
	}

	prices := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		prices[t.Market] = t.TradePrice
	}

	return prices, nil
}

// GetCandles returns hourly candles ordered most-recent-first, as the upstream
// API serves them.
func (r *upbitRepository) GetCandles(ctx context.Context, market string, count int) ([]dto.Candle, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	var raw []dto.UpbitCandle
	resp, err := r.httpClient.Get(ctx, "/v1/candles/minutes/60", map[string]string{
		"market": market,
		"count":  strconv.Itoa(count),
	}, nil, &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candles from upbit: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		r.logger.Error("Upbit API returned Non-OK status for candles",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("market", market),
			logger.StringField("body", string(resp.Body)))
		return nil, fmt.Errorf("upbit api returned status: %d", resp.StatusCode)
	}

	candles := make([]dto.Candle, 0, len(raw))
	for _, c := range raw {
		candles = append(candles, dto.Candle{
			Market:    c.Market,
			Timestamp: c.TimestampMs,
			Open:      c.OpeningPrice,
			High:      c.HighPrice,
			Low:       c.LowPrice,
			Close:     c.TradePrice,
			Volume:    c.AccVolume,
		})
	}

	return candles, nil
}
