package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"crypto-signals/config"
	"crypto-signals/internal/dto"
	"crypto-signals/internal/model"
	"crypto-signals/internal/repository"
	"crypto-signals/internal/strategy"
	"crypto-signals/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// surgeCandles builds a series that scores well above the auto trade
// threshold: a volume spike, an oversold oscillator, price hugging support
// and three rising closes.
func surgeCandles(market string) []dto.Candle {
	candles := make([]dto.Candle, 20)
	closes := []float64{103, 102, 101, 100, 100}
	for i := range candles {
		var c float64
		if i < len(closes) {
			c = closes[i]
		} else {
			c = 130 + 30*float64(i-5)
		}
		candles[i] = dto.Candle{
			Market: market,
			Close:  c,
			Low:    102,
			Volume: 100,
		}
	}
	candles[0].Volume = 300
	return candles
}

// alertOnlyCandles scores in the alert band: the volume spike, oversold
// oscillator and support proximity fire, but the uptrend does not.
func alertOnlyCandles(market string) []dto.Candle {
	candles := surgeCandles(market)
	candles[2].Close = 102
	return candles
}

func testWorkerConfig(watchList []string) *config.Config {
	cfg := testTradingConfig()
	cfg.Worker = config.Worker{
		Interval:          5 * time.Minute,
		ErrorBackoff:      time.Minute,
		WatchList:         watchList,
		AutoTradeScore:    75,
		AlertScore:        60,
		CandleCount:       48,
		LastPriceCacheTTL: time.Minute,
	}
	return cfg
}

func autoTradeSubscriber(id uint, tier model.PlanTier, setting *model.AutoTradeSetting) model.Subscriber {
	subscriber := activeSubscriber(id, tier)
	if setting != nil {
		setting.SubscriberID = id
		subscriber.AutoTradeSetting = setting
	}
	return subscriber
}

type workerFixture struct {
	worker      *AutoTradeWorker
	signalRepo  *fakeSignalRepo
	receiptRepo *fakeReceiptRepo
	positions   *fakePositionRepo
	orders      *fakeOrderRepo
	notifier    *fakeNotifier
	distributor *fakeDistributor
}

func newWorkerFixture(t *testing.T, cfg *config.Config, subscribers []model.Subscriber, feed *fakePriceFeed) *workerFixture {
	t.Helper()
	log := newTestLogger(t)
	signalRepo := newFakeSignalRepo()
	receiptRepo := newFakeReceiptRepo()
	positions := newFakePositionRepo()
	orders := &fakeOrderRepo{}
	notifier := &fakeNotifier{}
	distributor := &fakeDistributor{}

	repo := &repository.Repository{
		SignalRepo:     signalRepo,
		ReceiptRepo:    receiptRepo,
		SubscriberRepo: &fakeSubscriberRepo{subscribers: subscribers},
		PositionRepo:   positions,
		PriceFeedRepo:  feed,
		OrderRepo:      orders,
		UnitOfWork:     &fakeUnitOfWork{},
	}
	ranker := NewEligibilityRanker(log, repo.SubscriberRepo, receiptRepo)
	worker := NewAutoTradeWorker(cfg, log, repo, ranker, distributor, strategy.NewSurgeAnalyzer(), notifier, cache.NewCache(time.Minute, time.Minute))

	return &workerFixture{
		worker:      worker,
		signalRepo:  signalRepo,
		receiptRepo: receiptRepo,
		positions:   positions,
		orders:      orders,
		notifier:    notifier,
		distributor: distributor,
	}
}

func TestRunCycleAlertsAndExecutes(t *testing.T) {
	setting := &model.AutoTradeSetting{
		Enabled:        true,
		BudgetCeiling:  1000000,
		AmountPerTrade: 100000,
		MaxPositions:   5,
	}
	fx := newWorkerFixture(t,
		testWorkerConfig([]string{"KRW-BTC"}),
		[]model.Subscriber{autoTradeSubscriber(1, model.PlanEnterprise, setting)},
		&fakePriceFeed{candles: map[string][]dto.Candle{"KRW-BTC": surgeCandles("KRW-BTC")}},
	)

	require.NoError(t, fx.worker.runCycle(context.Background()))

	require.Len(t, fx.orders.orders, 1)
	assert.Equal(t, "KRW-BTC", fx.orders.orders[0].market)
	assert.Equal(t, 100000.0, fx.orders.orders[0].amount)

	require.Len(t, fx.distributor.executed, 1)
	assert.Equal(t, uint(1), fx.distributor.executed[0].SubscriberID)

	receipts, err := fx.receiptRepo.Get(context.Background(), dto.GetReceiptsParam{})
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, model.ReceiptKindSurgeAlert, receipts[0].Kind)

	positions, err := fx.positions.Get(context.Background(), dto.GetPositionsParam{})
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "KRW-BTC", positions[0].Market)

	// Surge alert plus the execution report.
	assert.Len(t, fx.notifier.sent(), 2)

	// The surge signal row was persisted once.
	assert.Len(t, fx.signalRepo.signals, 1)

	// The scan cached the latest close.
	price, ok := fx.worker.LastPrice("KRW-BTC")
	require.True(t, ok)
	assert.Equal(t, 103.0, price)

	_, ok = fx.worker.LastPrice("KRW-NEVER")
	assert.False(t, ok)
}

func TestRunCycleDedupsRepeatedMarket(t *testing.T) {
	setting := &model.AutoTradeSetting{
		Enabled:         true,
		BudgetCeiling:   1000000,
		AmountPerTrade:  100000,
		MaxPositions:    5,
		ExcludedMarkets: []string{"KRW-BTC"},
	}
	fx := newWorkerFixture(t,
		testWorkerConfig([]string{"KRW-BTC", "KRW-BTC"}),
		[]model.Subscriber{autoTradeSubscriber(1, model.PlanEnterprise, setting)},
		&fakePriceFeed{candles: map[string][]dto.Candle{"KRW-BTC": surgeCandles("KRW-BTC")}},
	)

	require.NoError(t, fx.worker.runCycle(context.Background()))

	// Excluded market: alert only, and the duplicate watch entry collapses
	// into a single delivery.
	assert.Len(t, fx.notifier.sent(), 1)
	receipts, err := fx.receiptRepo.Get(context.Background(), dto.GetReceiptsParam{})
	require.NoError(t, err)
	assert.Len(t, receipts, 1)
	assert.Empty(t, fx.orders.orders)
}

func TestRunCycleAlertBandScoreSkipsExecution(t *testing.T) {
	setting := &model.AutoTradeSetting{
		Enabled:        true,
		BudgetCeiling:  1000000,
		AmountPerTrade: 100000,
		MaxPositions:   5,
	}
	subscriber := autoTradeSubscriber(1, model.PlanEnterprise, setting)
	minConfidence := 65.0
	subscriber.Favorites = []model.FavoriteCoin{{
		SubscriberID:  1,
		Market:        "KRW-BTC",
		AlertEnabled:  true,
		MinConfidence: &minConfidence,
	}}
	fx := newWorkerFixture(t,
		testWorkerConfig([]string{"KRW-BTC"}),
		[]model.Subscriber{subscriber},
		&fakePriceFeed{candles: map[string][]dto.Candle{"KRW-BTC": alertOnlyCandles("KRW-BTC")}},
	)

	require.NoError(t, fx.worker.runCycle(context.Background()))

	// A score between the alert and auto trade thresholds reaches a favorite
	// with a lowered bar, but never places an order.
	messages := fx.notifier.sent()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].message, "Surge Detected")
	assert.Empty(t, fx.orders.orders)
	assert.Empty(t, fx.distributor.executed)

	receipts, err := fx.receiptRepo.Get(context.Background(), dto.GetReceiptsParam{})
	require.NoError(t, err)
	assert.Len(t, receipts, 1)
}

func TestRunCycleCooldownSuppressesRepeatAlert(t *testing.T) {
	setting := &model.AutoTradeSetting{
		Enabled:        true,
		BudgetCeiling:  1000000,
		AmountPerTrade: 100000,
		MaxPositions:   5,
	}
	fx := newWorkerFixture(t,
		testWorkerConfig([]string{"KRW-BTC"}),
		[]model.Subscriber{autoTradeSubscriber(1, model.PlanEnterprise, setting)},
		&fakePriceFeed{candles: map[string][]dto.Candle{"KRW-BTC": surgeCandles("KRW-BTC")}},
	)

	require.NoError(t, fx.worker.runCycle(context.Background()))
	require.NoError(t, fx.worker.runCycle(context.Background()))

	// The market keeps surging, but the first alert holds for the signal
	// validity window.
	receipts, err := fx.receiptRepo.Get(context.Background(), dto.GetReceiptsParam{})
	require.NoError(t, err)
	assert.Len(t, receipts, 1)
	assert.Len(t, fx.orders.orders, 1)
	assert.Len(t, fx.signalRepo.signals, 1)
}

func TestRunCycleOrderFailureNeverMarksExecuted(t *testing.T) {
	setting := &model.AutoTradeSetting{
		Enabled:        true,
		BudgetCeiling:  1000000,
		AmountPerTrade: 100000,
		MaxPositions:   5,
	}
	fx := newWorkerFixture(t,
		testWorkerConfig([]string{"KRW-BTC"}),
		[]model.Subscriber{autoTradeSubscriber(1, model.PlanEnterprise, setting)},
		&fakePriceFeed{candles: map[string][]dto.Candle{"KRW-BTC": surgeCandles("KRW-BTC")}},
	)
	fx.orders.err = errors.New("exchange unavailable")

	require.NoError(t, fx.worker.runCycle(context.Background()))

	assert.Empty(t, fx.distributor.executed)

	receipts, err := fx.receiptRepo.Get(context.Background(), dto.GetReceiptsParam{})
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, model.ExecutionStatusFailed, receipts[0].ExecutionStatus)

	positions, err := fx.positions.Get(context.Background(), dto.GetPositionsParam{})
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestRunCycleBudgetCeilingBlocksExecution(t *testing.T) {
	setting := &model.AutoTradeSetting{
		Enabled:        true,
		BudgetCeiling:  100000,
		AmountPerTrade: 20000,
		MaxPositions:   10,
	}
	fx := newWorkerFixture(t,
		testWorkerConfig([]string{"KRW-BTC"}),
		[]model.Subscriber{autoTradeSubscriber(1, model.PlanEnterprise, setting)},
		&fakePriceFeed{candles: map[string][]dto.Candle{"KRW-BTC": surgeCandles("KRW-BTC")}},
	)
	openAmount := 90000.0
	isOpen := true
	require.NoError(t, fx.positions.Create(context.Background(), &model.Position{
		SubscriberID: 1,
		Market:       "KRW-ETH",
		Amount:       openAmount,
		AvgPrice:     4200000,
		IsOpen:       &isOpen,
		OpenedAt:     time.Now(),
	}))

	require.NoError(t, fx.worker.runCycle(context.Background()))

	// Alert still goes out, execution is withheld.
	assert.Len(t, fx.notifier.sent(), 1)
	assert.Empty(t, fx.orders.orders)

	receipts, err := fx.receiptRepo.Get(context.Background(), dto.GetReceiptsParam{})
	require.NoError(t, err)
	assert.Len(t, receipts, 1)
}

func TestRunCycleDuplicatePositionPolicy(t *testing.T) {
	setting := &model.AutoTradeSetting{
		Enabled:        true,
		BudgetCeiling:  10000000,
		AmountPerTrade: 100000,
		MaxPositions:   10,
	}
	fx := newWorkerFixture(t,
		testWorkerConfig([]string{"KRW-BTC"}),
		[]model.Subscriber{autoTradeSubscriber(1, model.PlanEnterprise, setting)},
		&fakePriceFeed{candles: map[string][]dto.Candle{"KRW-BTC": surgeCandles("KRW-BTC")}},
	)
	isOpen := true
	require.NoError(t, fx.positions.Create(context.Background(), &model.Position{
		SubscriberID: 1,
		Market:       "KRW-BTC",
		Amount:       100000,
		AvgPrice:     50000000,
		IsOpen:       &isOpen,
		OpenedAt:     time.Now(),
	}))

	require.NoError(t, fx.worker.runCycle(context.Background()))

	// Holding the coin already: the alert flags an additional buy but the
	// default policy refuses to stack positions.
	messages := fx.notifier.sent()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].message, "Additional Buy Opportunity")
	assert.Empty(t, fx.orders.orders)
}

func TestRunCycleWeeklyQuotaSkipsSubscriber(t *testing.T) {
	setting := &model.AutoTradeSetting{
		Enabled:        true,
		BudgetCeiling:  10000000,
		AmountPerTrade: 100000,
		MaxPositions:   10,
	}
	fx := newWorkerFixture(t,
		testWorkerConfig([]string{"KRW-BTC"}),
		[]model.Subscriber{autoTradeSubscriber(1, model.PlanPro, setting)},
		&fakePriceFeed{candles: map[string][]dto.Candle{"KRW-BTC": surgeCandles("KRW-BTC")}},
	)
	now := time.Now()
	for i := 0; i < 15; i++ {
		require.NoError(t, fx.receiptRepo.Create(context.Background(), &model.SignalReceipt{
			SignalID:     fmt.Sprintf("SIG-%d", i),
			SubscriberID: 1,
			Kind:         model.ReceiptKindSurgeAlert,
			ReceivedAt:   now,
		}))
	}

	require.NoError(t, fx.worker.runCycle(context.Background()))

	assert.Empty(t, fx.notifier.sent())
	assert.Empty(t, fx.orders.orders)

	count, err := fx.receiptRepo.Count(context.Background(), dto.GetReceiptsParam{})
	require.NoError(t, err)
	assert.Equal(t, int64(15), count)
}

func TestRunCycleIgnoresUnreachableMarket(t *testing.T) {
	setting := &model.AutoTradeSetting{
		Enabled:        true,
		BudgetCeiling:  10000000,
		AmountPerTrade: 100000,
		MaxPositions:   10,
	}
	fx := newWorkerFixture(t,
		testWorkerConfig([]string{"KRW-DOWN", "KRW-BTC"}),
		[]model.Subscriber{autoTradeSubscriber(1, model.PlanEnterprise, setting)},
		&fakePriceFeed{
			candles: map[string][]dto.Candle{"KRW-BTC": surgeCandles("KRW-BTC")},
			errFor:  map[string]error{"KRW-DOWN": errors.New("timeout")},
		},
	)

	require.NoError(t, fx.worker.runCycle(context.Background()))

	require.Len(t, fx.orders.orders, 1)
	assert.Equal(t, "KRW-BTC", fx.orders.orders[0].market)
}

func TestWorkerLifecycle(t *testing.T) {
	cfg := testWorkerConfig(nil)
	cfg.Worker.Interval = 10 * time.Millisecond
	fx := newWorkerFixture(t, cfg, nil, &fakePriceFeed{})

	assert.False(t, fx.worker.IsRunning())

	ctx := context.Background()
	fx.worker.Start(ctx)
	assert.True(t, fx.worker.IsRunning())

	// Second start is a no-op.
	fx.worker.Start(ctx)
	assert.True(t, fx.worker.IsRunning())

	fx.worker.Stop()
	assert.False(t, fx.worker.IsRunning())

	// Second stop is a no-op too.
	fx.worker.Stop()
	assert.False(t, fx.worker.IsRunning())
}
