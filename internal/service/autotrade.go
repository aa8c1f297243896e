package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"crypto-signals/config"
	"crypto-signals/internal/dto"
	"crypto-signals/internal/model"
	"crypto-signals/internal/quota"
	"crypto-signals/internal/repository"
	"crypto-signals/internal/strategy"
	"crypto-signals/pkg/cache"
	"crypto-signals/pkg/common"
	"crypto-signals/pkg/logger"
	"crypto-signals/pkg/telegram"
	"crypto-signals/pkg/utils"
)

// autoTradeEligibleTiers are the plans allowed to run automated execution.
var autoTradeEligibleTiers = []model.PlanTier{model.PlanPro, model.PlanEnterprise}

// tierMinConfidence is the per-plan confidence bar for surge alerts. A
// favorite-coin entry can lower it further.
func tierMinConfidence(tier model.PlanTier) float64 {
	switch tier {
	case model.PlanEnterprise:
		return 75
	case model.PlanPro:
		return 78
	case model.PlanBasic:
		return 82
	default:
		return 85
	}
}

// AutoTradeWorker periodically scans the watch list for surge candidates and
// drives per-subscriber alert and execution decisions. Single instance per
// deployment: a second worker would double-process candidates.
type AutoTradeWorker struct {
	cfg            *config.Config
	log            *logger.Logger
	subscriberRepo repository.SubscriberRepository
	receiptRepo    repository.ReceiptRepository
	positionRepo   repository.PositionRepository
	signalRepo     repository.SignalRepository
	priceFeed      repository.PriceFeedRepository
	orderRepo      repository.OrderRepository
	ranker         EligibilityRanker
	distributor    SignalDistributorService
	analyzer       *strategy.SurgeAnalyzer
	notifier       NotificationSink
	inmemoryCache  cache.Cache

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewAutoTradeWorker(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	ranker EligibilityRanker,
	distributor SignalDistributorService,
	analyzer *strategy.SurgeAnalyzer,
	notifier NotificationSink,
	inmemoryCache cache.Cache,
) *AutoTradeWorker {
	return &AutoTradeWorker{
		cfg:            cfg,
		log:            log,
		subscriberRepo: repo.SubscriberRepo,
		receiptRepo:    repo.ReceiptRepo,
		positionRepo:   repo.PositionRepo,
		signalRepo:     repo.SignalRepo,
		priceFeed:      repo.PriceFeedRepo,
		orderRepo:      repo.OrderRepo,
		ranker:         ranker,
		distributor:    distributor,
		analyzer:       analyzer,
		notifier:       notifier,
		inmemoryCache:  inmemoryCache,
	}
}

// Start launches the polling loop. No-op when already running.
func (w *AutoTradeWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		w.log.Warn("Auto trade worker already running")
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	done := w.done
	utils.GoSafe(func() {
		defer close(done)
		w.run(runCtx)
	})

	w.log.Info("Auto trade worker started",
		logger.Field("interval", w.cfg.Worker.Interval),
		logger.IntField("watch_list", len(w.cfg.Worker.WatchList)),
	)
}

// Stop cancels the loop and blocks briefly for the current cycle to drain.
// No-op when already stopped.
func (w *AutoTradeWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.cancel()
	done := w.done
	w.running = false
	w.mu.Unlock()

	select {
	case <-done:
		w.log.Info("Auto trade worker stopped")
	case <-time.After(30 * time.Second):
		w.log.Warn("Timeout waiting for auto trade worker to drain")
	}
}

func (w *AutoTradeWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// LastPrice returns the most recent cached close for a watched market. The
// cache entry expires with the configured TTL, so a false result means the
// market has not been scanned recently.
func (w *AutoTradeWorker) LastPrice(market string) (float64, bool) {
	return cache.GetTyped[float64](w.inmemoryCache, fmt.Sprintf(common.KEY_LAST_PRICE, market))
}

// run is the self-healing loop: an error inside a cycle backs off and retries,
// it never terminates the worker.
func (w *AutoTradeWorker) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		sleep := w.cfg.Worker.Interval
		if err := w.runCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.ErrorContextWithAlert(ctx, "Auto trade cycle failed", logger.ErrorField(err))
			sleep = w.cfg.Worker.ErrorBackoff
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

func (w *AutoTradeWorker) runCycle(ctx context.Context) error {
	now := time.Now()

	candidates, err := w.scanWatchList(ctx)
	if err != nil {
		return fmt.Errorf("watch list scan failed: %w", err)
	}
	if len(candidates) == 0 {
		w.log.DebugContext(ctx, "No surge candidates this cycle")
		return nil
	}

	autoTradeEnabled := true
	subscribers, err := w.subscriberRepo.Get(ctx, dto.GetSubscribersParam{
		ActiveAt:         &now,
		PlanTiers:        autoTradeEligibleTiers,
		AutoTradeEnabled: &autoTradeEnabled,
	})
	if err != nil {
		return fmt.Errorf("failed to load auto trade subscribers: %w", err)
	}
	if len(subscribers) == 0 {
		return nil
	}

	// Per-cycle dedup: a re-scanned market must not alert the same subscriber
	// set twice within one polling pass. The set dies with the cycle.
	processed := make(map[string]bool, len(candidates))

	for _, candidate := range candidates {
		if !utils.ShouldContinue(ctx, w.log) {
			return ctx.Err()
		}
		if processed[candidate.Market] {
			continue
		}

		if err := w.processCandidate(ctx, candidate, subscribers, now); err != nil {
			w.log.ErrorContext(ctx, "Failed to process candidate",
				logger.StringField("market", candidate.Market),
				logger.ErrorField(err),
			)
		}
		processed[candidate.Market] = true
	}

	return nil
}

// scanWatchList fetches candles for each watched market and keeps candidates
// at or above the alert score. The price feed repository rate-limits the
// calls, so the scan is inherently serial across the list.
func (w *AutoTradeWorker) scanWatchList(ctx context.Context) ([]dto.SurgeAnalysis, error) {
	var candidates []dto.SurgeAnalysis

	for _, market := range w.cfg.Worker.WatchList {
		if !utils.ShouldContinue(ctx, w.log) {
			return candidates, ctx.Err()
		}

		candles, err := w.priceFeed.GetCandles(ctx, market, w.cfg.Worker.CandleCount)
		if err != nil {
			// One unreachable market must not sink the whole scan.
			w.log.WarnContext(ctx, "Failed to fetch candles",
				logger.StringField("market", market),
				logger.ErrorField(err),
			)
			continue
		}
		if len(candles) == 0 {
			continue
		}

		w.inmemoryCache.Set(fmt.Sprintf(common.KEY_LAST_PRICE, market), candles[0].Close, w.cfg.Worker.LastPriceCacheTTL)

		analysis := w.analyzer.Analyze(market, candles)
		if analysis.Score >= w.cfg.Worker.AlertScore {
			candidates = append(candidates, analysis)
		}
	}

	return candidates, nil
}

func (w *AutoTradeWorker) processCandidate(ctx context.Context, candidate dto.SurgeAnalysis, subscribers []model.Subscriber, now time.Time) error {
	var signal *model.Signal

	for i := range subscribers {
		subscriber := &subscribers[i]

		// Cross-cycle cooldown: one alert per subscriber per market while the
		// prior surge signal is still valid.
		cooldownKey := fmt.Sprintf(common.KEY_SURGE_ALERT_SENT, candidate.Market, subscriber.ID)
		if _, found := w.inmemoryCache.Get(cooldownKey); found {
			continue
		}

		decision := w.evaluateGate(ctx, subscriber, candidate, now)
		if !decision.alert {
			w.log.DebugContext(ctx, "Gate rejected candidate for subscriber",
				logger.StringField("market", candidate.Market),
				logger.IntField("subscriber_id", int(subscriber.ID)),
				logger.StringField("reason", decision.reason),
			)
			continue
		}

		// The surge signal row is created lazily, once the first subscriber
		// passes the gate.
		if signal == nil {
			created, err := w.createSurgeSignal(ctx, candidate, now)
			if err != nil {
				return err
			}
			signal = created
		}

		receipt := &model.SignalReceipt{
			SignalID:        signal.ID,
			SubscriberID:    subscriber.ID,
			Kind:            model.ReceiptKindSurgeAlert,
			ReceivedAt:      now,
			IsBonus:         decision.bonus,
			ExecutionStatus: model.ExecutionStatusNotExecuted,
		}
		if err := w.receiptRepo.Create(ctx, receipt); err != nil {
			w.log.ErrorContext(ctx, "Failed to create surge receipt",
				logger.StringField("market", candidate.Market),
				logger.IntField("subscriber_id", int(subscriber.ID)),
				logger.ErrorField(err),
			)
			continue
		}
		w.inmemoryCache.Set(cooldownKey, now, w.cfg.Trading.SignalValidity)

		if subscriber.HasDeliveryChannel() {
			message := telegram.FormatSurgeAlert(candidate.Market, candidate.Score, candidate.CurrentPrice, decision.additionalBuy)
			if err := w.notifier.SendMessage(ctx, subscriber.TelegramChatID, message); err != nil {
				w.log.WarnContext(ctx, "Failed to send surge alert",
					logger.IntField("subscriber_id", int(subscriber.ID)),
					logger.ErrorField(err),
				)
			}
		}

		if decision.execute {
			w.executeTrade(ctx, subscriber, candidate, signal, receipt)
		}
	}

	return nil
}

func (w *AutoTradeWorker) createSurgeSignal(ctx context.Context, candidate dto.SurgeAnalysis, now time.Time) (*model.Signal, error) {
	signal := &model.Signal{
		ID:          newSignalID(candidate.Market, now),
		Market:      candidate.Market,
		Direction:   model.DirectionBuy,
		EntryPrice:  utils.RoundPrice(candidate.CurrentPrice),
		TargetPrice: utils.RoundPrice(candidate.CurrentPrice * (1 + w.cfg.Trading.TargetProfitRatio)),
		StopLoss:    utils.RoundPrice(candidate.CurrentPrice * (1 + w.cfg.Trading.StopLossRatio)),
		Confidence:  candidate.Score,
		Rationale:   buildRationale(candidate.Breakdown),
		Status:      model.SignalStatusActive,
		ValidUntil:  now.Add(w.cfg.Trading.SignalValidity),
	}
	if err := w.signalRepo.Create(ctx, signal); err != nil {
		return nil, fmt.Errorf("failed to persist surge signal for %s: %w", candidate.Market, err)
	}
	return signal, nil
}

type gateDecision struct {
	alert         bool
	execute       bool
	bonus         bool
	additionalBuy bool
	reason        string
}

// evaluateGate combines weekly quota, favorite-coin membership, plan-tier
// confidence, holding detection and the subscriber's own auto-trade settings.
func (w *AutoTradeWorker) evaluateGate(ctx context.Context, subscriber *model.Subscriber, candidate dto.SurgeAnalysis, now time.Time) gateDecision {
	tier := model.ParsePlanTier(string(subscriber.PlanTier))

	usage, err := w.ranker.CurrentUsage(ctx, subscriber.ID, model.ReceiptKindSurgeAlert, now)
	if err != nil {
		return gateDecision{reason: fmt.Sprintf("usage lookup failed: %v", err)}
	}

	if allowed, reason := quota.CanReceive(tier, usage); !allowed {
		return gateDecision{reason: reason}
	}

	favorite := subscriber.Favorite(candidate.Market)
	if favorite != nil && !favorite.AlertEnabled {
		return gateDecision{reason: "alerts disabled for favorite"}
	}

	threshold := tierMinConfidence(tier)
	if favorite != nil && favorite.MinConfidence != nil {
		threshold = *favorite.MinConfidence
	}
	if candidate.Score < threshold {
		return gateDecision{reason: fmt.Sprintf("score %.1f below threshold %.1f", candidate.Score, threshold)}
	}

	decision := gateDecision{
		alert: true,
		bonus: quota.IsBonus(tier, usage),
	}

	openPositions, err := w.positionRepo.Get(ctx, dto.GetPositionsParam{
		SubscriberID: &subscriber.ID,
		Market:       &candidate.Market,
		IsOpen:       utils.ToPointer(true),
	})
	if err != nil {
		decision.reason = fmt.Sprintf("position lookup failed: %v", err)
		return decision
	}
	decision.additionalBuy = len(openPositions) > 0

	// Alert-band candidates stop here: execution needs the higher score.
	if candidate.Score < w.cfg.Worker.AutoTradeScore {
		decision.reason = "score below auto trade threshold"
		return decision
	}

	setting := subscriber.AutoTradeSetting
	if setting == nil || !setting.Enabled {
		decision.reason = "auto trading not enabled"
		return decision
	}
	if setting.MinConfidence > 0 && candidate.Score < setting.MinConfidence {
		decision.reason = "score below subscriber minimum"
		return decision
	}
	if setting.IsExcluded(candidate.Market) {
		decision.reason = "market excluded by subscriber"
		return decision
	}
	if decision.additionalBuy && !setting.AllowDuplicatePosition {
		decision.reason = "duplicate position not allowed"
		return decision
	}

	openCount, err := w.positionRepo.CountOpen(ctx, subscriber.ID)
	if err != nil {
		decision.reason = fmt.Sprintf("open position count failed: %v", err)
		return decision
	}
	if setting.MaxPositions > 0 && openCount >= int64(setting.MaxPositions) {
		decision.reason = "max concurrent positions reached"
		return decision
	}

	invested, err := w.positionRepo.SumOpenAmount(ctx, subscriber.ID)
	if err != nil {
		decision.reason = fmt.Sprintf("budget lookup failed: %v", err)
		return decision
	}
	if invested+setting.AmountPerTrade > setting.BudgetCeiling {
		decision.reason = "budget ceiling reached"
		return decision
	}

	decision.execute = true
	return decision
}

// executeTrade places the order and records the outcome. A placement failure
// marks the receipt failed, never executed.
func (w *AutoTradeWorker) executeTrade(ctx context.Context, subscriber *model.Subscriber, candidate dto.SurgeAnalysis, signal *model.Signal, receipt *model.SignalReceipt) {
	setting := subscriber.AutoTradeSetting

	order, err := w.orderRepo.PlaceOrder(ctx, subscriber.ID, candidate.Market, setting.AmountPerTrade)
	if err != nil {
		w.log.ErrorContextWithAlert(ctx, "Order placement failed",
			logger.IntField("subscriber_id", int(subscriber.ID)),
			logger.StringField("market", candidate.Market),
			logger.ErrorField(err),
		)
		receipt.ExecutionStatus = model.ExecutionStatusFailed
		if updateErr := w.receiptRepo.Update(ctx, receipt); updateErr != nil {
			w.log.ErrorContext(ctx, "Failed to mark receipt failed", logger.ErrorField(updateErr))
		}
		return
	}

	if err := w.distributor.MarkExecuted(ctx, dto.ExecutionRecord{
		SubscriberID:   subscriber.ID,
		SignalID:       signal.ID,
		ExecutionRef:   order.OrderID,
		ExecutionPrice: order.FilledPrice,
	}); err != nil {
		w.log.ErrorContext(ctx, "Failed to record execution",
			logger.IntField("subscriber_id", int(subscriber.ID)),
			logger.StringField("signal_id", signal.ID),
			logger.ErrorField(err),
		)
		return
	}

	position := &model.Position{
		SubscriberID: subscriber.ID,
		Market:       candidate.Market,
		Amount:       setting.AmountPerTrade,
		AvgPrice:     utils.RoundPrice(order.FilledPrice),
		IsOpen:       utils.ToPointer(true),
		OpenedAt:     time.Now(),
	}
	if err := w.positionRepo.Create(ctx, position); err != nil {
		w.log.ErrorContext(ctx, "Failed to record position",
			logger.IntField("subscriber_id", int(subscriber.ID)),
			logger.StringField("market", candidate.Market),
			logger.ErrorField(err),
		)
	}

	if subscriber.HasDeliveryChannel() {
		message := telegram.FormatExecutionReport(candidate.Market, setting.AmountPerTrade, order.FilledPrice, order.OrderID)
		if err := w.notifier.SendMessage(ctx, subscriber.TelegramChatID, message); err != nil {
			w.log.WarnContext(ctx, "Failed to send execution report",
				logger.IntField("subscriber_id", int(subscriber.ID)),
				logger.ErrorField(err),
			)
		}
	}
}
