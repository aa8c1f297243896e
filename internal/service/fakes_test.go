package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"crypto-signals/internal/dto"
	"crypto-signals/internal/model"
	"crypto-signals/internal/repository"
	"crypto-signals/pkg/logger"
	"crypto-signals/pkg/utils"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error", "console")
	if err != nil {
		t.Fatalf("failed to build test logger: %v", err)
	}
	return log
}

type fakeSignalRepo struct {
	mu      sync.Mutex
	signals map[string]*model.Signal

	createErr error
}

func newFakeSignalRepo() *fakeSignalRepo {
	return &fakeSignalRepo{signals: map[string]*model.Signal{}}
}

func (f *fakeSignalRepo) Create(ctx context.Context, signal *model.Signal, opts ...utils.DBOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	cp := *signal
	f.signals[signal.ID] = &cp
	return nil
}

func (f *fakeSignalRepo) FindByID(ctx context.Context, id string, opts ...utils.DBOption) (*model.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	signal, ok := f.signals[id]
	if !ok {
		return nil, repository.ErrSignalNotFound
	}
	cp := *signal
	return &cp, nil
}

func (f *fakeSignalRepo) Get(ctx context.Context, param dto.GetSignalsParam) ([]model.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Signal, 0, len(f.signals))
	for _, s := range f.signals {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeSignalRepo) UpdateStatus(ctx context.Context, id string, status model.SignalStatus, opts ...utils.DBOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	signal, ok := f.signals[id]
	if !ok {
		return repository.ErrSignalNotFound
	}
	signal.Status = status
	return nil
}

func (f *fakeSignalRepo) SetDistributed(ctx context.Context, id string, distributedCount int, opts ...utils.DBOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	signal, ok := f.signals[id]
	if !ok {
		return repository.ErrSignalNotFound
	}
	signal.Status = model.SignalStatusActive
	signal.DistributedCount = distributedCount
	return nil
}

func (f *fakeSignalRepo) IncrementExecutedCount(ctx context.Context, id string, opts ...utils.DBOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	signal, ok := f.signals[id]
	if !ok {
		return repository.ErrSignalNotFound
	}
	signal.ExecutedCount++
	return nil
}

func (f *fakeSignalRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var expired int64
	for _, s := range f.signals {
		if (s.Status == model.SignalStatusPending || s.Status == model.SignalStatusActive) && s.ValidUntil.Before(now) {
			s.Status = model.SignalStatusExpired
			expired++
		}
	}
	return expired, nil
}

func (f *fakeSignalRepo) CountByStatus(ctx context.Context, status model.SignalStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, s := range f.signals {
		if s.Status == status {
			count++
		}
	}
	return count, nil
}

func (f *fakeSignalRepo) SumCounters(ctx context.Context) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var distributed, executed int64
	for _, s := range f.signals {
		distributed += int64(s.DistributedCount)
		executed += int64(s.ExecutedCount)
	}
	return distributed, executed, nil
}

type fakeReceiptRepo struct {
	mu       sync.Mutex
	receipts []*model.SignalReceipt
	nextID   uint

	createErrFor map[uint]error
}

func newFakeReceiptRepo() *fakeReceiptRepo {
	return &fakeReceiptRepo{nextID: 1, createErrFor: map[uint]error{}}
}

func (f *fakeReceiptRepo) matches(r *model.SignalReceipt, param dto.GetReceiptsParam) bool {
	if param.SubscriberID != nil && r.SubscriberID != *param.SubscriberID {
		return false
	}
	if param.SignalID != nil && r.SignalID != *param.SignalID {
		return false
	}
	if param.Kind != nil && r.Kind != *param.Kind {
		return false
	}
	if param.ReceivedAfter != nil && r.ReceivedAt.Before(*param.ReceivedAfter) {
		return false
	}
	if param.ExecutionStatus != nil && r.ExecutionStatus != *param.ExecutionStatus {
		return false
	}
	return true
}

func (f *fakeReceiptRepo) Create(ctx context.Context, receipt *model.SignalReceipt, opts ...utils.DBOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.createErrFor[receipt.SubscriberID]; ok {
		return err
	}
	for _, existing := range f.receipts {
		if existing.SignalID == receipt.SignalID && existing.SubscriberID == receipt.SubscriberID {
			return errors.New("duplicate key value violates unique constraint \"idx_receipts_subscriber_signal\"")
		}
	}
	receipt.ID = f.nextID
	f.nextID++
	cp := *receipt
	f.receipts = append(f.receipts, &cp)
	return nil
}

func (f *fakeReceiptRepo) Get(ctx context.Context, param dto.GetReceiptsParam, opts ...utils.DBOption) ([]model.SignalReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.SignalReceipt{}
	for _, r := range f.receipts {
		if f.matches(r, param) {
			out = append(out, *r)
		}
	}
	if param.Limit != nil && len(out) > *param.Limit {
		out = out[:*param.Limit]
	}
	return out, nil
}

func (f *fakeReceiptRepo) Count(ctx context.Context, param dto.GetReceiptsParam) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, r := range f.receipts {
		if f.matches(r, param) {
			count++
		}
	}
	return count, nil
}

func (f *fakeReceiptRepo) CountBonus(ctx context.Context, param dto.GetReceiptsParam) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, r := range f.receipts {
		if f.matches(r, param) && r.IsBonus {
			count++
		}
	}
	return count, nil
}

func (f *fakeReceiptRepo) FindBySubscriberAndSignal(ctx context.Context, subscriberID uint, signalID string, opts ...utils.DBOption) (*model.SignalReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.receipts {
		if r.SubscriberID == subscriberID && r.SignalID == signalID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrReceiptNotFound
}

func (f *fakeReceiptRepo) Update(ctx context.Context, receipt *model.SignalReceipt, opts ...utils.DBOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.receipts {
		if r.ID == receipt.ID {
			cp := *receipt
			f.receipts[i] = &cp
			return nil
		}
	}
	return repository.ErrReceiptNotFound
}

type fakeSubscriberRepo struct {
	subscribers []model.Subscriber
	getErr      error
}

func (f *fakeSubscriberRepo) FindByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Subscriber, error) {
	for i := range f.subscribers {
		if f.subscribers[i].ID == id {
			cp := f.subscribers[i]
			return &cp, nil
		}
	}
	return nil, repository.ErrSubscriberNotFound
}

func (f *fakeSubscriberRepo) Get(ctx context.Context, param dto.GetSubscribersParam, opts ...utils.DBOption) ([]model.Subscriber, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := []model.Subscriber{}
	for _, s := range f.subscribers {
		if param.ActiveAt != nil && !s.IsActiveAt(*param.ActiveAt) {
			continue
		}
		if len(param.PlanTiers) > 0 && !containsTier(param.PlanTiers, s.PlanTier) {
			continue
		}
		if param.AutoTradeEnabled != nil {
			enabled := s.AutoTradeSetting != nil && s.AutoTradeSetting.Enabled
			if enabled != *param.AutoTradeEnabled {
				continue
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func containsTier(tiers []model.PlanTier, tier model.PlanTier) bool {
	for _, t := range tiers {
		if t == tier {
			return true
		}
	}
	return false
}

type fakePositionRepo struct {
	mu        sync.Mutex
	positions []model.Position
	nextID    uint
}

func newFakePositionRepo() *fakePositionRepo {
	return &fakePositionRepo{nextID: 1}
}

func (f *fakePositionRepo) Create(ctx context.Context, position *model.Position, opts ...utils.DBOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	position.ID = f.nextID
	f.nextID++
	f.positions = append(f.positions, *position)
	return nil
}

func (f *fakePositionRepo) Get(ctx context.Context, param dto.GetPositionsParam) ([]model.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Position{}
	for _, p := range f.positions {
		if param.SubscriberID != nil && p.SubscriberID != *param.SubscriberID {
			continue
		}
		if param.Market != nil && p.Market != *param.Market {
			continue
		}
		if param.IsOpen != nil && (p.IsOpen == nil || *p.IsOpen != *param.IsOpen) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePositionRepo) CountOpen(ctx context.Context, subscriberID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, p := range f.positions {
		if p.SubscriberID == subscriberID && p.IsOpen != nil && *p.IsOpen {
			count++
		}
	}
	return count, nil
}

func (f *fakePositionRepo) SumOpenAmount(ctx context.Context, subscriberID uint) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum float64
	for _, p := range f.positions {
		if p.SubscriberID == subscriberID && p.IsOpen != nil && *p.IsOpen {
			sum += p.Amount
		}
	}
	return sum, nil
}

type fakePriceFeed struct {
	candles map[string][]dto.Candle
	errFor  map[string]error
}

func (f *fakePriceFeed) GetCurrentPrices(ctx context.Context, markets []string) (map[string]float64, error) {
	out := map[string]float64{}
	for _, m := range markets {
		if series, ok := f.candles[m]; ok && len(series) > 0 {
			out[m] = series[0].Close
		}
	}
	return out, nil
}

func (f *fakePriceFeed) GetCandles(ctx context.Context, market string, count int) ([]dto.Candle, error) {
	if err, ok := f.errFor[market]; ok {
		return nil, err
	}
	return f.candles[market], nil
}

type placedOrder struct {
	subscriberID uint
	market       string
	amount       float64
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders []placedOrder
	err    error
}

func (f *fakeOrderRepo) PlaceOrder(ctx context.Context, subscriberID uint, market string, amount float64) (*dto.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.orders = append(f.orders, placedOrder{subscriberID: subscriberID, market: market, amount: amount})
	return &dto.OrderResult{
		OrderID:        fmt.Sprintf("ORD-%d", len(f.orders)),
		FilledPrice:    50000000,
		FilledQuantity: amount / 50000000,
	}, nil
}

type sentMessage struct {
	chatID  int64
	message string
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []sentMessage
	err      error
}

func (f *fakeNotifier) SendMessage(ctx context.Context, chatID int64, message string, opts ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, sentMessage{chatID: chatID, message: message})
	return nil
}

func (f *fakeNotifier) sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.messages))
	copy(out, f.messages)
	return out
}

type fakeUnitOfWork struct{}

func (f *fakeUnitOfWork) Run(fn func(opts ...utils.DBOption) error) error {
	return fn()
}
