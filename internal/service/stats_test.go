package service

import (
	"context"
	"testing"
	"time"

	"crypto-signals/internal/model"
	"crypto-signals/internal/quota"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalStats(t *testing.T) {
	signalRepo := newFakeSignalRepo()
	seed := []*model.Signal{
		{ID: "SIG-1", Status: model.SignalStatusActive, DistributedCount: 3, ExecutedCount: 1},
		{ID: "SIG-2", Status: model.SignalStatusActive, DistributedCount: 2},
		{ID: "SIG-3", Status: model.SignalStatusExpired, DistributedCount: 5, ExecutedCount: 2},
		{ID: "SIG-4", Status: model.SignalStatusCancelled},
	}
	for _, s := range seed {
		require.NoError(t, signalRepo.Create(context.Background(), s))
	}

	stats := NewStatsService(newTestLogger(t), signalRepo, newFakeReceiptRepo(), &fakeSubscriberRepo{})
	result, err := stats.SignalStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), result.ActiveCount)
	assert.Equal(t, int64(1), result.ExpiredCount)
	assert.Equal(t, int64(1), result.CancelledCount)
	assert.Zero(t, result.PendingCount)
	assert.Equal(t, int64(10), result.DistributedTotal)
	assert.Equal(t, int64(3), result.ExecutedTotal)
}

func TestSubscriberUsage(t *testing.T) {
	receiptRepo := newFakeReceiptRepo()
	subscriberRepo := &fakeSubscriberRepo{subscribers: []model.Subscriber{
		activeSubscriber(1, model.PlanBasic),
	}}
	now := time.Now()

	receipts := []*model.SignalReceipt{
		{SignalID: "SIG-1", SubscriberID: 1, Kind: model.ReceiptKindSignalFeed, ReceivedAt: now},
		{SignalID: "SIG-2", SubscriberID: 1, Kind: model.ReceiptKindSignalFeed, ReceivedAt: now, IsBonus: true},
		{SignalID: "SIG-3", SubscriberID: 1, Kind: model.ReceiptKindSurgeAlert, ReceivedAt: now},
	}
	for _, r := range receipts {
		require.NoError(t, receiptRepo.Create(context.Background(), r))
	}

	stats := NewStatsService(newTestLogger(t), newFakeSignalRepo(), receiptRepo, subscriberRepo)
	usage, err := stats.SubscriberUsage(context.Background(), 1, model.ReceiptKindSignalFeed)
	require.NoError(t, err)

	assert.Equal(t, model.PlanBasic, usage.Plan)
	assert.Equal(t, 2, usage.Used)
	assert.Equal(t, 1, usage.BonusReceivedCount)
	assert.Equal(t, 4, usage.Remaining)
}

func TestSubscriberUsageUnknownSubscriber(t *testing.T) {
	stats := NewStatsService(newTestLogger(t), newFakeSignalRepo(), newFakeReceiptRepo(), &fakeSubscriberRepo{})

	_, err := stats.SubscriberUsage(context.Background(), 99, model.ReceiptKindSignalFeed)
	assert.Error(t, err)
}

func TestSubscriberUsageUnlimitedPlan(t *testing.T) {
	subscriberRepo := &fakeSubscriberRepo{subscribers: []model.Subscriber{
		activeSubscriber(1, model.PlanEnterprise),
	}}
	stats := NewStatsService(newTestLogger(t), newFakeSignalRepo(), newFakeReceiptRepo(), subscriberRepo)

	usage, err := stats.SubscriberUsage(context.Background(), 1, model.ReceiptKindSignalFeed)
	require.NoError(t, err)

	assert.Equal(t, quota.Unlimited, usage.Promised)
	assert.Equal(t, quota.Unlimited, usage.Remaining)
}

func TestSubscriberHistoryDefaultLimit(t *testing.T) {
	receiptRepo := newFakeReceiptRepo()
	now := time.Now()
	for i := 0; i < 60; i++ {
		require.NoError(t, receiptRepo.Create(context.Background(), &model.SignalReceipt{
			SignalID:     newSignalID("KRW-BTC", now),
			SubscriberID: 1,
			Kind:         model.ReceiptKindSignalFeed,
			ReceivedAt:   now,
		}))
	}

	stats := NewStatsService(newTestLogger(t), newFakeSignalRepo(), receiptRepo, &fakeSubscriberRepo{})
	history, err := stats.SubscriberHistory(context.Background(), 1, 0)
	require.NoError(t, err)

	assert.Len(t, history, 50)
}
