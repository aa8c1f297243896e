package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"crypto-signals/internal/dto"
	"crypto-signals/internal/model"
	"crypto-signals/internal/quota"
	"crypto-signals/internal/repository"
	"crypto-signals/pkg/logger"
	"crypto-signals/pkg/utils"
)

// StatsService exposes the read-only accessors consumed by the reporting
// layer.
type StatsService interface {
	SignalStats(ctx context.Context) (*dto.SignalStats, error)
	SubscriberUsage(ctx context.Context, subscriberID uint, kind model.ReceiptKind) (*quota.UsageStats, error)
	SubscriberHistory(ctx context.Context, subscriberID uint, limit int) ([]model.SignalReceipt, error)
}

type statsService struct {
	log            *logger.Logger
	signalRepo     repository.SignalRepository
	receiptRepo    repository.ReceiptRepository
	subscriberRepo repository.SubscriberRepository
}

func NewStatsService(
	log *logger.Logger,
	signalRepo repository.SignalRepository,
	receiptRepo repository.ReceiptRepository,
	subscriberRepo repository.SubscriberRepository,
) StatsService {
	return &statsService{
		log:            log,
		signalRepo:     signalRepo,
		receiptRepo:    receiptRepo,
		subscriberRepo: subscriberRepo,
	}
}

func (s *statsService) SignalStats(ctx context.Context) (*dto.SignalStats, error) {
	stats := &dto.SignalStats{}

	g, gctx := errgroup.WithContext(ctx)

	counts := []struct {
		status model.SignalStatus
		dest   *int64
	}{
		{model.SignalStatusActive, &stats.ActiveCount},
		{model.SignalStatusPending, &stats.PendingCount},
		{model.SignalStatusExpired, &stats.ExpiredCount},
		{model.SignalStatusCancelled, &stats.CancelledCount},
	}

	for _, c := range counts {
		c := c
		g.Go(func() error {
			count, err := s.signalRepo.CountByStatus(gctx, c.status)
			if err != nil {
				return err
			}
			*c.dest = count
			return nil
		})
	}

	g.Go(func() error {
		distributed, executed, err := s.signalRepo.SumCounters(gctx)
		if err != nil {
			return err
		}
		stats.DistributedTotal = distributed
		stats.ExecutedTotal = executed
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return stats, nil
}

// SubscriberUsage projects the subscriber's quota state for the active
// accounting window.
func (s *statsService) SubscriberUsage(ctx context.Context, subscriberID uint, kind model.ReceiptKind) (*quota.UsageStats, error) {
	subscriber, err := s.subscriberRepo.FindByID(ctx, subscriberID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	start := windowStart(kind, now)

	used, err := s.receiptRepo.Count(ctx, dto.GetReceiptsParam{
		SubscriberID:  &subscriberID,
		Kind:          &kind,
		ReceivedAfter: &start,
	})
	if err != nil {
		return nil, err
	}

	bonus, err := s.receiptRepo.CountBonus(ctx, dto.GetReceiptsParam{
		SubscriberID:  &subscriberID,
		Kind:          &kind,
		ReceivedAfter: &start,
	})
	if err != nil {
		return nil, err
	}

	stats := quota.Stats(model.ParsePlanTier(string(subscriber.PlanTier)), int(used), int(bonus))
	return &stats, nil
}

func (s *statsService) SubscriberHistory(ctx context.Context, subscriberID uint, limit int) ([]model.SignalReceipt, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.receiptRepo.Get(ctx, dto.GetReceiptsParam{
		SubscriberID: &subscriberID,
		Limit:        &limit,
	}, utils.WithPreload("Signal"))
}
