package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"crypto-signals/internal/dto"
	"crypto-signals/internal/model"
	"crypto-signals/internal/quota"
	"crypto-signals/internal/repository"
	"crypto-signals/pkg/logger"
	"crypto-signals/pkg/utils"
)

// EligibilityRanker computes which active subscribers may receive a signal,
// tagged with bonus status and ordered so higher-paying tiers are serviced
// first.
type EligibilityRanker interface {
	Rank(ctx context.Context, signal *model.Signal, kind model.ReceiptKind) ([]dto.EligibleSubscriber, error)
	CurrentUsage(ctx context.Context, subscriberID uint, kind model.ReceiptKind, at time.Time) (int, error)
}

type eligibilityRanker struct {
	log            *logger.Logger
	subscriberRepo repository.SubscriberRepository
	receiptRepo    repository.ReceiptRepository
}

func NewEligibilityRanker(
	log *logger.Logger,
	subscriberRepo repository.SubscriberRepository,
	receiptRepo repository.ReceiptRepository,
) EligibilityRanker {
	return &eligibilityRanker{
		log:            log,
		subscriberRepo: subscriberRepo,
		receiptRepo:    receiptRepo,
	}
}

// windowStart returns the accounting boundary for a receipt kind: calendar
// month for the signal feed, ISO week for surge alerts.
func windowStart(kind model.ReceiptKind, at time.Time) time.Time {
	if kind == model.ReceiptKindSurgeAlert {
		return utils.WeekWindowStart(at)
	}
	return utils.MonthWindowStart(at)
}

// CurrentUsage counts a subscriber's receipts within the active accounting
// window.
func (r *eligibilityRanker) CurrentUsage(ctx context.Context, subscriberID uint, kind model.ReceiptKind, at time.Time) (int, error) {
	start := windowStart(kind, at)
	count, err := r.receiptRepo.Count(ctx, dto.GetReceiptsParam{
		SubscriberID:  &subscriberID,
		Kind:          &kind,
		ReceivedAfter: &start,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count receipts for subscriber %d: %w", subscriberID, err)
	}
	return int(count), nil
}

func (r *eligibilityRanker) Rank(ctx context.Context, signal *model.Signal, kind model.ReceiptKind) ([]dto.EligibleSubscriber, error) {
	now := time.Now()

	subscribers, err := r.subscriberRepo.Get(ctx, dto.GetSubscribersParam{ActiveAt: &now})
	if err != nil {
		return nil, fmt.Errorf("failed to load active subscribers: %w", err)
	}

	eligible := make([]dto.EligibleSubscriber, 0, len(subscribers))
	for _, subscriber := range subscribers {
		if !utils.ShouldContinue(ctx, r.log) {
			return nil, ctx.Err()
		}

		tier := model.ParsePlanTier(string(subscriber.PlanTier))

		usage, err := r.CurrentUsage(ctx, subscriber.ID, kind, now)
		if err != nil {
			r.log.ErrorContext(ctx, "Failed to compute usage, skipping subscriber",
				logger.IntField("subscriber_id", int(subscriber.ID)),
				logger.ErrorField(err),
			)
			continue
		}

		allowed, reason := quota.CanReceive(tier, usage)
		if !allowed {
			r.log.DebugContext(ctx, "Subscriber over quota",
				logger.IntField("subscriber_id", int(subscriber.ID)),
				logger.StringField("plan", string(tier)),
				logger.StringField("reason", reason),
			)
			continue
		}

		eligible = append(eligible, dto.EligibleSubscriber{
			Subscriber: subscriber,
			IsBonus:    quota.IsBonus(tier, usage),
			Priority:   tier.Priority(),
			Usage:      usage,
		})
	}

	// Priority descending; subscriber id ascending keeps same-tier ordering
	// deterministic across calls.
	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Priority != eligible[j].Priority {
			return eligible[i].Priority > eligible[j].Priority
		}
		return eligible[i].Subscriber.ID < eligible[j].Subscriber.ID
	})

	r.log.InfoContext(ctx, "Ranked eligible subscribers",
		logger.StringField("signal_id", signal.ID),
		logger.IntField("candidates", len(subscribers)),
		logger.IntField("eligible", len(eligible)),
	)

	return eligible, nil
}
