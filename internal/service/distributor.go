package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crypto-signals/config"
	"crypto-signals/internal/dto"
	"crypto-signals/internal/model"
	"crypto-signals/internal/repository"
	"crypto-signals/pkg/logger"
	"crypto-signals/pkg/telegram"
	"crypto-signals/pkg/utils"
)

// ErrSignalExpired is returned when distribution is attempted on a signal
// whose validity window already elapsed.
var ErrSignalExpired = errors.New("signal expired before distribution")

// NotificationSink delivers a rendered message to a subscriber chat.
// Failures are soft: a failed send never rolls back a receipt.
type NotificationSink interface {
	SendMessage(ctx context.Context, chatID int64, message string, opts ...interface{}) error
}

type SignalDistributorService interface {
	Distribute(ctx context.Context, signalID string) (*dto.DistributeResult, error)
	MarkExecuted(ctx context.Context, record dto.ExecutionRecord) error
	RecordCloseOut(ctx context.Context, record dto.CloseOutRecord) error
}

type signalDistributor struct {
	cfg         *config.Config
	log         *logger.Logger
	signalRepo  repository.SignalRepository
	receiptRepo repository.ReceiptRepository
	uow         repository.UnitOfWork
	ranker      EligibilityRanker
	notifier    NotificationSink
}

func NewSignalDistributor(
	cfg *config.Config,
	log *logger.Logger,
	signalRepo repository.SignalRepository,
	receiptRepo repository.ReceiptRepository,
	uow repository.UnitOfWork,
	ranker EligibilityRanker,
	notifier NotificationSink,
) SignalDistributorService {
	return &signalDistributor{
		cfg:         cfg,
		log:         log,
		signalRepo:  signalRepo,
		receiptRepo: receiptRepo,
		uow:         uow,
		ranker:      ranker,
		notifier:    notifier,
	}
}

func (s *signalDistributor) Distribute(ctx context.Context, signalID string) (*dto.DistributeResult, error) {
	result := &dto.DistributeResult{Recipients: []dto.Recipient{}}

	signal, err := s.signalRepo.FindByID(ctx, signalID)
	if err != nil {
		return result, fmt.Errorf("failed to load signal %s: %w", signalID, err)
	}

	now := time.Now()

	// Expiry is re-checked here, not only by the sweep, so a signal that
	// lapsed between creation and distribution is never delivered.
	if signal.IsExpiredAt(now) || signal.Status == model.SignalStatusExpired {
		if signal.Status != model.SignalStatusExpired {
			if updateErr := s.signalRepo.UpdateStatus(ctx, signal.ID, model.SignalStatusExpired); updateErr != nil {
				s.log.ErrorContext(ctx, "Failed to expire signal at distribution time",
					logger.StringField("signal_id", signal.ID),
					logger.ErrorField(updateErr),
				)
			}
		}
		result.Errors = append(result.Errors, ErrSignalExpired.Error())
		return result, ErrSignalExpired
	}

	if signal.Status == model.SignalStatusCancelled {
		return result, fmt.Errorf("signal %s is cancelled", signal.ID)
	}

	eligible, err := s.ranker.Rank(ctx, signal, model.ReceiptKindSignalFeed)
	if err != nil {
		return result, fmt.Errorf("failed to rank subscribers for signal %s: %w", signal.ID, err)
	}

	for _, candidate := range eligible {
		receipt := &model.SignalReceipt{
			SignalID:        signal.ID,
			SubscriberID:    candidate.Subscriber.ID,
			Kind:            model.ReceiptKindSignalFeed,
			ReceivedAt:      now,
			IsBonus:         candidate.IsBonus,
			ExecutionStatus: model.ExecutionStatusNotExecuted,
		}

		// One failed receipt never aborts delivery to the rest.
		if err := s.receiptRepo.Create(ctx, receipt); err != nil {
			s.log.ErrorContext(ctx, "Failed to create receipt",
				logger.StringField("signal_id", signal.ID),
				logger.IntField("subscriber_id", int(candidate.Subscriber.ID)),
				logger.ErrorField(err),
			)
			result.Errors = append(result.Errors, fmt.Sprintf("subscriber %d: %v", candidate.Subscriber.ID, err))
			continue
		}

		result.Recipients = append(result.Recipients, dto.Recipient{
			SubscriberID: candidate.Subscriber.ID,
			IsBonus:      candidate.IsBonus,
		})
		result.DistributedCount++

		if candidate.Subscriber.HasDeliveryChannel() {
			s.notifyAsync(candidate.Subscriber.TelegramChatID, signal, candidate.IsBonus)
		}
	}

	if err := s.signalRepo.SetDistributed(ctx, signal.ID, result.DistributedCount); err != nil {
		return result, fmt.Errorf("failed to update signal counters for %s: %w", signal.ID, err)
	}

	s.log.InfoContext(ctx, "Signal distributed",
		logger.StringField("signal_id", signal.ID),
		logger.IntField("distributed_count", result.DistributedCount),
		logger.IntField("errors", len(result.Errors)),
	)

	return result, nil
}

// notifyAsync fans a rendered alert out without blocking distribution.
// At-least-attempted semantics: a send failure is logged and dropped.
func (s *signalDistributor) notifyAsync(chatID int64, signal *model.Signal, bonus bool) {
	message := telegram.FormatSignalAlert(
		signal.Market,
		signal.EntryPrice,
		signal.TargetPrice,
		signal.StopLoss,
		signal.Confidence,
		signal.Rationale,
		signal.ValidUntil,
		bonus,
	)

	utils.GoSafe(func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.notifier.SendMessage(sendCtx, chatID, message); err != nil {
			s.log.Error("Failed to notify subscriber",
				logger.Int64Field("chat_id", chatID),
				logger.StringField("signal_id", signal.ID),
				logger.ErrorField(err),
			)
		}
	})
}

// MarkExecuted transitions the matching receipt to executed and bumps the
// signal's executed counter in one transaction. Missing receipts are an
// explicit error, never a silent upsert.
func (s *signalDistributor) MarkExecuted(ctx context.Context, record dto.ExecutionRecord) error {
	return s.uow.Run(func(opts ...utils.DBOption) error {
		receipt, err := s.receiptRepo.FindBySubscriberAndSignal(ctx, record.SubscriberID, record.SignalID, opts...)
		if err != nil {
			return fmt.Errorf("no receipt for subscriber %d and signal %s: %w", record.SubscriberID, record.SignalID, err)
		}

		if receipt.ExecutionStatus == model.ExecutionStatusExecuted {
			return fmt.Errorf("receipt %d already executed", receipt.ID)
		}

		now := time.Now()
		price := utils.RoundPrice(record.ExecutionPrice)
		receipt.ExecutionStatus = model.ExecutionStatusExecuted
		receipt.ExecutionRef = &record.ExecutionRef
		receipt.ExecutionPrice = &price
		receipt.ExecutedAt = &now

		if err := s.receiptRepo.Update(ctx, receipt, opts...); err != nil {
			return fmt.Errorf("failed to update receipt %d: %w", receipt.ID, err)
		}

		if err := s.signalRepo.IncrementExecutedCount(ctx, record.SignalID, opts...); err != nil {
			return fmt.Errorf("failed to increment executed count for %s: %w", record.SignalID, err)
		}

		return nil
	})
}

// RecordCloseOut realizes profit or loss on an executed receipt using the same
// rounding rule as signal generation.
func (s *signalDistributor) RecordCloseOut(ctx context.Context, record dto.CloseOutRecord) error {
	receipt, err := s.receiptRepo.FindBySubscriberAndSignal(ctx, record.SubscriberID, record.SignalID)
	if err != nil {
		return fmt.Errorf("no receipt for subscriber %d and signal %s: %w", record.SubscriberID, record.SignalID, err)
	}

	if receipt.ExecutionStatus != model.ExecutionStatusExecuted || receipt.ExecutionPrice == nil {
		return fmt.Errorf("receipt %d has not been executed", receipt.ID)
	}

	pnl := utils.ProfitPercent(*receipt.ExecutionPrice, utils.RoundPrice(record.ExitPrice))
	receipt.ProfitLoss = &pnl

	return s.receiptRepo.Update(ctx, receipt)
}
