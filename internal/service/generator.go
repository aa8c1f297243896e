package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"crypto-signals/config"
	"crypto-signals/internal/dto"
	"crypto-signals/internal/model"
	"crypto-signals/internal/repository"
	"crypto-signals/pkg/cache"
	"crypto-signals/pkg/common"
	"crypto-signals/pkg/logger"
	"crypto-signals/pkg/utils"
)

type SignalGeneratorService interface {
	GenerateFromPrediction(ctx context.Context, prediction dto.Prediction) (*dto.GenerateResult, error)
	GenerateBatch(ctx context.Context, predictions []dto.Prediction) *dto.BatchGenerateResult
	ExpireStaleSignals(ctx context.Context) (int64, error)
	CancelSignal(ctx context.Context, signalID string) error
}

type signalGenerator struct {
	cfg           *config.Config
	log           *logger.Logger
	signalRepo    repository.SignalRepository
	distributor   SignalDistributorService
	inmemoryCache cache.Cache
}

func NewSignalGenerator(
	cfg *config.Config,
	log *logger.Logger,
	signalRepo repository.SignalRepository,
	distributor SignalDistributorService,
	inmemoryCache cache.Cache,
) SignalGeneratorService {
	return &signalGenerator{
		cfg:           cfg,
		log:           log,
		signalRepo:    signalRepo,
		distributor:   distributor,
		inmemoryCache: inmemoryCache,
	}
}

// newSignalID builds a globally unique id from the creation time, the market
// symbol and a random suffix. No central counter required.
func newSignalID(market string, at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("SIG-%s-%s-%s", at.Format("20060102150405"), market, suffix)
}

// buildRationale concatenates the named contributing signals. Components that
// did not trigger are omitted; when nothing triggered a generic line is used.
func buildRationale(b dto.SignalBreakdown) string {
	parts := []string{}

	if b.VolumeSurgeTriggered {
		parts = append(parts, fmt.Sprintf("volume surge %.1fx above average", b.VolumeSurgeRatio))
	}
	if b.OversoldTriggered {
		parts = append(parts, fmt.Sprintf("oversold RSI %.1f", b.RSI))
	}
	if b.NearSupportTriggered {
		parts = append(parts, fmt.Sprintf("price within %.1f%% of support", b.SupportProximityPct))
	}
	if b.UptrendTriggered {
		parts = append(parts, fmt.Sprintf("%d consecutive rising closes", b.ConsecutiveUpDays))
	}
	if b.MomentumTriggered {
		parts = append(parts, fmt.Sprintf("momentum +%.1f%%", b.MomentumStrength))
	}

	if len(parts) == 0 {
		return "composite model score exceeded the confidence threshold"
	}
	return strings.Join(parts, ", ")
}

func (s *signalGenerator) dedupKey(prediction dto.Prediction) string {
	raw := fmt.Sprintf("%s:%.4f:%.0f", prediction.Market, prediction.Score, prediction.CurrentPrice)
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf(common.KEY_SIGNAL_DEDUP, hex.EncodeToString(sum[:8]))
}

func (s *signalGenerator) GenerateFromPrediction(ctx context.Context, prediction dto.Prediction) (*dto.GenerateResult, error) {
	if prediction.Score < s.cfg.Trading.MinConfidenceScore {
		s.log.DebugContext(ctx, "Prediction below confidence threshold",
			logger.StringField("market", prediction.Market),
			logger.Float64Field("score", prediction.Score),
			logger.Float64Field("threshold", s.cfg.Trading.MinConfidenceScore),
		)
		return &dto.GenerateResult{
			Success: false,
			Message: fmt.Sprintf("confidence %.1f below threshold %.1f", prediction.Score, s.cfg.Trading.MinConfidenceScore),
		}, nil
	}

	if prediction.CurrentPrice <= 0 {
		return &dto.GenerateResult{
			Success: false,
			Message: "invalid current price",
		}, nil
	}

	dedupKey := s.dedupKey(prediction)
	if _, alreadySent := s.inmemoryCache.Get(dedupKey); alreadySent {
		s.log.DebugContext(ctx, "Signal already generated for this prediction",
			logger.StringField("market", prediction.Market))
		return &dto.GenerateResult{
			Success: false,
			Message: "duplicate prediction within dedup window",
		}, nil
	}

	now := time.Now()

	breakdownJSON, err := json.Marshal(prediction.Breakdown)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal breakdown: %w", err)
	}

	signal := &model.Signal{
		ID:          newSignalID(prediction.Market, now),
		Market:      prediction.Market,
		Direction:   model.DirectionBuy,
		EntryPrice:  utils.RoundPrice(prediction.CurrentPrice),
		TargetPrice: utils.RoundPrice(prediction.CurrentPrice * (1 + s.cfg.Trading.TargetProfitRatio)),
		StopLoss:    utils.RoundPrice(prediction.CurrentPrice * (1 + s.cfg.Trading.StopLossRatio)),
		Confidence:  prediction.Score,
		Rationale:   buildRationale(prediction.Breakdown),
		Breakdown:   datatypes.JSON(breakdownJSON),
		Status:      model.SignalStatusPending,
		ValidUntil:  now.Add(s.cfg.Trading.SignalValidity),
	}

	if err := s.signalRepo.Create(ctx, signal); err != nil {
		return nil, fmt.Errorf("failed to persist signal: %w", err)
	}

	s.inmemoryCache.Set(dedupKey, true, s.cfg.Trading.SignalValidity)

	s.log.InfoContext(ctx, "Signal generated",
		logger.StringField("signal_id", signal.ID),
		logger.StringField("market", signal.Market),
		logger.Float64Field("entry", signal.EntryPrice),
		logger.Float64Field("target", signal.TargetPrice),
		logger.Float64Field("stop_loss", signal.StopLoss),
	)

	distributed := 0
	distribution, err := s.distributor.Distribute(ctx, signal.ID)
	if err != nil {
		// Signal is persisted; distribution problems are reported, not fatal.
		s.log.ErrorContextWithAlert(ctx, "Distribution failed after generation",
			logger.StringField("signal_id", signal.ID),
			logger.ErrorField(err),
		)
	} else {
		distributed = distribution.DistributedCount
	}

	return &dto.GenerateResult{
		Success:          true,
		Signal:           signal,
		DistributedCount: distributed,
		Message:          fmt.Sprintf("signal distributed to %d subscribers", distributed),
	}, nil
}

// GenerateBatch folds predictions through the single-candidate path
// sequentially. One bad candidate never aborts the rest.
func (s *signalGenerator) GenerateBatch(ctx context.Context, predictions []dto.Prediction) *dto.BatchGenerateResult {
	result := &dto.BatchGenerateResult{}

	for _, prediction := range predictions {
		if !utils.ShouldContinue(ctx, s.log) {
			result.Errors = append(result.Errors, dto.BatchItemError{
				Market: prediction.Market,
				Error:  "cancelled",
			})
			continue
		}

		generated, err := s.GenerateFromPrediction(ctx, prediction)
		if err != nil {
			result.Errors = append(result.Errors, dto.BatchItemError{
				Market: prediction.Market,
				Error:  err.Error(),
			})
			continue
		}
		if generated.Success {
			result.Generated++
		} else {
			result.Skipped++
			result.Errors = append(result.Errors, dto.BatchItemError{
				Market: prediction.Market,
				Error:  generated.Message,
			})
		}
	}

	return result
}

func (s *signalGenerator) ExpireStaleSignals(ctx context.Context) (int64, error) {
	count, err := s.signalRepo.ExpireStale(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale signals: %w", err)
	}
	if count > 0 {
		s.log.InfoContext(ctx, "Expired stale signals", logger.IntField("count", int(count)))
	}
	return count, nil
}

// CancelSignal is an administrative transition for pending or active signals.
func (s *signalGenerator) CancelSignal(ctx context.Context, signalID string) error {
	signal, err := s.signalRepo.FindByID(ctx, signalID)
	if err != nil {
		return err
	}
	if signal.Status != model.SignalStatusPending && signal.Status != model.SignalStatusActive {
		return fmt.Errorf("signal %s is %s and cannot be cancelled", signalID, signal.Status)
	}
	return s.signalRepo.UpdateStatus(ctx, signalID, model.SignalStatusCancelled)
}
