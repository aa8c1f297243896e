package dto

import (
	"time"

	"crypto-signals/internal/model"
)

// SignalBreakdown names the contributing signals behind a prediction score.
// Only triggered components appear in the generated rationale.
type SignalBreakdown struct {
	VolumeSurgeRatio     float64 `json:"volume_surge_ratio"`
	VolumeSurgeTriggered bool    `json:"volume_surge_triggered"`
	RSI                  float64 `json:"rsi"`
	OversoldTriggered    bool    `json:"oversold_triggered"`
	SupportProximityPct  float64 `json:"support_proximity_pct"`
	NearSupportTriggered bool    `json:"near_support_triggered"`
	ConsecutiveUpDays    int     `json:"consecutive_up_days"`
	UptrendTriggered     bool    `json:"uptrend_triggered"`
	MomentumStrength     float64 `json:"momentum_strength"`
	MomentumTriggered    bool    `json:"momentum_triggered"`
}

// Prediction is one upstream analysis result to fold into a signal.
type Prediction struct {
	Market       string          `json:"market" validate:"required"`
	Score        float64         `json:"score" validate:"gte=0,lte=100"`
	Breakdown    SignalBreakdown `json:"breakdown"`
	CurrentPrice float64         `json:"current_price" validate:"gt=0"`
}

type GenerateResult struct {
	Success          bool          `json:"success"`
	Signal           *model.Signal `json:"signal,omitempty"`
	DistributedCount int           `json:"distributed_count"`
	Message          string        `json:"message"`
}

type BatchItemError struct {
	Market string `json:"market"`
	Error  string `json:"error"`
}

// BatchGenerateResult reports partial-failure semantics: one bad candidate
// never aborts the rest of the batch.
type BatchGenerateResult struct {
	Generated int              `json:"generated"`
	Skipped   int              `json:"skipped"`
	Errors    []BatchItemError `json:"errors,omitempty"`
}

type Recipient struct {
	SubscriberID uint `json:"subscriber_id"`
	IsBonus      bool `json:"is_bonus"`
}

type DistributeResult struct {
	DistributedCount int         `json:"distributed_count"`
	Recipients       []Recipient `json:"recipients"`
	Errors           []string    `json:"errors,omitempty"`
}

// EligibleSubscriber is one ranked distribution target.
type EligibleSubscriber struct {
	Subscriber model.Subscriber
	IsBonus    bool
	Priority   int
	Usage      int
}

// SurgeAnalysis is the scored outcome of a watch-list scan for one market.
type SurgeAnalysis struct {
	Market       string          `json:"market"`
	Score        float64         `json:"score"`
	CurrentPrice float64         `json:"current_price"`
	Breakdown    SignalBreakdown `json:"breakdown"`
}

type SignalStats struct {
	ActiveCount      int64 `json:"active_count"`
	PendingCount     int64 `json:"pending_count"`
	ExpiredCount     int64 `json:"expired_count"`
	CancelledCount   int64 `json:"cancelled_count"`
	DistributedTotal int64 `json:"distributed_total"`
	ExecutedTotal    int64 `json:"executed_total"`
}

// ExecutionRecord stamps a receipt when an order fills.
type ExecutionRecord struct {
	SubscriberID   uint    `json:"subscriber_id" validate:"required"`
	SignalID       string  `json:"signal_id" validate:"required"`
	ExecutionRef   string  `json:"execution_ref" validate:"required"`
	ExecutionPrice float64 `json:"execution_price" validate:"gt=0"`
}

// CloseOutRecord realizes profit or loss on an executed receipt.
type CloseOutRecord struct {
	SubscriberID uint      `json:"subscriber_id" validate:"required"`
	SignalID     string    `json:"signal_id" validate:"required"`
	ExitPrice    float64   `json:"exit_price" validate:"gt=0"`
	ExitTime     time.Time `json:"exit_time"`
}
