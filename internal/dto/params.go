package dto

import (
	"time"

	"crypto-signals/internal/model"
)

type GetSignalsParam struct {
	IDs         []string             `json:"ids"`
	Statuses    []model.SignalStatus `json:"statuses"`
	Market      *string              `json:"market"`
	ValidBefore *time.Time           `json:"valid_before"`
	Limit       *int                 `json:"limit"`
}

type GetReceiptsParam struct {
	SubscriberID    *uint                  `json:"subscriber_id"`
	SignalID        *string                `json:"signal_id"`
	Kind            *model.ReceiptKind     `json:"kind"`
	ReceivedAfter   *time.Time             `json:"received_after"`
	ExecutionStatus *model.ExecutionStatus `json:"execution_status"`
	Limit           *int                   `json:"limit"`
}

type GetSubscribersParam struct {
	IDs              []uint           `json:"ids"`
	ActiveAt         *time.Time       `json:"active_at"`
	PlanTiers        []model.PlanTier `json:"plan_tiers"`
	AutoTradeEnabled *bool            `json:"auto_trade_enabled"`
}

type GetPositionsParam struct {
	SubscriberID *uint   `json:"subscriber_id"`
	Market       *string `json:"market"`
	IsOpen       *bool   `json:"is_open"`
}
