package model

import "time"

type ExecutionStatus string

const (
	ExecutionStatusNotExecuted ExecutionStatus = "not_executed"
	ExecutionStatusPending     ExecutionStatus = "pending"
	ExecutionStatusExecuted    ExecutionStatus = "executed"
	ExecutionStatusFailed      ExecutionStatus = "failed"
)

type ReceiptKind string

const (
	// ReceiptKindSignalFeed receipts count against the monthly window.
	ReceiptKindSignalFeed ReceiptKind = "signal_feed"
	// ReceiptKindSurgeAlert receipts count against the weekly window.
	ReceiptKindSurgeAlert ReceiptKind = "surge_alert"
)

// SignalReceipt is one subscriber's delivery record for one signal. The unique
// index on (subscriber_id, signal_id) makes concurrent double-delivery
// impossible even when distribution paths race.
type SignalReceipt struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	SignalID        string          `gorm:"not null;uniqueIndex:idx_receipts_subscriber_signal" json:"signal_id"`
	SubscriberID    uint            `gorm:"not null;uniqueIndex:idx_receipts_subscriber_signal" json:"subscriber_id"`
	Kind            ReceiptKind     `gorm:"type:varchar(20);not null;index" json:"kind"`
	ReceivedAt      time.Time       `gorm:"not null;index" json:"received_at"`
	IsBonus         bool            `gorm:"not null;default:false" json:"is_bonus"`
	ExecutionStatus ExecutionStatus `gorm:"type:varchar(20);not null;default:'not_executed'" json:"execution_status"`
	ExecutionRef    *string         `json:"execution_ref"`
	ExecutionPrice  *float64        `json:"execution_price"`
	ExecutedAt      *time.Time      `json:"executed_at"`
	ProfitLoss      *float64        `json:"profit_loss"`
	Signal          Signal          `gorm:"foreignKey:SignalID;references:ID" json:"signal,omitempty"`
	Subscriber      Subscriber      `gorm:"foreignKey:SubscriberID;references:ID" json:"subscriber,omitempty"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SignalReceipt) TableName() string {
	return "signal_receipts"
}
