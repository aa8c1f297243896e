package model

import (
	"time"

	"gorm.io/datatypes"
)

type SignalStatus string

const (
	SignalStatusPending   SignalStatus = "pending"
	SignalStatusActive    SignalStatus = "active"
	SignalStatusExpired   SignalStatus = "expired"
	SignalStatusCancelled SignalStatus = "cancelled"
)

type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// Signal is a generated trade recommendation. Entry, target and stop loss are
// derived once at creation and never recomputed.
type Signal struct {
	ID               string         `gorm:"primaryKey" json:"id"`
	Market           string         `gorm:"not null;index" json:"market"`
	Direction        Direction      `gorm:"type:varchar(10);not null" json:"direction"`
	EntryPrice       float64        `gorm:"not null" json:"entry_price"`
	TargetPrice      float64        `gorm:"not null" json:"target_price"`
	StopLoss         float64        `gorm:"not null" json:"stop_loss"`
	Confidence       float64        `gorm:"not null" json:"confidence"`
	Rationale        string         `gorm:"type:text" json:"rationale"`
	Breakdown        datatypes.JSON `gorm:"type:jsonb" json:"breakdown"`
	Status           SignalStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	ValidUntil       time.Time      `gorm:"not null;index" json:"valid_until"`
	DistributedCount int            `gorm:"not null;default:0" json:"distributed_count"`
	ExecutedCount    int            `gorm:"not null;default:0" json:"executed_count"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Signal) TableName() string {
	return "signals"
}

// IsExpiredAt reports whether the validity window has elapsed at t.
func (s *Signal) IsExpiredAt(t time.Time) bool {
	return t.After(s.ValidUntil)
}
