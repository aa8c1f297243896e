package model

import (
	"time"

	"gorm.io/datatypes"

	"crypto-signals/pkg/utils"
)

// AutoTradeSetting holds a subscriber's auto-trading configuration.
type AutoTradeSetting struct {
	ID                     uint                        `gorm:"primaryKey" json:"id"`
	SubscriberID           uint                        `gorm:"not null;uniqueIndex" json:"subscriber_id"`
	Enabled                bool                        `gorm:"not null;default:false" json:"enabled"`
	BudgetCeiling          float64                     `gorm:"not null" json:"budget_ceiling"`
	AmountPerTrade         float64                     `gorm:"not null" json:"amount_per_trade"`
	StopLossPercent        float64                     `gorm:"not null" json:"stop_loss_percent"`
	TakeProfitPercent      float64                     `gorm:"not null" json:"take_profit_percent"`
	MinConfidence          float64                     `gorm:"not null" json:"min_confidence"`
	MaxPositions           int                         `gorm:"not null" json:"max_positions"`
	AllowDuplicatePosition bool                        `gorm:"not null;default:false" json:"allow_duplicate_position"`
	ExcludedMarkets        datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"excluded_markets"`
	CreatedAt              time.Time                   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AutoTradeSetting) TableName() string {
	return "auto_trade_settings"
}

// IsExcluded reports whether the market is on the exclusion list.
func (a *AutoTradeSetting) IsExcluded(market string) bool {
	return utils.ContainsString(a.ExcludedMarkets, market)
}
