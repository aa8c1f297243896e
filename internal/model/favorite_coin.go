package model

import "time"

// FavoriteCoin is a per-subscriber watch entry with its own alert and
// auto-trade toggles. MinConfidence, when set, lowers the confidence bar for
// this market.
type FavoriteCoin struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	SubscriberID     uint      `gorm:"not null;uniqueIndex:idx_favorites_subscriber_market" json:"subscriber_id"`
	Market           string    `gorm:"not null;uniqueIndex:idx_favorites_subscriber_market" json:"market"`
	AlertEnabled     bool      `gorm:"not null;default:true" json:"alert_enabled"`
	AutoTradeEnabled bool      `gorm:"not null;default:false" json:"auto_trade_enabled"`
	MinConfidence    *float64  `json:"min_confidence"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (FavoriteCoin) TableName() string {
	return "favorite_coins"
}
