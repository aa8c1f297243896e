package model

import "time"

type PlanTier string

const (
	PlanFree       PlanTier = "free"
	PlanBasic      PlanTier = "basic"
	PlanPro        PlanTier = "pro"
	PlanEnterprise PlanTier = "enterprise"
)

// ParsePlanTier maps a raw plan value to a known tier, falling back to the
// lowest tier for unknown values.
func ParsePlanTier(raw string) PlanTier {
	switch PlanTier(raw) {
	case PlanFree, PlanBasic, PlanPro, PlanEnterprise:
		return PlanTier(raw)
	default:
		return PlanFree
	}
}

// Priority is the distribution ordering weight. Higher tiers are always
// serviced first.
func (p PlanTier) Priority() int {
	switch p {
	case PlanEnterprise:
		return 100
	case PlanPro:
		return 50
	case PlanBasic:
		return 20
	default:
		return 10
	}
}

type Subscriber struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	TelegramChatID    int64             `json:"telegram_chat_id"`
	Username          string            `gorm:"not null" json:"username"`
	PlanTier          PlanTier          `gorm:"type:varchar(20);not null;default:'free'" json:"plan_tier"`
	SubscriptionStart time.Time         `gorm:"not null" json:"subscription_start"`
	SubscriptionEnd   time.Time         `gorm:"not null;index" json:"subscription_end"`
	AutoTradeSetting  *AutoTradeSetting `gorm:"foreignKey:SubscriberID" json:"auto_trade_setting,omitempty"`
	Favorites         []FavoriteCoin    `gorm:"foreignKey:SubscriberID" json:"favorites,omitempty"`
	CreatedAt         time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Subscriber) TableName() string {
	return "subscribers"
}

// IsActiveAt reports whether the subscription window covers t.
func (s *Subscriber) IsActiveAt(t time.Time) bool {
	return !t.Before(s.SubscriptionStart) && !t.After(s.SubscriptionEnd)
}

// HasDeliveryChannel reports whether the subscriber registered a notification
// channel.
func (s *Subscriber) HasDeliveryChannel() bool {
	return s.TelegramChatID != 0
}

// Favorite returns the favorite entry for a market, or nil.
func (s *Subscriber) Favorite(market string) *FavoriteCoin {
	for i := range s.Favorites {
		if s.Favorites[i].Market == market {
			return &s.Favorites[i]
		}
	}
	return nil
}
