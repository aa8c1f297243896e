package model

import "time"

// Position is an open or closed holding originated by auto-trading. Open
// positions drive holding detection, the concurrent-position cap and budget
// accounting.
type Position struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	SubscriberID uint       `gorm:"not null;index" json:"subscriber_id"`
	Market       string     `gorm:"not null;index" json:"market"`
	Amount       float64    `gorm:"not null" json:"amount"`
	AvgPrice     float64    `gorm:"not null" json:"avg_price"`
	IsOpen       *bool      `gorm:"not null;default:true" json:"is_open"`
	OpenedAt     time.Time  `gorm:"not null" json:"opened_at"`
	ClosedAt     *time.Time `json:"closed_at"`
	Subscriber   Subscriber `gorm:"foreignKey:SubscriberID;references:ID" json:"subscriber,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Position) TableName() string {
	return "positions"
}
