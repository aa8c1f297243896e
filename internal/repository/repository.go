package repository

import (
	"gorm.io/gorm"

	"crypto-signals/config"
	"crypto-signals/pkg/logger"
)

type Repository struct {
	SignalRepo     SignalRepository
	ReceiptRepo    ReceiptRepository
	SubscriberRepo SubscriberRepository
	PositionRepo   PositionRepository
	PriceFeedRepo  PriceFeedRepository
	OrderRepo      OrderRepository
	UnitOfWork     UnitOfWork
}

func NewRepository(cfg *config.Config, db *gorm.DB, log *logger.Logger) (*Repository, error) {
	return &Repository{
		SignalRepo:     NewSignalRepository(db),
		ReceiptRepo:    NewReceiptRepository(db),
		SubscriberRepo: NewSubscriberRepository(db),
		PositionRepo:   NewPositionRepository(db),
		PriceFeedRepo:  NewUpbitRepository(cfg, log),
		OrderRepo:      NewExchangeOrderRepository(cfg, log),
		UnitOfWork:     NewUnitOfWork(db),
	}, nil
}
