package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"crypto-signals/internal/dto"
	"crypto-signals/internal/model"
	"crypto-signals/pkg/utils"
)

var ErrSubscriberNotFound = errors.New("subscriber not found")

type SubscriberRepository interface {
	FindByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Subscriber, error)
	Get(ctx context.Context, param dto.GetSubscribersParam, opts ...utils.DBOption) ([]model.Subscriber, error)
}

type subscriberRepository struct {
	db *gorm.DB
}

func NewSubscriberRepository(db *gorm.DB) SubscriberRepository {
	return &subscriberRepository{db: db}
}

func (r *subscriberRepository) FindByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Subscriber, error) {
	var subscriber model.Subscriber
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Preload("AutoTradeSetting").
		Preload("Favorites").
		Where("id = ?", id).
		First(&subscriber).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriberNotFound
		}
		return nil, err
	}
	return &subscriber, nil
}

func (r *subscriberRepository) Get(ctx context.Context, param dto.GetSubscribersParam, opts ...utils.DBOption) ([]model.Subscriber, error) {
	var subscribers []model.Subscriber

	qFilter := []string{}
	qFilterParam := []interface{}{}

	if len(param.IDs) > 0 {
		qFilter = append(qFilter, "id IN (?)")
		qFilterParam = append(qFilterParam, param.IDs)
	}

	if param.ActiveAt != nil {
		qFilter = append(qFilter, "subscription_start <= ? AND subscription_end >= ?")
		qFilterParam = append(qFilterParam, *param.ActiveAt, *param.ActiveAt)
	}

	if len(param.PlanTiers) > 0 {
		qFilter = append(qFilter, "plan_tier IN (?)")
		qFilterParam = append(qFilterParam, param.PlanTiers)
	}

	if len(qFilter) == 0 {
		return nil, fmt.Errorf("no filter provided")
	}

	q := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Preload("AutoTradeSetting").
		Preload("Favorites").
		Where(strings.Join(qFilter, " AND "), qFilterParam...).
		Order("id ASC")

	if err := q.Find(&subscribers).Error; err != nil {
		return nil, err
	}

	if param.AutoTradeEnabled != nil {
		filtered := subscribers[:0]
		for _, s := range subscribers {
			enabled := s.AutoTradeSetting != nil && s.AutoTradeSetting.Enabled
			if enabled == *param.AutoTradeEnabled {
				filtered = append(filtered, s)
			}
		}
		subscribers = filtered
	}

	return subscribers, nil
}
