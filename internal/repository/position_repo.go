package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"crypto-signals/internal/dto"
	"crypto-signals/internal/model"
	"crypto-signals/pkg/utils"
)

type PositionRepository interface {
	Create(ctx context.Context, position *model.Position, opts ...utils.DBOption) error
	Get(ctx context.Context, param dto.GetPositionsParam) ([]model.Position, error)
	CountOpen(ctx context.Context, subscriberID uint) (int64, error)
	SumOpenAmount(ctx context.Context, subscriberID uint) (float64, error)
}

type positionRepository struct {
	db *gorm.DB
}

func NewPositionRepository(db *gorm.DB) PositionRepository {
	return &positionRepository{db: db}
}

func (r *positionRepository) Create(ctx context.Context, position *model.Position, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(position).Error
}

func (r *positionRepository) Get(ctx context.Context, param dto.GetPositionsParam) ([]model.Position, error) {
	var positions []model.Position

	qFilter := []string{}
	qFilterParam := []interface{}{}

	if param.SubscriberID != nil {
		qFilter = append(qFilter, "subscriber_id = ?")
		qFilterParam = append(qFilterParam, *param.SubscriberID)
	}

	if param.Market != nil {
		qFilter = append(qFilter, "market = ?")
		qFilterParam = append(qFilterParam, *param.Market)
	}

	if param.IsOpen != nil {
		qFilter = append(qFilter, "is_open = ?")
		qFilterParam = append(qFilterParam, *param.IsOpen)
	}

	if len(qFilter) == 0 {
		return nil, fmt.Errorf("no filter provided")
	}

	if err := r.db.WithContext(ctx).Where(strings.Join(qFilter, " AND "), qFilterParam...).Find(&positions).Error; err != nil {
		return nil, err
	}

	return positions, nil
}

func (r *positionRepository) CountOpen(ctx context.Context, subscriberID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Where("subscriber_id = ? AND is_open = ?", subscriberID, true).
		Count(&count).Error
	return count, err
}

func (r *positionRepository) SumOpenAmount(ctx context.Context, subscriberID uint) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Where("subscriber_id = ? AND is_open = ?", subscriberID, true).
		Select("COALESCE(SUM(amount),0)").
		Scan(&total).Error
	return total, err
}
