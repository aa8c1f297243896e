package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"crypto-signals/internal/dto"
	"crypto-signals/internal/model"
	"crypto-signals/pkg/utils"
)

var ErrSignalNotFound = errors.New("signal not found")

type SignalRepository interface {
	Create(ctx context.Context, signal *model.Signal, opts ...utils.DBOption) error
	FindByID(ctx context.Context, id string, opts ...utils.DBOption) (*model.Signal, error)
	Get(ctx context.Context, param dto.GetSignalsParam) ([]model.Signal, error)
	UpdateStatus(ctx context.Context, id string, status model.SignalStatus, opts ...utils.DBOption) error
	SetDistributed(ctx context.Context, id string, distributedCount int, opts ...utils.DBOption) error
	IncrementExecutedCount(ctx context.Context, id string, opts ...utils.DBOption) error
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
	CountByStatus(ctx context.Context, status model.SignalStatus) (int64, error)
	SumCounters(ctx context.Context) (distributed int64, executed int64, err error)
}

type signalRepository struct {
	db *gorm.DB
}

func NewSignalRepository(db *gorm.DB) SignalRepository {
	return &signalRepository{db: db}
}

func (r *signalRepository) Create(ctx context.Context, signal *model.Signal, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(signal).Error
}

func (r *signalRepository) FindByID(ctx context.Context, id string, opts ...utils.DBOption) (*model.Signal, error) {
	var signal model.Signal
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Where("id = ?", id).First(&signal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSignalNotFound
		}
		return nil, err
	}
	return &signal, nil
}

func (r *signalRepository) Get(ctx context.Context, param dto.GetSignalsParam) ([]model.Signal, error) {
	var signals []model.Signal

	qFilter := []string{}
	qFilterParam := []interface{}{}

	if len(param.IDs) > 0 {
		qFilter = append(qFilter, "id IN (?)")
		qFilterParam = append(qFilterParam, param.IDs)
	}

	if len(param.Statuses) > 0 {
		qFilter = append(qFilter, "status IN (?)")
		qFilterParam = append(qFilterParam, param.Statuses)
	}

	if param.Market != nil {
		qFilter = append(qFilter, "market = ?")
		qFilterParam = append(qFilterParam, *param.Market)
	}

	if param.ValidBefore != nil {
		qFilter = append(qFilter, "valid_until < ?")
		qFilterParam = append(qFilterParam, *param.ValidBefore)
	}

	if len(qFilter) == 0 {
		return nil, fmt.Errorf("no filter provided")
	}

	q := r.db.WithContext(ctx).Where(strings.Join(qFilter, " AND "), qFilterParam...).Order("created_at DESC")
	if param.Limit != nil {
		q = q.Limit(*param.Limit)
	}

	if err := q.Find(&signals).Error; err != nil {
		return nil, err
	}

	return signals, nil
}

func (r *signalRepository) UpdateStatus(ctx context.Context, id string, status model.SignalStatus, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Signal{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *signalRepository) SetDistributed(ctx context.Context, id string, distributedCount int, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Signal{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            model.SignalStatusActive,
			"distributed_count": distributedCount,
		}).Error
}

func (r *signalRepository) IncrementExecutedCount(ctx context.Context, id string, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Signal{}).
		Where("id = ?", id).
		Update("executed_count", gorm.Expr("executed_count + 1")).Error
}

// ExpireStale transitions every pending or active signal whose validity window
// has elapsed. Idempotent: already-expired rows are not matched again.
func (r *signalRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Signal{}).
		Where("status IN (?)", []model.SignalStatus{model.SignalStatusPending, model.SignalStatusActive}).
		Where("valid_until < ?", now).
		Update("status", model.SignalStatusExpired)
	return result.RowsAffected, result.Error
}

func (r *signalRepository) CountByStatus(ctx context.Context, status model.SignalStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Signal{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

func (r *signalRepository) SumCounters(ctx context.Context) (int64, int64, error) {
	type sums struct {
		Distributed int64
		Executed    int64
	}
	var s sums
	err := r.db.WithContext(ctx).
		Model(&model.Signal{}).
		Select("COALESCE(SUM(distributed_count),0) AS distributed, COALESCE(SUM(executed_count),0) AS executed").
		Scan(&s).Error
	return s.Distributed, s.Executed, err
}
