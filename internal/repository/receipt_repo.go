package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"crypto-signals/internal/dto"
	"crypto-signals/internal/model"
	"crypto-signals/pkg/utils"
)

var ErrReceiptNotFound = errors.New("receipt not found")

type ReceiptRepository interface {
	Create(ctx context.Context, receipt *model.SignalReceipt, opts ...utils.DBOption) error
	Get(ctx context.Context, param dto.GetReceiptsParam, opts ...utils.DBOption) ([]model.SignalReceipt, error)
	Count(ctx context.Context, param dto.GetReceiptsParam) (int64, error)
	CountBonus(ctx context.Context, param dto.GetReceiptsParam) (int64, error)
	FindBySubscriberAndSignal(ctx context.Context, subscriberID uint, signalID string, opts ...utils.DBOption) (*model.SignalReceipt, error)
	Update(ctx context.Context, receipt *model.SignalReceipt, opts ...utils.DBOption) error
}

type receiptRepository struct {
	db *gorm.DB
}

func NewReceiptRepository(db *gorm.DB) ReceiptRepository {
	return &receiptRepository{db: db}
}

func (r *receiptRepository) Create(ctx context.Context, receipt *model.SignalReceipt, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(receipt).Error
}

func buildReceiptFilter(param dto.GetReceiptsParam) (string, []interface{}) {
	qFilter := []string{}
	qFilterParam := []interface{}{}

	if param.SubscriberID != nil {
		qFilter = append(qFilter, "subscriber_id = ?")
		qFilterParam = append(qFilterParam, *param.SubscriberID)
	}

	if param.SignalID != nil {
		qFilter = append(qFilter, "signal_id = ?")
		qFilterParam = append(qFilterParam, *param.SignalID)
	}

	if param.Kind != nil {
		qFilter = append(qFilter, "kind = ?")
		qFilterParam = append(qFilterParam, *param.Kind)
	}

	if param.ReceivedAfter != nil {
		qFilter = append(qFilter, "received_at >= ?")
		qFilterParam = append(qFilterParam, *param.ReceivedAfter)
	}

	if param.ExecutionStatus != nil {
		qFilter = append(qFilter, "execution_status = ?")
		qFilterParam = append(qFilterParam, *param.ExecutionStatus)
	}

	return strings.Join(qFilter, " AND "), qFilterParam
}

func (r *receiptRepository) Get(ctx context.Context, param dto.GetReceiptsParam, opts ...utils.DBOption) ([]model.SignalReceipt, error) {
	var receipts []model.SignalReceipt

	filter, filterParams := buildReceiptFilter(param)
	if filter == "" {
		return nil, errors.New("no filter provided")
	}

	q := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where(filter, filterParams...).
		Order("received_at DESC")
	if param.Limit != nil {
		q = q.Limit(*param.Limit)
	}

	if err := q.Find(&receipts).Error; err != nil {
		return nil, err
	}

	return receipts, nil
}

// Count is the usage query behind quota checks: receipts for a subscriber
// within an accounting window.
func (r *receiptRepository) Count(ctx context.Context, param dto.GetReceiptsParam) (int64, error) {
	filter, filterParams := buildReceiptFilter(param)
	if filter == "" {
		return 0, errors.New("no filter provided")
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.SignalReceipt{}).
		Where(filter, filterParams...).
		Count(&count).Error
	return count, err
}

func (r *receiptRepository) CountBonus(ctx context.Context, param dto.GetReceiptsParam) (int64, error) {
	filter, filterParams := buildReceiptFilter(param)
	if filter == "" {
		return 0, errors.New("no filter provided")
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.SignalReceipt{}).
		Where(filter, filterParams...).
		Where("is_bonus = ?", true).
		Count(&count).Error
	return count, err
}

func (r *receiptRepository) FindBySubscriberAndSignal(ctx context.Context, subscriberID uint, signalID string, opts ...utils.DBOption) (*model.SignalReceipt, error) {
	var receipt model.SignalReceipt
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("subscriber_id = ? AND signal_id = ?", subscriberID, signalID).
		First(&receipt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReceiptNotFound
		}
		return nil, err
	}
	return &receipt, nil
}

func (r *receiptRepository) Update(ctx context.Context, receipt *model.SignalReceipt, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Save(receipt).Error
}
