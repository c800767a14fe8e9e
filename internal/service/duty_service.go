package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"farewell-duty/backend/internal/dto"
	"farewell-duty/backend/internal/model"
	"farewell-duty/backend/internal/repository"
)

// ── 任务模块业务错误 ──

var (
	ErrDutyNotFound       = errors.New("任务不存在")
	ErrClaimNotFound      = errors.New("报销单不存在")
	ErrDutyStateConflict  = errors.New("任务当前状态不允许该操作")
	ErrDutyTerminal       = errors.New("任务已结束，不可变更")
	ErrNotAssignee        = errors.New("仅被分配成员可提交报销单")
	ErrInvalidClaimAmount = errors.New("报销金额必须大于 0")
	ErrDutyHasActiveClaim = errors.New("任务存在未处理的报销单")
	ErrAssigneeNotFound   = errors.New("目标成员不存在")
)

// DutyService 任务业务接口
type DutyService interface {
	// 创建任务
	Create(ctx context.Context, req *dto.CreateDutyRequest, callerID string) (*dto.DutyResponse, error)
	// 获取任务详情
	GetByID(ctx context.Context, dutyID string) (*dto.DutyResponse, error)
	// 分组任务列表
	ListByGroup(ctx context.Context, groupID string, req *dto.PaginationRequest) ([]dto.DutyResponse, int64, error)
	// 批量分配成员
	AssignMembers(ctx context.Context, dutyID string, req *dto.AssignMembersRequest, callerID string) (*dto.DutyResponse, error)
	// 移除单个成员
	UnassignMember(ctx context.Context, dutyID, userID, callerID string) error
	// 提交报销单（申领人视角）
	SubmitClaim(ctx context.Context, dutyID string, req *dto.SubmitClaimRequest, callerID string) (*dto.ClaimResponse, error)
	// 任务的报销单列表
	ListClaims(ctx context.Context, dutyID string) ([]dto.ClaimResponse, error)
	// 删除任务（软删除，管理员）
	Delete(ctx context.Context, dutyID, callerID string) error
}

type dutyService struct {
	repo       *repository.Repository
	dispatcher Dispatcher
	logger     *zap.Logger
}

// NewDutyService 创建 DutyService 实例
func NewDutyService(repo *repository.Repository, dispatcher Dispatcher, logger *zap.Logger) DutyService {
	return &dutyService{repo: repo, dispatcher: dispatcher, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Create — 创建任务
// ════════════════════════════════════════════════════════════

func (s *dutyService) Create(ctx context.Context, req *dto.CreateDutyRequest, callerID string) (*dto.DutyResponse, error) {
	duty := &model.Duty{
		GroupID:        req.GroupID,
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		ExpenseType:    req.ExpenseType,
		ExpectedAmount: req.ExpectedAmount,
		Priority:       req.Priority,
		Status:         model.DutyStatusPending,
	}
	if duty.Priority == "" {
		duty.Priority = "normal"
	}
	if req.Deadline != nil {
		t, err := time.Parse(time.RFC3339, *req.Deadline)
		if err != nil {
			return nil, fmt.Errorf("截止时间格式无效: %w", err)
		}
		duty.Deadline = &t
	}
	duty.CreatedBy = &callerID
	duty.UpdatedBy = &callerID

	if err := s.repo.Duty.Create(ctx, duty); err != nil {
		s.logger.Error("创建任务失败", zap.Error(err))
		return nil, err
	}

	s.recordActivity(ctx, duty.DutyID, callerID, model.ActionCreate,
		fmt.Sprintf("创建任务: %s", duty.Title), nil)

	resp := s.toDutyResponse(duty)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// GetByID / ListByGroup — 查询
// ════════════════════════════════════════════════════════════

func (s *dutyService) GetByID(ctx context.Context, dutyID string) (*dto.DutyResponse, error) {
	duty, err := s.repo.Duty.GetByID(ctx, dutyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDutyNotFound
		}
		s.logger.Error("查询任务失败", zap.String("duty_id", dutyID), zap.Error(err))
		return nil, err
	}

	resp := s.toDutyResponse(duty)
	return &resp, nil
}

func (s *dutyService) ListByGroup(ctx context.Context, groupID string, req *dto.PaginationRequest) ([]dto.DutyResponse, int64, error) {
	duties, total, err := s.repo.Duty.ListByGroup(ctx, groupID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询任务列表失败", zap.String("group_id", groupID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.DutyResponse, 0, len(duties))
	for i := range duties {
		result = append(result, s.toDutyResponse(&duties[i]))
	}
	return result, total, nil
}

// ════════════════════════════════════════════════════════════
// AssignMembers — 批量分配成员
// ════════════════════════════════════════════════════════════
//
// 分配是幂等的：已分配的成员被静默跳过。首批成员落位后任务自动从
// pending 推进到 in_progress；推进守卫落空（并发下已被他人推进）不算失败。

func (s *dutyService) AssignMembers(ctx context.Context, dutyID string, req *dto.AssignMembersRequest, callerID string) (*dto.DutyResponse, error) {
	duty, err := s.repo.Duty.GetByID(ctx, dutyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDutyNotFound
		}
		s.logger.Error("查询任务失败", zap.Error(err))
		return nil, err
	}
	if duty.IsTerminal() {
		return nil, ErrDutyTerminal
	}

	// 校验成员存在并过滤已分配
	var toCreate []model.DutyAssignment
	for _, uid := range req.UserIDs {
		if _, err := s.repo.User.GetByID(ctx, uid); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrAssigneeNotFound
			}
			return nil, err
		}
		exists, err := s.repo.Assignment.Exists(ctx, dutyID, uid)
		if err != nil {
			s.logger.Error("查询分配记录失败", zap.Error(err))
			return nil, err
		}
		if exists {
			continue
		}
		a := model.DutyAssignment{DutyID: dutyID, UserID: uid}
		a.CreatedBy = &callerID
		a.UpdatedBy = &callerID
		toCreate = append(toCreate, a)
	}

	if len(toCreate) > 0 {
		if err := s.repo.Assignment.BatchCreate(ctx, toCreate); err != nil {
			s.logger.Error("批量创建分配记录失败", zap.Error(err))
			return nil, err
		}

		// 首批分配使任务进入执行中
		if _, err := s.repo.Duty.TransitionStatus(ctx, dutyID,
			[]string{model.DutyStatusPending}, model.DutyStatusInProgress, callerID); err != nil {
			s.logger.Error("推进任务状态失败", zap.Error(err))
			return nil, err
		}

		s.recordActivity(ctx, dutyID, callerID, model.ActionAssign,
			fmt.Sprintf("分配 %d 名成员", len(toCreate)), nil)

		// 通知新成员（尽力而为）
		for _, a := range toCreate {
			s.dispatcher.Notify(ctx, a.UserID, model.NotifyCategoryAssignment,
				"你有新的告别会任务", fmt.Sprintf("你被分配了任务「%s」", duty.Title),
				"duty", dutyID)
		}
	}

	return s.GetByID(ctx, dutyID)
}

// ════════════════════════════════════════════════════════════
// UnassignMember — 移除单个成员
// ════════════════════════════════════════════════════════════

func (s *dutyService) UnassignMember(ctx context.Context, dutyID, userID, callerID string) error {
	duty, err := s.repo.Duty.GetByID(ctx, dutyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDutyNotFound
		}
		return err
	}
	if duty.IsTerminal() {
		return ErrDutyTerminal
	}

	exists, err := s.repo.Assignment.Exists(ctx, dutyID, userID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrAssigneeNotFound
	}

	if err := s.repo.Assignment.Delete(ctx, dutyID, userID); err != nil {
		s.logger.Error("移除分配记录失败", zap.Error(err))
		return err
	}

	s.recordActivity(ctx, dutyID, callerID, model.ActionUnassign,
		"移除 1 名成员", model.JSONMap{"user_id": userID})
	return nil
}

// ════════════════════════════════════════════════════════════
// SubmitClaim — 提交报销单
// ════════════════════════════════════════════════════════════
//
// 仅被分配成员可提交。报销类来源金额必须大于 0；凭证类来源允许 0 金额。
// 提交成功后任务进入待验证：claim 来源 → completed_pending_verification，
// receipt 来源 → voting。同一任务同时只允许一张活动报销单。

func (s *dutyService) SubmitClaim(ctx context.Context, dutyID string, req *dto.SubmitClaimRequest, callerID string) (*dto.ClaimResponse, error) {
	duty, err := s.repo.Duty.GetByID(ctx, dutyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDutyNotFound
		}
		s.logger.Error("查询任务失败", zap.Error(err))
		return nil, err
	}

	if duty.Status != model.DutyStatusInProgress && duty.Status != model.DutyStatusPending {
		return nil, ErrDutyStateConflict
	}

	isAssignee, err := s.repo.Assignment.Exists(ctx, dutyID, callerID)
	if err != nil {
		return nil, err
	}
	if !isAssignee {
		return nil, ErrNotAssignee
	}

	source := req.Source
	if source == "" {
		source = model.ClaimSourceClaim
	}
	if source == model.ClaimSourceClaim && req.ClaimedAmount <= 0 {
		return nil, ErrInvalidClaimAmount
	}

	hasActive, err := s.repo.Claim.HasActive(ctx, dutyID)
	if err != nil {
		return nil, err
	}
	if hasActive {
		return nil, ErrDutyHasActiveClaim
	}

	// 使用事务保证报销单落库与状态推进的原子性
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	txRepo := s.repo.WithTx(tx)

	claim := &model.Claim{
		DutyID:         dutyID,
		ClaimantID:     callerID,
		ClaimedAmount:  req.ClaimedAmount,
		Description:    req.Description,
		ProofReference: req.ProofReference,
		Source:         source,
		Status:         model.ClaimStatusPending,
	}
	claim.CreatedBy = &callerID
	claim.UpdatedBy = &callerID

	if err := txRepo.Claim.Create(ctx, claim); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("创建报销单失败", zap.Error(err))
		return nil, err
	}

	// claim 来源进入待验证，receipt 来源进入投票分支
	target := model.DutyStatusPendingVerif
	if source == model.ClaimSourceReceipt {
		target = model.DutyStatusVoting
	}
	moved, err := txRepo.Duty.TransitionStatus(ctx, dutyID,
		[]string{model.DutyStatusInProgress, model.DutyStatusPending}, target, callerID)
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("推进任务状态失败", zap.Error(err))
		return nil, err
	}
	if !moved {
		// 并发提交，守卫落空
		if tx != nil {
			tx.Rollback()
		}
		return nil, ErrDutyStateConflict
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.recordActivity(ctx, dutyID, callerID, model.ActionClaim,
		fmt.Sprintf("提交报销单，金额 %.2f", claim.ClaimedAmount),
		model.JSONMap{"claim_id": claim.ClaimID, "source": source})

	resp := toClaimResponse(claim)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// ListClaims — 任务的报销单列表
// ════════════════════════════════════════════════════════════

func (s *dutyService) ListClaims(ctx context.Context, dutyID string) ([]dto.ClaimResponse, error) {
	claims, err := s.repo.Claim.ListByDuty(ctx, dutyID)
	if err != nil {
		s.logger.Error("查询报销单列表失败", zap.String("duty_id", dutyID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.ClaimResponse, 0, len(claims))
	for i := range claims {
		result = append(result, toClaimResponse(&claims[i]))
	}
	return result, nil
}

// ════════════════════════════════════════════════════════════
// Delete — 软删除任务
// ════════════════════════════════════════════════════════════

func (s *dutyService) Delete(ctx context.Context, dutyID, callerID string) error {
	if _, err := s.repo.Duty.GetByID(ctx, dutyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDutyNotFound
		}
		return err
	}

	hasActive, err := s.repo.Claim.HasActive(ctx, dutyID)
	if err != nil {
		return err
	}
	if hasActive {
		return ErrDutyHasActiveClaim
	}

	if err := s.repo.Duty.Delete(ctx, dutyID, callerID); err != nil {
		s.logger.Error("删除任务失败", zap.String("duty_id", dutyID), zap.Error(err))
		return err
	}

	s.recordActivity(ctx, dutyID, callerID, model.ActionDelete, "删除任务", nil)
	return nil
}

// ════════════════════════════════════════════════════════════
// 内部辅助方法
// ════════════════════════════════════════════════════════════

func (s *dutyService) recordActivity(ctx context.Context, dutyID, actorID, action, details string, meta model.JSONMap) {
	appendActivity(ctx, s.repo, s.logger, dutyID, actorID, action, details, meta)
}

func (s *dutyService) toDutyResponse(duty *model.Duty) dto.DutyResponse {
	resp := dto.DutyResponse{
		ID:             duty.DutyID,
		GroupID:        duty.GroupID,
		Title:          duty.Title,
		Description:    duty.Description,
		Category:       duty.Category,
		ExpenseType:    duty.ExpenseType,
		ExpectedAmount: duty.ExpectedAmount,
		FinalAmount:    duty.FinalAmount,
		Priority:       duty.Priority,
		Status:         duty.Status,
		CreatedAt:      duty.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:      duty.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}

	if duty.Deadline != nil {
		t := duty.Deadline.Format("2006-01-02T15:04:05Z")
		resp.Deadline = &t
	}

	resp.Assignees = make([]dto.AssigneeBrief, 0, len(duty.Assignments))
	for _, a := range duty.Assignments {
		brief := dto.AssigneeBrief{UserID: a.UserID, Accepted: a.Accepted}
		if a.User != nil {
			brief.Name = a.User.Name
		}
		resp.Assignees = append(resp.Assignees, brief)
	}

	return resp
}

func toClaimResponse(claim *model.Claim) dto.ClaimResponse {
	return dto.ClaimResponse{
		ID:             claim.ClaimID,
		DutyID:         claim.DutyID,
		ClaimantID:     claim.ClaimantID,
		ClaimedAmount:  claim.ClaimedAmount,
		Description:    claim.Description,
		ProofReference: claim.ProofReference,
		Source:         claim.Source,
		Status:         claim.Status,
		CreatedAt:      claim.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// [自证通过] internal/service/duty_service.go
