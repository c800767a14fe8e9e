package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"farewell-duty/backend/internal/dto"
	"farewell-duty/backend/internal/model"
	"farewell-duty/backend/internal/repository"
)

// ── 测试辅助 ──

type settlementTestEnv struct {
	svc            SettlementService
	dutyRepo       *mockDutyRepo
	claimRepo      *mockClaimRepo
	settlementRepo *mockSettlementRepo
	activityRepo   *mockActivityLogRepo
	notifyRepo     *mockNotificationRepo
}

func setupTestSettlementService() *settlementTestEnv {
	dutyRepo := newMockDutyRepo()
	claimRepo := newMockClaimRepo(dutyRepo)
	settlementRepo := newMockSettlementRepo()
	activityRepo := newMockActivityLogRepo()
	notifyRepo := newMockNotificationRepo()

	repo := &repository.Repository{
		User:         newMockUserRepo(),
		Duty:         dutyRepo,
		Assignment:   newMockAssignmentRepo(),
		Claim:        claimRepo,
		Vote:         newMockVoteRepo(),
		Settlement:   settlementRepo,
		ActivityLog:  activityRepo,
		Notification: notifyRepo,
	}
	logger := zap.NewNop()
	dispatcher := NewNotificationService(repo, logger)
	svc := NewSettlementService(repo, dispatcher, logger)

	return &settlementTestEnv{
		svc:            svc,
		dutyRepo:       dutyRepo,
		claimRepo:      claimRepo,
		settlementRepo: settlementRepo,
		activityRepo:   activityRepo,
		notifyRepo:     notifyRepo,
	}
}

func (e *settlementTestEnv) seedClaimScenario(dutyStatus string, claimedAmount float64) {
	duty := &model.Duty{
		DutyID: "duty-1", GroupID: "group-1", Title: "采购纪念册",
		ExpenseType: model.ExpenseTypeClaim, Status: dutyStatus,
	}
	duty.Version = 1
	e.dutyRepo.duties["duty-1"] = duty

	e.claimRepo.claims["claim-1"] = &model.Claim{
		ClaimID: "claim-1", DutyID: "duty-1", ClaimantID: "claimant",
		ClaimedAmount: claimedAmount, Source: model.ClaimSourceClaim,
		Status: model.ClaimStatusPending,
	}
}

func settleReq(approved float64, reason *string) *dto.SettleClaimRequest {
	return &dto.SettleClaimRequest{
		ApprovedAmount:  approved,
		DeductionReason: reason,
		PaymentMode:     "online",
	}
}

func strPtr(s string) *string { return &s }

// ── Settle 测试 ──

func TestSettlementService_Settle_FullApproval(t *testing.T) {
	env := setupTestSettlementService()
	env.seedClaimScenario(model.DutyStatusAdminReview, 300)

	resp, err := env.svc.Settle(context.Background(), "claim-1", settleReq(300, nil), "admin-1")
	if err != nil {
		t.Fatalf("全额结算应成功: %v", err)
	}

	if resp.ClaimedAmount != 300 || resp.ApprovedAmount != 300 || resp.DeductedAmount != 0 {
		t.Errorf("结算恒等式不成立: 申报=%.2f 核准=%.2f 扣减=%.2f",
			resp.ClaimedAmount, resp.ApprovedAmount, resp.DeductedAmount)
	}

	duty := env.dutyRepo.duties["duty-1"]
	if duty.Status != model.DutyStatusPaid {
		t.Errorf("结算后任务应为 paid，实际=%s", duty.Status)
	}
	if duty.FinalAmount == nil || *duty.FinalAmount != 300 {
		t.Error("final_amount 应等于核准金额")
	}
	if env.claimRepo.claims["claim-1"].Status != model.ClaimStatusApproved {
		t.Errorf("无扣减结算后报销单应为 approved，实际=%s", env.claimRepo.claims["claim-1"].Status)
	}
	if len(env.notifyRepo.notifications) != 1 {
		t.Errorf("申领人应收到一条结算通知，实际=%d", len(env.notifyRepo.notifications))
	}
}

func TestSettlementService_Settle_PartialWithReason(t *testing.T) {
	env := setupTestSettlementService()
	env.seedClaimScenario(model.DutyStatusAdminReview, 300)

	resp, err := env.svc.Settle(context.Background(), "claim-1",
		settleReq(250, strPtr("两张发票抬头不符")), "admin-1")
	if err != nil {
		t.Fatalf("部分核准应成功: %v", err)
	}

	if resp.DeductedAmount != 50 {
		t.Errorf("期望扣减 50，实际=%.2f", resp.DeductedAmount)
	}
	if env.claimRepo.claims["claim-1"].Status != model.ClaimStatusPartial {
		t.Errorf("有扣减结算后报销单应为 partially_approved，实际=%s", env.claimRepo.claims["claim-1"].Status)
	}
	if env.dutyRepo.duties["duty-1"].FinalAmount == nil || *env.dutyRepo.duties["duty-1"].FinalAmount != 250 {
		t.Error("final_amount 应等于核准金额 250")
	}
}

func TestSettlementService_Settle_ZeroApprovalIsLegal(t *testing.T) {
	env := setupTestSettlementService()
	env.seedClaimScenario(model.DutyStatusAdminReview, 300)

	// 全额扣减是合法终局，任务照常进入 paid，与驳回不同
	resp, err := env.svc.Settle(context.Background(), "claim-1",
		settleReq(0, strPtr("所有支出不在报销范围")), "admin-1")
	if err != nil {
		t.Fatalf("全额扣减结算应成功: %v", err)
	}

	if resp.DeductedAmount != 300 {
		t.Errorf("期望扣减 300，实际=%.2f", resp.DeductedAmount)
	}
	if env.dutyRepo.duties["duty-1"].Status != model.DutyStatusPaid {
		t.Errorf("全额扣减后任务仍应为 paid，实际=%s", env.dutyRepo.duties["duty-1"].Status)
	}
	if env.claimRepo.claims["claim-1"].Status != model.ClaimStatusPartial {
		t.Errorf("全额扣减后报销单应为 partially_approved，实际=%s", env.claimRepo.claims["claim-1"].Status)
	}
}

func TestSettlementService_Settle_DeductionWithoutReason(t *testing.T) {
	env := setupTestSettlementService()
	env.seedClaimScenario(model.DutyStatusAdminReview, 300)

	_, err := env.svc.Settle(context.Background(), "claim-1", settleReq(200, nil), "admin-1")
	if !errors.Is(err, ErrDeductionReasonRequired) {
		t.Errorf("期望 ErrDeductionReasonRequired，实际: %v", err)
	}
	if len(env.settlementRepo.records) != 0 {
		t.Error("校验失败不应产生结算记录")
	}
}

func TestSettlementService_Settle_ApprovedExceedsClaimed(t *testing.T) {
	env := setupTestSettlementService()
	env.seedClaimScenario(model.DutyStatusAdminReview, 300)

	_, err := env.svc.Settle(context.Background(), "claim-1", settleReq(301, nil), "admin-1")
	if !errors.Is(err, ErrInvalidApprovedAmount) {
		t.Errorf("期望 ErrInvalidApprovedAmount，实际: %v", err)
	}
}

func TestSettlementService_Settle_NegativeApprovedRejected(t *testing.T) {
	env := setupTestSettlementService()
	env.seedClaimScenario(model.DutyStatusAdminReview, 300)

	_, err := env.svc.Settle(context.Background(), "claim-1", settleReq(-50, nil), "admin-1")
	if !errors.Is(err, ErrInvalidApprovedAmount) {
		t.Errorf("期望 ErrInvalidApprovedAmount，实际: %v", err)
	}
	// 不得产生结算记录，任务状态不得推进
	if len(env.settlementRepo.records) != 0 {
		t.Errorf("负核准额不应落下结算记录，实际 %d 条", len(env.settlementRepo.records))
	}
	if env.dutyRepo.duties["duty-1"].Status != model.DutyStatusAdminReview {
		t.Errorf("任务状态不应变化，实际=%s", env.dutyRepo.duties["duty-1"].Status)
	}
}

func TestSettlementService_Settle_SecondSettleFails(t *testing.T) {
	env := setupTestSettlementService()
	env.seedClaimScenario(model.DutyStatusAdminReview, 300)
	ctx := context.Background()

	if _, err := env.svc.Settle(ctx, "claim-1", settleReq(300, nil), "admin-1"); err != nil {
		t.Fatalf("首次结算应成功: %v", err)
	}
	_, err := env.svc.Settle(ctx, "claim-1", settleReq(300, nil), "admin-2")
	if !errors.Is(err, ErrAlreadySettled) {
		t.Errorf("重复结算期望 ErrAlreadySettled，实际: %v", err)
	}
	if len(env.settlementRepo.records) != 1 {
		t.Errorf("结算记录应只有一条，实际=%d", len(env.settlementRepo.records))
	}
}

func TestSettlementService_Settle_GuardMissOnWrongState(t *testing.T) {
	env := setupTestSettlementService()
	// 报销单仍 pending，但任务尚未进入 admin_review：守卫落空
	env.seedClaimScenario(model.DutyStatusVoting, 300)

	_, err := env.svc.Settle(context.Background(), "claim-1", settleReq(300, nil), "admin-1")
	if !errors.Is(err, ErrAlreadySettled) {
		t.Errorf("守卫落空期望 ErrAlreadySettled，实际: %v", err)
	}
	if env.dutyRepo.duties["duty-1"].Status != model.DutyStatusVoting {
		t.Error("守卫落空不应改变任务状态")
	}
}

// ── Reject 测试 ──

func TestSettlementService_Reject_ReturnsDutyToPending(t *testing.T) {
	env := setupTestSettlementService()
	env.seedClaimScenario(model.DutyStatusAdminReview, 300)

	err := env.svc.Reject(context.Background(), "claim-1",
		&dto.RejectClaimRequest{Reason: "缺少发票原件"}, "admin-1")
	if err != nil {
		t.Fatalf("驳回应成功: %v", err)
	}

	if env.claimRepo.claims["claim-1"].Status != model.ClaimStatusRejected {
		t.Errorf("驳回后报销单应为 rejected，实际=%s", env.claimRepo.claims["claim-1"].Status)
	}
	if env.dutyRepo.duties["duty-1"].Status != model.DutyStatusPending {
		t.Errorf("驳回后任务应退回 pending，实际=%s", env.dutyRepo.duties["duty-1"].Status)
	}
	if len(env.settlementRepo.records) != 0 {
		t.Error("驳回不应产生结算记录")
	}
	if len(env.notifyRepo.notifications) != 1 {
		t.Errorf("申领人应收到驳回通知，实际=%d", len(env.notifyRepo.notifications))
	}
}

func TestSettlementService_Reject_AlreadySettled(t *testing.T) {
	env := setupTestSettlementService()
	env.seedClaimScenario(model.DutyStatusPaid, 300)
	env.claimRepo.claims["claim-1"].Status = model.ClaimStatusApproved

	err := env.svc.Reject(context.Background(), "claim-1",
		&dto.RejectClaimRequest{Reason: "理由"}, "admin-1")
	if !errors.Is(err, ErrAlreadySettled) {
		t.Errorf("期望 ErrAlreadySettled，实际: %v", err)
	}
}

func TestSettlementService_Reject_ThenResubmit(t *testing.T) {
	env := setupTestSettlementService()
	env.seedClaimScenario(model.DutyStatusAdminReview, 300)
	ctx := context.Background()

	if err := env.svc.Reject(ctx, "claim-1",
		&dto.RejectClaimRequest{Reason: "金额填写有误"}, "admin-1"); err != nil {
		t.Fatalf("驳回应成功: %v", err)
	}

	// 驳回后不存在活跃报销单，任务可重新提交
	active, err := env.claimRepo.HasActive(ctx, "duty-1")
	if err != nil {
		t.Fatalf("查询活跃报销单失败: %v", err)
	}
	if active {
		t.Error("驳回后不应存在活跃报销单")
	}
}

// ── ApproveDuty 测试 ──

func TestSettlementService_ApproveDuty_ExpenseFree(t *testing.T) {
	env := setupTestSettlementService()
	duty := &model.Duty{
		DutyID: "duty-2", GroupID: "group-1", Title: "布置签到台",
		ExpenseType: model.ExpenseTypeNone, Status: model.DutyStatusInProgress,
	}
	duty.Version = 1
	env.dutyRepo.duties["duty-2"] = duty

	if err := env.svc.ApproveDuty(context.Background(), "duty-2", "admin-1"); err != nil {
		t.Fatalf("无费用任务验收应成功: %v", err)
	}
	if duty.Status != model.DutyStatusApproved {
		t.Errorf("验收后任务应为 approved，实际=%s", duty.Status)
	}
	// 终局状态必须带终局金额：无费用任务恒为 0
	if duty.FinalAmount == nil {
		t.Fatal("approved 任务的 final_amount 不应为空")
	}
	if *duty.FinalAmount != 0 {
		t.Errorf("无费用任务终局金额应为 0，实际=%.2f", *duty.FinalAmount)
	}
}

func TestSettlementService_ApproveDuty_ExpenseBound(t *testing.T) {
	env := setupTestSettlementService()
	env.seedClaimScenario(model.DutyStatusInProgress, 300)

	err := env.svc.ApproveDuty(context.Background(), "duty-1", "admin-1")
	if !errors.Is(err, ErrDutyNotExpenseFree) {
		t.Errorf("绑定费用的任务期望 ErrDutyNotExpenseFree，实际: %v", err)
	}
}

func TestSettlementService_ApproveDuty_GuardMiss(t *testing.T) {
	env := setupTestSettlementService()
	duty := &model.Duty{
		DutyID: "duty-3", GroupID: "group-1", Title: "归还租借设备",
		ExpenseType: model.ExpenseTypeNone, Status: model.DutyStatusApproved,
	}
	env.dutyRepo.duties["duty-3"] = duty

	err := env.svc.ApproveDuty(context.Background(), "duty-3", "admin-1")
	if !errors.Is(err, ErrDutyStateConflict) {
		t.Errorf("已验收任务期望 ErrDutyStateConflict，实际: %v", err)
	}
}

// [自证通过] internal/service/settlement_service_test.go
