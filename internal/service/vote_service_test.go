package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"farewell-duty/backend/config"
	"farewell-duty/backend/internal/dto"
	"farewell-duty/backend/internal/model"
	"farewell-duty/backend/internal/repository"
)

// ── 测试辅助 ──

type voteTestEnv struct {
	svc          VoteService
	dutyRepo     *mockDutyRepo
	claimRepo    *mockClaimRepo
	voteRepo     *mockVoteRepo
	userRepo     *mockUserRepo
	activityRepo *mockActivityLogRepo
}

func setupTestVoteService(quorum int) *voteTestEnv {
	dutyRepo := newMockDutyRepo()
	claimRepo := newMockClaimRepo(dutyRepo)
	voteRepo := newMockVoteRepo()
	userRepo := newMockUserRepo()
	activityRepo := newMockActivityLogRepo()

	repo := &repository.Repository{
		User:         userRepo,
		Duty:         dutyRepo,
		Assignment:   newMockAssignmentRepo(),
		Claim:        claimRepo,
		Vote:         voteRepo,
		Settlement:   newMockSettlementRepo(),
		ActivityLog:  activityRepo,
		Notification: newMockNotificationRepo(),
	}
	cfg := &config.Config{
		Verification: config.VerificationConfig{QuorumThreshold: quorum},
	}
	svc := NewVoteService(cfg, repo, zap.NewNop())

	return &voteTestEnv{
		svc:          svc,
		dutyRepo:     dutyRepo,
		claimRepo:    claimRepo,
		voteRepo:     voteRepo,
		userRepo:     userRepo,
		activityRepo: activityRepo,
	}
}

func (e *voteTestEnv) seedScenario(dutyStatus string) {
	e.userRepo.users["claimant"] = &model.User{UserID: "claimant", Name: "申领人", GroupID: "group-1"}
	e.userRepo.users["voter-1"] = &model.User{UserID: "voter-1", Name: "投票人一", GroupID: "group-1"}
	e.userRepo.users["voter-2"] = &model.User{UserID: "voter-2", Name: "投票人二", GroupID: "group-1"}
	e.userRepo.users["voter-3"] = &model.User{UserID: "voter-3", Name: "投票人三", GroupID: "group-1"}

	duty := &model.Duty{
		DutyID: "duty-1", GroupID: "group-1", Title: "采购鲜花",
		ExpenseType: model.ExpenseTypeClaim, Status: dutyStatus,
	}
	duty.Version = 1
	e.dutyRepo.duties["duty-1"] = duty

	e.claimRepo.claims["claim-1"] = &model.Claim{
		ClaimID: "claim-1", DutyID: "duty-1", ClaimantID: "claimant",
		ClaimedAmount: 200, Source: model.ClaimSourceClaim,
		Status: model.ClaimStatusPending,
	}
}

func approveReq() *dto.CastVoteRequest {
	return &dto.CastVoteRequest{Outcome: model.VoteOutcomeApprove}
}

// ── Cast 测试 ──

func TestVoteService_Cast_BelowQuorum(t *testing.T) {
	env := setupTestVoteService(2)
	env.seedScenario(model.DutyStatusPendingVerif)

	resp, err := env.svc.Cast(context.Background(), "claim-1", approveReq(), "voter-1")
	if err != nil {
		t.Fatalf("Cast 应成功: %v", err)
	}

	if resp.QuorumReached {
		t.Error("单票不应达到法定门槛")
	}
	if resp.ApproveCount != 1 {
		t.Errorf("期望赞成票 1，实际=%d", resp.ApproveCount)
	}
	if env.dutyRepo.duties["duty-1"].Status != model.DutyStatusPendingVerif {
		t.Errorf("未达门槛不应推进状态，实际=%s", env.dutyRepo.duties["duty-1"].Status)
	}
}

func TestVoteService_Cast_QuorumTransitionsToAdminReview(t *testing.T) {
	env := setupTestVoteService(2)
	env.seedScenario(model.DutyStatusPendingVerif)
	ctx := context.Background()

	if _, err := env.svc.Cast(ctx, "claim-1", approveReq(), "voter-1"); err != nil {
		t.Fatalf("第一票应成功: %v", err)
	}
	resp, err := env.svc.Cast(ctx, "claim-1", approveReq(), "voter-2")
	if err != nil {
		t.Fatalf("第二票应成功: %v", err)
	}

	if !resp.QuorumReached {
		t.Error("两票应达到法定门槛")
	}
	if env.dutyRepo.duties["duty-1"].Status != model.DutyStatusAdminReview {
		t.Errorf("达标后任务应进入 admin_review，实际=%s", env.dutyRepo.duties["duty-1"].Status)
	}
	if env.activityRepo.countByAction(model.ActionQuorumReached) != 1 {
		t.Errorf("达标日志应恰好一条，实际=%d", env.activityRepo.countByAction(model.ActionQuorumReached))
	}
}

func TestVoteService_Cast_LateVoteNoDoubleQuorumLog(t *testing.T) {
	env := setupTestVoteService(2)
	env.seedScenario(model.DutyStatusPendingVerif)
	ctx := context.Background()

	env.svc.Cast(ctx, "claim-1", approveReq(), "voter-1")
	env.svc.Cast(ctx, "claim-1", approveReq(), "voter-2")

	// 第三票：任务已在 admin_review，投票仍被记录，但不再推进也不再记达标日志
	resp, err := env.svc.Cast(ctx, "claim-1", approveReq(), "voter-3")
	if err != nil {
		t.Fatalf("迟到投票应照常成功: %v", err)
	}
	if !resp.Recorded {
		t.Error("迟到投票应被记录")
	}
	if resp.ApproveCount != 3 {
		t.Errorf("期望赞成票 3，实际=%d", resp.ApproveCount)
	}
	if env.activityRepo.countByAction(model.ActionQuorumReached) != 1 {
		t.Errorf("达标日志不应重复，实际=%d", env.activityRepo.countByAction(model.ActionQuorumReached))
	}
}

func TestVoteService_Cast_RevoteOverwrites(t *testing.T) {
	env := setupTestVoteService(3)
	env.seedScenario(model.DutyStatusPendingVerif)
	ctx := context.Background()

	env.svc.Cast(ctx, "claim-1", approveReq(), "voter-1")
	resp, err := env.svc.Cast(ctx, "claim-1",
		&dto.CastVoteRequest{Outcome: model.VoteOutcomeReject, Note: "凭证不清晰"}, "voter-1")
	if err != nil {
		t.Fatalf("改票应成功: %v", err)
	}

	if resp.ApproveCount != 0 || resp.RejectCount != 1 {
		t.Errorf("改票后计票应为 0 赞成 1 反对，实际=%d/%d", resp.ApproveCount, resp.RejectCount)
	}
	if len(env.voteRepo.votes) != 1 {
		t.Errorf("同一投票人应只占一行，实际=%d", len(env.voteRepo.votes))
	}
}

func TestVoteService_Cast_RejectVotesDoNotCount(t *testing.T) {
	env := setupTestVoteService(2)
	env.seedScenario(model.DutyStatusPendingVerif)
	ctx := context.Background()

	env.svc.Cast(ctx, "claim-1", &dto.CastVoteRequest{Outcome: model.VoteOutcomeReject}, "voter-1")
	resp, _ := env.svc.Cast(ctx, "claim-1", &dto.CastVoteRequest{Outcome: model.VoteOutcomeReject}, "voter-2")

	if resp.QuorumReached {
		t.Error("反对票不应计入法定门槛")
	}
	if env.dutyRepo.duties["duty-1"].Status != model.DutyStatusPendingVerif {
		t.Errorf("反对票不应推进状态，实际=%s", env.dutyRepo.duties["duty-1"].Status)
	}
}

func TestVoteService_Cast_SelfVote(t *testing.T) {
	env := setupTestVoteService(2)
	env.seedScenario(model.DutyStatusPendingVerif)

	_, err := env.svc.Cast(context.Background(), "claim-1", approveReq(), "claimant")
	if !errors.Is(err, ErrSelfVote) {
		t.Errorf("期望 ErrSelfVote，实际: %v", err)
	}
}

func TestVoteService_Cast_SettledClaim(t *testing.T) {
	env := setupTestVoteService(2)
	env.seedScenario(model.DutyStatusPaid)
	env.claimRepo.claims["claim-1"].Status = model.ClaimStatusApproved

	_, err := env.svc.Cast(context.Background(), "claim-1", approveReq(), "voter-1")
	if !errors.Is(err, ErrClaimNotOpen) {
		t.Errorf("期望 ErrClaimNotOpen，实际: %v", err)
	}
}

func TestVoteService_Cast_DutyNotVotable(t *testing.T) {
	env := setupTestVoteService(2)
	env.seedScenario(model.DutyStatusInProgress)

	_, err := env.svc.Cast(context.Background(), "claim-1", approveReq(), "voter-1")
	if !errors.Is(err, ErrDutyStateConflict) {
		t.Errorf("期望 ErrDutyStateConflict，实际: %v", err)
	}
}

func TestVoteService_Cast_ClaimNotFound(t *testing.T) {
	env := setupTestVoteService(2)

	_, err := env.svc.Cast(context.Background(), "nonexistent", approveReq(), "voter-1")
	if !errors.Is(err, ErrClaimNotFound) {
		t.Errorf("期望 ErrClaimNotFound，实际: %v", err)
	}
}

func TestVoteService_Cast_VotingStatusAlsoVotable(t *testing.T) {
	env := setupTestVoteService(1)
	env.seedScenario(model.DutyStatusVoting)

	resp, err := env.svc.Cast(context.Background(), "claim-1", approveReq(), "voter-1")
	if err != nil {
		t.Fatalf("voting 状态下投票应成功: %v", err)
	}
	if !resp.QuorumReached {
		t.Error("门槛 1 时单票即达标")
	}
	if env.dutyRepo.duties["duty-1"].Status != model.DutyStatusAdminReview {
		t.Errorf("voting 路径达标后也应进入 admin_review，实际=%s", env.dutyRepo.duties["duty-1"].Status)
	}
}

// [自证通过] internal/service/vote_service_test.go
