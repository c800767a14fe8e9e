package dto

// ── 验证与结算模块 DTO ──

// CastVoteRequest 同伴投票请求
type CastVoteRequest struct {
	Outcome string `json:"outcome" binding:"required,oneof=approve reject"`
	Note    string `json:"note"    binding:"omitempty,max=500"`
}

// CastVoteResponse 投票结果响应
//
// QuorumReached 是电平触发信号而非边沿触发：两个投票人可能同时观察到
// true，调用方在据此行动前必须检查任务当前状态。
type CastVoteResponse struct {
	Recorded      bool `json:"recorded"`
	QuorumReached bool `json:"quorum_reached"`
	ApproveCount  int  `json:"approve_count"`
	RejectCount   int  `json:"reject_count"`
}

// SettleClaimRequest 管理员结算请求
type SettleClaimRequest struct {
	ApprovedAmount  float64 `json:"approved_amount"  binding:"gte=0"`
	DeductionReason *string `json:"deduction_reason" binding:"omitempty,max=500"`
	PaymentMode     string  `json:"payment_mode"     binding:"required,oneof=online offline"`
	Notes           string  `json:"notes"            binding:"omitempty,max=500"`
}

// RejectClaimRequest 管理员驳回请求
type RejectClaimRequest struct {
	Reason string `json:"reason" binding:"required,min=2,max=500"`
}

// SettlementRecordResponse 结算记录响应
type SettlementRecordResponse struct {
	ID              string  `json:"id"`
	ClaimID         string  `json:"claim_id"`
	DutyID          string  `json:"duty_id"`
	ClaimantID      string  `json:"claimant_id"`
	ClaimedAmount   float64 `json:"claimed_amount"`
	ApprovedAmount  float64 `json:"approved_amount"`
	DeductedAmount  float64 `json:"deducted_amount"`
	DeductionReason *string `json:"deduction_reason,omitempty"`
	PaymentMode     string  `json:"payment_mode"`
	DecidedBy       string  `json:"decided_by"`
	Notes           string  `json:"notes,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

// [自证通过] internal/dto/verification.go
