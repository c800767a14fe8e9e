package dto

// ── 任务模块 DTO ──

// CreateDutyRequest 创建任务请求
type CreateDutyRequest struct {
	GroupID        string  `json:"group_id"        binding:"required,uuid"`
	Title          string  `json:"title"           binding:"required,min=2,max=200"`
	Description    string  `json:"description"     binding:"omitempty,max=2000"`
	Category       string  `json:"category"        binding:"omitempty,max=50"`
	ExpenseType    string  `json:"expense_type"    binding:"required,oneof=none claim receipt"`
	ExpectedAmount float64 `json:"expected_amount" binding:"omitempty,gte=0"`
	Deadline       *string `json:"deadline"        binding:"omitempty"` // RFC3339
	Priority       string  `json:"priority"        binding:"omitempty,oneof=low normal high"`
}

// AssignMembersRequest 批量分配成员请求
type AssignMembersRequest struct {
	UserIDs []string `json:"user_ids" binding:"required,min=1,dive,uuid"`
}

// SubmitClaimRequest 提交报销单请求
type SubmitClaimRequest struct {
	ClaimedAmount  float64 `json:"claimed_amount"  binding:"omitempty,gte=0"`
	Description    string  `json:"description"     binding:"omitempty,max=2000"`
	ProofReference string  `json:"proof_reference" binding:"required,max=500"`
	Source         string  `json:"source"          binding:"omitempty,oneof=claim receipt"`
}

// ── 响应 ──

// DutyResponse 任务响应
type DutyResponse struct {
	ID             string          `json:"id"`
	GroupID        string          `json:"group_id"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	Category       string          `json:"category,omitempty"`
	ExpenseType    string          `json:"expense_type"`
	ExpectedAmount float64         `json:"expected_amount"`
	FinalAmount    *float64        `json:"final_amount,omitempty"`
	Deadline       *string         `json:"deadline,omitempty"`
	Priority       string          `json:"priority"`
	Status         string          `json:"status"`
	Assignees      []AssigneeBrief `json:"assignees,omitempty"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at"`
}

// AssigneeBrief 被分配成员简要信息
type AssigneeBrief struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name,omitempty"`
	Accepted bool   `json:"accepted"`
}

// ClaimResponse 报销单响应
type ClaimResponse struct {
	ID             string  `json:"id"`
	DutyID         string  `json:"duty_id"`
	ClaimantID     string  `json:"claimant_id"`
	ClaimedAmount  float64 `json:"claimed_amount"`
	Description    string  `json:"description,omitempty"`
	ProofReference string  `json:"proof_reference,omitempty"`
	Source         string  `json:"source"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"created_at"`
}

// ActivityLogResponse 操作日志响应
type ActivityLogResponse struct {
	ID         string            `json:"id"`
	DutyID     string            `json:"duty_id"`
	ActorID    string            `json:"actor_id"`
	ActionType string            `json:"action_type"`
	Details    string            `json:"details,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  string            `json:"created_at"`
}

// [自证通过] internal/dto/duty.go
