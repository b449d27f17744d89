package user

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Roles
const (
	RoleStudent = "student"
	RoleParent  = "parent"
)

var AllRoles = []string{RoleStudent, RoleParent}

type User struct {
	ID         string      `json:"id"`
	TelegramID null.Int64  `json:"telegram_id"`
	Name       string      `json:"name"`
	AvatarURL  null.String `json:"avatar_url"`
	Role       string      `json:"role"`
	CreatedAt  time.Time   `json:"created_at"` // UTC
}

func (u User) IsParent() bool {
	return u.Role == RoleParent
}
