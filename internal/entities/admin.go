package entities

import (
	"strconv"
	"time"

	"gorm.io/gorm"
)

type AdminRole string

const (
	AdminRoleOwner  AdminRole = "owner"
	AdminRoleEditor AdminRole = "editor"
	AdminRoleViewer AdminRole = "viewer"
)

func (r AdminRole) Valid() bool {
	switch r {
	case AdminRoleOwner, AdminRoleEditor, AdminRoleViewer:
		return true
	}
	return false
}

// CanWrite reports whether the role may change library data.
func (r AdminRole) CanWrite() bool {
	return r == AdminRoleOwner || r == AdminRoleEditor
}

// Admin is a dashboard operator account kept in the local SQLite database,
// separate from the app users stored in the realtime backend.
type Admin struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Email            string         `gorm:"uniqueIndex;size:255" json:"email"`
	DisplayName      string         `gorm:"size:100" json:"display_name"`
	PasswordHash     string         `gorm:"size:255" json:"-"`
	Role             AdminRole      `gorm:"size:20;default:editor" json:"role"`
	FailedLoginCount int            `json:"-"`
	LockedUntil      *time.Time     `json:"-"`
	LastLoginAt      *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Admin) TableName() string {
	return "admins"
}

// ActorID is the identifier recorded as userId in audit logs.
func (a Admin) ActorID() string {
	return "admin_" + strconv.FormatUint(uint64(a.ID), 10)
}
