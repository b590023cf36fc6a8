package entities

import (
	"time"
)

// Setting stores one settings group as a JSON document keyed by group name.
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedBy string    `gorm:"size:255" json:"updated_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Settings group keys.
const (
	SettingGroupGeneral       = "general"
	SettingGroupNotifications = "notifications"
	SettingGroupSecurity      = "security"
	SettingGroupPayments      = "payments"
)

// SettingGroups lists the groups in the order the settings page shows them.
var SettingGroups = []string{
	SettingGroupGeneral,
	SettingGroupNotifications,
	SettingGroupSecurity,
	SettingGroupPayments,
}
