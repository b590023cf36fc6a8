// Package settingsstore resolves the dashboard settings groups and the
// analytics refresh schedule. Stored values win over the environment, which
// wins over built-in defaults.
package settingsstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sboapp/admin/internal/audit"
	"github.com/sboapp/admin/internal/database/settings"
	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/logger"
)

var ErrUnknownGroup = errors.New("unknown settings group")

const (
	SourceDatabase    = "database"
	SourceEnvironment = "environment"
	SourceDefault     = "default"
)

// Repository is the persistence the store needs.
type Repository interface {
	GetSetting(key string) (*entities.Setting, error)
	SetSetting(key, value, updatedBy string) error
	DeleteSetting(key string) error
}

// Auditor records settings changes.
type Auditor interface {
	LogAction(ctx context.Context, action entities.AuditAction, entityType, entityID string, actor audit.Actor, details string, oldData, newData any) (*entities.AuditLog, error)
}

// GroupInfo is one group's effective values and where they came from.
type GroupInfo struct {
	Group     string     `json:"group"`
	Values    any        `json:"values"`
	Source    string     `json:"source"`
	UpdatedBy string     `json:"updatedBy,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type SettingsStore struct {
	repo    Repository
	auditor Auditor
	env     func(string) string
}

func New(repo Repository, auditor Auditor, env func(string) string) *SettingsStore {
	return &SettingsStore{repo: repo, auditor: auditor, env: env}
}

// Group returns the effective values of a group. Stored JSON is decoded over
// the defaults so fields added later keep their default value.
func (s *SettingsStore) Group(name string) (GroupInfo, error) {
	values, ok := defaults(name)
	if !ok {
		return GroupInfo{}, fmt.Errorf("%w: %s", ErrUnknownGroup, name)
	}
	info := GroupInfo{Group: name, Values: values, Source: SourceDefault}

	setting, err := s.repo.GetSetting(name)
	if errors.Is(err, settings.ErrNotFound) {
		return info, nil
	}
	if err != nil {
		return GroupInfo{}, fmt.Errorf("load settings %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(setting.Value), values); err != nil {
		logger.WithFields(logrus.Fields{"group": name, "error": err}).Warn("Stored settings are unreadable, using defaults")
		values, _ = defaults(name)
		info.Values = values
		return info, nil
	}
	updated := setting.UpdatedAt
	info.Source = SourceDatabase
	info.UpdatedBy = setting.UpdatedBy
	info.UpdatedAt = &updated
	return info, nil
}

// All returns every group in display order.
func (s *SettingsStore) All() ([]GroupInfo, error) {
	out := make([]GroupInfo, 0, len(entities.SettingGroups))
	for _, name := range entities.SettingGroups {
		info, err := s.Group(name)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

// Save merges a partial JSON object into the group's current values,
// validates, stores and audits the result. Unknown fields are rejected.
func (s *SettingsStore) Save(ctx context.Context, name string, patch json.RawMessage, actor audit.Actor) (GroupInfo, error) {
	current, err := s.Group(name)
	if err != nil {
		return GroupInfo{}, err
	}
	oldJSON, err := json.Marshal(current.Values)
	if err != nil {
		return GroupInfo{}, err
	}

	next, _ := defaults(name)
	if err := json.Unmarshal(oldJSON, next); err != nil {
		return GroupInfo{}, err
	}
	dec := json.NewDecoder(bytes.NewReader(patch))
	dec.DisallowUnknownFields()
	if err := dec.Decode(next); err != nil {
		var errs entities.ValidationErrors
		errs.Add(name, "invalid settings payload: "+err.Error())
		return GroupInfo{}, errs
	}
	if err := next.validate(); err != nil {
		return GroupInfo{}, err
	}

	newJSON, err := json.Marshal(next)
	if err != nil {
		return GroupInfo{}, err
	}
	if err := s.repo.SetSetting(name, string(newJSON), actor.Email); err != nil {
		return GroupInfo{}, fmt.Errorf("save settings %s: %w", name, err)
	}

	if s.auditor != nil {
		if _, err := s.auditor.LogAction(ctx, entities.AuditActionUpdate, entities.AuditEntitySettings, name, actor,
			"Updated settings: "+name, json.RawMessage(oldJSON), json.RawMessage(newJSON)); err != nil {
			logger.WithFields(logrus.Fields{"group": name, "error": err}).Error("Failed to audit settings change")
		}
	}
	return s.Group(name)
}

// Reset drops the stored values so the group reverts to defaults.
func (s *SettingsStore) Reset(ctx context.Context, name string, actor audit.Actor) (GroupInfo, error) {
	current, err := s.Group(name)
	if err != nil {
		return GroupInfo{}, err
	}
	if current.Source == SourceDefault {
		return current, nil
	}
	if err := s.repo.DeleteSetting(name); err != nil {
		return GroupInfo{}, err
	}
	fresh, err := s.Group(name)
	if err != nil {
		return GroupInfo{}, err
	}
	if s.auditor != nil {
		if _, err := s.auditor.LogAction(ctx, entities.AuditActionUpdate, entities.AuditEntitySettings, name, actor,
			"Reset settings: "+name, current.Values, fresh.Values); err != nil {
			logger.WithFields(logrus.Fields{"group": name, "error": err}).Error("Failed to audit settings reset")
		}
	}
	return fresh, nil
}

// General is a typed shortcut used by the public pages.
func (s *SettingsStore) General() GeneralSettings {
	info, err := s.Group(entities.SettingGroupGeneral)
	if err != nil {
		d, _ := defaults(entities.SettingGroupGeneral)
		return *d.(*GeneralSettings)
	}
	return *info.Values.(*GeneralSettings)
}
