package settingsstore

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/sboapp/admin/internal/audit"
	"github.com/sboapp/admin/internal/entities"
)

const (
	settingKeyAnalyticsSchedule = "analytics_schedule"
	envAnalyticsSchedule        = "ANALYTICS_SCHEDULE"

	DefaultAnalyticsSchedule = "*/5 * * * *"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule accepts standard five-field expressions.
func ValidateCronSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// ScheduleInfo is the analytics refresh schedule and where it came from.
type ScheduleInfo struct {
	Schedule string `json:"schedule"`
	Source   string `json:"source"`
}

// AnalyticsSchedule resolves database > ANALYTICS_SCHEDULE > default.
func (s *SettingsStore) AnalyticsSchedule() ScheduleInfo {
	if setting, err := s.repo.GetSetting(settingKeyAnalyticsSchedule); err == nil && setting.Value != "" {
		return ScheduleInfo{Schedule: setting.Value, Source: SourceDatabase}
	}
	if s.env != nil {
		if v := s.env(envAnalyticsSchedule); v != "" {
			return ScheduleInfo{Schedule: v, Source: SourceEnvironment}
		}
	}
	return ScheduleInfo{Schedule: DefaultAnalyticsSchedule, Source: SourceDefault}
}

// SetAnalyticsSchedule stores and audits a new schedule.
func (s *SettingsStore) SetAnalyticsSchedule(ctx context.Context, schedule string, actor audit.Actor) error {
	if err := ValidateCronSchedule(schedule); err != nil {
		var errs entities.ValidationErrors
		errs.Add("schedule", fmt.Sprintf("invalid cron schedule %q", schedule))
		return errs
	}
	old := s.AnalyticsSchedule()
	if err := s.repo.SetSetting(settingKeyAnalyticsSchedule, schedule, actor.Email); err != nil {
		return err
	}
	if s.auditor != nil {
		_, _ = s.auditor.LogAction(ctx, entities.AuditActionUpdate, entities.AuditEntitySettings, settingKeyAnalyticsSchedule, actor,
			"Updated settings: analytics schedule", old, ScheduleInfo{Schedule: schedule, Source: SourceDatabase})
	}
	return nil
}
