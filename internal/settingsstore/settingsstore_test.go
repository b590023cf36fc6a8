package settingsstore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sboapp/admin/internal/audit"
	"github.com/sboapp/admin/internal/database"
	"github.com/sboapp/admin/internal/database/settings"
	"github.com/sboapp/admin/internal/entities"
)

type auditCall struct {
	entityID string
	details  string
	actor    audit.Actor
}

type fakeAuditor struct {
	calls []auditCall
}

func (f *fakeAuditor) LogAction(_ context.Context, action entities.AuditAction, entityType, entityID string, actor audit.Actor, details string, _, _ any) (*entities.AuditLog, error) {
	f.calls = append(f.calls, auditCall{entityID: entityID, details: details, actor: actor})
	return &entities.AuditLog{Action: action, EntityType: entityType, EntityID: entityID}, nil
}

var owner = audit.Actor{ID: "admin_1", Email: "owner@example.com"}

func setupStore(t *testing.T, env map[string]string) (*SettingsStore, *fakeAuditor) {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	auditor := &fakeAuditor{}
	store := New(settings.NewRepository(db.DB), auditor, func(k string) string { return env[k] })
	return store, auditor
}

func TestGroup_Defaults(t *testing.T) {
	store, _ := setupStore(t, nil)

	info, err := store.Group(entities.SettingGroupGeneral)
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, info.Source)
	general := info.Values.(*GeneralSettings)
	assert.Equal(t, "SBO APP", general.AppName)
	assert.True(t, general.RegistrationEnabled)

	info, err = store.Group(entities.SettingGroupPayments)
	require.NoError(t, err)
	assert.Equal(t, "USD", info.Values.(*PaymentSettings).Currency)

	_, err = store.Group("billing")
	assert.ErrorIs(t, err, ErrUnknownGroup)
}

func TestAll_Order(t *testing.T) {
	store, _ := setupStore(t, nil)
	all, err := store.All()
	require.NoError(t, err)
	var names []string
	for _, g := range all {
		names = append(names, g.Group)
	}
	assert.Equal(t, entities.SettingGroups, names)
}

func TestSave_MergesValidatesAndAudits(t *testing.T) {
	store, auditor := setupStore(t, nil)
	ctx := context.Background()

	info, err := store.Save(ctx, entities.SettingGroupGeneral, json.RawMessage(`{"appName":"SBO Library","maintenanceMode":true}`), owner)
	require.NoError(t, err)
	assert.Equal(t, SourceDatabase, info.Source)
	assert.Equal(t, "owner@example.com", info.UpdatedBy)
	general := info.Values.(*GeneralSettings)
	assert.Equal(t, "SBO Library", general.AppName)
	assert.True(t, general.MaintenanceMode)
	assert.Equal(t, "support@sboapp.com", general.SupportEmail, "untouched fields keep their value")
	assert.Equal(t, "SBO Library", store.General().AppName)

	require.Len(t, auditor.calls, 1)
	assert.Equal(t, "general", auditor.calls[0].entityID)
	assert.Equal(t, "Updated settings: general", auditor.calls[0].details)
	assert.Equal(t, owner, auditor.calls[0].actor)
}

func TestSave_Rejects(t *testing.T) {
	store, auditor := setupStore(t, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		group string
		body  string
	}{
		{"unknown field", entities.SettingGroupGeneral, `{"colour":"red"}`},
		{"empty app name", entities.SettingGroupGeneral, `{"appName":""}`},
		{"bad email", entities.SettingGroupGeneral, `{"supportEmail":"nope"}`},
		{"bad url", entities.SettingGroupGeneral, `{"websiteUrl":"ftp://x"}`},
		{"session timeout", entities.SettingGroupSecurity, `{"sessionTimeout":0}`},
		{"currency", entities.SettingGroupPayments, `{"currency":"usd"}`},
		{"tax", entities.SettingGroupPayments, `{"taxRate":150}`},
		{"wrong type", entities.SettingGroupNotifications, `{"systemAlerts":"yes"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Save(ctx, tt.group, json.RawMessage(tt.body), owner)
			assert.ErrorIs(t, err, entities.ErrValidation)
		})
	}
	assert.Empty(t, auditor.calls)
}

func TestReset(t *testing.T) {
	store, auditor := setupStore(t, nil)
	ctx := context.Background()

	_, err := store.Save(ctx, entities.SettingGroupSecurity, json.RawMessage(`{"twoFactorAuth":true}`), owner)
	require.NoError(t, err)

	info, err := store.Reset(ctx, entities.SettingGroupSecurity, owner)
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, info.Source)
	assert.False(t, info.Values.(*SecuritySettings).TwoFactorAuth)
	assert.Len(t, auditor.calls, 2)

	_, err = store.Reset(ctx, entities.SettingGroupSecurity, owner)
	require.NoError(t, err)
	assert.Len(t, auditor.calls, 2, "resetting defaults is a no-op")
}

func TestAnalyticsSchedule_Priority(t *testing.T) {
	store, _ := setupStore(t, nil)
	assert.Equal(t, ScheduleInfo{Schedule: DefaultAnalyticsSchedule, Source: SourceDefault}, store.AnalyticsSchedule())

	store, auditor := setupStore(t, map[string]string{"ANALYTICS_SCHEDULE": "0 * * * *"})
	assert.Equal(t, ScheduleInfo{Schedule: "0 * * * *", Source: SourceEnvironment}, store.AnalyticsSchedule())

	require.NoError(t, store.SetAnalyticsSchedule(context.Background(), "*/15 * * * *", owner))
	assert.Equal(t, ScheduleInfo{Schedule: "*/15 * * * *", Source: SourceDatabase}, store.AnalyticsSchedule())
	assert.Len(t, auditor.calls, 1)

	err := store.SetAnalyticsSchedule(context.Background(), "whenever", owner)
	assert.ErrorIs(t, err, entities.ErrValidation)
}
