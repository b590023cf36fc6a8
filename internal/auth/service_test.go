package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sboapp/admin/internal/config"
	"github.com/sboapp/admin/internal/entities"
)

const testPassword = "correct-horse-battery"

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "auth.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.Admin{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func testAuthConfig() config.Auth {
	return config.Auth{
		BcryptCost:       4,
		SessionLifetime:  time.Hour,
		TokenExpiry:      time.Hour,
		MaxLoginAttempts: 3,
		RateLimitWindow:  time.Minute,
		LockoutDuration:  10 * time.Minute,
	}
}

func TestService_CreateAdmin(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		role     entities.AdminRole
		wantErr  error
	}{
		{name: "valid owner", email: "Owner@Example.com", password: testPassword, role: entities.AdminRoleOwner},
		{name: "missing email", email: "", password: testPassword, role: entities.AdminRoleEditor, wantErr: ErrEmailRequired},
		{name: "bad email", email: "not-an-email", password: testPassword, role: entities.AdminRoleEditor, wantErr: ErrEmailInvalid},
		{name: "missing password", email: "a@example.com", password: "", role: entities.AdminRoleEditor, wantErr: ErrPasswordRequired},
		{name: "short password", email: "a@example.com", password: "short", role: entities.AdminRoleEditor, wantErr: ErrPasswordTooShort},
		{name: "bad role", email: "a@example.com", password: testPassword, role: "root", wantErr: ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(setupTestDB(t), testAuthConfig(), testSecret)
			admin, err := svc.CreateAdmin(tt.email, "", tt.password, tt.role)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "owner@example.com", admin.Email)
			assert.Equal(t, "owner@example.com", admin.DisplayName)
			assert.NotEqual(t, tt.password, admin.PasswordHash)
		})
	}
}

func TestService_CreateAdmin_Duplicate(t *testing.T) {
	svc := NewService(setupTestDB(t), testAuthConfig(), testSecret)
	_, err := svc.CreateAdmin("a@example.com", "A", testPassword, entities.AdminRoleOwner)
	require.NoError(t, err)
	_, err = svc.CreateAdmin("A@example.com", "A", testPassword, entities.AdminRoleOwner)
	assert.ErrorIs(t, err, ErrAdminExists)
}

func TestService_UpsertAdmin(t *testing.T) {
	svc := NewService(setupTestDB(t), testAuthConfig(), testSecret)

	created, isNew, err := svc.UpsertAdmin("a@example.com", "A", testPassword, entities.AdminRoleEditor)
	require.NoError(t, err)
	assert.True(t, isNew)

	reset, isNew, err := svc.UpsertAdmin("a@example.com", "", "another-long-password", entities.AdminRoleOwner)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, created.ID, reset.ID)

	_, err = svc.Authenticate("a@example.com", testPassword)
	assert.ErrorIs(t, err, ErrInvalidPassword)
	admin, err := svc.Authenticate("a@example.com", "another-long-password")
	require.NoError(t, err)
	assert.Equal(t, entities.AdminRoleOwner, admin.Role)
	assert.Equal(t, "A", admin.DisplayName)
}

func TestService_AuthenticateLockout(t *testing.T) {
	svc := NewService(setupTestDB(t), testAuthConfig(), testSecret)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err := svc.CreateAdmin("a@example.com", "A", testPassword, entities.AdminRoleOwner)
	require.NoError(t, err)

	_, err = svc.Authenticate("nobody@example.com", testPassword)
	assert.ErrorIs(t, err, ErrAdminNotFound)

	for i := 0; i < 3; i++ {
		_, err = svc.Authenticate("a@example.com", "wrong-password-123")
		assert.ErrorIs(t, err, ErrInvalidPassword)
	}
	_, err = svc.Authenticate("a@example.com", testPassword)
	assert.ErrorIs(t, err, ErrAccountLocked)

	now = now.Add(11 * time.Minute)
	admin, err := svc.Authenticate("a@example.com", testPassword)
	require.NoError(t, err)
	assert.Zero(t, admin.FailedLoginCount)
	require.NotNil(t, admin.LastLoginAt)
}

func TestService_Tokens(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, testAuthConfig(), testSecret)
	admin, err := svc.CreateAdmin("a@example.com", "A", testPassword, entities.AdminRoleEditor)
	require.NoError(t, err)

	token, expires, err := svc.IssueToken(admin)
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))

	got, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)

	_, err = svc.ValidateToken(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewService(db, testAuthConfig(), []byte("another-secret-another-secret-xx"))
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, db.Delete(&entities.Admin{}, admin.ID).Error)
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_HasAdmins(t *testing.T) {
	svc := NewService(setupTestDB(t), testAuthConfig(), testSecret)
	has, err := svc.HasAdmins()
	require.NoError(t, err)
	assert.False(t, has)

	_, err = svc.CreateAdmin("a@example.com", "", testPassword, entities.AdminRoleOwner)
	require.NoError(t, err)
	has, err = svc.HasAdmins()
	require.NoError(t, err)
	assert.True(t, has)
}

func TestService_ChangePassword(t *testing.T) {
	svc := NewService(setupTestDB(t), testAuthConfig(), testSecret)
	admin, err := svc.CreateAdmin("a@example.com", "", testPassword, entities.AdminRoleOwner)
	require.NoError(t, err)

	err = svc.ChangePassword(admin.ID, "wrong-password-here", "another-long-password")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	err = svc.ChangePassword(admin.ID, testPassword, "short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	require.NoError(t, svc.ChangePassword(admin.ID, testPassword, "another-long-password"))
	_, err = svc.Authenticate("a@example.com", "another-long-password")
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePassword(9999, testPassword, "another-long-password"), ErrAdminNotFound)
}
