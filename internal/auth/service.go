package auth

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/sboapp/admin/internal/config"
	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/logger"
)

var (
	ErrAdminNotFound    = errors.New("admin not found")
	ErrAdminExists      = errors.New("admin already exists")
	ErrInvalidRole      = errors.New("invalid role")
	ErrEmailRequired    = errors.New("email is required")
	ErrEmailInvalid     = errors.New("invalid email format")
	ErrPasswordRequired = errors.New("password is required")
	ErrAccountLocked    = errors.New("account is locked due to too many failed login attempts")
)

const (
	defaultMaxAttempts = 5
	defaultLockout     = 30 * time.Minute
)

// Service manages administrator accounts.
type Service struct {
	db     *gorm.DB
	config config.Auth
	secret []byte
	now    func() time.Time
}

func NewService(db *gorm.DB, cfg config.Auth, secret []byte) *Service {
	return &Service{db: db, config: cfg, secret: secret, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if len(email) > 254 {
		return ErrEmailInvalid
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrEmailInvalid
	}
	return nil
}

// CreateAdmin registers a new account.
func (s *Service) CreateAdmin(email, displayName, password string, role entities.AdminRole) (*entities.Admin, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	var existing entities.Admin
	err := s.db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, ErrAdminExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing admin: %w", err)
	}

	hash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(displayName) == "" {
		displayName = email
	}
	admin := &entities.Admin{
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.db.Create(admin).Error; err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}
	logger.WithFields(logrus.Fields{"admin_id": admin.ID, "role": admin.Role}).Info("Admin account created")
	return admin, nil
}

// UpsertAdmin creates the account or, when it exists, resets its password
// and role and clears any lockout. The boolean reports creation.
func (s *Service) UpsertAdmin(email, displayName, password string, role entities.AdminRole) (*entities.Admin, bool, error) {
	admin, err := s.CreateAdmin(email, displayName, password, role)
	if !errors.Is(err, ErrAdminExists) {
		return admin, err == nil, err
	}

	hash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, false, err
	}
	var existing entities.Admin
	if err := s.db.Where("email = ?", normalizeEmail(email)).First(&existing).Error; err != nil {
		return nil, false, fmt.Errorf("failed to load admin: %w", err)
	}
	updates := map[string]any{
		"password_hash":      hash,
		"role":               role,
		"failed_login_count": 0,
		"locked_until":       nil,
	}
	if strings.TrimSpace(displayName) != "" {
		updates["display_name"] = strings.TrimSpace(displayName)
	}
	if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
		return nil, false, fmt.Errorf("failed to reset admin: %w", err)
	}
	return &existing, false, nil
}

// Authenticate checks credentials and applies the account lockout policy.
func (s *Service) Authenticate(email, password string) (*entities.Admin, error) {
	var admin entities.Admin
	err := s.db.Where("email = ?", normalizeEmail(email)).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find admin: %w", err)
	}

	now := s.now()
	if admin.LockedUntil != nil && now.Before(*admin.LockedUntil) {
		return nil, ErrAccountLocked
	}

	if err := CheckPassword(password, admin.PasswordHash); err != nil {
		s.recordFailedLogin(&admin, now)
		return nil, err
	}

	admin.LastLoginAt = &now
	admin.FailedLoginCount = 0
	admin.LockedUntil = nil
	s.db.Model(&admin).Updates(map[string]any{
		"last_login_at":      now,
		"failed_login_count": 0,
		"locked_until":       nil,
	})
	return &admin, nil
}

func (s *Service) recordFailedLogin(admin *entities.Admin, now time.Time) {
	admin.FailedLoginCount++
	updates := map[string]any{"failed_login_count": admin.FailedLoginCount}

	maxAttempts := s.config.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if admin.FailedLoginCount >= maxAttempts {
		lockout := s.config.LockoutDuration
		if lockout <= 0 {
			lockout = defaultLockout
		}
		until := now.Add(lockout)
		updates["locked_until"] = until
		logger.WithFields(logrus.Fields{"admin_id": admin.ID, "locked_until": until}).Warn("Admin account locked")
	}
	s.db.Model(admin).Updates(updates)
}

func (s *Service) GetAdminByID(id uint) (*entities.Admin, error) {
	var admin entities.Admin
	err := s.db.First(&admin, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

// IssueToken signs a bearer token for admin.
func (s *Service) IssueToken(admin *entities.Admin) (string, time.Time, error) {
	now := s.now()
	ttl := s.config.TokenExpiry
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	token, err := SignToken(s.secret, admin, ttl, now)
	return token, now.Add(ttl), err
}

// ValidateToken parses a bearer token and loads the administrator it names.
// Tokens for deleted accounts are rejected.
func (s *Service) ValidateToken(raw string) (*entities.Admin, error) {
	claims, err := ParseToken(s.secret, raw)
	if err != nil {
		return nil, err
	}
	id, err := claims.AdminID()
	if err != nil {
		return nil, err
	}
	admin, err := s.GetAdminByID(id)
	if errors.Is(err, ErrAdminNotFound) {
		return nil, ErrInvalidToken
	}
	return admin, err
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(id uint, current, next string) error {
	admin, err := s.GetAdminByID(id)
	if err != nil {
		return err
	}
	if err := CheckPassword(current, admin.PasswordHash); err != nil {
		return ErrInvalidPassword
	}
	hash, err := HashPassword(next, s.config.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.db.Model(admin).Update("password_hash", hash).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	logger.WithFields(logrus.Fields{"admin_id": id}).Info("Admin password changed")
	return nil
}

func (s *Service) HasAdmins() (bool, error) {
	var count int64
	if err := s.db.Model(&entities.Admin{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
