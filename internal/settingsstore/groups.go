package settingsstore

import (
	"net/mail"
	"net/url"
	"strings"

	"github.com/sboapp/admin/internal/entities"
)

// group is a settings document with its own validation rules.
type group interface {
	validate() error
}

type GeneralSettings struct {
	AppName             string `json:"appName"`
	AppDescription      string `json:"appDescription"`
	AppVersion          string `json:"appVersion"`
	SupportEmail        string `json:"supportEmail"`
	WebsiteURL          string `json:"websiteUrl"`
	MaintenanceMode     bool   `json:"maintenanceMode"`
	RegistrationEnabled bool   `json:"registrationEnabled"`
}

func (g *GeneralSettings) validate() error {
	var errs entities.ValidationErrors
	if strings.TrimSpace(g.AppName) == "" {
		errs.Add("appName", "is required")
	}
	if g.SupportEmail != "" {
		if _, err := mail.ParseAddress(g.SupportEmail); err != nil {
			errs.Add("supportEmail", "must be a valid email address")
		}
	}
	if g.WebsiteURL != "" {
		if u, err := url.Parse(g.WebsiteURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			errs.Add("websiteUrl", "must be an http(s) URL")
		}
	}
	return errs.Err()
}

type NotificationSettings struct {
	EmailNotifications   bool `json:"emailNotifications"`
	PushNotifications    bool `json:"pushNotifications"`
	NewUserNotifications bool `json:"newUserNotifications"`
	NewBookNotifications bool `json:"newBookNotifications"`
	SystemAlerts         bool `json:"systemAlerts"`
	MarketingEmails      bool `json:"marketingEmails"`
}

func (*NotificationSettings) validate() error { return nil }

type SecuritySettings struct {
	TwoFactorAuth            bool `json:"twoFactorAuth"`
	SessionTimeoutHours      int  `json:"sessionTimeout"`
	PasswordMinLength        int  `json:"passwordMinLength"`
	MaxLoginAttempts         int  `json:"maxLoginAttempts"`
	RequireEmailVerification bool `json:"requireEmailVerification"`
	AllowGuestAccess         bool `json:"allowGuestAccess"`
}

func (s *SecuritySettings) validate() error {
	var errs entities.ValidationErrors
	if s.SessionTimeoutHours < 1 || s.SessionTimeoutHours > 720 {
		errs.Add("sessionTimeout", "must be between 1 and 720 hours")
	}
	if s.PasswordMinLength < 6 || s.PasswordMinLength > 72 {
		errs.Add("passwordMinLength", "must be between 6 and 72")
	}
	if s.MaxLoginAttempts < 1 || s.MaxLoginAttempts > 100 {
		errs.Add("maxLoginAttempts", "must be between 1 and 100")
	}
	return errs.Err()
}

type PaymentSettings struct {
	Currency          string  `json:"currency"`
	TaxRate           float64 `json:"taxRate"`
	FreeTrialDays     int     `json:"freeTrialDays"`
	SubscriptionPlans bool    `json:"subscriptionPlans"`
	RefundPolicy      string  `json:"refundPolicy"`
}

func (p *PaymentSettings) validate() error {
	var errs entities.ValidationErrors
	if len(p.Currency) != 3 || strings.ToUpper(p.Currency) != p.Currency {
		errs.Add("currency", "must be a three-letter ISO code")
	}
	if p.TaxRate < 0 || p.TaxRate > 100 {
		errs.Add("taxRate", "must be between 0 and 100")
	}
	if p.FreeTrialDays < 0 || p.FreeTrialDays > 365 {
		errs.Add("freeTrialDays", "must be between 0 and 365")
	}
	return errs.Err()
}

// defaults returns a fresh copy of a group's default values.
func defaults(name string) (group, bool) {
	switch name {
	case entities.SettingGroupGeneral:
		return &GeneralSettings{
			AppName:             "SBO APP",
			AppDescription:      "Your premium digital library experience",
			AppVersion:          "1.0.0",
			SupportEmail:        "support@sboapp.com",
			WebsiteURL:          "https://sboapp.com",
			RegistrationEnabled: true,
		}, true
	case entities.SettingGroupNotifications:
		return &NotificationSettings{
			EmailNotifications:   true,
			PushNotifications:    true,
			NewUserNotifications: true,
			NewBookNotifications: true,
			SystemAlerts:         true,
		}, true
	case entities.SettingGroupSecurity:
		return &SecuritySettings{
			SessionTimeoutHours:      24,
			PasswordMinLength:        8,
			MaxLoginAttempts:         5,
			RequireEmailVerification: true,
		}, true
	case entities.SettingGroupPayments:
		return &PaymentSettings{
			Currency:          "USD",
			TaxRate:           10,
			FreeTrialDays:     7,
			SubscriptionPlans: true,
			RefundPolicy:      "30 days",
		}, true
	}
	return nil, false
}
