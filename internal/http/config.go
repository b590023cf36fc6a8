package http

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sboapp/admin/internal/audit"
	"github.com/sboapp/admin/internal/auth"
	"github.com/sboapp/admin/internal/database"
	"github.com/sboapp/admin/internal/database/admins"
	"github.com/sboapp/admin/internal/live"
	"github.com/sboapp/admin/internal/repository"
	"github.com/sboapp/admin/internal/scheduler"
	"github.com/sboapp/admin/internal/services"
	"github.com/sboapp/admin/internal/settingsstore"
	"github.com/sboapp/admin/internal/storage"
)

// RouterConfig contains all dependencies needed to create the HTTP router.
type RouterConfig struct {
	// Library data and the audited mutators over it
	Library  *repository.Library
	Services *services.Services
	Auditor  *audit.Service

	// Local SQLite: admin accounts, sessions, settings
	Database *database.Database
	Admins   *admins.Repository
	Settings *settingsstore.SettingsStore

	// Authentication
	AuthService    *auth.Service
	AuthController *auth.Controller
	Sessions       *auth.SessionManager
	CSRFSecret     []byte
	SecureCookies  bool

	// Optional components; nil disables the routes that need them
	Scheduler *scheduler.AnalyticsScheduler
	Uploader  *storage.Uploader
	Hub       *live.Hub
	Registry  *prometheus.Registry

	PageSize  int
	PageViews bool // Record PAGE_VIEW audit entries for admin pages
	Version   string
}
