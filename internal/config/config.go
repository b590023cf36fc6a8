package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Log
		Database
		Store
		Audit
		Tasks
		Analytics
		Auth
		Assets
		Metrics
		UI
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Log struct {
		Level      string
		File       string // Empty disables file output
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
		JSON       bool
	}
	Database struct {
		Path string // Task queue database is created alongside with a "-tasks" suffix
	}
	Store struct {
		Driver        string // "memory" or "redis"
		RedisAddr     string
		RedisPassword string
		RedisDB       int
		Root          string
	}
	Audit struct {
		OutboxEnabled bool
		PageViews     bool // Record PAGE_VIEW entries for admin pages
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Analytics struct {
		SnapshotEnabled bool
		Schedule        string // Cron format: "*/5 * * * *" = every 5 minutes
	}
	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		TokenExpiry     time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Assets struct {
		Enabled     bool
		Endpoint    string
		AccessKey   string
		SecretKey   string
		Bucket      string
		UseSSL      bool
		URLExpiry   time.Duration
		MaxUploadMB int64
	}
	Metrics struct {
		Enabled bool
	}
	UI struct {
		PageSize int
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("log_max_size_mb", 10)
	v.SetDefault("log_max_backups", 3)
	v.SetDefault("log_max_age_days", 28)
	v.SetDefault("log_json", true)

	v.SetDefault("database_path", DefaultDatabasePath)

	// Backing store defaults
	v.SetDefault("store_driver", StoreDriverMemory)
	v.SetDefault("store_redis_addr", "localhost:6379")
	v.SetDefault("store_redis_password", "")
	v.SetDefault("store_redis_db", 0)
	v.SetDefault("store_root", DefaultStoreRoot)

	v.SetDefault("audit_outbox_enabled", true)
	v.SetDefault("audit_page_views", false)

	v.SetDefault("analytics_snapshot_enabled", true)
	v.SetDefault("analytics_schedule", "*/5 * * * *")

	// Auth defaults
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_token_expiry", "720h")     // 30 days
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	// Asset storage defaults
	v.SetDefault("assets_enabled", false)
	v.SetDefault("assets_endpoint", "localhost:9000")
	v.SetDefault("assets_access_key", "")
	v.SetDefault("assets_secret_key", "")
	v.SetDefault("assets_bucket", "sboapp-assets")
	v.SetDefault("assets_use_ssl", false)
	v.SetDefault("assets_url_expiry", "168h")
	v.SetDefault("assets_max_upload_mb", 50)

	v.SetDefault("metrics_enabled", true)
	v.SetDefault("ui_page_size", 10)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "5m")
	v.SetDefault("task_cleanup_interval", "1h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Log: Log{
			Level:      v.GetString("LOG_LEVEL"),
			File:       v.GetString("LOG_FILE"),
			MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
			MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
			JSON:       v.GetBool("LOG_JSON"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Store: Store{
			Driver:        v.GetString("STORE_DRIVER"),
			RedisAddr:     v.GetString("STORE_REDIS_ADDR"),
			RedisPassword: v.GetString("STORE_REDIS_PASSWORD"),
			RedisDB:       v.GetInt("STORE_REDIS_DB"),
			Root:          v.GetString("STORE_ROOT"),
		},
		Audit: Audit{
			OutboxEnabled: v.GetBool("AUDIT_OUTBOX_ENABLED"),
			PageViews:     v.GetBool("AUDIT_PAGE_VIEWS"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Analytics: Analytics{
			SnapshotEnabled: v.GetBool("ANALYTICS_SNAPSHOT_ENABLED"),
			Schedule:        v.GetString("ANALYTICS_SCHEDULE"),
		},
		Auth: Auth{
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:      v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Assets: Assets{
			Enabled:     v.GetBool("ASSETS_ENABLED"),
			Endpoint:    v.GetString("ASSETS_ENDPOINT"),
			AccessKey:   v.GetString("ASSETS_ACCESS_KEY"),
			SecretKey:   v.GetString("ASSETS_SECRET_KEY"),
			Bucket:      v.GetString("ASSETS_BUCKET"),
			UseSSL:      v.GetBool("ASSETS_USE_SSL"),
			URLExpiry:   v.GetDuration("ASSETS_URL_EXPIRY"),
			MaxUploadMB: v.GetInt64("ASSETS_MAX_UPLOAD_MB"),
		},
		Metrics: Metrics{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
		UI: UI{
			PageSize: v.GetInt("UI_PAGE_SIZE"),
		},
	}
}

// Validate reports configuration combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverMemory:
	case StoreDriverRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store driver %q requires STORE_REDIS_ADDR", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Root == "" {
		return fmt.Errorf("STORE_ROOT must not be empty")
	}
	if c.UI.PageSize <= 0 {
		return fmt.Errorf("UI_PAGE_SIZE must be positive, got %d", c.UI.PageSize)
	}
	if c.Assets.Enabled && (c.Assets.Endpoint == "" || c.Assets.Bucket == "") {
		return fmt.Errorf("assets storage requires ASSETS_ENDPOINT and ASSETS_BUCKET")
	}
	return nil
}
