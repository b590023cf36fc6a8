package auth

import (
	"database/sql"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/sboapp/admin/internal/config"
	"github.com/sboapp/admin/internal/entities"
)

const (
	sessionKeyAdminID = "admin_id"
	sessionKeyEmail   = "email"
	sessionKeyRole    = "role"
	sessionKeyLoginAt = "login_at"
)

func init() {
	gob.Register(entities.AdminRole(""))
	gob.Register(time.Time{})
}

// SessionManager stores browser sessions in the local SQLite database.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates the sessions table when missing. sqlDB is the
// handle underlying the gorm connection.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) (*SessionManager, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)
	sm.Lifetime = cfg.SessionLifetime
	if sm.Lifetime <= 0 {
		sm.Lifetime = 24 * time.Hour
	}
	sm.IdleTimeout = sm.Lifetime / 2
	sm.Cookie.Name = "sboapp_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// Start renews the token to prevent fixation and records admin in the session.
func (sm *SessionManager) Start(r *http.Request, admin *entities.Admin) error {
	ctx := r.Context()
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}
	sm.Put(ctx, sessionKeyAdminID, int(admin.ID))
	sm.Put(ctx, sessionKeyEmail, admin.Email)
	sm.Put(ctx, sessionKeyRole, admin.Role)
	sm.Put(ctx, sessionKeyLoginAt, time.Now())
	return nil
}

func (sm *SessionManager) End(r *http.Request) error {
	return sm.Destroy(r.Context())
}

// AdminID returns 0 when the session is anonymous.
func (sm *SessionManager) AdminID(r *http.Request) uint {
	return uint(sm.GetInt(r.Context(), sessionKeyAdminID))
}

func (sm *SessionManager) Email(r *http.Request) string {
	return sm.GetString(r.Context(), sessionKeyEmail)
}

func (sm *SessionManager) IsAuthenticated(r *http.Request) bool {
	return sm.AdminID(r) != 0
}
