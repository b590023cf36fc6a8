package auth

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/sboapp/admin/internal/audit"
	"github.com/sboapp/admin/internal/entities"
)

const (
	contextKeyAdmin    = "auth_admin"
	contextKeyAuthType = "auth_type"
)

// AuthType records how a request was authenticated.
type AuthType string

const (
	AuthTypeNone    AuthType = "none"
	AuthTypeSession AuthType = "session"
	AuthTypeBearer  AuthType = "bearer"
)

// AnonymousActor is recorded for page views without a signed-in admin.
var AnonymousActor = audit.Actor{ID: "anonymous", Email: ""}

type Middleware struct {
	service  *Service
	sessions *SessionManager
}

func NewMiddleware(service *Service, sessions *SessionManager) *Middleware {
	return &Middleware{service: service, sessions: sessions}
}

// Identify attaches the administrator to the context when the request
// carries a valid bearer token or session, and never blocks.
func (m *Middleware) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.identify(c)
		c.Next()
	}
}

// Require blocks anonymous requests: API callers get 401, browsers are sent
// to /login with the original path in next.
func (m *Middleware) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Current(c) == nil && !m.identify(c) {
			if WantsJSON(c.Request) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "authentication required",
					"code":  "unauthorized",
				})
				return
			}
			c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireWrite rejects state-changing requests from viewer accounts.
func (m *Middleware) RequireWrite() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		admin := Current(c)
		if admin == nil || !admin.Role.CanWrite() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "insufficient permissions",
				"code":  "forbidden",
			})
			return
		}
		c.Next()
	}
}

func (m *Middleware) identify(c *gin.Context) bool {
	if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
		if admin, err := m.service.ValidateToken(token); err == nil {
			setAdmin(c, admin, AuthTypeBearer)
			return true
		}
	}
	if m.sessions == nil {
		return false
	}
	id := m.sessions.AdminID(c.Request)
	if id == 0 {
		return false
	}
	admin, err := m.service.GetAdminByID(id)
	if err != nil {
		return false
	}
	setAdmin(c, admin, AuthTypeSession)
	return true
}

func setAdmin(c *gin.Context, admin *entities.Admin, authType AuthType) {
	c.Set(contextKeyAdmin, admin)
	c.Set(contextKeyAuthType, authType)
}

// Current returns the signed-in administrator or nil.
func Current(c *gin.Context) *entities.Admin {
	if v, ok := c.Get(contextKeyAdmin); ok {
		if admin, ok := v.(*entities.Admin); ok {
			return admin
		}
	}
	return nil
}

func GetAuthType(c *gin.Context) AuthType {
	if v, ok := c.Get(contextKeyAuthType); ok {
		if t, ok := v.(AuthType); ok {
			return t
		}
	}
	return AuthTypeNone
}

// Actor is the audit identity for the request.
func Actor(c *gin.Context) audit.Actor {
	admin := Current(c)
	if admin == nil {
		return AnonymousActor
	}
	return ActorFor(admin)
}

func ActorFor(admin *entities.Admin) audit.Actor {
	return audit.Actor{ID: admin.ActorID(), Email: admin.Email}
}
