package auth

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sboapp/admin/internal/audit"
	"github.com/sboapp/admin/internal/config"
	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

// Auditor records authentication events.
type Auditor interface {
	LogSignIn(ctx context.Context, actor audit.Actor, userAgent string) error
	LogSignUp(ctx context.Context, actor audit.Actor, userAgent string) error
	LogSignOut(ctx context.Context, actor audit.Actor) error
}

// isLocalPath accepts only same-origin absolute paths so next cannot be used
// as an open redirect.
func isLocalPath(path string) bool {
	return strings.HasPrefix(path, "/") &&
		!strings.HasPrefix(path, "//") &&
		!strings.Contains(path, "://") &&
		!strings.Contains(path, `\`)
}

func sanitizeNext(path string) string {
	if isLocalPath(path) {
		return path
	}
	return "/admin"
}

// Controller serves the sign-in, sign-out, first-run setup and token
// endpoints.
type Controller struct {
	service   *Service
	sessions  *SessionManager
	auditor   Auditor
	limiter   *RateLimiter
	templates *template.Template
	setupMu   sync.Mutex
}

func NewController(service *Service, sessions *SessionManager, auditor Auditor, cfg config.Auth) (*Controller, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Controller{
		service:  service,
		sessions: sessions,
		auditor:  auditor,
		limiter: NewRateLimiter(RateLimitConfig{
			MaxAttempts: cfg.MaxLoginAttempts,
			Window:      cfg.RateLimitWindow,
			Lockout:     cfg.LockoutDuration,
		}),
		templates: tmpl,
	}, nil
}

func (ac *Controller) RegisterRoutes(router gin.IRouter) {
	router.GET("/login", ac.LoginPage)
	router.POST("/login", ac.Login)
	router.POST("/logout", ac.Logout)
	router.GET("/logout", ac.Logout)
	router.GET("/setup", ac.SetupPage)
	router.POST("/setup", ac.Setup)
	router.POST("/api/auth/token", ac.IssueToken)
}

// Stop ends the rate limiter sweep.
func (ac *Controller) Stop() {
	ac.limiter.Stop()
}

func (ac *Controller) LoginPage(c *gin.Context) {
	if ac.sessions.IsAuthenticated(c.Request) {
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	if has, err := ac.service.HasAdmins(); err == nil && !has {
		c.Redirect(http.StatusFound, "/setup")
		return
	}
	ac.render(c, http.StatusOK, "login.html", gin.H{
		"Title": "Sign in",
		"Next":  sanitizeNext(c.Query("next")),
		"Error": c.Query("error"),
	})
}

func (ac *Controller) Login(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")
	next := sanitizeNext(c.PostForm("next"))
	ip := c.ClientIP()

	fail := func(status int, msg string) {
		ac.render(c, status, "login.html", gin.H{"Title": "Sign in", "Next": next, "Email": email, "Error": msg})
	}

	if ok, retry := ac.limiter.Allow(ip, email); !ok {
		c.Header("Retry-After", retry.String())
		fail(http.StatusTooManyRequests, "Too many sign-in attempts. Please try again later.")
		return
	}

	admin, err := ac.service.Authenticate(email, password)
	if err != nil {
		ac.limiter.RecordFailure(ip, email)
		logger.WithFields(logrus.Fields{"ip": ip, "error": err}).Warn("Admin sign-in failed")
		msg := "Invalid email or password"
		if errors.Is(err, ErrAccountLocked) {
			msg = "Account is locked. Please try again later."
		}
		fail(http.StatusUnauthorized, msg)
		return
	}
	ac.limiter.RecordSuccess(ip, email)

	if err := ac.sessions.Start(c.Request, admin); err != nil {
		logger.WithFields(logrus.Fields{"admin_id": admin.ID, "error": err}).Error("Failed to start session")
		fail(http.StatusInternalServerError, "Failed to create session")
		return
	}
	ac.logAuth(c, "sign_in", func(ctx context.Context) error {
		return ac.auditor.LogSignIn(ctx, ActorFor(admin), c.Request.UserAgent())
	})
	c.Redirect(http.StatusFound, next)
}

func (ac *Controller) Logout(c *gin.Context) {
	if id := ac.sessions.AdminID(c.Request); id != 0 {
		actor := audit.Actor{ID: entities.Admin{ID: id}.ActorID(), Email: ac.sessions.Email(c.Request)}
		ac.logAuth(c, "sign_out", func(ctx context.Context) error {
			return ac.auditor.LogSignOut(ctx, actor)
		})
	}
	_ = ac.sessions.End(c.Request)
	c.Redirect(http.StatusFound, "/login")
}

func (ac *Controller) SetupPage(c *gin.Context) {
	has, err := ac.service.HasAdmins()
	if err != nil {
		ac.render(c, http.StatusInternalServerError, "setup.html", gin.H{"Title": "Setup", "Error": "Database error. Please try again."})
		return
	}
	if has {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	ac.render(c, http.StatusOK, "setup.html", gin.H{"Title": "Setup", "Error": c.Query("error")})
}

// Setup creates the first owner account; later requests are redirected to
// sign in.
func (ac *Controller) Setup(c *gin.Context) {
	ac.setupMu.Lock()
	defer ac.setupMu.Unlock()

	has, err := ac.service.HasAdmins()
	if err != nil {
		ac.render(c, http.StatusInternalServerError, "setup.html", gin.H{"Title": "Setup", "Error": "Database error. Please try again."})
		return
	}
	if has {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	displayName := c.PostForm("display_name")
	email := c.PostForm("email")
	password := c.PostForm("password")
	data := gin.H{"Title": "Setup", "DisplayName": displayName, "Email": email}

	if password != c.PostForm("confirm_password") {
		data["Error"] = "Passwords do not match"
		ac.render(c, http.StatusBadRequest, "setup.html", data)
		return
	}

	admin, err := ac.service.CreateAdmin(email, displayName, password, entities.AdminRoleOwner)
	if err != nil {
		data["Error"] = setupError(err)
		ac.render(c, http.StatusBadRequest, "setup.html", data)
		return
	}

	ac.logAuth(c, "sign_up", func(ctx context.Context) error {
		return ac.auditor.LogSignUp(ctx, ActorFor(admin), c.Request.UserAgent())
	})
	if err := ac.sessions.Start(c.Request, admin); err != nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	c.Redirect(http.StatusFound, "/admin")
}

func setupError(err error) string {
	switch {
	case errors.Is(err, ErrPasswordTooShort):
		return "Password must be at least 12 characters"
	case errors.Is(err, ErrPasswordTooLong):
		return "Password exceeds maximum length of 72 characters"
	case errors.Is(err, ErrEmailRequired):
		return "Email is required"
	case errors.Is(err, ErrEmailInvalid):
		return "Invalid email format"
	}
	return "Failed to create account"
}

type tokenRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// IssueToken exchanges credentials for a bearer token.
func (ac *Controller) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required", "code": "validation"})
		return
	}
	ip := c.ClientIP()
	if ok, retry := ac.limiter.Allow(ip, req.Email); !ok {
		c.Header("Retry-After", retry.String())
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts", "code": "rate_limited"})
		return
	}

	admin, err := ac.service.Authenticate(req.Email, req.Password)
	if err != nil {
		ac.limiter.RecordFailure(ip, req.Email)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials", "code": "unauthorized"})
		return
	}
	ac.limiter.RecordSuccess(ip, req.Email)

	token, expires, err := ac.service.IssueToken(admin)
	if err != nil {
		logger.WithFields(logrus.Fields{"admin_id": admin.ID, "error": err}).Error("Failed to issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token", "code": "internal"})
		return
	}
	ac.logAuth(c, "token", func(ctx context.Context) error {
		return ac.auditor.LogSignIn(ctx, ActorFor(admin), c.Request.UserAgent())
	})
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"expires_at": expires.UTC(),
	})
}

// logAuth records an auth event; failures are logged and never block the
// sign-in flow.
func (ac *Controller) logAuth(c *gin.Context, event string, record func(context.Context) error) {
	if ac.auditor == nil {
		return
	}
	if err := record(c.Request.Context()); err != nil {
		logger.WithFields(logrus.Fields{"event": event, "error": err}).Warn("Failed to audit auth event")
	}
}

func (ac *Controller) render(c *gin.Context, status int, name string, data gin.H) {
	if WantsJSON(c.Request) {
		out := gin.H{}
		for k, v := range data {
			out[strings.ToLower(k)] = v
		}
		c.JSON(status, out)
		return
	}
	data["CSRFField"] = CSRFField(c)
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := ac.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		logger.WithFields(logrus.Fields{"template": name, "error": err}).Error("Template render failed")
	}
}
