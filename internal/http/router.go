package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sboapp/admin/internal/auth"
	"github.com/sboapp/admin/internal/entities"
)

// maxMultipartMemory bounds what gin buffers in memory for an upload; the
// remainder spills to temp files.
const maxMultipartMemory = 8 << 20

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())
	router.Use(auth.SecurityHeadersMiddleware())

	// CSRF must run before the session middleware so that the session
	// context survives CSRF's request replacement.
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.AuthService))
	}
	if cfg.Sessions != nil {
		router.Use(cfg.Sessions.LoadAndSave())
	}
	if cfg.Settings != nil {
		router.Use(NewMaintenanceMiddleware(cfg.Settings).Handler())
	}

	router.SetHTMLTemplate(loadTemplates())
	router.MaxMultipartMemory = maxMultipartMemory

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	p := &pages{sessions: cfg.Sessions, settings: cfg.Settings, pageSize: pageSize}

	// Public site
	public := NewPublicController(cfg.Library, cfg.Settings)
	router.GET("/", public.Home)
	router.GET("/terms", public.Terms)
	router.GET("/privacy", public.Privacy)

	health := NewHealthController(cfg.Database, cfg.Library.Store(), cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if cfg.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}

	if cfg.AuthController != nil {
		cfg.AuthController.RegisterRoutes(router)
	}

	mw := auth.NewMiddleware(cfg.AuthService, cfg.Sessions)

	books := NewBooksController(p, cfg.Library, cfg.Services.Books)
	users := NewPeopleController(p, "users", "", cfg.Library, cfg.Services.Users)
	authors := NewPeopleController(p, "authors", entities.UserRoleAuthor, cfg.Library, cfg.Services.Authors)
	agents := NewPeopleController(p, "agents", entities.UserRoleAgent, cfg.Library, cfg.Services.Agents)
	dashboard := NewDashboardController(p, cfg.Library, cfg.Scheduler)
	settings := NewSettingsController(p, cfg.Settings, cfg.Scheduler)
	auditLog := NewAuditController(p, cfg.Auditor)
	admins := NewAdminsController(p, cfg.Admins, cfg.AuthService)

	// Server-rendered admin
	adminUI := router.Group("/admin", mw.Require())
	if cfg.PageViews && cfg.Auditor != nil {
		adminUI.Use(pageViewRecorder(cfg.Auditor))
	}

	// Profile is reachable by viewers too.
	adminUI.GET("/profile", admins.ProfilePage)
	adminUI.POST("/profile/password", admins.ChangePassword)

	writable := adminUI.Group("", mw.RequireWrite())
	writable.GET("", dashboard.Page)
	writable.GET("/", dashboard.Page)

	writable.GET("/books", books.Page)
	writable.POST("/books", books.CreateForm)
	writable.POST("/books/:id", books.UpdateForm)
	writable.POST("/books/:id/delete", books.DeleteForm)

	for _, pc := range []*PeopleController{users, authors, agents} {
		base := "/" + pc.kind
		writable.GET(base, pc.Page)
		writable.POST(base, pc.CreateForm)
		writable.POST(base+"/:id", pc.UpdateForm)
		writable.POST(base+"/:id/delete", pc.DeleteForm)
	}

	writable.GET("/settings", settings.Page)
	writable.POST("/settings/:group", settings.SaveForm)
	writable.POST("/settings/:group/reset", settings.ResetForm)
	writable.POST("/analytics/schedule", settings.ScheduleForm)
	writable.POST("/analytics/run", dashboard.RunSnapshot)

	writable.GET("/audit", auditLog.AuditLogPage)

	// JSON API
	api := router.Group("/api/admin", mw.Require(), mw.RequireWrite())
	api.GET("/dashboard", dashboard.Get)

	api.GET("/books", books.List)
	api.POST("/books", books.Create)
	api.GET("/books/:id", books.Get)
	api.PATCH("/books/:id", books.Update)
	api.PUT("/books/:id", books.Update)
	api.DELETE("/books/:id", books.Delete)

	for _, pc := range []*PeopleController{users, authors, agents} {
		base := "/" + pc.kind
		api.GET(base, pc.List)
		api.POST(base, pc.Create)
		api.GET(base+"/:id", pc.Get)
		api.PATCH(base+"/:id", pc.Update)
		api.PUT(base+"/:id", pc.Update)
		api.DELETE(base+"/:id", pc.Delete)
	}

	api.GET("/settings", settings.List)
	api.GET("/settings/:group", settings.Get)
	api.PUT("/settings/:group", settings.Save)
	api.DELETE("/settings/:group", settings.Reset)
	api.GET("/analytics/schedule", settings.GetSchedule)
	api.PUT("/analytics/schedule", settings.UpdateSchedule)
	api.POST("/analytics/run", dashboard.RunSnapshot)

	api.GET("/audit", auditLog.GetAuditEvents)

	api.GET("/admins", admins.List)
	api.DELETE("/admins/:id", admins.Delete)

	if cfg.Uploader != nil {
		uploads := NewUploadsController(cfg.Uploader)
		api.POST("/uploads", uploads.Upload)
	}

	if cfg.Hub != nil {
		router.GET("/api/live/:collection", mw.Require(), cfg.Hub.Handle)
	}

	router.NoRoute(func(c *gin.Context) {
		if auth.WantsJSON(c.Request) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "route not found", Code: "not_found"})
			return
		}
		c.HTML(http.StatusNotFound, "error", gin.H{"Status": http.StatusNotFound, "Error": "Page not found"})
	})

	return router
}
