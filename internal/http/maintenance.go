package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sboapp/admin/internal/auth"
	"github.com/sboapp/admin/internal/settingsstore"
)

// MaintenanceMiddleware answers public pages with 503 while the general
// settings have maintenanceMode on. Admin, auth, health and metrics paths
// stay reachable so operators can switch it off again.
type MaintenanceMiddleware struct {
	settings *settingsstore.SettingsStore
}

func NewMaintenanceMiddleware(settings *settingsstore.SettingsStore) *MaintenanceMiddleware {
	return &MaintenanceMiddleware{settings: settings}
}

// Handler returns a Gin middleware that blocks public pages.
func (m *MaintenanceMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.isAllowedPath(c.Request.URL.Path) {
			c.Next()
			return
		}
		general := m.settings.General()
		if !general.MaintenanceMode {
			c.Next()
			return
		}
		m.respondBlocked(c, general.AppName)
	}
}

// isAllowedPath lists what stays up during maintenance.
func (m *MaintenanceMiddleware) isAllowedPath(path string) bool {
	allowedPaths := []string{
		"/admin",
		"/api/",
		"/login",
		"/logout",
		"/setup",
		"/health",
		"/ping",
		"/metrics",
	}
	for _, allowed := range allowedPaths {
		if strings.HasPrefix(path, allowed) {
			return true
		}
	}
	return false
}

func (m *MaintenanceMiddleware) respondBlocked(c *gin.Context, appName string) {
	c.Header("Retry-After", "3600")
	message := appName + " is down for maintenance"
	if auth.WantsJSON(c.Request) {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: message, Code: "maintenance"})
		return
	}
	c.HTML(http.StatusServiceUnavailable, "maintenance", gin.H{"AppName": appName, "Message": message})
	c.Abort()
}
