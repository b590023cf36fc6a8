package http

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sboapp/admin/internal/audit"
	"github.com/sboapp/admin/internal/auth"
	"github.com/sboapp/admin/internal/logger"
	"github.com/sboapp/admin/internal/metrics"
)

// requestLogger logs each request through logrus and records request metrics
// by matched route.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)
		status := c.Writer.Status()
		metrics.ObserveRequest(c.Request.Method, c.FullPath(), status, elapsed)

		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  status,
			"latency": elapsed.String(),
			"ip":      c.ClientIP(),
		})
		switch {
		case status >= 500:
			entry.Error("Request failed")
		case c.Request.URL.Path == "/health" || c.Request.URL.Path == "/metrics":
			entry.Debug("Request served")
		default:
			entry.Info("Request served")
		}
	}
}

// pageViewRecorder writes a PAGE_VIEW audit entry for every successful
// admin HTML page load.
func pageViewRecorder(auditor *audit.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Request.Method != "GET" || c.Writer.Status() != 200 || auth.WantsJSON(c.Request) {
			return
		}
		if !strings.HasPrefix(c.Request.URL.Path, "/admin") {
			return
		}
		if err := auditor.LogPageView(c.Request.Context(), auth.Actor(c), c.Request.URL.Path, c.Request.UserAgent()); err != nil {
			logger.WithFields(logrus.Fields{"path": c.Request.URL.Path, "error": err}).Warn("Failed to record page view")
		}
	}
}
