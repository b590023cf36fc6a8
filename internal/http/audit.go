package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sboapp/admin/internal/audit"
	"github.com/sboapp/admin/internal/entities"
)

const maxAuditLimit = 500

type AuditController struct {
	*pages
	auditService *audit.Service
}

func NewAuditController(p *pages, auditService *audit.Service) *AuditController {
	return &AuditController{pages: p, auditService: auditService}
}

func (ac *AuditController) find(c *gin.Context) ([]entities.AuditLog, audit.Filter, error) {
	var filter audit.Filter
	_ = c.ShouldBindQuery(&filter)
	logs, err := ac.auditService.Find(c.Request.Context(), filter, limitParam(c, audit.DefaultLimit, maxAuditLimit))
	return logs, filter, err
}

// GetAuditEvents returns the newest entries first.
// GET /api/admin/audit?limit=&action=&entityType=&userId=
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	logs, _, err := ac.find(c)
	if err != nil {
		respondInternalError(c, err, "audit logs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "count": len(logs)})
}

// AuditLogPage renders the audit trail.
// GET /admin/audit
func (ac *AuditController) AuditLogPage(c *gin.Context) {
	logs, filter, err := ac.find(c)
	if err != nil {
		respondInternalError(c, err, "audit page")
		return
	}
	respondView(c, http.StatusOK, "audit", ac.viewData(c, "audit", gin.H{
		"Logs":        logs,
		"Filter":      filter,
		"Actions":     auditActions,
		"EntityTypes": auditEntityTypes,
	}), gin.H{"logs": logs, "count": len(logs)})
}

var auditActions = []entities.AuditAction{
	entities.AuditActionCreate,
	entities.AuditActionUpdate,
	entities.AuditActionDelete,
	entities.AuditActionSignIn,
	entities.AuditActionSignUp,
	entities.AuditActionSignOut,
	entities.AuditActionPageView,
}

var auditEntityTypes = []string{
	entities.AuditEntityBook,
	entities.AuditEntityUser,
	entities.AuditEntityAuthor,
	entities.AuditEntityAgent,
	entities.AuditEntitySettings,
	entities.AuditEntityAuth,
	entities.AuditEntityNavigation,
}
