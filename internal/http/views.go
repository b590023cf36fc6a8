package http

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sboapp/admin/internal/auth"
	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/settingsstore"
)

//go:embed templates/*.html
var templateFS embed.FS

const flashKey = "flash"

var funcMap = template.FuncMap{
	"subtract": func(a, b int) int { return a - b },
	"millis": func(ms int64) string {
		if ms == 0 {
			return "-"
		}
		return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
	},
	"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	"pageURL": func(q url.Values, page int) string {
		next := url.Values{}
		for k, v := range q {
			next[k] = v
		}
		next.Set("page", strconv.Itoa(page))
		return "?" + next.Encode()
	},
	"bookStatuses": func() []entities.BookStatus {
		return []entities.BookStatus{entities.BookStatusDraft, entities.BookStatusPublished, entities.BookStatusArchived}
	},
	"userStatuses": func() []entities.UserStatus {
		return []entities.UserStatus{entities.UserStatusActive, entities.UserStatusInactive, entities.UserStatusSuspended}
	},
	"userRoles": func() []entities.UserRole {
		return []entities.UserRole{entities.UserRoleUser, entities.UserRoleAuthor, entities.UserRoleAgent, entities.UserRoleAdmin}
	},
}

// pages holds what the server-rendered admin views share.
type pages struct {
	sessions *auth.SessionManager
	settings *settingsstore.SettingsStore
	pageSize int
}

func loadTemplates() *template.Template {
	return template.Must(template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html"))
}

// viewData collects what every admin page renders: the signed-in admin, the
// CSRF field for forms, the current query and a pending flash message.
func (p *pages) viewData(c *gin.Context, active string, extra gin.H) gin.H {
	data := gin.H{
		"Active":    active,
		"Admin":     auth.Current(c),
		"CSRFField": auth.CSRFField(c),
		"Query":     c.Request.URL.Query(),
		"AppName":   "SBO APP",
	}
	if p.settings != nil {
		data["AppName"] = p.settings.General().AppName
	}
	if p.sessions != nil {
		if msg := p.sessions.PopString(c.Request.Context(), flashKey); msg != "" {
			data["Flash"] = msg
		}
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

// redirectWithFlash finishes an HTML form post.
func (p *pages) redirectWithFlash(c *gin.Context, location, message string) {
	if p.sessions != nil && message != "" {
		p.sessions.Put(c.Request.Context(), flashKey, message)
	}
	c.Redirect(http.StatusSeeOther, location)
}

// formError reports a failed HTML form post: JSON callers get the API error,
// browsers are sent back with the message as a flash.
func (p *pages) formError(c *gin.Context, location string, err error, context string) {
	if auth.WantsJSON(c.Request) {
		respondError(c, err, context)
		return
	}
	if status, _ := errorStatus(err); status == http.StatusInternalServerError {
		respondInternalError(c, err, context)
		return
	}
	p.redirectWithFlash(c, location, "Error: "+err.Error())
}
