package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/sboapp/admin/internal/auth"
	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/repository"
	"github.com/sboapp/admin/internal/scheduler"
	"github.com/sboapp/admin/internal/stats"
)

// DashboardResponse is the admin landing page: live counters plus the last
// stored analytics snapshot (nil before the first run).
type DashboardResponse struct {
	stats.Dashboard
	Snapshot *entities.Analytics `json:"snapshot"`
}

type DashboardController struct {
	*pages
	lib       *repository.Library
	scheduler *scheduler.AnalyticsScheduler
}

func NewDashboardController(p *pages, lib *repository.Library, sched *scheduler.AnalyticsScheduler) *DashboardController {
	return &DashboardController{pages: p, lib: lib, scheduler: sched}
}

func (dc *DashboardController) load(c *gin.Context) (DashboardResponse, error) {
	var (
		books []entities.Book
		users []entities.User
		logs  []entities.AuditLog
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() (err error) {
		books, err = dc.lib.Books.List(ctx)
		return err
	})
	g.Go(func() (err error) {
		users, err = dc.lib.Users.List(ctx)
		return err
	})
	g.Go(func() (err error) {
		logs, err = dc.lib.AuditLogs.List(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardResponse{}, err
	}

	resp := DashboardResponse{Dashboard: stats.ComputeDashboard(books, users, logs)}
	snapshot, err := dc.lib.AppData.Analytics(c.Request.Context())
	switch {
	case err == nil:
		resp.Snapshot = snapshot
	case !errors.Is(err, repository.ErrNotFound):
		return DashboardResponse{}, err
	}
	return resp, nil
}

// GET /api/admin/dashboard
func (dc *DashboardController) Get(c *gin.Context) {
	resp, err := dc.load(c)
	if err != nil {
		respondInternalError(c, err, "dashboard")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GET /admin
func (dc *DashboardController) Page(c *gin.Context) {
	resp, err := dc.load(c)
	if err != nil {
		respondInternalError(c, err, "dashboard page")
		return
	}
	data := gin.H{"Dashboard": resp}
	if dc.scheduler != nil {
		data["NextSnapshot"] = dc.scheduler.GetNextRunTime()
	}
	respondView(c, http.StatusOK, "dashboard", dc.viewData(c, "dashboard", data), resp)
}

// RunSnapshot recomputes the analytics snapshot immediately.
// POST /api/admin/analytics/run
func (dc *DashboardController) RunSnapshot(c *gin.Context) {
	if dc.scheduler == nil {
		respondNotFound(c, "analytics scheduler")
		return
	}
	snapshot, err := dc.scheduler.RunNow(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "analytics snapshot")
		return
	}
	if !auth.WantsJSON(c.Request) {
		dc.redirectWithFlash(c, "/admin", "Analytics refreshed")
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
