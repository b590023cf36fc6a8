package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sboapp/admin/internal/auth"
	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/scheduler"
	"github.com/sboapp/admin/internal/settingsstore"
)

type SettingsController struct {
	*pages
	store     *settingsstore.SettingsStore
	scheduler *scheduler.AnalyticsScheduler
}

func NewSettingsController(p *pages, store *settingsstore.SettingsStore, sched *scheduler.AnalyticsScheduler) *SettingsController {
	return &SettingsController{pages: p, store: store, scheduler: sched}
}

// GET /api/admin/settings
func (sc *SettingsController) List(c *gin.Context) {
	groups, err := sc.store.All()
	if err != nil {
		respondError(c, err, "list settings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups, "analyticsSchedule": sc.store.AnalyticsSchedule()})
}

// GET /api/admin/settings/:group
func (sc *SettingsController) Get(c *gin.Context) {
	info, err := sc.store.Group(c.Param("group"))
	if err != nil {
		respondError(c, err, "get settings")
		return
	}
	c.JSON(http.StatusOK, info)
}

// Save merges a partial JSON object into the group.
// PUT /api/admin/settings/:group
func (sc *SettingsController) Save(c *gin.Context) {
	var patch json.RawMessage
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBadRequest(c, "invalid JSON body")
		return
	}
	info, err := sc.store.Save(c.Request.Context(), c.Param("group"), patch, auth.Actor(c))
	if err != nil {
		respondError(c, err, "save settings")
		return
	}
	c.JSON(http.StatusOK, info)
}

// Reset reverts the group to its defaults.
// DELETE /api/admin/settings/:group
func (sc *SettingsController) Reset(c *gin.Context) {
	info, err := sc.store.Reset(c.Request.Context(), c.Param("group"), auth.Actor(c))
	if err != nil {
		respondError(c, err, "reset settings")
		return
	}
	c.JSON(http.StatusOK, info)
}

type scheduleRequest struct {
	Schedule string `json:"schedule" form:"schedule"`
}

// GetSchedule reports the analytics refresh schedule and the next run.
// GET /api/admin/analytics/schedule
func (sc *SettingsController) GetSchedule(c *gin.Context) {
	resp := gin.H{"schedule": sc.store.AnalyticsSchedule()}
	if sc.scheduler != nil {
		resp["running"] = sc.scheduler.IsRunning()
		resp["nextRun"] = sc.scheduler.GetNextRunTime()
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateSchedule stores a new cron expression and reschedules the job.
// PUT /api/admin/analytics/schedule
func (sc *SettingsController) UpdateSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if err := sc.applySchedule(c, req.Schedule); err != nil {
		respondError(c, err, "update analytics schedule")
		return
	}
	sc.GetSchedule(c)
}

func (sc *SettingsController) applySchedule(c *gin.Context, schedule string) error {
	schedule = strings.TrimSpace(schedule)
	if err := sc.store.SetAnalyticsSchedule(c.Request.Context(), schedule, auth.Actor(c)); err != nil {
		return err
	}
	if sc.scheduler != nil {
		return sc.scheduler.Reschedule(schedule)
	}
	return nil
}

// --- HTML views ---

// settingField is one input on the settings page.
type settingField struct {
	Key   string
	Kind  string // bool, number or text
	Value any
}

type settingsGroupView struct {
	settingsstore.GroupInfo
	Fields []settingField
}

// fieldsOf lists a settings struct's JSON fields in declaration order.
func fieldsOf(values any) []settingField {
	v := reflect.Indirect(reflect.ValueOf(values))
	if v.Kind() != reflect.Struct {
		return nil
	}
	t := v.Type()
	out := make([]settingField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		key, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if key == "" || key == "-" {
			continue
		}
		kind := "text"
		switch v.Field(i).Kind() {
		case reflect.Bool:
			kind = "bool"
		case reflect.Int, reflect.Int64, reflect.Float64:
			kind = "number"
		}
		out = append(out, settingField{Key: key, Kind: kind, Value: v.Field(i).Interface()})
	}
	return out
}

// settingsFormPatch converts a submitted group form into a JSON patch.
// Unchecked checkboxes are absent from the form and become false.
func settingsFormPatch(fields []settingField, form url.Values) (json.RawMessage, error) {
	var errs entities.ValidationErrors
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		raw := strings.TrimSpace(form.Get(f.Key))
		switch f.Kind {
		case "bool":
			out[f.Key] = raw == "on" || raw == "true" || raw == "1"
		case "number":
			if raw == "" {
				continue
			}
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				errs.Add(f.Key, "must be a number")
				continue
			}
			out[f.Key] = n
		default:
			if _, ok := form[f.Key]; ok {
				out[f.Key] = raw
			}
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// GET /admin/settings
func (sc *SettingsController) Page(c *gin.Context) {
	groups, err := sc.store.All()
	if err != nil {
		respondInternalError(c, err, "settings page")
		return
	}
	views := make([]settingsGroupView, 0, len(groups))
	for _, g := range groups {
		views = append(views, settingsGroupView{GroupInfo: g, Fields: fieldsOf(g.Values)})
	}
	data := gin.H{"Groups": views, "Schedule": sc.store.AnalyticsSchedule()}
	if sc.scheduler != nil {
		data["NextSnapshot"] = sc.scheduler.GetNextRunTime()
	}
	respondView(c, http.StatusOK, "settings", sc.viewData(c, "settings", data),
		gin.H{"groups": groups, "analyticsSchedule": sc.store.AnalyticsSchedule()})
}

// POST /admin/settings/:group
func (sc *SettingsController) SaveForm(c *gin.Context) {
	name := c.Param("group")
	current, err := sc.store.Group(name)
	if err != nil {
		sc.formError(c, "/admin/settings", err, "save settings")
		return
	}
	if err := c.Request.ParseForm(); err != nil {
		respondBadRequest(c, "invalid form")
		return
	}
	patch, err := settingsFormPatch(fieldsOf(current.Values), c.Request.PostForm)
	if err == nil {
		_, err = sc.store.Save(c.Request.Context(), name, patch, auth.Actor(c))
	}
	if err != nil {
		sc.formError(c, "/admin/settings", err, "save settings")
		return
	}
	sc.redirectWithFlash(c, "/admin/settings", "Saved "+name+" settings")
}

// POST /admin/settings/:group/reset
func (sc *SettingsController) ResetForm(c *gin.Context) {
	name := c.Param("group")
	if _, err := sc.store.Reset(c.Request.Context(), name, auth.Actor(c)); err != nil {
		sc.formError(c, "/admin/settings", err, "reset settings")
		return
	}
	sc.redirectWithFlash(c, "/admin/settings", "Reset "+name+" settings")
}

// POST /admin/analytics/schedule
func (sc *SettingsController) ScheduleForm(c *gin.Context) {
	if err := sc.applySchedule(c, c.PostForm("schedule")); err != nil {
		sc.formError(c, "/admin/settings", err, "update analytics schedule")
		return
	}
	sc.redirectWithFlash(c, "/admin/settings", "Analytics schedule updated")
}
