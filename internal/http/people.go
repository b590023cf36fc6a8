package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sboapp/admin/internal/audit"
	"github.com/sboapp/admin/internal/auth"
	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/listing"
	"github.com/sboapp/admin/internal/repository"
	"github.com/sboapp/admin/internal/stats"
)

var (
	userFormFields = []string{
		"email", "name", "role", "status", "subscription", "booksRead",
		"authorLevel", "genre", "bio", "agentLevel", "territory", "commission", "totalSales",
	}
	userNumericFields = map[string]bool{"booksRead": true, "commission": true, "totalSales": true}
)

// UserMutator is the audited write path for one kind of user record.
type UserMutator interface {
	Create(ctx context.Context, actor audit.Actor, in repository.UserInput) (*entities.User, error)
	Update(ctx context.Context, actor audit.Actor, id string, patch repository.UserPatch) (map[string]any, error)
	Delete(ctx context.Context, actor audit.Actor, id string) error
}

// PeopleController serves users, authors and agents. Authors and agents are
// users with that role; role is empty for the plain users listing.
type PeopleController struct {
	*pages
	kind    string // users, authors or agents; also the route and template name
	role    entities.UserRole
	lib     *repository.Library
	mutator UserMutator
}

func NewPeopleController(p *pages, kind string, role entities.UserRole, lib *repository.Library, mutator UserMutator) *PeopleController {
	return &PeopleController{pages: p, kind: kind, role: role, lib: lib, mutator: mutator}
}

func (pc *PeopleController) entity() string {
	switch pc.role {
	case entities.UserRoleAuthor:
		return "author"
	case entities.UserRoleAgent:
		return "agent"
	}
	return "user"
}

// peopleListing is one filtered page. Summary carries the role's aggregate
// cards and is nil for plain users.
type peopleListing struct {
	Page    any `json:"page"`
	Summary any `json:"summary,omitempty"`
}

func (pc *PeopleController) collect(c *gin.Context) (peopleListing, error) {
	ctx := c.Request.Context()
	users, err := pc.lib.Users.List(ctx)
	if err != nil {
		return peopleListing{}, err
	}
	page := pageParam(c)

	switch pc.role {
	case entities.UserRoleAuthor:
		var filter listing.AuthorFilter
		_ = c.ShouldBindQuery(&filter)
		books, err := pc.lib.Books.List(ctx)
		if err != nil {
			return peopleListing{}, err
		}
		summary := stats.Authors(users, books)
		matched := listing.Filter(summary.Authors, func(s stats.AuthorStats) bool { return filter.Match(s.User) })
		summary.Authors = nil
		return peopleListing{Page: listing.Paginate(matched, page, pc.pageSize), Summary: summary}, nil

	case entities.UserRoleAgent:
		var filter listing.AgentFilter
		_ = c.ShouldBindQuery(&filter)
		summary := stats.Agents(users)
		matched := filter.Apply(summary.Agents)
		summary.Agents = nil
		return peopleListing{Page: listing.Paginate(matched, page, pc.pageSize), Summary: summary}, nil
	}

	var filter listing.UserFilter
	_ = c.ShouldBindQuery(&filter)
	return peopleListing{Page: listing.Paginate(filter.Apply(users), page, pc.pageSize)}, nil
}

// GET /api/admin/{users,authors,agents}
func (pc *PeopleController) List(c *gin.Context) {
	out, err := pc.collect(c)
	if err != nil {
		respondInternalError(c, err, "list "+pc.kind)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (pc *PeopleController) load(c *gin.Context) (*entities.User, error) {
	u, err := pc.lib.Users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	if pc.role != "" && u.EffectiveRole() != pc.role {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

// GET /api/admin/{users,authors,agents}/:id
func (pc *PeopleController) Get(c *gin.Context) {
	u, err := pc.load(c)
	if err != nil {
		respondError(c, err, "get "+pc.entity())
		return
	}
	c.JSON(http.StatusOK, u)
}

// POST /api/admin/{users,authors,agents}
func (pc *PeopleController) Create(c *gin.Context) {
	var in repository.UserInput
	if err := bindJSONStrict(c, &in); err != nil {
		respondError(c, err, "create "+pc.entity())
		return
	}
	u, err := pc.mutator.Create(c.Request.Context(), auth.Actor(c), in)
	if err = auditLost(c, err, "create "+pc.entity()); err != nil {
		respondError(c, err, "create "+pc.entity())
		return
	}
	respondCreated(c, u)
}

// PATCH /api/admin/{users,authors,agents}/:id
func (pc *PeopleController) Update(c *gin.Context) {
	var patch repository.UserPatch
	if err := bindJSONStrict(c, &patch); err != nil {
		respondError(c, err, "update "+pc.entity())
		return
	}
	if _, err := pc.mutator.Update(c.Request.Context(), auth.Actor(c), c.Param("id"), patch); auditLost(c, err, "update "+pc.entity()) != nil {
		respondError(c, err, "update "+pc.entity())
		return
	}
	u, err := pc.lib.Users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "reload "+pc.entity())
		return
	}
	c.JSON(http.StatusOK, u)
}

// DELETE /api/admin/{users,authors,agents}/:id
func (pc *PeopleController) Delete(c *gin.Context) {
	if err := pc.mutator.Delete(c.Request.Context(), auth.Actor(c), c.Param("id")); auditLost(c, err, "delete "+pc.entity()) != nil {
		respondError(c, err, "delete "+pc.entity())
		return
	}
	respondSuccess(c, pc.entity()+" deleted")
}

// --- HTML views ---

// GET /admin/{users,authors,agents}
func (pc *PeopleController) Page(c *gin.Context) {
	out, err := pc.collect(c)
	if err != nil {
		respondInternalError(c, err, pc.kind+" page")
		return
	}
	respondView(c, http.StatusOK, pc.kind, pc.viewData(c, pc.kind, gin.H{
		"Page":         out.Page,
		"Summary":      out.Summary,
		"AuthorLevels": entities.AuthorLevels,
		"AgentLevels":  entities.AgentLevels,
	}), out)
}

func (pc *PeopleController) listPath() string {
	return "/admin/" + pc.kind
}

// POST /admin/{users,authors,agents}
func (pc *PeopleController) CreateForm(c *gin.Context) {
	var in repository.UserInput
	if err := c.ShouldBind(&in); err != nil {
		var errs entities.ValidationErrors
		errs.Add("form", err.Error())
		pc.formError(c, pc.listPath(), errs, "create "+pc.entity())
		return
	}
	u, err := pc.mutator.Create(c.Request.Context(), auth.Actor(c), in)
	if err = auditLost(c, err, "create "+pc.entity()); err != nil {
		pc.formError(c, pc.listPath(), err, "create "+pc.entity())
		return
	}
	pc.redirectWithFlash(c, pc.listPath(), "Created "+pc.entity()+": "+u.DisplayLabel())
}

// POST /admin/{users,authors,agents}/:id
func (pc *PeopleController) UpdateForm(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		respondBadRequest(c, "invalid form")
		return
	}
	var patch repository.UserPatch
	err := decodeFormPatch(c.Request.PostForm, userFormFields, userNumericFields, &patch)
	if err == nil {
		_, err = pc.mutator.Update(c.Request.Context(), auth.Actor(c), c.Param("id"), patch)
		err = auditLost(c, err, "update "+pc.entity())
	}
	if err != nil {
		pc.formError(c, pc.listPath(), err, "update "+pc.entity())
		return
	}
	pc.redirectWithFlash(c, pc.listPath(), "Updated "+pc.entity())
}

// POST /admin/{users,authors,agents}/:id/delete
func (pc *PeopleController) DeleteForm(c *gin.Context) {
	if err := pc.mutator.Delete(c.Request.Context(), auth.Actor(c), c.Param("id")); auditLost(c, err, "delete "+pc.entity()) != nil {
		pc.formError(c, pc.listPath(), err, "delete "+pc.entity())
		return
	}
	pc.redirectWithFlash(c, pc.listPath(), "Deleted "+pc.entity())
}
