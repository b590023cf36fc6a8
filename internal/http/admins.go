package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sboapp/admin/internal/auth"
	"github.com/sboapp/admin/internal/database/admins"
	"github.com/sboapp/admin/internal/entities"
)

// AdminsController lists dashboard operators and lets each change their own
// password.
type AdminsController struct {
	*pages
	repo        *admins.Repository
	authService *auth.Service
}

func NewAdminsController(p *pages, repo *admins.Repository, authService *auth.Service) *AdminsController {
	return &AdminsController{pages: p, repo: repo, authService: authService}
}

// GET /api/admin/admins
func (ac *AdminsController) List(c *gin.Context) {
	list, err := ac.repo.List()
	if err != nil {
		respondInternalError(c, err, "list admins")
		return
	}
	c.JSON(http.StatusOK, gin.H{"admins": list, "count": len(list)})
}

// Delete removes another operator's account. Owners only.
// DELETE /api/admin/admins/:id
func (ac *AdminsController) Delete(c *gin.Context) {
	current := auth.Current(c)
	if current == nil || current.Role != entities.AdminRoleOwner {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "only owners can remove administrators", Code: "forbidden"})
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid id")
		return
	}
	if uint(id) == current.ID {
		respondBadRequest(c, "cannot remove your own account")
		return
	}
	if err := ac.repo.Delete(uint(id)); err != nil {
		respondError(c, err, "delete admin")
		return
	}
	respondSuccess(c, "admin deleted")
}

// ProfilePage shows the signed-in administrator.
// GET /admin/profile
func (ac *AdminsController) ProfilePage(c *gin.Context) {
	respondView(c, http.StatusOK, "profile", ac.viewData(c, "profile", nil), auth.Current(c))
}

// ChangePassword handles the profile form.
// POST /admin/profile/password
func (ac *AdminsController) ChangePassword(c *gin.Context) {
	current := auth.Current(c)
	next := c.PostForm("new_password")
	if next != c.PostForm("confirm_password") {
		ac.redirectWithFlash(c, "/admin/profile", "Error: passwords do not match")
		return
	}
	err := ac.authService.ChangePassword(current.ID, c.PostForm("current_password"), next)
	switch {
	case err == nil:
		ac.redirectWithFlash(c, "/admin/profile", "Password changed")
	case errors.Is(err, auth.ErrInvalidPassword):
		ac.redirectWithFlash(c, "/admin/profile", "Error: current password is incorrect")
	case errors.Is(err, auth.ErrPasswordTooShort), errors.Is(err, auth.ErrPasswordTooLong):
		ac.redirectWithFlash(c, "/admin/profile", "Error: "+err.Error())
	default:
		respondInternalError(c, err, "change password")
	}
}
