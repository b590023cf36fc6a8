package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/repository"
	"github.com/sboapp/admin/internal/settingsstore"
)

// defaultLandingPage is shown until a landing page document is seeded.
var defaultLandingPage = entities.LandingPage{
	Title:       "Discover Books Like Never Before",
	Tagline:     "Your Digital Library Awaits",
	Description: "Read, download and discover books from authors around the world.",
}

// PublicController serves the marketing site.
type PublicController struct {
	lib      *repository.Library
	settings *settingsstore.SettingsStore
}

func NewPublicController(lib *repository.Library, settings *settingsstore.SettingsStore) *PublicController {
	return &PublicController{lib: lib, settings: settings}
}

// HomeResponse is the landing page data.
type HomeResponse struct {
	App            settingsstore.GeneralSettings `json:"app"`
	Page           entities.LandingPage          `json:"page"`
	PublishedBooks int                           `json:"publishedBooks"`
	Authors        int                           `json:"authors"`
	Featured       []entities.Book               `json:"featured"`
}

const featuredBooks = 6

// Home renders the landing page.
// GET /
func (pc *PublicController) Home(c *gin.Context) {
	ctx := c.Request.Context()
	resp := HomeResponse{App: pc.settings.General(), Page: defaultLandingPage, Featured: []entities.Book{}}

	page, err := pc.lib.AppData.LandingPage(ctx)
	switch {
	case err == nil:
		resp.Page = *page
	case !errors.Is(err, repository.ErrNotFound):
		respondInternalError(c, err, "landing page")
		return
	}

	books, err := pc.lib.Books.List(ctx)
	if err != nil {
		respondInternalError(c, err, "landing books")
		return
	}
	for _, b := range books {
		if b.EffectiveStatus() != entities.BookStatusPublished {
			continue
		}
		resp.PublishedBooks++
		if len(resp.Featured) < featuredBooks {
			resp.Featured = append(resp.Featured, b)
		}
	}
	users, err := pc.lib.Users.List(ctx)
	if err != nil {
		respondInternalError(c, err, "landing users")
		return
	}
	for _, u := range users {
		if u.EffectiveRole() == entities.UserRoleAuthor {
			resp.Authors++
		}
	}

	respondView(c, http.StatusOK, "home", gin.H{"Home": resp, "AppName": resp.App.AppName}, resp)
}

// GET /terms
func (pc *PublicController) Terms(c *gin.Context) {
	pc.static(c, "terms")
}

// GET /privacy
func (pc *PublicController) Privacy(c *gin.Context) {
	pc.static(c, "privacy")
}

func (pc *PublicController) static(c *gin.Context, name string) {
	app := pc.settings.General()
	respondView(c, http.StatusOK, name, gin.H{"App": app, "AppName": app.AppName}, gin.H{"page": name, "app": app})
}
