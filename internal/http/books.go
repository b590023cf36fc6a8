package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sboapp/admin/internal/auth"
	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/listing"
	"github.com/sboapp/admin/internal/repository"
	"github.com/sboapp/admin/internal/services"
)

var (
	bookFormFields   = []string{"title", "author", "category", "description", "coverImage", "pdfUrl", "price", "status", "downloads", "likes"}
	bookNumericField = map[string]bool{"price": true, "downloads": true, "likes": true}
)

type BooksController struct {
	*pages
	lib     *repository.Library
	service *services.BookService
}

func NewBooksController(p *pages, lib *repository.Library, service *services.BookService) *BooksController {
	return &BooksController{pages: p, lib: lib, service: service}
}

func (bc *BooksController) filtered(c *gin.Context) (listing.Page[entities.Book], error) {
	var filter listing.BookFilter
	_ = c.ShouldBindQuery(&filter)

	books, err := bc.lib.Books.List(c.Request.Context())
	if err != nil {
		return listing.Page[entities.Book]{}, err
	}
	return listing.Paginate(filter.Apply(books), pageParam(c), bc.pageSize), nil
}

// List returns one page of books matching q, status and category.
// GET /api/admin/books
func (bc *BooksController) List(c *gin.Context) {
	page, err := bc.filtered(c)
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/admin/books/:id
func (bc *BooksController) Get(c *gin.Context) {
	book, err := bc.lib.Books.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// POST /api/admin/books
func (bc *BooksController) Create(c *gin.Context) {
	var in repository.BookInput
	if err := bindJSONStrict(c, &in); err != nil {
		respondError(c, err, "create book")
		return
	}
	book, err := bc.service.Create(c.Request.Context(), auth.Actor(c), in)
	if err = auditLost(c, err, "create book"); err != nil {
		respondError(c, err, "create book")
		return
	}
	respondCreated(c, book)
}

// PATCH /api/admin/books/:id
func (bc *BooksController) Update(c *gin.Context) {
	var patch repository.BookPatch
	if err := bindJSONStrict(c, &patch); err != nil {
		respondError(c, err, "update book")
		return
	}
	bc.update(c, patch)
}

func (bc *BooksController) update(c *gin.Context, patch repository.BookPatch) {
	id := c.Param("id")
	if _, err := bc.service.Update(c.Request.Context(), auth.Actor(c), id, patch); auditLost(c, err, "update book") != nil {
		respondError(c, err, "update book")
		return
	}
	book, err := bc.lib.Books.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "reload book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// DELETE /api/admin/books/:id
func (bc *BooksController) Delete(c *gin.Context) {
	if err := bc.service.Delete(c.Request.Context(), auth.Actor(c), c.Param("id")); auditLost(c, err, "delete book") != nil {
		respondError(c, err, "delete book")
		return
	}
	respondSuccess(c, "book deleted")
}

// --- HTML views ---

// Page renders the books table.
// GET /admin/books
func (bc *BooksController) Page(c *gin.Context) {
	page, err := bc.filtered(c)
	if err != nil {
		respondInternalError(c, err, "books page")
		return
	}
	categories, err := bc.lib.Categories.List(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "list categories")
		return
	}
	respondView(c, http.StatusOK, "books", bc.viewData(c, "books", gin.H{
		"Page":       page,
		"Categories": categories,
	}), page)
}

// POST /admin/books
func (bc *BooksController) CreateForm(c *gin.Context) {
	var in repository.BookInput
	if err := c.ShouldBind(&in); err != nil {
		var errs entities.ValidationErrors
		errs.Add("form", err.Error())
		bc.formError(c, "/admin/books", errs, "create book")
		return
	}
	book, err := bc.service.Create(c.Request.Context(), auth.Actor(c), in)
	if err = auditLost(c, err, "create book"); err != nil {
		bc.formError(c, "/admin/books", err, "create book")
		return
	}
	bc.redirectWithFlash(c, "/admin/books", "Created book: "+book.BookName)
}

// POST /admin/books/:id
func (bc *BooksController) UpdateForm(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		respondBadRequest(c, "invalid form")
		return
	}
	var patch repository.BookPatch
	err := decodeFormPatch(c.Request.PostForm, bookFormFields, bookNumericField, &patch)
	if err == nil {
		_, err = bc.service.Update(c.Request.Context(), auth.Actor(c), c.Param("id"), patch)
		err = auditLost(c, err, "update book")
	}
	if err != nil {
		bc.formError(c, "/admin/books", err, "update book")
		return
	}
	bc.redirectWithFlash(c, "/admin/books", "Book updated")
}

// POST /admin/books/:id/delete
func (bc *BooksController) DeleteForm(c *gin.Context) {
	if err := bc.service.Delete(c.Request.Context(), auth.Actor(c), c.Param("id")); auditLost(c, err, "delete book") != nil {
		bc.formError(c, "/admin/books", err, "delete book")
		return
	}
	bc.redirectWithFlash(c, "/admin/books", "Book deleted")
}
