package repository

import (
	"context"
	"strings"
	"time"

	"github.com/sboapp/admin/internal/entities"
)

// BookInput is the admin "Add book" form.
type BookInput struct {
	Title       string              `json:"title" form:"title" yaml:"title"`
	Author      string              `json:"author" form:"author" yaml:"author"`
	Category    string              `json:"category" form:"category" yaml:"category"`
	Description string              `json:"description" form:"description" yaml:"description"`
	CoverImage  string              `json:"coverImage" form:"coverImage" yaml:"coverImage"`
	PdfURL      string              `json:"pdfUrl" form:"pdfUrl" yaml:"pdfUrl"`
	Price       float64             `json:"price" form:"price" yaml:"price"`
	Status      entities.BookStatus `json:"status" form:"status" yaml:"status"`
}

func (in BookInput) Validate() error {
	var errs entities.ValidationErrors
	if strings.TrimSpace(in.Title) == "" {
		errs.Add("title", "is required")
	}
	if strings.TrimSpace(in.Author) == "" {
		errs.Add("author", "is required")
	}
	if in.Price < 0 {
		errs.Add("price", "must not be negative")
	}
	if in.Status != "" && !in.Status.Valid() {
		errs.Add("status", "must be Draft, Published or Archived")
	}
	return errs.Err()
}

// BookPatch carries the fields an edit changes; nil fields are left alone.
type BookPatch struct {
	Title       *string              `json:"title,omitempty"`
	Author      *string              `json:"author,omitempty"`
	Category    *string              `json:"category,omitempty"`
	Description *string              `json:"description,omitempty"`
	CoverImage  *string              `json:"coverImage,omitempty"`
	PdfURL      *string              `json:"pdfUrl,omitempty"`
	Price       *float64             `json:"price,omitempty"`
	Status      *entities.BookStatus `json:"status,omitempty"`
	Downloads   *int                 `json:"downloads,omitempty"`
	Likes       *int                 `json:"likes,omitempty"`
}

func (p BookPatch) Validate() error {
	var errs entities.ValidationErrors
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		errs.Add("title", "must not be empty")
	}
	if p.Author != nil && strings.TrimSpace(*p.Author) == "" {
		errs.Add("author", "must not be empty")
	}
	if p.Price != nil && *p.Price < 0 {
		errs.Add("price", "must not be negative")
	}
	if p.Status != nil && !p.Status.Valid() {
		errs.Add("status", "must be Draft, Published or Archived")
	}
	if p.Downloads != nil && *p.Downloads < 0 {
		errs.Add("downloads", "must not be negative")
	}
	if p.Likes != nil && *p.Likes < 0 {
		errs.Add("likes", "must not be negative")
	}
	return errs.Err()
}

// Books is the SBOAPP/books collection.
type Books struct {
	c          collection[entities.Book]
	categories *Categories
	now        func() time.Time
}

func (b *Books) List(ctx context.Context) ([]entities.Book, error) {
	return b.c.list(ctx)
}

func (b *Books) Get(ctx context.Context, id string) (*entities.Book, error) {
	return b.c.get(ctx, id)
}

// Create stores a new book in the mobile app's wire shape. The stored bookId
// equals the path key.
func (b *Books) Create(ctx context.Context, in BookInput) (*entities.Book, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = entities.BookStatusDraft
	}
	catID, err := b.categories.Resolve(ctx, in.Category)
	if err != nil {
		return nil, err
	}

	now := millis(b.now())
	book := entities.Book{
		BookID:      NewID("b"),
		BookName:    strings.TrimSpace(in.Title),
		BookAuth:    strings.TrimSpace(in.Author),
		BookCat:     catID,
		Category:    strings.TrimSpace(in.Category),
		Description: in.Description,
		CoverImage:  in.CoverImage,
		PdfURL:      in.PdfURL,
		Price:       in.Price,
		Status:      status,
		Downloads:   0,
		Likes:       0,
		IsPaid:      in.Price > 0,
		IsActive:    status == entities.BookStatusPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := b.c.put(ctx, book.BookID, book); err != nil {
		return nil, err
	}
	return &book, nil
}

// Update applies patch and returns the wire fields that were written.
func (b *Books) Update(ctx context.Context, id string, patch BookPatch) (map[string]any, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	fields, err := b.fields(ctx, patch)
	if err != nil {
		return nil, err
	}
	if err := b.c.update(ctx, id, fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func (b *Books) fields(ctx context.Context, p BookPatch) (map[string]any, error) {
	fields := map[string]any{"updatedAt": millis(b.now())}
	if p.Title != nil {
		fields["bookName"] = strings.TrimSpace(*p.Title)
	}
	if p.Author != nil {
		fields["bookAuth"] = strings.TrimSpace(*p.Author)
	}
	if p.Category != nil {
		catID, err := b.categories.Resolve(ctx, *p.Category)
		if err != nil {
			return nil, err
		}
		fields["category"] = strings.TrimSpace(*p.Category)
		fields["bookCat"] = catID
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.CoverImage != nil {
		fields["coverImage"] = *p.CoverImage
	}
	if p.PdfURL != nil {
		fields["pdfUrl"] = *p.PdfURL
	}
	if p.Price != nil {
		fields["price"] = *p.Price
		fields["isPaid"] = *p.Price > 0
	}
	if p.Status != nil {
		fields["status"] = string(*p.Status)
		fields["isActive"] = *p.Status == entities.BookStatusPublished
	}
	if p.Downloads != nil {
		fields["downloads"] = *p.Downloads
	}
	if p.Likes != nil {
		fields["likes"] = *p.Likes
	}
	return fields, nil
}

func (b *Books) Delete(ctx context.Context, id string) error {
	return b.c.remove(ctx, id)
}

func (b *Books) Subscribe(ctx context.Context, fn func([]entities.Book)) (func(), error) {
	return b.c.subscribe(ctx, fn)
}
