package services

import (
	"context"

	"github.com/sboapp/admin/internal/audit"
	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/repository"
)

type BookService struct {
	books BookStore
	pipeline
}

func NewBookService(books BookStore, auditor AuditRecorder) *BookService {
	return &BookService{books: books, pipeline: pipeline{audit: auditor}}
}

// Create stores a new book. The returned book is non-nil whenever the data
// write succeeded, even if the audit entry could not be recorded.
func (s *BookService) Create(ctx context.Context, actor audit.Actor, in repository.BookInput) (book *entities.Book, err error) {
	defer func() { done(entities.AuditEntityBook, entities.AuditActionCreate, bookID(book), actor, err) }()

	book, err = s.books.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	err = s.record(ctx, entities.AuditActionCreate, entities.AuditEntityBook, book.BookID, actor,
		"Created book: "+book.BookName, nil, book)
	return book, err
}

func (s *BookService) Update(ctx context.Context, actor audit.Actor, id string, patch repository.BookPatch) (updated map[string]any, err error) {
	defer func() { done(entities.AuditEntityBook, entities.AuditActionUpdate, id, actor, err) }()

	old, err := s.books.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	fields, err := s.books.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	newData, err := overlay(old, fields)
	if err != nil {
		return nil, err
	}
	name, _ := fields["bookName"].(string)
	err = s.record(ctx, entities.AuditActionUpdate, entities.AuditEntityBook, id, actor,
		"Updated book: "+label(name, id), old, newData)
	return newData, err
}

func (s *BookService) Delete(ctx context.Context, actor audit.Actor, id string) (err error) {
	defer func() { done(entities.AuditEntityBook, entities.AuditActionDelete, id, actor, err) }()

	old, err := s.books.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.books.Delete(ctx, id); err != nil {
		return err
	}
	return s.record(ctx, entities.AuditActionDelete, entities.AuditEntityBook, id, actor,
		"Deleted book: "+label(old.BookName, id), old, nil)
}

func bookID(b *entities.Book) string {
	if b == nil {
		return ""
	}
	return b.BookID
}
