package services

import (
	"context"

	"github.com/sboapp/admin/internal/audit"
	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/repository"
)

// BookStore is the books collection as the mutation pipeline uses it.
type BookStore interface {
	Get(ctx context.Context, id string) (*entities.Book, error)
	Create(ctx context.Context, in repository.BookInput) (*entities.Book, error)
	Update(ctx context.Context, id string, patch repository.BookPatch) (map[string]any, error)
	Delete(ctx context.Context, id string) error
}

// UserStore is the users collection as the mutation pipeline uses it.
type UserStore interface {
	Get(ctx context.Context, id string) (*entities.User, error)
	Create(ctx context.Context, in repository.UserInput) (*entities.User, error)
	Update(ctx context.Context, id string, patch repository.UserPatch) (map[string]any, error)
	Delete(ctx context.Context, id string) error
}

// AuthorProfileStore keeps the mobile app's author cards in step with
// Author users.
type AuthorProfileStore interface {
	FindByUID(ctx context.Context, uid string) (*entities.AuthorProfile, error)
	Put(ctx context.Context, p entities.AuthorProfile) error
	Delete(ctx context.Context, id string) error
}

// AuditRecorder builds and appends audit entries.
type AuditRecorder interface {
	NewEntry(action entities.AuditAction, entityType, entityID string, actor audit.Actor, details string, oldData, newData any) (entities.AuditLog, error)
	Append(ctx context.Context, log entities.AuditLog) error
}

var (
	_ BookStore          = (*repository.Books)(nil)
	_ UserStore          = (*repository.Users)(nil)
	_ AuthorProfileStore = (*repository.Authors)(nil)
	_ AuditRecorder      = (*audit.Service)(nil)
)
