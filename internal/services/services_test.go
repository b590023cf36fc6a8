package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sboapp/admin/internal/audit"
	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/realtime"
	"github.com/sboapp/admin/internal/repository"
)

var admin = audit.Actor{ID: "admin_1", Email: "admin@sboapp.com"}

type fixture struct {
	lib   *repository.Library
	audit *audit.Service
	svc   *Services
}

func setup(t *testing.T) fixture {
	t.Helper()
	store := realtime.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	lib := repository.New(store, "SBOAPP")
	auditor := audit.NewService(lib.AuditLogs)
	return fixture{lib: lib, audit: auditor, svc: New(lib, auditor)}
}

func (f fixture) logs(t *testing.T) []entities.AuditLog {
	t.Helper()
	logs, err := f.audit.GetLogs(context.Background(), 100)
	require.NoError(t, err)
	return logs
}

func ptr[T any](v T) *T { return &v }

func TestBookService_CreateScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	book, err := f.svc.Books.Create(ctx, admin, repository.BookInput{
		Title: "T", Author: "A", Category: "Fiction", Price: 0, Status: entities.BookStatusDraft,
	})
	require.NoError(t, err)

	books, err := f.lib.Books.List(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, book.BookID, books[0].BookID)
	assert.Equal(t, 0, books[0].Downloads)
	assert.Equal(t, 0, books[0].Likes)
	assert.False(t, books[0].IsPaid)
	assert.False(t, books[0].IsActive)

	logs := f.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, entities.AuditActionCreate, logs[0].Action)
	assert.Equal(t, entities.AuditEntityBook, logs[0].EntityType)
	assert.Equal(t, book.BookID, logs[0].EntityID)
	assert.Equal(t, "Created book: T", logs[0].Details)
	assert.Nil(t, logs[0].Old())
	assert.Equal(t, "T", logs[0].New()["bookName"])
}

func TestBookService_UpdateAndDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	book, err := f.svc.Books.Create(ctx, admin, repository.BookInput{Title: "T", Author: "A"})
	require.NoError(t, err)

	updated, err := f.svc.Books.Update(ctx, admin, book.BookID, repository.BookPatch{Status: ptr(entities.BookStatusPublished)})
	require.NoError(t, err)
	assert.Equal(t, true, updated["isActive"])
	assert.Equal(t, "T", updated["bookName"])

	require.NoError(t, f.svc.Books.Delete(ctx, admin, book.BookID))

	logs := f.logs(t)
	require.Len(t, logs, 3)
	del := logs[0]
	assert.Equal(t, entities.AuditActionDelete, del.Action)
	assert.Equal(t, "Deleted book: T", del.Details)
	assert.Equal(t, "Published", del.Old()["status"])

	upd := logs[1]
	assert.Equal(t, entities.AuditActionUpdate, upd.Action)
	assert.Equal(t, "Draft", upd.Old()["status"])
	assert.Equal(t, "Published", upd.New()["status"])
}

func TestBookService_MissingBookWritesNoAudit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Books.Update(ctx, admin, "nope", repository.BookPatch{Title: ptr("x")})
	assert.ErrorIs(t, err, repository.ErrBookNotFound)
	err = f.svc.Books.Delete(ctx, admin, "nope")
	assert.ErrorIs(t, err, repository.ErrBookNotFound)
	_, err = f.svc.Books.Create(ctx, admin, repository.BookInput{})
	assert.ErrorIs(t, err, entities.ErrValidation)

	assert.Empty(t, f.logs(t))
}

// brokenBooks fails every write.
type brokenBooks struct{ BookStore }

func (brokenBooks) Create(context.Context, repository.BookInput) (*entities.Book, error) {
	return nil, errors.New("permission denied")
}

func TestBookService_FailedWriteProducesNoAudit(t *testing.T) {
	f := setup(t)
	svc := NewBookService(brokenBooks{f.lib.Books}, f.audit)

	_, err := svc.Create(context.Background(), admin, repository.BookInput{Title: "T", Author: "A"})
	require.Error(t, err)
	assert.Empty(t, f.logs(t))
}

// brokenAudit refuses every append.
type brokenAudit struct{ *audit.Service }

func (brokenAudit) Append(context.Context, entities.AuditLog) error {
	return errors.New("audit store offline")
}

func TestBookService_AuditFailureKeepsWrite(t *testing.T) {
	f := setup(t)
	svc := NewBookService(f.lib.Books, brokenAudit{f.audit})

	book, err := svc.Create(context.Background(), admin, repository.BookInput{Title: "T", Author: "A"})
	require.ErrorIs(t, err, ErrAuditNotRecorded)
	require.NotNil(t, book)

	_, err = f.lib.Books.Get(context.Background(), book.BookID)
	assert.NoError(t, err)
}

func TestUserService_RoleChangeScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u, err := f.lib.Users.Create(ctx, repository.UserInput{Email: "reader@sboapp.com", Name: "Reader", Role: entities.UserRoleUser})
	require.NoError(t, err)

	_, err = f.svc.Users.Update(ctx, admin, u.UID, repository.UserPatch{Role: ptr(entities.UserRoleAuthor)})
	require.NoError(t, err)

	logs := f.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, entities.AuditActionUpdate, logs[0].Action)
	assert.Equal(t, entities.AuditEntityUser, logs[0].EntityType)
	assert.Equal(t, "User", logs[0].Old()["role"])
	assert.Equal(t, "Author", logs[0].New()["role"])
	assert.Equal(t, "reader@sboapp.com", logs[0].New()["email"])
}

func TestUserService_DeleteScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u, err := f.svc.Users.Create(ctx, admin, repository.UserInput{Email: "gone@sboapp.com", Name: "Gone"})
	require.NoError(t, err)
	keep, err := f.svc.Users.Create(ctx, admin, repository.UserInput{Email: "keep@sboapp.com", Name: "Keep"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Users.Delete(ctx, admin, u.UID))

	users, err := f.lib.Users.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, keep.UID, users[0].UID)

	deletes := 0
	for _, l := range f.logs(t) {
		if l.Action == entities.AuditActionDelete {
			deletes++
			assert.Equal(t, u.UID, l.EntityID)
		}
	}
	assert.Equal(t, 1, deletes)
}

func TestAuthorService_Lifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	author, err := f.svc.Authors.Create(ctx, admin, repository.UserInput{Email: "emma@sboapp.com", Name: "Emma Wilson", Genre: "Literature"})
	require.NoError(t, err)
	assert.Equal(t, entities.UserRoleAuthor, author.Role)
	assert.Equal(t, entities.DefaultAuthorLevel, author.AuthorLevel)

	profile, err := f.lib.Authors.FindByUID(ctx, author.UID)
	require.NoError(t, err)
	assert.Equal(t, "Emma Wilson", profile.AuthorName)

	_, err = f.svc.Authors.Update(ctx, admin, author.UID, repository.UserPatch{Name: ptr("Emma W."), AuthorLevel: ptr("Rising")})
	require.NoError(t, err)
	profile, err = f.lib.Authors.FindByUID(ctx, author.UID)
	require.NoError(t, err)
	assert.Equal(t, "Emma W.", profile.AuthorName)

	require.NoError(t, f.svc.Authors.Delete(ctx, admin, author.UID))
	_, err = f.lib.Authors.FindByUID(ctx, author.UID)
	assert.ErrorIs(t, err, repository.ErrAuthorNotFound)

	logs := f.logs(t)
	require.Len(t, logs, 3)
	for _, l := range logs {
		assert.Equal(t, entities.AuditEntityAuthor, l.EntityType)
	}
}

func TestAgentService_RejectsOtherRoles(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	reader, err := f.lib.Users.Create(ctx, repository.UserInput{Email: "r@sboapp.com", Name: "R"})
	require.NoError(t, err)

	_, err = f.svc.Agents.Update(ctx, admin, reader.UID, repository.UserPatch{Territory: ptr("North")})
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	assert.ErrorIs(t, f.svc.Agents.Delete(ctx, admin, reader.UID), repository.ErrUserNotFound)

	agent, err := f.svc.Agents.Create(ctx, admin, repository.UserInput{Email: "a@sboapp.com", Name: "A", Territory: "West"})
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultAgentCommission, agent.Commission)

	updated, err := f.svc.Agents.Update(ctx, admin, agent.UID, repository.UserPatch{TotalSales: ptr(1200.0)})
	require.NoError(t, err)
	assert.Equal(t, 1200.0, updated["totalSales"])

	require.NoError(t, f.svc.Agents.Delete(ctx, admin, agent.UID))
	assert.Len(t, f.logs(t), 3)
}

func TestOverlay(t *testing.T) {
	old := &entities.User{UID: "u1", Role: entities.UserRoleUser, Email: "e@x"}
	got, err := overlay(old, map[string]any{"role": entities.UserRoleAgent})
	require.NoError(t, err)
	assert.Equal(t, "Agent", got["role"])
	assert.Equal(t, "e@x", got["email"])
	assert.Equal(t, entities.UserRoleUser, old.Role, "old snapshot untouched")
}
