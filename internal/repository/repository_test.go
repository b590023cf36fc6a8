package repository

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/realtime"
)

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func setupLibrary(t *testing.T) *Library {
	t.Helper()
	store := realtime.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	return New(store, "SBOAPP", WithClock(func() time.Time { return fixedNow }))
}

func ptr[T any](v T) *T { return &v }

func TestNewID(t *testing.T) {
	a := NewID("b")
	b := NewID("b")
	assert.True(t, strings.HasPrefix(a, "b"))
	assert.NotContains(t, a, "-")
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b, "ids are time ordered")
}

func TestBooks_CreateMapsWireShape(t *testing.T) {
	ctx := context.Background()
	lib := setupLibrary(t)

	book, err := lib.Books.Create(ctx, BookInput{
		Title:    "T",
		Author:   "A",
		Category: "Fiction",
		Price:    0,
		Status:   entities.BookStatusDraft,
	})
	require.NoError(t, err)

	books, err := lib.Books.List(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)

	got := books[0]
	assert.Equal(t, book.BookID, got.BookID)
	assert.Equal(t, "T", got.BookName)
	assert.Equal(t, "A", got.BookAuth)
	assert.Equal(t, entities.DefaultCategoryID, got.BookCat)
	assert.Equal(t, 0, got.Downloads)
	assert.Equal(t, 0, got.Likes)
	assert.False(t, got.IsPaid)
	assert.False(t, got.IsActive)
	assert.Equal(t, fixedNow.UnixMilli(), got.CreatedAt)

	// The path key and the stored bookId agree.
	raw, err := lib.Store().Get(ctx, "SBOAPP/books/"+book.BookID)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"bookId":"`+book.BookID+`"`)
}

func TestBooks_CreateResolvesCategoryAndFlags(t *testing.T) {
	ctx := context.Background()
	lib := setupLibrary(t)

	_, err := lib.Categories.Create(ctx, "Fiction")
	require.NoError(t, err)
	tech, err := lib.Categories.Create(ctx, "Technology")
	require.NoError(t, err)

	book, err := lib.Books.Create(ctx, BookInput{Title: "X", Author: "Y", Category: "technology", Price: 9.99, Status: entities.BookStatusPublished})
	require.NoError(t, err)
	assert.Equal(t, tech.CatID, book.BookCat)
	assert.True(t, book.IsPaid)
	assert.True(t, book.IsActive)
}

func TestBooks_CreateValidation(t *testing.T) {
	lib := setupLibrary(t)

	_, err := lib.Books.Create(context.Background(), BookInput{Price: -1, Status: "Unknown"})
	require.ErrorIs(t, err, entities.ErrValidation)

	var verrs entities.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	fields := make([]string, 0, len(verrs))
	for _, v := range verrs {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"title", "author", "price", "status"}, fields)
}

func TestBooks_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	lib := setupLibrary(t)

	book, err := lib.Books.Create(ctx, BookInput{Title: "T", Author: "A", Status: entities.BookStatusDraft})
	require.NoError(t, err)

	fields, err := lib.Books.Update(ctx, book.BookID, BookPatch{
		Status: ptr(entities.BookStatusPublished),
		Price:  ptr(4.5),
	})
	require.NoError(t, err)
	assert.Equal(t, true, fields["isActive"])
	assert.Equal(t, true, fields["isPaid"])

	got, err := lib.Books.Get(ctx, book.BookID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookStatusPublished, got.Status)
	assert.Equal(t, "T", got.BookName)
	assert.Equal(t, 4.5, got.Price)

	_, err = lib.Books.Update(ctx, "missing", BookPatch{Title: ptr("x")})
	assert.ErrorIs(t, err, ErrBookNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, lib.Books.Delete(ctx, book.BookID))
	_, err = lib.Books.Get(ctx, book.BookID)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestUsers_CreateDefaultsByRole(t *testing.T) {
	ctx := context.Background()
	lib := setupLibrary(t)

	agent, err := lib.Users.Create(ctx, UserInput{Email: "agent@sboapp.com", Name: "Agent Smith", Role: entities.UserRoleAgent})
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultAgentLevel, agent.AgentLevel)
	assert.Equal(t, entities.DefaultAgentCommission, agent.Commission)
	assert.Equal(t, entities.UserStatusActive, agent.Status)
	assert.True(t, agent.IsActive)
	assert.Equal(t, "2024-03-15", agent.JoinDate)

	author, err := lib.Users.Create(ctx, UserInput{Email: "author@sboapp.com", Name: "Emma", Role: entities.UserRoleAuthor, Status: entities.UserStatusInactive})
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultAuthorLevel, author.AuthorLevel)
	assert.False(t, author.IsActive)
	assert.Empty(t, author.AgentLevel)
}

func TestUsers_CreateValidation(t *testing.T) {
	lib := setupLibrary(t)
	_, err := lib.Users.Create(context.Background(), UserInput{Email: "not-an-email", Role: "Owner"})
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestUsers_UpdateRole(t *testing.T) {
	ctx := context.Background()
	lib := setupLibrary(t)

	u, err := lib.Users.Create(ctx, UserInput{Email: "reader@sboapp.com", Name: "Reader"})
	require.NoError(t, err)

	_, err = lib.Users.Update(ctx, u.UID, UserPatch{Role: ptr(entities.UserRoleAuthor), Status: ptr(entities.UserStatusSuspended)})
	require.NoError(t, err)

	got, err := lib.Users.Get(ctx, u.UID)
	require.NoError(t, err)
	assert.Equal(t, entities.UserRoleAuthor, got.Role)
	assert.Equal(t, entities.UserStatusSuspended, got.Status)
	assert.False(t, got.IsActive)
	assert.Equal(t, "reader@sboapp.com", got.Email)
}

func TestCategories_CreateIsIdempotentByName(t *testing.T) {
	ctx := context.Background()
	lib := setupLibrary(t)

	a, err := lib.Categories.Create(ctx, "Fiction")
	require.NoError(t, err)
	b, err := lib.Categories.Create(ctx, "fiction")
	require.NoError(t, err)
	assert.Equal(t, a.CatID, b.CatID)

	c, err := lib.Categories.Create(ctx, "Poetry")
	require.NoError(t, err)
	assert.Equal(t, a.CatID+1, c.CatID)

	_, err = lib.Categories.Create(ctx, " ")
	assert.ErrorIs(t, err, entities.ErrValidation)

	id, err := lib.Categories.Resolve(ctx, "Unknown")
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultCategoryID, id)
}

func TestAuthors_FindByUID(t *testing.T) {
	ctx := context.Background()
	lib := setupLibrary(t)

	require.NoError(t, lib.Authors.Put(ctx, entities.AuthorProfile{AuthorID: "a1", AuthorName: "Emma", UID: "u1", IsActive: true}))

	p, err := lib.Authors.FindByUID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "a1", p.AuthorID)

	_, err = lib.Authors.FindByUID(ctx, "u2")
	assert.ErrorIs(t, err, ErrAuthorNotFound)

	require.NoError(t, lib.Authors.Delete(ctx, "a1"))
	_, err = lib.Authors.Get(ctx, "a1")
	assert.ErrorIs(t, err, ErrAuthorNotFound)
}

func TestSubscriptions_PutGet(t *testing.T) {
	ctx := context.Background()
	lib := setupLibrary(t)

	require.NoError(t, lib.Subscriptions.Put(ctx, entities.Subscription{SubsID: 2, SubName: "Premium", Price: 9.99, SubDur: "monthly", IsActive: true}))
	got, err := lib.Subscriptions.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Premium", got.SubName)

	_, err = lib.Subscriptions.Get(ctx, 3)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestAppData(t *testing.T) {
	ctx := context.Background()
	lib := setupLibrary(t)

	_, err := lib.AppData.Analytics(ctx)
	assert.ErrorIs(t, err, ErrAnalyticsNotFound)

	var mu sync.Mutex
	var seen []*entities.Analytics
	unsubscribe, err := lib.AppData.SubscribeAnalytics(ctx, func(a *entities.Analytics) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, a)
	})
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, lib.AppData.PutAnalytics(ctx, entities.Analytics{TotalBooks: 3}))
	got, err := lib.AppData.Analytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalBooks)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1] != nil && seen[len(seen)-1].TotalBooks == 3
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, lib.AppData.PutLandingPage(ctx, entities.LandingPage{Title: "SBO APP"}))
	lp, err := lib.AppData.LandingPage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SBO APP", lp.Title)
}

func TestBooks_Subscribe(t *testing.T) {
	ctx := context.Background()
	lib := setupLibrary(t)

	var mu sync.Mutex
	var last []entities.Book
	unsubscribe, err := lib.Books.Subscribe(ctx, func(books []entities.Book) {
		mu.Lock()
		defer mu.Unlock()
		last = books
	})
	require.NoError(t, err)
	defer unsubscribe()

	_, err = lib.Books.Create(ctx, BookInput{Title: "T", Author: "A"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(last) == 1 && last[0].BookName == "T"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAuditLogs_AppendIsIdempotent(t *testing.T) {
	ctx := context.Background()
	lib := setupLibrary(t)

	log := entities.AuditLog{ID: "audit_1", Action: entities.AuditActionCreate, Timestamp: 1}
	require.NoError(t, lib.AuditLogs.Append(ctx, log))
	require.NoError(t, lib.AuditLogs.Append(ctx, log))

	logs, err := lib.AuditLogs.List(ctx)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}
