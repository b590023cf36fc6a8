// Package repository provides typed access to the library collections kept in
// the realtime store.
//
// # Layout
//
//	<root>/books/{bookId}
//	<root>/users/{uid}
//	<root>/categories/{catId}
//	<root>/authors/{authorId}
//	<root>/subscriptions/{subsId}
//	<root>/auditLogs/{id}
//	<root>/appManagement/analytics
//	<root>/landingPage
//
// Every list call materializes the whole collection; there is no server-side
// filtering or paging.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/realtime"
)

var (
	ErrNotFound = errors.New("not found")

	ErrBookNotFound         = fmt.Errorf("book %w", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)
	ErrCategoryNotFound     = fmt.Errorf("category %w", ErrNotFound)
	ErrAuthorNotFound       = fmt.Errorf("author profile %w", ErrNotFound)
	ErrSubscriptionNotFound = fmt.Errorf("subscription %w", ErrNotFound)
	ErrAnalyticsNotFound    = fmt.Errorf("analytics %w", ErrNotFound)
	ErrLandingPageNotFound  = fmt.Errorf("landing page %w", ErrNotFound)
)

// Collection names under the root.
const (
	CollectionBooks         = "books"
	CollectionUsers         = "users"
	CollectionCategories    = "categories"
	CollectionAuthors       = "authors"
	CollectionSubscriptions = "subscriptions"
	CollectionAuditLogs     = "auditLogs"
	CollectionAppManagement = "appManagement"

	keyAnalytics   = "analytics"
	keyLandingPage = "landingPage"
)

// Library groups the typed collections over one store.
type Library struct {
	Books         *Books
	Users         *Users
	Categories    *Categories
	Authors       *Authors
	Subscriptions *Subscriptions
	AuditLogs     *AuditLogs
	AppData       *AppData

	store realtime.Store
	root  string
}

// Option customizes a Library.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used for createdAt/updatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New builds the typed collections rooted at root (for example "SBOAPP").
func New(store realtime.Store, root string, opts ...Option) *Library {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	categories := &Categories{c: newCollection[entities.Category](store, root, CollectionCategories, ErrCategoryNotFound)}
	return &Library{
		Books: &Books{
			c:          newCollection[entities.Book](store, root, CollectionBooks, ErrBookNotFound),
			categories: categories,
			now:        o.now,
		},
		Users: &Users{
			c:   newCollection[entities.User](store, root, CollectionUsers, ErrUserNotFound),
			now: o.now,
		},
		Categories:    categories,
		Authors:       &Authors{c: newCollection[entities.AuthorProfile](store, root, CollectionAuthors, ErrAuthorNotFound)},
		Subscriptions: &Subscriptions{c: newCollection[entities.Subscription](store, root, CollectionSubscriptions, ErrSubscriptionNotFound)},
		AuditLogs:     &AuditLogs{c: newCollection[entities.AuditLog](store, root, CollectionAuditLogs, ErrNotFound)},
		AppData:       &AppData{store: store, root: root},
		store:         store,
		root:          root,
	}
}

// Store exposes the underlying realtime store.
func (l *Library) Store() realtime.Store {
	return l.store
}

// CollectionPath returns the full store path of a named collection.
func (l *Library) CollectionPath(name string) string {
	return realtime.Join(l.root, name)
}

// NewID returns a time-ordered identifier with the given prefix.
func NewID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return prefix + strings.ReplaceAll(id.String(), "-", "")
}

// collection is the shared get/list/put/update/remove/subscribe plumbing for
// one typed collection.
type collection[T any] struct {
	store    realtime.Store
	path     string
	notFound error
}

func newCollection[T any](store realtime.Store, root, name string, notFound error) collection[T] {
	return collection[T]{store: store, path: realtime.Join(root, name), notFound: notFound}
}

func (c collection[T]) docPath(id string) string {
	return realtime.Join(c.path, id)
}

func (c collection[T]) list(ctx context.Context) ([]T, error) {
	entries, err := c.store.List(ctx, c.path)
	if err != nil {
		return nil, err
	}
	return realtime.Decode[T](entries)
}

func (c collection[T]) get(ctx context.Context, id string) (*T, error) {
	if id == "" {
		return nil, c.notFound
	}
	raw, err := c.store.Get(ctx, c.docPath(id))
	if errors.Is(err, realtime.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", c.notFound, id)
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.docPath(id), err)
	}
	return &v, nil
}

func (c collection[T]) put(ctx context.Context, id string, v T) error {
	return c.store.Set(ctx, c.docPath(id), v)
}

// update merges fields into an existing document; missing documents are
// reported rather than created.
func (c collection[T]) update(ctx context.Context, id string, fields map[string]any) error {
	if _, err := c.get(ctx, id); err != nil {
		return err
	}
	return c.store.Update(ctx, c.docPath(id), fields)
}

func (c collection[T]) remove(ctx context.Context, id string) error {
	if id == "" {
		return c.notFound
	}
	return c.store.Remove(ctx, c.docPath(id))
}

func (c collection[T]) subscribe(ctx context.Context, fn func([]T)) (func(), error) {
	return c.store.Subscribe(ctx, c.path, func(entries []realtime.Entry) {
		items, err := realtime.Decode[T](entries)
		if err != nil {
			items = decodeLenient[T](entries)
		}
		fn(items)
	})
}

// decodeLenient skips entries that do not decode, so one malformed record
// written by another client does not blank a whole view.
func decodeLenient[T any](entries []realtime.Entry) []T {
	out := make([]T, 0, len(entries))
	for _, e := range entries {
		var v T
		if err := json.Unmarshal(e.Value, &v); err == nil {
			out = append(out, v)
		}
	}
	return out
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}
