// Package listing filters and paginates the in-memory collections behind the
// admin tables. Every operation is a linear scan that keeps input order.
package listing

import (
	"strings"

	"github.com/sboapp/admin/internal/entities"
)

// All is the selector value that disables an equality filter.
const All = "all"

// DefaultPageSize matches the admin tables.
const DefaultPageSize = 10

// Filter returns the items for which match is true, in input order.
func Filter[T any](items []T, match func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if match(it) {
			out = append(out, it)
		}
	}
	return out
}

// Contains reports whether any field contains query, ignoring case. An empty
// query matches everything.
func Contains(query string, fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// Equals applies a selector: empty or "all" matches everything, otherwise
// the value must be equal.
func Equals(selector, value string) bool {
	if selector == "" || selector == All {
		return true
	}
	return selector == value
}

type BookFilter struct {
	Search   string `form:"q"`
	Status   string `form:"status"`
	Category string `form:"category"`
}

func (f BookFilter) Match(b entities.Book) bool {
	return Contains(f.Search, b.BookName, b.BookAuth, b.Category) &&
		Equals(f.Status, string(b.EffectiveStatus())) &&
		Equals(f.Category, b.Category)
}

func (f BookFilter) Apply(books []entities.Book) []entities.Book {
	return Filter(books, f.Match)
}

type UserFilter struct {
	Search string `form:"q"`
	Role   string `form:"role"`
	Status string `form:"status"`
}

func (f UserFilter) Match(u entities.User) bool {
	return Contains(f.Search, u.Email, u.Name, u.DisplayName) &&
		Equals(f.Role, string(u.EffectiveRole())) &&
		Equals(f.Status, string(u.EffectiveStatus()))
}

func (f UserFilter) Apply(users []entities.User) []entities.User {
	return Filter(users, f.Match)
}

// AuthorFilter applies to users that already have the Author role.
type AuthorFilter struct {
	Search string `form:"q"`
	Status string `form:"status"`
	Level  string `form:"level"`
}

func (f AuthorFilter) Match(u entities.User) bool {
	return Contains(f.Search, u.Email, u.Name, u.DisplayName, u.Genre) &&
		Equals(f.Status, string(u.EffectiveStatus())) &&
		Equals(f.Level, u.AuthorLevel)
}

func (f AuthorFilter) Apply(users []entities.User) []entities.User {
	return Filter(users, f.Match)
}

// AgentFilter applies to users that already have the Agent role.
type AgentFilter struct {
	Search string `form:"q"`
	Status string `form:"status"`
	Level  string `form:"level"`
}

func (f AgentFilter) Match(u entities.User) bool {
	return Contains(f.Search, u.Email, u.Name, u.DisplayName) &&
		Equals(f.Status, string(u.EffectiveStatus())) &&
		Equals(f.Level, u.AgentLevel)
}

func (f AgentFilter) Apply(users []entities.User) []entities.User {
	return Filter(users, f.Match)
}

// WithRole selects users whose effective role is role.
func WithRole(users []entities.User, role entities.UserRole) []entities.User {
	return Filter(users, func(u entities.User) bool { return u.EffectiveRole() == role })
}
