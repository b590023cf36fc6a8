// Package stats derives the dashboard counters and the aggregate analytics
// snapshot from materialized collections.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/sboapp/admin/internal/audit"
	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/listing"
)

const (
	recentBooks = 5
	recentUsers = 5
	recentAudit = 10

	// OtherCategory buckets books without a category label.
	OtherCategory = "Other"
)

type Dashboard struct {
	TotalBooks        int                 `json:"totalBooks"`
	PublishedBooks    int                 `json:"publishedBooks"`
	DraftBooks        int                 `json:"draftBooks"`
	TotalUsers        int                 `json:"totalUsers"`
	ActiveUsers       int                 `json:"activeUsers"`
	TotalAuthors      int                 `json:"totalAuthors"`
	TotalAgents       int                 `json:"totalAgents"`
	TotalDownloads    int                 `json:"totalDownloads"`
	TotalLikes        int                 `json:"totalLikes"`
	AveragePrice      float64             `json:"averagePrice"`
	CategoryBreakdown map[string]int      `json:"categoryBreakdown"`
	RecentBooks       []entities.Book     `json:"recentBooks"`
	RecentUsers       []entities.User     `json:"recentUsers"`
	RecentAudit       []entities.AuditLog `json:"recentAudit"`
}

// ComputeDashboard aggregates the admin landing page. Recent lists are newest
// first by createdAt; records without createdAt keep their store order after
// the dated ones.
func ComputeDashboard(books []entities.Book, users []entities.User, logs []entities.AuditLog) Dashboard {
	a := ComputeAnalytics(books, users, time.Time{})
	return Dashboard{
		TotalBooks:        a.TotalBooks,
		PublishedBooks:    a.PublishedBooks,
		DraftBooks:        a.DraftBooks,
		TotalUsers:        a.TotalUsers,
		ActiveUsers:       a.ActiveUsers,
		TotalAuthors:      a.TotalAuthors,
		TotalAgents:       a.TotalAgents,
		TotalDownloads:    a.TotalDownloads,
		TotalLikes:        a.TotalLikes,
		AveragePrice:      a.AveragePrice,
		CategoryBreakdown: a.CategoryBreakdown,
		RecentBooks:       newestBooks(books, recentBooks),
		RecentUsers:       newestUsers(users, recentUsers),
		RecentAudit:       audit.Recent(logs, recentAudit),
	}
}

// ComputeAnalytics builds the snapshot stored at appManagement/analytics.
func ComputeAnalytics(books []entities.Book, users []entities.User, now time.Time) entities.Analytics {
	a := entities.Analytics{
		TotalBooks:        len(books),
		TotalUsers:        len(users),
		CategoryBreakdown: map[string]int{},
	}
	if !now.IsZero() {
		a.GeneratedAt = now.UnixMilli()
	}

	var priceSum float64
	for _, b := range books {
		if b.EffectiveStatus() == entities.BookStatusPublished {
			a.PublishedBooks++
		}
		a.TotalDownloads += b.Downloads
		a.TotalLikes += b.Likes
		priceSum += b.Price

		category := b.Category
		if category == "" {
			category = OtherCategory
		}
		a.CategoryBreakdown[category]++
	}
	a.DraftBooks = a.TotalBooks - a.PublishedBooks
	if len(books) > 0 {
		a.AveragePrice = round(priceSum/float64(len(books)), 2)
	}

	for _, u := range users {
		if u.EffectiveStatus() == entities.UserStatusActive {
			a.ActiveUsers++
		}
		switch u.EffectiveRole() {
		case entities.UserRoleAuthor:
			a.TotalAuthors++
		case entities.UserRoleAgent:
			a.TotalAgents++
		}
	}
	return a
}

// AuthorStats is an Author user enriched with the books credited to them.
type AuthorStats struct {
	entities.User
	TotalBooks     int     `json:"totalBooks"`
	TotalDownloads int     `json:"totalDownloads"`
	TotalLikes     int     `json:"totalLikes"`
	AvgRating      float64 `json:"rating"`
}

// Bucket sums books that share an attribution.
type Bucket struct {
	Books     int `json:"books"`
	Downloads int `json:"downloads"`
	Likes     int `json:"likes"`
}

type AuthorSummary struct {
	Authors             []AuthorStats `json:"authors"`
	ActiveAuthors       int           `json:"activeAuthors"`
	TotalBooksPublished int           `json:"totalBooksPublished"`
	TotalDownloads      int           `json:"totalDownloads"`
	AvgRating           float64       `json:"avgRating"`
	Unattributed        Bucket        `json:"unattributed"`
}

// Authors matches each book's free-text author against Author users by exact
// name or displayName. Books matching no author land in Unattributed. A book
// matching several authors is credited to each of them.
func Authors(users []entities.User, books []entities.Book) AuthorSummary {
	authors := listing.WithRole(users, entities.UserRoleAuthor)
	summary := AuthorSummary{Authors: make([]AuthorStats, 0, len(authors))}

	attributed := make([]bool, len(books))
	for _, u := range authors {
		s := AuthorStats{User: u}
		for i, b := range books {
			if !u.MatchesAuthorName(b.BookAuth) {
				continue
			}
			attributed[i] = true
			s.TotalBooks++
			s.TotalDownloads += b.Downloads
			s.TotalLikes += b.Likes
		}
		if s.TotalLikes > 0 {
			s.AvgRating = round(float64(s.TotalLikes)/float64(s.TotalBooks), 1)
		}
		summary.Authors = append(summary.Authors, s)

		if u.EffectiveStatus() == entities.UserStatusActive {
			summary.ActiveAuthors++
		}
		summary.TotalBooksPublished += s.TotalBooks
		summary.TotalDownloads += s.TotalDownloads
	}

	if len(summary.Authors) > 0 {
		var sum float64
		for _, s := range summary.Authors {
			sum += s.AvgRating
		}
		summary.AvgRating = round(sum/float64(len(summary.Authors)), 1)
	}

	for i, b := range books {
		if attributed[i] {
			continue
		}
		summary.Unattributed.Books++
		summary.Unattributed.Downloads += b.Downloads
		summary.Unattributed.Likes += b.Likes
	}
	return summary
}

type AgentSummary struct {
	Agents          []entities.User `json:"agents"`
	ActiveAgents    int             `json:"activeAgents"`
	TotalCommission float64         `json:"totalCommission"`
	TotalSales      float64         `json:"totalSales"`
}

func Agents(users []entities.User) AgentSummary {
	agents := listing.WithRole(users, entities.UserRoleAgent)
	s := AgentSummary{Agents: agents}
	for _, a := range agents {
		if a.EffectiveStatus() == entities.UserStatusActive {
			s.ActiveAgents++
		}
		s.TotalCommission += a.Commission
		s.TotalSales += a.TotalSales
	}
	return s
}

func newestBooks(books []entities.Book, n int) []entities.Book {
	sorted := make([]entities.Book, len(books))
	copy(sorted, books)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt > sorted[j].CreatedAt })
	return sorted[:min(n, len(sorted))]
}

func newestUsers(users []entities.User, n int) []entities.User {
	sorted := make([]entities.User, len(users))
	copy(sorted, users)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt > sorted[j].CreatedAt })
	return sorted[:min(n, len(sorted))]
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
