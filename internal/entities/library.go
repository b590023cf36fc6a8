package entities

import "strings"

// BookStatus is the publication state shown in the admin books table.
type BookStatus string

const (
	BookStatusDraft     BookStatus = "Draft"
	BookStatusPublished BookStatus = "Published"
	BookStatusArchived  BookStatus = "Archived"
)

// Valid reports whether s is one of the known publication states.
func (s BookStatus) Valid() bool {
	switch s {
	case BookStatusDraft, BookStatusPublished, BookStatusArchived:
		return true
	}
	return false
}

// DefaultCategoryID is stored in bookCat when a category label does not
// resolve to a known category record.
const DefaultCategoryID = 1

// Book is a record under SBOAPP/books/{bookId}. The bookName/bookAuth/bookCat
// fields are the shape the mobile app reads; the rest are admin-side fields.
type Book struct {
	BookID      string     `json:"bookId" yaml:"bookId"`
	BookName    string     `json:"bookName" yaml:"bookName"`
	BookAuth    string     `json:"bookAuth" yaml:"bookAuth"`
	BookCat     int        `json:"bookCat" yaml:"bookCat"`
	Category    string     `json:"category,omitempty" yaml:"category"`
	Description string     `json:"description,omitempty" yaml:"description"`
	CoverImage  string     `json:"coverImage" yaml:"coverImage"`
	PdfURL      string     `json:"pdfUrl" yaml:"pdfUrl"`
	Price       float64    `json:"price" yaml:"price"`
	Status      BookStatus `json:"status,omitempty" yaml:"status"`
	Downloads   int        `json:"downloads" yaml:"downloads"`
	Likes       int        `json:"likes" yaml:"likes"`
	IsPaid      bool       `json:"isPaid" yaml:"isPaid"`
	IsActive    bool       `json:"isActive" yaml:"isActive"`
	CreatedAt   int64      `json:"createdAt,omitempty" yaml:"createdAt"`
	UpdatedAt   int64      `json:"updatedAt,omitempty" yaml:"updatedAt"`
}

// EffectiveStatus falls back to isActive for records written by the mobile
// app, which never sets status.
func (b Book) EffectiveStatus() BookStatus {
	if b.Status != "" {
		return b.Status
	}
	if b.IsActive {
		return BookStatusPublished
	}
	return BookStatusDraft
}

type UserRole string

const (
	UserRoleUser   UserRole = "User"
	UserRoleAuthor UserRole = "Author"
	UserRoleAgent  UserRole = "Agent"
	UserRoleAdmin  UserRole = "Admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleUser, UserRoleAuthor, UserRoleAgent, UserRoleAdmin:
		return true
	}
	return false
}

type UserStatus string

const (
	UserStatusActive    UserStatus = "Active"
	UserStatusInactive  UserStatus = "Inactive"
	UserStatusSuspended UserStatus = "Suspended"
)

func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusSuspended:
		return true
	}
	return false
}

// User is a record under SBOAPP/users/{uid}. Authors and agents are users
// whose role is Author or Agent; the level/genre/territory fields only carry
// meaning for those roles.
type User struct {
	UID           string     `json:"uid" yaml:"uid"`
	Email         string     `json:"email" yaml:"email"`
	Name          string     `json:"name,omitempty" yaml:"name"`
	DisplayName   string     `json:"displayName,omitempty" yaml:"displayName"`
	FullName      string     `json:"fullname,omitempty" yaml:"fullname"`
	Role          UserRole   `json:"role,omitempty" yaml:"role"`
	RoleID        int        `json:"roleId,omitempty" yaml:"roleId"`
	Status        UserStatus `json:"status,omitempty" yaml:"status"`
	IsActive      bool       `json:"isActive" yaml:"isActive"`
	IsVerified    bool       `json:"isVerified" yaml:"isVerified"`
	Subscription  string     `json:"subscription,omitempty" yaml:"subscription"`
	Subscriptions []string   `json:"subscriptions,omitempty" yaml:"subscriptions"`
	BooksRead     int        `json:"booksRead" yaml:"booksRead"`
	JoinDate      string     `json:"joinDate,omitempty" yaml:"joinDate"`
	LastActive    string     `json:"lastActive,omitempty" yaml:"lastActive"`

	AuthorLevel string  `json:"authorLevel,omitempty" yaml:"authorLevel"`
	Genre       string  `json:"genre,omitempty" yaml:"genre"`
	Bio         string  `json:"bio,omitempty" yaml:"bio"`
	AgentLevel  string  `json:"agentLevel,omitempty" yaml:"agentLevel"`
	Territory   string  `json:"territory,omitempty" yaml:"territory"`
	Commission  float64 `json:"commission,omitempty" yaml:"commission"`
	TotalSales  float64 `json:"totalSales,omitempty" yaml:"totalSales"`

	CreatedAt int64 `json:"createdAt,omitempty" yaml:"createdAt"`
	UpdatedAt int64 `json:"updatedAt,omitempty" yaml:"updatedAt"`
}

// EffectiveRole treats an unset role as a plain User.
func (u User) EffectiveRole() UserRole {
	if u.Role == "" {
		return UserRoleUser
	}
	return u.Role
}

// EffectiveStatus falls back to isActive when status was never written.
func (u User) EffectiveStatus() UserStatus {
	if u.Status != "" {
		return u.Status
	}
	if u.IsActive {
		return UserStatusActive
	}
	return UserStatusInactive
}

// DisplayLabel picks the first non-empty of name, displayName, fullname, email.
func (u User) DisplayLabel() string {
	for _, s := range []string{u.Name, u.DisplayName, u.FullName, u.Email} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return u.UID
}

// MatchesAuthorName reports whether a book's free-text author field refers
// to this user. Matching is exact string equality on name or displayName.
func (u User) MatchesAuthorName(author string) bool {
	if author == "" {
		return false
	}
	return (u.Name != "" && u.Name == author) || (u.DisplayName != "" && u.DisplayName == author)
}

// Author and agent tiers offered by the admin forms.
var (
	AuthorLevels = []string{"Emerging", "Rising", "Established", "Bestseller"}
	AgentLevels  = []string{"Junior", "Mid", "Senior"}
)

const (
	DefaultAuthorLevel     = "Emerging"
	DefaultAgentLevel      = "Junior"
	DefaultAgentCommission = 5.0
)

type Category struct {
	CatID    int      `json:"catId" yaml:"catId"`
	CatName  string   `json:"catName" yaml:"catName"`
	CatBooks []string `json:"catBooks,omitempty" yaml:"catBooks"`
	IsActive bool     `json:"isActive" yaml:"isActive"`
}

// AuthorProfile is the mobile app's author card under SBOAPP/authors/{authorId}.
type AuthorProfile struct {
	AuthorID    string   `json:"authorId" yaml:"authorId"`
	AuthorName  string   `json:"authorName" yaml:"authorName"`
	AuthorCat   int      `json:"authorCat" yaml:"authorCat"`
	AuthorBooks []string `json:"authorBooks,omitempty" yaml:"authorBooks"`
	UID         string   `json:"uid" yaml:"uid"`
	IsActive    bool     `json:"isActive" yaml:"isActive"`
}

type Subscription struct {
	SubsID       int      `json:"subsId" yaml:"subsId"`
	SubName      string   `json:"subName" yaml:"subName"`
	Price        float64  `json:"price" yaml:"price"`
	SubDur       string   `json:"subDur" yaml:"subDur"`
	UnlocksBooks []string `json:"unlocksBooks,omitempty" yaml:"unlocksBooks"`
	IsActive     bool     `json:"isActive" yaml:"isActive"`
}

// LandingPage is the marketing copy the public pages render.
type LandingPage struct {
	Title       string    `json:"title" yaml:"title"`
	Tagline     string    `json:"tagline" yaml:"tagline"`
	Description string    `json:"description" yaml:"description"`
	AppStoreURL string    `json:"appStoreUrl,omitempty" yaml:"appStoreUrl"`
	PlayURL     string    `json:"playStoreUrl,omitempty" yaml:"playStoreUrl"`
	Features    []Feature `json:"features,omitempty" yaml:"features"`
}

type Feature struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}

// Analytics is the aggregate snapshot written to SBOAPP/appManagement/analytics.
type Analytics struct {
	TotalBooks        int            `json:"totalBooks"`
	PublishedBooks    int            `json:"publishedBooks"`
	DraftBooks        int            `json:"draftBooks"`
	TotalUsers        int            `json:"totalUsers"`
	ActiveUsers       int            `json:"activeUsers"`
	TotalAuthors      int            `json:"totalAuthors"`
	TotalAgents       int            `json:"totalAgents"`
	TotalDownloads    int            `json:"totalDownloads"`
	TotalLikes        int            `json:"totalLikes"`
	AveragePrice      float64        `json:"averagePrice"`
	CategoryBreakdown map[string]int `json:"categoryStats"`
	GeneratedAt       int64          `json:"generatedAt"`
}
