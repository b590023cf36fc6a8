package repository

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/sboapp/admin/internal/entities"
)

// UserInput is the admin "Add user/author/agent" form.
type UserInput struct {
	Email        string              `json:"email" form:"email" yaml:"email"`
	Name         string              `json:"name" form:"name" yaml:"name"`
	Role         entities.UserRole   `json:"role" form:"role" yaml:"role"`
	Status       entities.UserStatus `json:"status" form:"status" yaml:"status"`
	Subscription string              `json:"subscription" form:"subscription" yaml:"subscription"`
	AuthorLevel  string              `json:"authorLevel" form:"authorLevel" yaml:"authorLevel"`
	Genre        string              `json:"genre" form:"genre" yaml:"genre"`
	Bio          string              `json:"bio" form:"bio" yaml:"bio"`
	AgentLevel   string              `json:"agentLevel" form:"agentLevel" yaml:"agentLevel"`
	Territory    string              `json:"territory" form:"territory" yaml:"territory"`
	Commission   float64             `json:"commission" form:"commission" yaml:"commission"`
}

func (in UserInput) Validate() error {
	var errs entities.ValidationErrors
	if strings.TrimSpace(in.Email) == "" {
		errs.Add("email", "is required")
	} else if _, err := mail.ParseAddress(in.Email); err != nil {
		errs.Add("email", "is not a valid address")
	}
	if strings.TrimSpace(in.Name) == "" {
		errs.Add("name", "is required")
	}
	if in.Role != "" && !in.Role.Valid() {
		errs.Add("role", "must be User, Author, Agent or Admin")
	}
	if in.Status != "" && !in.Status.Valid() {
		errs.Add("status", "must be Active, Inactive or Suspended")
	}
	if in.Commission < 0 || in.Commission > 100 {
		errs.Add("commission", "must be between 0 and 100")
	}
	return errs.Err()
}

// UserPatch carries the fields an edit changes; nil fields are left alone.
type UserPatch struct {
	Email        *string              `json:"email,omitempty"`
	Name         *string              `json:"name,omitempty"`
	Role         *entities.UserRole   `json:"role,omitempty"`
	Status       *entities.UserStatus `json:"status,omitempty"`
	Subscription *string              `json:"subscription,omitempty"`
	BooksRead    *int                 `json:"booksRead,omitempty"`
	AuthorLevel  *string              `json:"authorLevel,omitempty"`
	Genre        *string              `json:"genre,omitempty"`
	Bio          *string              `json:"bio,omitempty"`
	AgentLevel   *string              `json:"agentLevel,omitempty"`
	Territory    *string              `json:"territory,omitempty"`
	Commission   *float64             `json:"commission,omitempty"`
	TotalSales   *float64             `json:"totalSales,omitempty"`
}

func (p UserPatch) Validate() error {
	var errs entities.ValidationErrors
	if p.Email != nil {
		if _, err := mail.ParseAddress(*p.Email); err != nil {
			errs.Add("email", "is not a valid address")
		}
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		errs.Add("name", "must not be empty")
	}
	if p.Role != nil && !p.Role.Valid() {
		errs.Add("role", "must be User, Author, Agent or Admin")
	}
	if p.Status != nil && !p.Status.Valid() {
		errs.Add("status", "must be Active, Inactive or Suspended")
	}
	if p.BooksRead != nil && *p.BooksRead < 0 {
		errs.Add("booksRead", "must not be negative")
	}
	if p.Commission != nil && (*p.Commission < 0 || *p.Commission > 100) {
		errs.Add("commission", "must be between 0 and 100")
	}
	if p.TotalSales != nil && *p.TotalSales < 0 {
		errs.Add("totalSales", "must not be negative")
	}
	return errs.Err()
}

// Users is the SBOAPP/users collection. Authors and agents live here too,
// distinguished by role.
type Users struct {
	c   collection[entities.User]
	now func() time.Time
}

func (u *Users) List(ctx context.Context) ([]entities.User, error) {
	return u.c.list(ctx)
}

func (u *Users) Get(ctx context.Context, id string) (*entities.User, error) {
	return u.c.get(ctx, id)
}

func (u *Users) Create(ctx context.Context, in UserInput) (*entities.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = entities.UserRoleUser
	}
	status := in.Status
	if status == "" {
		status = entities.UserStatusActive
	}

	now := u.now()
	name := strings.TrimSpace(in.Name)
	user := entities.User{
		UID:          NewID("u"),
		Email:        strings.TrimSpace(in.Email),
		Name:         name,
		DisplayName:  name,
		FullName:     name,
		Role:         role,
		Status:       status,
		IsActive:     status == entities.UserStatusActive,
		Subscription: in.Subscription,
		JoinDate:     now.Format(time.DateOnly),
		CreatedAt:    millis(now),
		UpdatedAt:    millis(now),
	}
	switch role {
	case entities.UserRoleAuthor:
		user.AuthorLevel = in.AuthorLevel
		if user.AuthorLevel == "" {
			user.AuthorLevel = entities.DefaultAuthorLevel
		}
		user.Genre = in.Genre
		user.Bio = in.Bio
	case entities.UserRoleAgent:
		user.AgentLevel = in.AgentLevel
		if user.AgentLevel == "" {
			user.AgentLevel = entities.DefaultAgentLevel
		}
		user.Territory = in.Territory
		user.Commission = in.Commission
		if user.Commission == 0 {
			user.Commission = entities.DefaultAgentCommission
		}
	}

	if err := u.c.put(ctx, user.UID, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Update applies patch and returns the wire fields that were written.
func (u *Users) Update(ctx context.Context, id string, patch UserPatch) (map[string]any, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	fields := u.fields(patch)
	if err := u.c.update(ctx, id, fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func (u *Users) fields(p UserPatch) map[string]any {
	fields := map[string]any{"updatedAt": millis(u.now())}
	setString := func(key string, v *string) {
		if v != nil {
			fields[key] = strings.TrimSpace(*v)
		}
	}
	setString("email", p.Email)
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		fields["name"] = name
		fields["displayName"] = name
		fields["fullname"] = name
	}
	if p.Role != nil {
		fields["role"] = string(*p.Role)
	}
	if p.Status != nil {
		fields["status"] = string(*p.Status)
		fields["isActive"] = *p.Status == entities.UserStatusActive
	}
	setString("subscription", p.Subscription)
	if p.BooksRead != nil {
		fields["booksRead"] = *p.BooksRead
	}
	setString("authorLevel", p.AuthorLevel)
	setString("genre", p.Genre)
	if p.Bio != nil {
		fields["bio"] = *p.Bio
	}
	setString("agentLevel", p.AgentLevel)
	setString("territory", p.Territory)
	if p.Commission != nil {
		fields["commission"] = *p.Commission
	}
	if p.TotalSales != nil {
		fields["totalSales"] = *p.TotalSales
	}
	return fields
}

func (u *Users) Delete(ctx context.Context, id string) error {
	return u.c.remove(ctx, id)
}

func (u *Users) Subscribe(ctx context.Context, fn func([]entities.User)) (func(), error) {
	return u.c.subscribe(ctx, fn)
}
