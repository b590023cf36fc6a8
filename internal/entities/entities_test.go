package entities

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBook_EffectiveStatus(t *testing.T) {
	assert.Equal(t, BookStatusArchived, Book{Status: BookStatusArchived, IsActive: true}.EffectiveStatus())
	assert.Equal(t, BookStatusPublished, Book{IsActive: true}.EffectiveStatus())
	assert.Equal(t, BookStatusDraft, Book{}.EffectiveStatus())
}

func TestBook_WireShape(t *testing.T) {
	b := Book{BookID: "b1", BookName: "T", BookAuth: "A", BookCat: 1, CoverImage: "c", PdfURL: "p"}
	raw, err := json.Marshal(b)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	for _, key := range []string{"bookId", "bookName", "bookAuth", "bookCat", "coverImage", "pdfUrl", "downloads", "likes", "isPaid", "isActive"} {
		assert.Contains(t, m, key)
	}
}

func TestUser_Effective(t *testing.T) {
	assert.Equal(t, UserRoleUser, User{}.EffectiveRole())
	assert.Equal(t, UserRoleAgent, User{Role: UserRoleAgent}.EffectiveRole())
	assert.Equal(t, UserStatusActive, User{IsActive: true}.EffectiveStatus())
	assert.Equal(t, UserStatusSuspended, User{Status: UserStatusSuspended, IsActive: true}.EffectiveStatus())
}

func TestUser_MatchesAuthorName(t *testing.T) {
	u := User{Name: "Sarah Johnson", DisplayName: "S. Johnson"}
	assert.True(t, u.MatchesAuthorName("Sarah Johnson"))
	assert.True(t, u.MatchesAuthorName("S. Johnson"))
	assert.False(t, u.MatchesAuthorName("sarah johnson"))
	assert.False(t, u.MatchesAuthorName(""))
	assert.False(t, User{}.MatchesAuthorName(""))
}

func TestUser_DisplayLabel(t *testing.T) {
	assert.Equal(t, "Name", User{Name: "Name", Email: "e"}.DisplayLabel())
	assert.Equal(t, "e@x", User{Email: "e@x"}.DisplayLabel())
	assert.Equal(t, "u1", User{UID: "u1"}.DisplayLabel())
}

func TestAuditLog_Snapshots(t *testing.T) {
	l := AuditLog{OldData: json.RawMessage(`{"role":"User"}`), NewData: json.RawMessage(`null`)}
	assert.Equal(t, "User", l.Old()["role"])
	assert.Nil(t, l.New())
}

func TestValidationErrors(t *testing.T) {
	var v ValidationErrors
	assert.NoError(t, v.Err())

	v.Add("title", "is required")
	err := fmt.Errorf("create book: %w", v.Err())
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "title: is required")

	var target ValidationErrors
	require.True(t, errors.As(err, &target))
	assert.Equal(t, "title", target[0].Field)
}

func TestAdminRole(t *testing.T) {
	assert.True(t, AdminRoleOwner.Valid())
	assert.False(t, AdminRole("root").Valid())
	assert.True(t, AdminRoleEditor.CanWrite())
	assert.False(t, AdminRoleViewer.CanWrite())
	assert.Equal(t, "admin_7", Admin{ID: 7}.ActorID())
}
