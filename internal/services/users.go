package services

import (
	"context"

	"github.com/sboapp/admin/internal/audit"
	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/repository"
)

type UserService struct {
	users UserStore
	pipeline
}

func NewUserService(users UserStore, auditor AuditRecorder) *UserService {
	return &UserService{users: users, pipeline: pipeline{audit: auditor}}
}

func (s *UserService) Create(ctx context.Context, actor audit.Actor, in repository.UserInput) (user *entities.User, err error) {
	defer func() { done(entities.AuditEntityUser, entities.AuditActionCreate, userID(user), actor, err) }()

	user, err = s.users.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	err = s.record(ctx, entities.AuditActionCreate, entities.AuditEntityUser, user.UID, actor,
		"Created user: "+user.DisplayLabel(), nil, user)
	return user, err
}

func (s *UserService) Update(ctx context.Context, actor audit.Actor, id string, patch repository.UserPatch) (updated map[string]any, err error) {
	defer func() { done(entities.AuditEntityUser, entities.AuditActionUpdate, id, actor, err) }()

	old, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return updateUser(ctx, s.users, s.pipeline, entities.AuditEntityUser, actor, old, patch)
}

func (s *UserService) Delete(ctx context.Context, actor audit.Actor, id string) (err error) {
	defer func() { done(entities.AuditEntityUser, entities.AuditActionDelete, id, actor, err) }()

	old, err := s.users.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	return s.record(ctx, entities.AuditActionDelete, entities.AuditEntityUser, id, actor,
		"Deleted user: "+old.DisplayLabel(), old, nil)
}

// updateUser writes patch over old and records a single UPDATE entry under
// entityType.
func updateUser(ctx context.Context, users UserStore, p pipeline, entityType string, actor audit.Actor, old *entities.User, patch repository.UserPatch) (map[string]any, error) {
	fields, err := users.Update(ctx, old.UID, patch)
	if err != nil {
		return nil, err
	}
	newData, err := overlay(old, fields)
	if err != nil {
		return nil, err
	}
	name, _ := fields["name"].(string)
	err = p.record(ctx, entities.AuditActionUpdate, entityType, old.UID, actor,
		"Updated "+lowerEntity(entityType)+": "+label(name, old.UID), old, newData)
	return newData, err
}

func lowerEntity(entityType string) string {
	switch entityType {
	case entities.AuditEntityAuthor:
		return "author"
	case entities.AuditEntityAgent:
		return "agent"
	default:
		return "user"
	}
}

func userID(u *entities.User) string {
	if u == nil {
		return ""
	}
	return u.UID
}
