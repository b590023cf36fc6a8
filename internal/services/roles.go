package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sboapp/admin/internal/audit"
	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/logger"
	"github.com/sboapp/admin/internal/repository"
)

// getWithRole loads a user and reports it as not found unless it has role.
func getWithRole(ctx context.Context, users UserStore, id string, role entities.UserRole) (*entities.User, error) {
	u, err := users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.EffectiveRole() != role {
		return nil, fmt.Errorf("%w: %s is not an %s", repository.ErrUserNotFound, id, role)
	}
	return u, nil
}

// AuthorService manages users with the Author role and their profile cards.
type AuthorService struct {
	users    UserStore
	profiles AuthorProfileStore
	pipeline
}

func NewAuthorService(users UserStore, profiles AuthorProfileStore, auditor AuditRecorder) *AuthorService {
	return &AuthorService{users: users, profiles: profiles, pipeline: pipeline{audit: auditor}}
}

func (s *AuthorService) Create(ctx context.Context, actor audit.Actor, in repository.UserInput) (user *entities.User, err error) {
	defer func() { done(entities.AuditEntityAuthor, entities.AuditActionCreate, userID(user), actor, err) }()

	in.Role = entities.UserRoleAuthor
	user, err = s.users.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	profile := entities.AuthorProfile{
		AuthorID:   repository.NewID("a"),
		AuthorName: user.Name,
		AuthorCat:  entities.DefaultCategoryID,
		UID:        user.UID,
		IsActive:   user.IsActive,
	}
	if err := s.profiles.Put(ctx, profile); err != nil {
		// The user record exists; the card is rebuilt on the next update.
		logger.WithFields(logrus.Fields{"uid": user.UID, "error": err}).Warn("Failed to write author profile")
	}
	err = s.record(ctx, entities.AuditActionCreate, entities.AuditEntityAuthor, user.UID, actor,
		"Created author: "+user.DisplayLabel(), nil, user)
	return user, err
}

func (s *AuthorService) Update(ctx context.Context, actor audit.Actor, id string, patch repository.UserPatch) (updated map[string]any, err error) {
	defer func() { done(entities.AuditEntityAuthor, entities.AuditActionUpdate, id, actor, err) }()

	old, err := getWithRole(ctx, s.users, id, entities.UserRoleAuthor)
	if err != nil {
		return nil, err
	}
	updated, err = updateUser(ctx, s.users, s.pipeline, entities.AuditEntityAuthor, actor, old, patch)
	if updated != nil && (patch.Name != nil || patch.Status != nil) {
		s.syncProfile(ctx, old, patch)
	}
	return updated, err
}

func (s *AuthorService) syncProfile(ctx context.Context, old *entities.User, patch repository.UserPatch) {
	profile, err := s.profiles.FindByUID(ctx, old.UID)
	if errors.Is(err, repository.ErrAuthorNotFound) {
		profile = &entities.AuthorProfile{
			AuthorID:   repository.NewID("a"),
			AuthorName: old.Name,
			AuthorCat:  entities.DefaultCategoryID,
			UID:        old.UID,
			IsActive:   old.IsActive,
		}
	} else if err != nil {
		logger.WithFields(logrus.Fields{"uid": old.UID, "error": err}).Warn("Failed to load author profile")
		return
	}
	if patch.Name != nil {
		profile.AuthorName = *patch.Name
	}
	if patch.Status != nil {
		profile.IsActive = *patch.Status == entities.UserStatusActive
	}
	if err := s.profiles.Put(ctx, *profile); err != nil {
		logger.WithFields(logrus.Fields{"uid": old.UID, "error": err}).Warn("Failed to write author profile")
	}
}

func (s *AuthorService) Delete(ctx context.Context, actor audit.Actor, id string) (err error) {
	defer func() { done(entities.AuditEntityAuthor, entities.AuditActionDelete, id, actor, err) }()

	old, err := getWithRole(ctx, s.users, id, entities.UserRoleAuthor)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	if profile, perr := s.profiles.FindByUID(ctx, id); perr == nil {
		if derr := s.profiles.Delete(ctx, profile.AuthorID); derr != nil {
			logger.WithFields(logrus.Fields{"uid": id, "error": derr}).Warn("Failed to remove author profile")
		}
	}
	return s.record(ctx, entities.AuditActionDelete, entities.AuditEntityAuthor, id, actor,
		"Deleted author: "+old.DisplayLabel(), old, nil)
}

// AgentService manages users with the Agent role.
type AgentService struct {
	users UserStore
	pipeline
}

func NewAgentService(users UserStore, auditor AuditRecorder) *AgentService {
	return &AgentService{users: users, pipeline: pipeline{audit: auditor}}
}

func (s *AgentService) Create(ctx context.Context, actor audit.Actor, in repository.UserInput) (user *entities.User, err error) {
	defer func() { done(entities.AuditEntityAgent, entities.AuditActionCreate, userID(user), actor, err) }()

	in.Role = entities.UserRoleAgent
	user, err = s.users.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	err = s.record(ctx, entities.AuditActionCreate, entities.AuditEntityAgent, user.UID, actor,
		"Created agent: "+user.DisplayLabel(), nil, user)
	return user, err
}

func (s *AgentService) Update(ctx context.Context, actor audit.Actor, id string, patch repository.UserPatch) (updated map[string]any, err error) {
	defer func() { done(entities.AuditEntityAgent, entities.AuditActionUpdate, id, actor, err) }()

	old, err := getWithRole(ctx, s.users, id, entities.UserRoleAgent)
	if err != nil {
		return nil, err
	}
	return updateUser(ctx, s.users, s.pipeline, entities.AuditEntityAgent, actor, old, patch)
}

func (s *AgentService) Delete(ctx context.Context, actor audit.Actor, id string) (err error) {
	defer func() { done(entities.AuditEntityAgent, entities.AuditActionDelete, id, actor, err) }()

	old, err := getWithRole(ctx, s.users, id, entities.UserRoleAgent)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	return s.record(ctx, entities.AuditActionDelete, entities.AuditEntityAgent, id, actor,
		"Deleted agent: "+old.DisplayLabel(), old, nil)
}
