package repository

import (
	"context"
	"strconv"

	"github.com/sboapp/admin/internal/entities"
)

// Authors is the mobile app's author card collection at SBOAPP/authors.
type Authors struct {
	c collection[entities.AuthorProfile]
}

func (a *Authors) List(ctx context.Context) ([]entities.AuthorProfile, error) {
	return a.c.list(ctx)
}

func (a *Authors) Get(ctx context.Context, id string) (*entities.AuthorProfile, error) {
	return a.c.get(ctx, id)
}

// FindByUID returns the profile linked to a user account.
func (a *Authors) FindByUID(ctx context.Context, uid string) (*entities.AuthorProfile, error) {
	all, err := a.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].UID == uid {
			return &all[i], nil
		}
	}
	return nil, ErrAuthorNotFound
}

func (a *Authors) Put(ctx context.Context, p entities.AuthorProfile) error {
	return a.c.put(ctx, p.AuthorID, p)
}

func (a *Authors) Delete(ctx context.Context, id string) error {
	return a.c.remove(ctx, id)
}

// Subscriptions is SBOAPP/subscriptions, keyed by subsId.
type Subscriptions struct {
	c collection[entities.Subscription]
}

func (s *Subscriptions) List(ctx context.Context) ([]entities.Subscription, error) {
	return s.c.list(ctx)
}

func (s *Subscriptions) Get(ctx context.Context, id int) (*entities.Subscription, error) {
	return s.c.get(ctx, strconv.Itoa(id))
}

func (s *Subscriptions) Put(ctx context.Context, sub entities.Subscription) error {
	return s.c.put(ctx, strconv.Itoa(sub.SubsID), sub)
}
