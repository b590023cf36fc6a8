package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/realtime"
)

// AppData holds the singleton documents: the analytics snapshot and the
// landing page copy.
type AppData struct {
	store realtime.Store
	root  string
}

func (a *AppData) analyticsPath() string {
	return realtime.Join(a.root, CollectionAppManagement, keyAnalytics)
}

func (a *AppData) landingPagePath() string {
	return realtime.Join(a.root, keyLandingPage)
}

func (a *AppData) Analytics(ctx context.Context) (*entities.Analytics, error) {
	var out entities.Analytics
	if err := a.get(ctx, a.analyticsPath(), &out, ErrAnalyticsNotFound); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *AppData) PutAnalytics(ctx context.Context, v entities.Analytics) error {
	return a.store.Set(ctx, a.analyticsPath(), v)
}

// SubscribeAnalytics calls fn with the current snapshot, or nil when none has
// been written yet, after every change under appManagement.
func (a *AppData) SubscribeAnalytics(ctx context.Context, fn func(*entities.Analytics)) (func(), error) {
	return a.store.Subscribe(ctx, realtime.Join(a.root, CollectionAppManagement), func(entries []realtime.Entry) {
		for _, e := range entries {
			if e.Key != keyAnalytics {
				continue
			}
			var v entities.Analytics
			if err := json.Unmarshal(e.Value, &v); err == nil {
				fn(&v)
				return
			}
		}
		fn(nil)
	})
}

func (a *AppData) LandingPage(ctx context.Context) (*entities.LandingPage, error) {
	var out entities.LandingPage
	if err := a.get(ctx, a.landingPagePath(), &out, ErrLandingPageNotFound); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *AppData) PutLandingPage(ctx context.Context, v entities.LandingPage) error {
	return a.store.Set(ctx, a.landingPagePath(), v)
}

func (a *AppData) get(ctx context.Context, path string, dst any, notFound error) error {
	raw, err := a.store.Get(ctx, path)
	if errors.Is(err, realtime.ErrNotFound) {
		return notFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
