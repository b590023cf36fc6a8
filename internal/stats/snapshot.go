package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/logger"
	"github.com/sboapp/admin/internal/metrics"
)

type BookLister interface {
	List(ctx context.Context) ([]entities.Book, error)
}

type UserLister interface {
	List(ctx context.Context) ([]entities.User, error)
}

// Sink stores the computed snapshot.
type Sink interface {
	PutAnalytics(ctx context.Context, v entities.Analytics) error
}

// Snapshotter recomputes the analytics document.
type Snapshotter struct {
	books BookLister
	users UserLister
	sink  Sink
	now   func() time.Time
}

func NewSnapshotter(books BookLister, users UserLister, sink Sink) *Snapshotter {
	return &Snapshotter{books: books, users: users, sink: sink, now: time.Now}
}

// Run computes and writes one snapshot.
func (s *Snapshotter) Run(ctx context.Context) (entities.Analytics, error) {
	a, err := s.run(ctx)
	metrics.ObserveSnapshot(err)
	if err != nil {
		logger.WithFields(logrus.Fields{"error": err}).Error("Analytics snapshot failed")
		return entities.Analytics{}, err
	}
	logger.WithFields(logrus.Fields{
		"books": a.TotalBooks,
		"users": a.TotalUsers,
	}).Info("Analytics snapshot written")
	return a, nil
}

func (s *Snapshotter) run(ctx context.Context) (entities.Analytics, error) {
	books, err := s.books.List(ctx)
	if err != nil {
		return entities.Analytics{}, fmt.Errorf("list books: %w", err)
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return entities.Analytics{}, fmt.Errorf("list users: %w", err)
	}
	a := ComputeAnalytics(books, users, s.now())
	if err := s.sink.PutAnalytics(ctx, a); err != nil {
		return entities.Analytics{}, fmt.Errorf("write analytics: %w", err)
	}
	return a, nil
}
