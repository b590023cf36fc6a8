package realtime

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sboapp/admin/internal/logger"
)

// subscriber coalesces change signals and re-reads the collection on its own
// goroutine, so the listener always ends up with the latest state even when
// writes arrive faster than it consumes them.
type subscriber struct {
	collection string
	fn         Listener
	load       func(ctx context.Context) ([]Entry, error)

	dirty chan struct{}
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func newSubscriber(collection string, fn Listener, load func(ctx context.Context) ([]Entry, error)) *subscriber {
	return &subscriber{
		collection: collection,
		fn:         fn,
		load:       load,
		dirty:      make(chan struct{}, 1),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (s *subscriber) notify() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (s *subscriber) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-s.dirty:
		}

		entries, err := s.load(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.WithFields(logrus.Fields{"collection": s.collection, "error": err}).
				Warn("Failed to load collection for subscriber")
			continue
		}

		select {
		case <-s.stop:
			return
		default:
		}
		s.fn(entries)
	}
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.stop) })
}
