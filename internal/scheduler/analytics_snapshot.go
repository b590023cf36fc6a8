package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/logger"
)

// Snapshotter recomputes the analytics document.
type Snapshotter interface {
	Run(ctx context.Context) (entities.Analytics, error)
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// AnalyticsScheduler refreshes appManagement/analytics on a cron schedule.
type AnalyticsScheduler struct {
	snapshotter Snapshotter
	enabled     bool
	schedule    string

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
	baseCtx    context.Context
}

func NewAnalyticsScheduler(snapshotter Snapshotter, enabled bool, schedule string) *AnalyticsScheduler {
	return &AnalyticsScheduler{
		snapshotter: snapshotter,
		enabled:     enabled,
		schedule:    schedule,
		cron:        cron.New(cron.WithParser(parser)),
	}
}

// Start begins the scheduler if snapshots are enabled. One snapshot is taken
// immediately so the dashboard has data before the first tick.
func (s *AnalyticsScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if !s.enabled {
		logger.Log().Info("Analytics scheduler: disabled")
		return nil
	}
	if err := ValidateSchedule(s.schedule); err != nil {
		return err
	}

	var runCtx context.Context
	runCtx, s.cancelFunc = context.WithCancel(ctx)
	s.baseCtx = ctx

	entryID, err := s.cron.AddFunc(s.schedule, func() { s.run(runCtx) })
	if err != nil {
		s.cancelFunc()
		s.cancelFunc = nil
		return fmt.Errorf("failed to schedule analytics job: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	logger.WithFields(logrus.Fields{
		"schedule": s.schedule,
		"next_run": s.cron.Entry(entryID).Next,
	}).Info("Analytics scheduler: started")

	go s.run(runCtx)

	go func() {
		<-runCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running snapshot to finish.
func (s *AnalyticsScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)

	s.isRunning = false
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	logger.Log().Info("Analytics scheduler: stopped")
}

// Reschedule swaps the cron expression, restarting the scheduler if it was
// running.
func (s *AnalyticsScheduler) Reschedule(schedule string) error {
	if err := ValidateSchedule(schedule); err != nil {
		return err
	}

	s.mu.Lock()
	wasRunning := s.isRunning
	ctx := s.baseCtx
	s.mu.Unlock()

	if wasRunning {
		s.Stop()
	}

	s.mu.Lock()
	s.schedule = schedule
	s.mu.Unlock()

	if !wasRunning {
		return nil
	}
	if ctx == nil || ctx.Err() != nil {
		ctx = context.Background()
	}
	return s.Start(ctx)
}

// RunNow takes a snapshot synchronously.
func (s *AnalyticsScheduler) RunNow(ctx context.Context) (entities.Analytics, error) {
	return s.snapshotter.Run(ctx)
}

func (s *AnalyticsScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *AnalyticsScheduler) Schedule() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schedule
}

// GetNextRunTime returns nil when the scheduler is not running.
func (s *AnalyticsScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *AnalyticsScheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if _, err := s.snapshotter.Run(ctx); err != nil {
		// Snapshotter already logged and counted the failure.
		return
	}
	logger.WithFields(logrus.Fields{
		"duration": time.Since(start).Round(time.Millisecond).String(),
	}).Debug("Analytics scheduler: run complete")
}
