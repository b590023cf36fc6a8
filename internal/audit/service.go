package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/logger"
	"github.com/sboapp/admin/internal/metrics"
	"github.com/sboapp/admin/internal/repository"
)

// DefaultLimit is the number of entries GetLogs returns when no limit is given.
const DefaultLimit = 50

// Actor identifies who performed an audited operation.
type Actor struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SystemActor is recorded for operations the server performs on its own,
// such as seeding.
var SystemActor = Actor{ID: "system", Email: "system@sboapp.com"}

// Store persists and reads audit records.
type Store interface {
	Append(ctx context.Context, log entities.AuditLog) error
	List(ctx context.Context) ([]entities.AuditLog, error)
	Subscribe(ctx context.Context, fn func([]entities.AuditLog)) (func(), error)
}

// Outbox holds records whose direct write failed until they can be retried.
type Outbox interface {
	Enqueue(ctx context.Context, log entities.AuditLog) error
}

// Service records and reads the audit trail.
type Service struct {
	store  Store
	outbox Outbox
	now    func() time.Time
}

type Option func(*Service)

// WithOutbox routes failed direct writes into outbox instead of returning
// the error.
func WithOutbox(outbox Outbox) Option {
	return func(s *Service) { s.outbox = outbox }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new audit service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewEntry builds a record with a fresh id and timestamp without writing it.
func (s *Service) NewEntry(action entities.AuditAction, entityType, entityID string, actor Actor, details string, oldData, newData any) (entities.AuditLog, error) {
	if !action.Valid() {
		return entities.AuditLog{}, fmt.Errorf("unknown audit action %q", action)
	}
	oldRaw, err := snapshot(oldData)
	if err != nil {
		return entities.AuditLog{}, fmt.Errorf("encode old snapshot: %w", err)
	}
	newRaw, err := snapshot(newData)
	if err != nil {
		return entities.AuditLog{}, fmt.Errorf("encode new snapshot: %w", err)
	}
	return entities.AuditLog{
		ID:         repository.NewID("audit_"),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     actor.ID,
		UserEmail:  actor.Email,
		Timestamp:  s.now().UnixMilli(),
		Details:    details,
		OldData:    oldRaw,
		NewData:    newRaw,
	}, nil
}

// Append writes a prepared record. When the direct write fails and an outbox
// is configured, the record is queued and Append reports success.
func (s *Service) Append(ctx context.Context, log entities.AuditLog) error {
	err := s.store.Append(ctx, log)
	if err == nil {
		return nil
	}

	metrics.IncAuditFailure()
	fields := logrus.Fields{
		"id":     log.ID,
		"action": log.Action,
		"entity": log.EntityType,
		"actor":  log.UserEmail,
		"error":  err,
	}
	if s.outbox == nil {
		logger.WithFields(fields).Error("Failed to append audit record")
		return fmt.Errorf("append audit record: %w", err)
	}

	if qerr := s.outbox.Enqueue(context.WithoutCancel(ctx), log); qerr != nil {
		logger.WithFields(fields).WithField("queue_error", qerr).Error("Failed to queue audit record")
		return fmt.Errorf("append audit record: %w", errors.Join(err, qerr))
	}
	logger.WithFields(fields).Warn("Audit append failed, record queued for retry")
	return nil
}

// LogAction records one audited operation.
func (s *Service) LogAction(ctx context.Context, action entities.AuditAction, entityType, entityID string, actor Actor, details string, oldData, newData any) (*entities.AuditLog, error) {
	entry, err := s.NewEntry(action, entityType, entityID, actor, details, oldData, newData)
	if err != nil {
		return nil, err
	}
	if err := s.Append(ctx, entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetLogs returns the most recent limit records, newest first.
func (s *Service) GetLogs(ctx context.Context, limit int) ([]entities.AuditLog, error) {
	logs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return Recent(logs, limit), nil
}

// Filter narrows audit queries; empty fields match everything.
type Filter struct {
	Action     entities.AuditAction `form:"action" json:"action,omitempty"`
	EntityType string               `form:"entityType" json:"entityType,omitempty"`
	UserID     string               `form:"userId" json:"userId,omitempty"`
}

func (f Filter) Match(l entities.AuditLog) bool {
	return (f.Action == "" || l.Action == f.Action) &&
		(f.EntityType == "" || l.EntityType == f.EntityType) &&
		(f.UserID == "" || l.UserID == f.UserID)
}

// Find returns the most recent limit records matching f, newest first.
func (s *Service) Find(ctx context.Context, f Filter, limit int) ([]entities.AuditLog, error) {
	logs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	matched := make([]entities.AuditLog, 0, len(logs))
	for _, l := range logs {
		if f.Match(l) {
			matched = append(matched, l)
		}
	}
	return Recent(matched, limit), nil
}

// Subscribe delivers the GetLogs view again after every change.
func (s *Service) Subscribe(ctx context.Context, limit int, fn func([]entities.AuditLog)) (func(), error) {
	return s.store.Subscribe(ctx, func(logs []entities.AuditLog) {
		fn(Recent(logs, limit))
	})
}

// Recent sorts by timestamp descending, breaking ties by id descending, and
// keeps the first limit entries. The input slice is not modified.
func Recent(logs []entities.AuditLog, limit int) []entities.AuditLog {
	if limit <= 0 {
		limit = DefaultLimit
	}
	sorted := make([]entities.AuditLog, len(logs))
	copy(sorted, logs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Timestamp != sorted[j].Timestamp {
			return sorted[i].Timestamp > sorted[j].Timestamp
		}
		return sorted[i].ID > sorted[j].ID
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func (s *Service) LogSignIn(ctx context.Context, actor Actor, userAgent string) error {
	_, err := s.LogAction(ctx, entities.AuditActionSignIn, entities.AuditEntityAuth, actor.ID, actor,
		"User signed in: "+actor.Email, nil, s.authData(userAgent))
	return err
}

func (s *Service) LogSignUp(ctx context.Context, actor Actor, userAgent string) error {
	_, err := s.LogAction(ctx, entities.AuditActionSignUp, entities.AuditEntityAuth, actor.ID, actor,
		"New user registered: "+actor.Email, nil, s.authData(userAgent))
	return err
}

func (s *Service) LogSignOut(ctx context.Context, actor Actor) error {
	_, err := s.LogAction(ctx, entities.AuditActionSignOut, entities.AuditEntityAuth, actor.ID, actor,
		"User signed out: "+actor.Email, nil, map[string]any{"timestamp": s.now().UnixMilli()})
	return err
}

// LogPageView records a navigation entry; the entity id is page_<ms>.
func (s *Service) LogPageView(ctx context.Context, actor Actor, page, userAgent string) error {
	ts := s.now().UnixMilli()
	data := s.authData(userAgent)
	data["page"] = page
	_, err := s.LogAction(ctx, entities.AuditActionPageView, entities.AuditEntityNavigation, fmt.Sprintf("page_%d", ts), actor,
		"User viewed page: "+page, nil, data)
	return err
}

func (s *Service) authData(userAgent string) map[string]any {
	if userAgent == "" {
		userAgent = "Server"
	}
	return map[string]any{
		"timestamp": s.now().UnixMilli(),
		"userAgent": truncate(userAgent, 500),
	}
}

func snapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		if len(raw) == 0 {
			return nil, nil
		}
		return raw, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	return b, nil
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
