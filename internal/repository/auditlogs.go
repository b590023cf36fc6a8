package repository

import (
	"context"

	"github.com/sboapp/admin/internal/entities"
)

// AuditLogs is SBOAPP/auditLogs. Records are only ever written, never
// updated or removed.
type AuditLogs struct {
	c collection[entities.AuditLog]
}

// Append writes a record at its own id. Writing the same record twice
// leaves a single entry.
func (a *AuditLogs) Append(ctx context.Context, log entities.AuditLog) error {
	return a.c.put(ctx, log.ID, log)
}

func (a *AuditLogs) List(ctx context.Context) ([]entities.AuditLog, error) {
	return a.c.list(ctx)
}

func (a *AuditLogs) Get(ctx context.Context, id string) (*entities.AuditLog, error) {
	return a.c.get(ctx, id)
}

func (a *AuditLogs) Subscribe(ctx context.Context, fn func([]entities.AuditLog)) (func(), error) {
	return a.c.subscribe(ctx, fn)
}
