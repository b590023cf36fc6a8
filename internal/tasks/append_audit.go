package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/sirupsen/logrus"

	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/logger"
	"github.com/sboapp/admin/internal/metrics"
)

// AuditLogWriter writes an audit record at its own id.
type AuditLogWriter interface {
	Append(ctx context.Context, log entities.AuditLog) error
}

// AppendAuditLogTask retries an audit record whose direct write failed. The
// record id is fixed before the first attempt, so every retry rewrites the
// same document.
type AppendAuditLogTask struct {
	Log entities.AuditLog `json:"log"`
}

// Config returns the queue configuration for audit append retries.
func (t AppendAuditLogTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "append_audit_log",
		MaxAttempts: 20,
		Backoff:     30 * time.Second,
		Timeout:     30 * time.Second,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: true,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// AppendAuditLogProcessor creates a processor function for AppendAuditLogTask.
func AppendAuditLogProcessor(writer AuditLogWriter) backlite.QueueProcessor[AppendAuditLogTask] {
	return func(ctx context.Context, task AppendAuditLogTask) error {
		if writer == nil {
			return fmt.Errorf("audit log writer not configured")
		}
		if task.Log.ID == "" {
			return fmt.Errorf("audit record has no id")
		}
		if err := writer.Append(ctx, task.Log); err != nil {
			return fmt.Errorf("append audit log %s: %w", task.Log.ID, err)
		}

		metrics.IncOutboxDelivered()
		logger.WithFields(logrus.Fields{
			"id":     task.Log.ID,
			"action": task.Log.Action,
			"entity": task.Log.EntityType,
		}).Info("Delivered queued audit record")
		return nil
	}
}

// NewAppendAuditLogQueue creates a backlite queue for audit append retries.
func NewAppendAuditLogQueue(writer AuditLogWriter) backlite.Queue {
	return backlite.NewQueue(AppendAuditLogProcessor(writer))
}

// AuditOutbox enqueues audit records on the task client.
type AuditOutbox struct {
	client *Client
}

func NewAuditOutbox(client *Client) *AuditOutbox {
	return &AuditOutbox{client: client}
}

// Enqueue persists the record in the task database for later delivery.
func (o *AuditOutbox) Enqueue(ctx context.Context, log entities.AuditLog) error {
	if _, err := o.client.Add(AppendAuditLogTask{Log: log}).Ctx(ctx).Save(); err != nil {
		return fmt.Errorf("enqueue audit log %s: %w", log.ID, err)
	}
	metrics.IncOutboxEnqueued()
	return nil
}
