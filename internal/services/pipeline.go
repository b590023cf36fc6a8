// Package services implements the audited mutation pipeline: every create,
// update and delete reads the previous snapshot, writes the change, then
// appends exactly one audit entry.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sboapp/admin/internal/audit"
	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/logger"
	"github.com/sboapp/admin/internal/metrics"
)

// ErrAuditNotRecorded is returned alongside a successful data write whose
// audit entry could be neither written nor queued.
var ErrAuditNotRecorded = errors.New("audit entry not recorded")

type pipeline struct {
	audit AuditRecorder
}

// record appends the audit entry for a completed write. It runs only after
// the data write succeeded.
func (p pipeline) record(ctx context.Context, action entities.AuditAction, entityType, entityID string, actor audit.Actor, details string, oldData, newData any) error {
	entry, err := p.audit.NewEntry(action, entityType, entityID, actor, details, oldData, newData)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuditNotRecorded, err)
	}
	if err := p.audit.Append(ctx, entry); err != nil {
		return fmt.Errorf("%w: %v", ErrAuditNotRecorded, err)
	}
	return nil
}

// done logs and counts the outcome of one mutation.
func done(entity string, action entities.AuditAction, id string, actor audit.Actor, err error) {
	metrics.ObserveMutation(entity, string(action), err)
	fields := logrus.Fields{
		"entity": entity,
		"id":     id,
		"action": action,
		"actor":  actor.Email,
	}
	if err != nil {
		logger.WithFields(fields).WithField("error", err).Warn("Mutation failed")
		return
	}
	logger.WithFields(fields).Info("Mutation applied")
}

// overlay returns old with fields applied on top, as plain JSON values.
func overlay(old any, fields map[string]any) (map[string]any, error) {
	out := map[string]any{}
	if old != nil {
		b, err := json.Marshal(old)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, err
		}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var patch map[string]any
	if err := json.Unmarshal(b, &patch); err != nil {
		return nil, err
	}
	for k, v := range patch {
		out[k] = v
	}
	return out, nil
}

func label(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
