// Package audit defines the audit-trail port used by domain services.
package audit

import (
	"context"

	"hospicore/internal/core/id"
	"hospicore/pkg/logger"
)

// Action represents the type of audited operation.
type Action string

const (
	ActionCreate       Action = "create"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionStatusChange Action = "status_change"
	ActionDispense     Action = "dispense"
	ActionUsage        Action = "usage"
	ActionAdjust       Action = "adjust"
	ActionHandover     Action = "handover"
)

// Entry is one audit record: who did what to which entity, with before/after
// snapshots for diffing.
type Entry struct {
	ActorID     string
	Action      Action
	EntityType  string
	EntityID    id.ID
	OldValues   map[string]any
	NewValues   map[string]any
	Description string
}

// Logger persists audit entries. Implemented by the postgres audit store.
type Logger interface {
	LogAction(ctx context.Context, entry Entry) error
}

// Record writes the entry and never fails the caller. Audit failures must not
// roll back an otherwise-successful business mutation; they are logged with a
// distinct event so the lost trail is visible in diagnostics.
func Record(ctx context.Context, l Logger, entry Entry) {
	if l == nil {
		return
	}
	if err := l.LogAction(ctx, entry); err != nil {
		logger.Warn(ctx, "audit trail write failed",
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"entity_id", entry.EntityID,
			"error", err,
		)
	}
}

// Nop is a Logger that discards entries (tests, tooling).
type Nop struct{}

func (Nop) LogAction(ctx context.Context, entry Entry) error { return nil }
