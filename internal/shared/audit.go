package shared

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PermissionChange is one confirmed permission mutation bound for the
// audit timeline. Action carries the change kind (user_permission,
// user_role, ...), EntityID the user or role the change touched, and
// Old/New the rendered before and after values shown to the reviewer.
type PermissionChange struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Field    string
	Old      string
	New      string
	Note     string
	At       time.Time
}

// changeMeta is the JSON shape stored in the audit_logs meta column so
// the timeline can render a diff without joining the mutated tables.
type changeMeta struct {
	Field       string `json:"field"`
	Old         string `json:"old"`
	New         string `json:"new"`
	Description string `json:"description"`
}

// AuditLogger persists confirmed permission changes into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists one confirmed change. A change with no action or no
// entity id is rejected: the timeline filters on both, so an unlabeled
// row would be unreachable.
func (l *AuditLogger) Record(ctx context.Context, change PermissionChange) error {
	if change.Action == "" || change.EntityID == "" {
		return fmt.Errorf("shared: audit record missing action or entity id: %w", ErrValidation)
	}
	if l == nil || l.pool == nil {
		return fmt.Errorf("shared: audit logger not initialised")
	}
	if change.Entity == "" {
		change.Entity = "permission_change"
	}
	meta, err := json.Marshal(changeMeta{
		Field:       change.Field,
		Old:         change.Old,
		New:         change.New,
		Description: change.Note,
	})
	if err != nil {
		return fmt.Errorf("shared: marshal audit meta: %w", err)
	}
	// A zero At would reach postgres as year 1, not NULL, so map it
	// explicitly to let the database stamp the row.
	var at any
	if !change.At.IsZero() {
		at = change.At
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`,
		change.ActorID, change.Action, change.Entity, change.EntityID, meta, at)
	if err != nil {
		return fmt.Errorf("shared: insert audit row: %w", err)
	}
	return nil
}
