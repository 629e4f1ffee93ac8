package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository reads and prunes the audit_logs table.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository over the pool.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Window returns one page of audit rows, newest first. Limit is expected
// to be page size plus one so the caller can detect a next page.
func (r *PgRepository) Window(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	query, args := buildTimelineQuery(filters)
	query += fmt.Sprintf(" ORDER BY occurred_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimelineRow
	for rows.Next() {
		var row TimelineRow
		var meta []byte
		if err := rows.Scan(&row.ActorID, &row.Action, &row.Entity, &row.EntityID, &meta, &row.At); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &row.Meta)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// DeleteOlderThan prunes audit entries before the cutoff and returns how
// many rows were removed.
func (r *PgRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func buildTimelineQuery(filters TimelineFilters) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if !filters.From.IsZero() {
		add("occurred_at >= $%d", filters.From)
	}
	if !filters.To.IsZero() {
		add("occurred_at <= $%d", filters.To)
	}
	if filters.ActorID != 0 {
		add("actor_id = $%d", filters.ActorID)
	}
	if entity := strings.TrimSpace(filters.Entity); entity != "" {
		add("entity = $%d", entity)
	}
	if action := strings.TrimSpace(filters.Action); action != "" {
		add("action = $%d", action)
	}

	query := `SELECT actor_id, action, entity, entity_id, meta, occurred_at FROM audit_logs`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	return query, args
}
