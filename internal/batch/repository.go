package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/routewise/routewise/internal/assignments"
	"github.com/routewise/routewise/internal/overrides"
	"github.com/routewise/routewise/internal/platform/db"
	"github.com/routewise/routewise/internal/shared"
)

// TxRepository is the data surface the coordinator uses, valid both
// inside and outside a transaction.
type TxRepository interface {
	GetOverride(ctx context.Context, userID int64) (overrides.Override, bool, error)
	ReplaceOverride(ctx context.Context, o overrides.Override) error
	DeleteOverride(ctx context.Context, userID int64) error
	ListAssignments(ctx context.Context, userID int64) ([]assignments.Assignment, error)
	DeleteAssignments(ctx context.Context, userID int64) error
	InsertAssignment(ctx context.Context, a assignments.Assignment) error
	UpdateUserRole(ctx context.Context, userID int64, role string) error
}

// Repository adds transaction scoping on top of TxRepository.
type Repository interface {
	TxRepository
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgRepository provides PostgreSQL backed persistence spanning
// user_permissions, user_projects and users.
type PgRepository struct {
	pool *pgxpool.Pool
	q    querier
}

// NewRepository constructs a repository over the pool.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool, q: pool}
}

// WithTx runs fn with a repository bound to a single transaction. Either
// every write inside fn commits or none of them are visible.
func (r *PgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &PgRepository{pool: r.pool, q: tx})
	})
}

// GetOverride fetches a user's override row.
func (r *PgRepository) GetOverride(ctx context.Context, userID int64) (overrides.Override, bool, error) {
	var o overrides.Override
	err := r.q.QueryRow(ctx, `SELECT user_id, menu, function, project, data, updated_at FROM user_permissions WHERE user_id=$1`, userID).
		Scan(&o.UserID, &o.Sets.Menu, &o.Sets.Function, &o.Sets.Project, &o.Sets.Data, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return overrides.Override{}, false, nil
		}
		return overrides.Override{}, false, err
	}
	return o, true, nil
}

// ReplaceOverride upserts the whole override row.
func (r *PgRepository) ReplaceOverride(ctx context.Context, o overrides.Override) error {
	_, err := r.q.Exec(ctx, `INSERT INTO user_permissions (user_id, menu, function, project, data)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id) DO UPDATE SET menu = EXCLUDED.menu, function = EXCLUDED.function,
project = EXCLUDED.project, data = EXCLUDED.data, updated_at = NOW()`,
		o.UserID, o.Sets.Menu, o.Sets.Function, o.Sets.Project, o.Sets.Data)
	return err
}

// DeleteOverride removes a user's override row.
func (r *PgRepository) DeleteOverride(ctx context.Context, userID int64) error {
	_, err := r.q.Exec(ctx, `DELETE FROM user_permissions WHERE user_id=$1`, userID)
	return err
}

// ListAssignments returns every assignment row of a user.
func (r *PgRepository) ListAssignments(ctx context.Context, userID int64) ([]assignments.Assignment, error) {
	rows, err := r.q.Query(ctx, `SELECT user_id, project_id, role, can_view, can_edit, can_delete, updated_at
FROM user_projects WHERE user_id=$1 ORDER BY project_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []assignments.Assignment
	for rows.Next() {
		var a assignments.Assignment
		if err := rows.Scan(&a.UserID, &a.ProjectID, &a.Role, &a.CanView, &a.CanEdit, &a.CanDelete, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteAssignments removes every assignment row of a user.
func (r *PgRepository) DeleteAssignments(ctx context.Context, userID int64) error {
	_, err := r.q.Exec(ctx, `DELETE FROM user_projects WHERE user_id=$1`, userID)
	return err
}

// InsertAssignment writes one assignment row, replacing any existing row
// for the pair.
func (r *PgRepository) InsertAssignment(ctx context.Context, a assignments.Assignment) error {
	_, err := r.q.Exec(ctx, `INSERT INTO user_projects (user_id, project_id, role, can_view, can_edit, can_delete)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id, project_id) DO UPDATE SET role = EXCLUDED.role, can_view = EXCLUDED.can_view,
can_edit = EXCLUDED.can_edit, can_delete = EXCLUDED.can_delete, updated_at = NOW()`,
		a.UserID, a.ProjectID, a.Role, a.CanView, a.CanEdit, a.CanDelete)
	return err
}

// UpdateUserRole sets the role key on a user row.
func (r *PgRepository) UpdateUserRole(ctx context.Context, userID int64, role string) error {
	tag, err := r.q.Exec(ctx, `UPDATE users SET role=$2, updated_at=NOW() WHERE id=$1`, userID, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("batch: user %d: %w", userID, shared.ErrNotFound)
	}
	return nil
}
