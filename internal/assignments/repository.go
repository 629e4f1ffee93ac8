package assignments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence over user_projects.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get fetches the assignment row for a (user, project) pair. The second
// return value is false when no row exists.
func (r *Repository) Get(ctx context.Context, userID, projectID int64) (Assignment, bool, error) {
	var a Assignment
	err := r.pool.QueryRow(ctx, `SELECT user_id, project_id, role, can_view, can_edit, can_delete, updated_at
FROM user_projects WHERE user_id=$1 AND project_id=$2`, userID, projectID).
		Scan(&a.UserID, &a.ProjectID, &a.Role, &a.CanView, &a.CanEdit, &a.CanDelete, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Assignment{}, false, nil
		}
		return Assignment{}, false, err
	}
	return a, true, nil
}

// List returns every assignment row of a user.
func (r *Repository) List(ctx context.Context, userID int64) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id, project_id, role, can_view, can_edit, can_delete, updated_at
FROM user_projects WHERE user_id=$1 ORDER BY project_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Assignment
	for rows.Next() {
		var a Assignment
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

// Upsert writes an assignment row, replacing any existing one for the
// pair. All batch writes go through here, which keeps retries safe.
func (r *Repository) Upsert(ctx context.Context, a Assignment) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO user_projects (user_id, project_id, role, can_view, can_edit, can_delete)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id, project_id) DO UPDATE SET role = EXCLUDED.role, can_view = EXCLUDED.can_view,
can_edit = EXCLUDED.can_edit, can_delete = EXCLUDED.can_delete, updated_at = NOW()`,
		a.UserID, a.ProjectID, a.Role, a.CanView, a.CanEdit, a.CanDelete)
	return err
}

// DeleteAll removes every assignment row of a user. Reserved for the
// full reset path; single-project restriction never deletes.
func (r *Repository) DeleteAll(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_projects WHERE user_id=$1`, userID)
	return err
}
