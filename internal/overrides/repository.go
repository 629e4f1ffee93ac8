package overrides

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/routewise/routewise/internal/catalog"
	"github.com/routewise/routewise/internal/shared"
)

// Repository provides PostgreSQL backed persistence over user_permissions.
// Each user holds at most one row; absent domain columns are NULL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get fetches the override row for a user. The second return value is
// false when the user has no override row at all.
func (r *Repository) Get(ctx context.Context, userID int64) (Override, bool, error) {
	var o Override
	err := r.pool.QueryRow(ctx, `SELECT user_id, menu, function, project, data, updated_at FROM user_permissions WHERE user_id=$1`, userID).
		Scan(&o.UserID, &o.Sets.Menu, &o.Sets.Function, &o.Sets.Project, &o.Sets.Data, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Override{}, false, nil
		}
		return Override{}, false, err
	}
	return o, true, nil
}

// ReplaceDomain upserts a single domain set, leaving the other columns
// untouched. Passing nil keys clears the domain back to template
// fallback.
func (r *Repository) ReplaceDomain(ctx context.Context, userID int64, domain catalog.Domain, keys []string) error {
	column, ok := domainColumn(domain)
	if !ok {
		return fmt.Errorf("overrides: unknown domain %q: %w", domain, shared.ErrValidation)
	}
	query := fmt.Sprintf(`INSERT INTO user_permissions (user_id, %s) VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE SET %s = EXCLUDED.%s, updated_at = NOW()`, column, column, column)
	_, err := r.pool.Exec(ctx, query, userID, keys)
	return err
}

// Replace upserts the whole override row, all four domains at once.
func (r *Repository) Replace(ctx context.Context, o Override) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO user_permissions (user_id, menu, function, project, data)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id) DO UPDATE SET menu = EXCLUDED.menu, function = EXCLUDED.function,
project = EXCLUDED.project, data = EXCLUDED.data, updated_at = NOW()`,
		o.UserID, o.Sets.Menu, o.Sets.Function, o.Sets.Project, o.Sets.Data)
	return err
}

// Delete removes a user's override row entirely. Deleting a missing row
// is not an error; the end state is the same.
func (r *Repository) Delete(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_permissions WHERE user_id=$1`, userID)
	return err
}

func domainColumn(d catalog.Domain) (string, bool) {
	switch d {
	case catalog.DomainMenu:
		return "menu", true
	case catalog.DomainFunction:
		return "function", true
	case catalog.DomainProject:
		return "project", true
	case catalog.DomainData:
		return "data", true
	}
	return "", false
}
