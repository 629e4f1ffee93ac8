package templates

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/routewise/routewise/internal/catalog"
	"github.com/routewise/routewise/internal/shared"
)

// Repository provides PostgreSQL backed persistence over
// role_permission_templates.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const templateColumns = `role, label, menu, function, project, data, created_at, updated_at`

// Get fetches the template row for a role.
func (r *Repository) Get(ctx context.Context, role string) (RoleTemplate, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+templateColumns+` FROM role_permission_templates WHERE role=$1`, role)
	tpl, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RoleTemplate{}, fmt.Errorf("templates: role %q: %w", role, shared.ErrNotFound)
		}
		return RoleTemplate{}, err
	}
	return tpl, nil
}

// List returns every stored template ordered by role key.
func (r *Repository) List(ctx context.Context) ([]RoleTemplate, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+templateColumns+` FROM role_permission_templates ORDER BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RoleTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Insert creates a new template row. A duplicate role key maps to
// shared.ErrDuplicate.
func (r *Repository) Insert(ctx context.Context, tpl RoleTemplate) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO role_permission_templates (role, label, menu, function, project, data)
VALUES ($1, $2, $3, $4, $5, $6)`,
		tpl.Role, tpl.Label, tpl.Sets.Menu, tpl.Sets.Function, tpl.Sets.Project, tpl.Sets.Data)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("templates: role %q: %w", tpl.Role, shared.ErrDuplicate)
		}
		return err
	}
	return nil
}

// UpsertDomain replaces one domain set of a role template, creating the
// row when missing.
func (r *Repository) UpsertDomain(ctx context.Context, role string, domain catalog.Domain, keys []string) error {
	column, ok := domainColumn(domain)
	if !ok {
		return fmt.Errorf("templates: unknown domain %q: %w", domain, shared.ErrValidation)
	}
	query := fmt.Sprintf(`INSERT INTO role_permission_templates (role, label, %s) VALUES ($1, $1, $2)
ON CONFLICT (role) DO UPDATE SET %s = EXCLUDED.%s, updated_at = NOW()`, column, column, column)
	_, err := r.pool.Exec(ctx, query, role, keys)
	return err
}

// Delete removes a template row.
func (r *Repository) Delete(ctx context.Context, role string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM role_permission_templates WHERE role=$1`, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("templates: role %q: %w", role, shared.ErrNotFound)
	}
	return nil
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

func scanTemplate(row pgx.Row) (RoleTemplate, error) {
	var tpl RoleTemplate
	err := row.Scan(&tpl.Role, &tpl.Label, &tpl.Sets.Menu, &tpl.Sets.Function, &tpl.Sets.Project, &tpl.Sets.Data, &tpl.CreatedAt, &tpl.UpdatedAt)
	if err != nil {
		return RoleTemplate{}, err
	}
	return tpl, nil
}
