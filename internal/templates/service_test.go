package templates

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/routewise/routewise/internal/catalog"
	"github.com/routewise/routewise/internal/shared"
)

type memoryTemplateRepo struct {
	templates map[string]RoleTemplate
}

func newMemoryTemplateRepo() *memoryTemplateRepo {
	return &memoryTemplateRepo{templates: make(map[string]RoleTemplate)}
}

func (r *memoryTemplateRepo) Get(ctx context.Context, role string) (RoleTemplate, error) {
	tpl, ok := r.templates[role]
	if !ok {
		return RoleTemplate{}, fmt.Errorf("templates: role %q: %w", role, shared.ErrNotFound)
	}
	return tpl, nil
}

func (r *memoryTemplateRepo) List(ctx context.Context) ([]RoleTemplate, error) {
	out := make([]RoleTemplate, 0, len(r.templates))
	for _, tpl := range r.templates {
		out = append(out, tpl)
	}
	return out, nil
}

func (r *memoryTemplateRepo) Insert(ctx context.Context, tpl RoleTemplate) error {
	if _, exists := r.templates[tpl.Role]; exists {
		return fmt.Errorf("templates: role %q: %w", tpl.Role, shared.ErrDuplicate)
	}
	r.templates[tpl.Role] = tpl
	return nil
}

func (r *memoryTemplateRepo) UpsertDomain(ctx context.Context, role string, domain catalog.Domain, keys []string) error {
	tpl := r.templates[role]
	tpl.Role = role
	tpl.Sets.SetDomain(domain, keys)
	r.templates[role] = tpl
	return nil
}

func (r *memoryTemplateRepo) Delete(ctx context.Context, role string) error {
	if _, ok := r.templates[role]; !ok {
		return fmt.Errorf("templates: role %q: %w", role, shared.ErrNotFound)
	}
	delete(r.templates, role)
	return nil
}

func newTestService(t *testing.T) (*Service, *memoryTemplateRepo) {
	t.Helper()
	repo := newMemoryTemplateRepo()
	return NewService(repo, catalog.Default()), repo
}

func TestGetTemplateAdminReturnsFullCatalog(t *testing.T) {
	svc, repo := newTestService(t)
	// A stored restricted admin row must be ignored.
	repo.templates[AdminRole] = RoleTemplate{Role: AdminRole, Sets: catalog.KeySets{Menu: []string{"dashboard"}}}

	sets, err := svc.GetTemplate(context.Background(), "admin")
	require.NoError(t, err)
	require.Equal(t, catalog.Default().Keys(catalog.DomainMenu), sets.Menu)
	require.Equal(t, catalog.Default().Keys(catalog.DomainData), sets.Data)
}

func TestGetTemplateMissingRole(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GetTemplate(context.Background(), "ghost")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpsertTemplateRejectsAdmin(t *testing.T) {
	svc, repo := newTestService(t)
	err := svc.UpsertTemplate(context.Background(), "Admin", catalog.DomainMenu, []string{"dashboard"})
	require.ErrorIs(t, err, shared.ErrPermissionDenied)
	require.Empty(t, repo.templates)
}

func TestUpsertTemplateNormalizesMenuAncestors(t *testing.T) {
	svc, repo := newTestService(t)
	err := svc.UpsertTemplate(context.Background(), "operator", catalog.DomainMenu, []string{"dashboard.transport"})
	require.NoError(t, err)
	require.Equal(t, []string{"dashboard", "dashboard.transport"}, repo.templates["operator"].Sets.Menu)
}

func TestUpsertTemplateRejectsUnknownKey(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.UpsertTemplate(context.Background(), "operator", catalog.DomainData, []string{"data.galaxy"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRoleDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateRole(context.Background(), "operator", "Operator", catalog.KeySets{})
	require.NoError(t, err)
	_, err = svc.CreateRole(context.Background(), "operator", "Operator", catalog.KeySets{})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestCreateRoleRejectsAdminKey(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateRole(context.Background(), "admin", "Administrator", catalog.KeySets{})
	require.ErrorIs(t, err, shared.ErrPermissionDenied)
}

func TestDeriveRoleFiltersPrefixes(t *testing.T) {
	svc, _ := newTestService(t)

	derived, err := svc.DeriveRole(context.Background(), "admin", []string{"settings"})
	require.NoError(t, err)

	full := catalog.Default().Keys(catalog.DomainMenu)
	settingsCount := 0
	for _, key := range full {
		if len(key) >= 8 && key[:8] == "settings" {
			settingsCount++
		}
	}
	require.Len(t, derived.Menu, len(full)-settingsCount)
	for _, key := range derived.Menu {
		require.NotContains(t, key, "settings")
	}
	// Other domains untouched by a prefix that matches nothing there.
	require.Equal(t, catalog.Default().Keys(catalog.DomainData), derived.Data)
}

func TestDeriveRoleIsPure(t *testing.T) {
	svc, repo := newTestService(t)
	_, err := svc.DeriveRole(context.Background(), "admin", []string{"settings"})
	require.NoError(t, err)
	require.Empty(t, repo.templates, "derive must not persist anything")
}

func TestDeleteRoleRejectsAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	require.ErrorIs(t, svc.DeleteRole(context.Background(), "admin"), shared.ErrPermissionDenied)
}
