package templates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/routewise/routewise/internal/catalog"
	"github.com/routewise/routewise/internal/shared"
)

// ErrAdminImmutable signals an attempt to edit or delete the admin
// template. Surfaced to the caller, never silently applied.
var ErrAdminImmutable = fmt.Errorf("templates: admin role is not editable: %w", shared.ErrPermissionDenied)

// RepositoryPort defines data access methods for role templates.
type RepositoryPort interface {
	Get(ctx context.Context, role string) (RoleTemplate, error)
	List(ctx context.Context) ([]RoleTemplate, error)
	Insert(ctx context.Context, tpl RoleTemplate) error
	UpsertDomain(ctx context.Context, role string, domain catalog.Domain, keys []string) error
	Delete(ctx context.Context, role string) error
}

// Service orchestrates role template operations.
type Service struct {
	repo RepositoryPort
	cat  *catalog.Catalog
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, cat *catalog.Catalog) *Service {
	return &Service{repo: repo, cat: cat}
}

// GetTemplate returns the per-domain default sets for a role. The admin
// role is special-cased to the full catalog of every domain and is never
// read from storage, so a stored restricted admin row can never win.
func (s *Service) GetTemplate(ctx context.Context, role string) (catalog.KeySets, error) {
	role = normalizeRole(role)
	if role == "" {
		return catalog.KeySets{}, fmt.Errorf("templates: role key required: %w", shared.ErrValidation)
	}
	if role == AdminRole {
		return s.fullCatalogSets(), nil
	}
	tpl, err := s.repo.Get(ctx, role)
	if err != nil {
		return catalog.KeySets{}, err
	}
	return tpl.Sets, nil
}

// ListRoles returns every stored role template. The admin role is
// reported with its computed maximal sets.
func (s *Service) ListRoles(ctx context.Context) ([]RoleTemplate, error) {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RoleTemplate, 0, len(stored)+1)
	out = append(out, RoleTemplate{Role: AdminRole, Label: "Administrator", Sets: s.fullCatalogSets()})
	for _, tpl := range stored {
		if tpl.Role == AdminRole {
			// Legacy rows for admin are ignored, not served.
			continue
		}
		out = append(out, tpl)
	}
	return out, nil
}

// UpsertTemplate replaces one domain set of a role template. Menu
// selections are closed over their catalog ancestors before persisting.
func (s *Service) UpsertTemplate(ctx context.Context, role string, domain catalog.Domain, keys []string) error {
	role = normalizeRole(role)
	if role == AdminRole {
		return ErrAdminImmutable
	}
	if role == "" {
		return fmt.Errorf("templates: role key required: %w", shared.ErrValidation)
	}
	normalized, err := s.normalizeSelection(domain, keys)
	if err != nil {
		return err
	}
	return s.repo.UpsertDomain(ctx, role, domain, normalized)
}

// CreateRole stores a brand-new role template.
func (s *Service) CreateRole(ctx context.Context, role, label string, sets catalog.KeySets) (RoleTemplate, error) {
	role = normalizeRole(role)
	if role == "" {
		return RoleTemplate{}, fmt.Errorf("templates: role key required: %w", shared.ErrValidation)
	}
	if role == AdminRole {
		return RoleTemplate{}, ErrAdminImmutable
	}
	normalized := catalog.KeySets{}
	for _, domain := range catalog.AllDomains() {
		keys, err := s.normalizeSelection(domain, sets.ForDomain(domain))
		if err != nil {
			return RoleTemplate{}, err
		}
		normalized.SetDomain(domain, keys)
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = role
	}
	tpl := RoleTemplate{Role: role, Label: label, Sets: normalized}
	if err := s.repo.Insert(ctx, tpl); err != nil {
		return RoleTemplate{}, err
	}
	return tpl, nil
}

// DeleteRole removes a stored role template. The admin role cannot be
// deleted.
func (s *Service) DeleteRole(ctx context.Context, role string) error {
	role = normalizeRole(role)
	if role == AdminRole {
		return ErrAdminImmutable
	}
	return s.repo.Delete(ctx, role)
}

// DeriveRole copies a source role's sets and drops every key matching one
// of the exclusion prefixes. Pure set filtering; nothing is persisted
// until the caller passes the result to CreateRole.
func (s *Service) DeriveRole(ctx context.Context, sourceRole string, excludePrefixes []string) (catalog.KeySets, error) {
	source, err := s.GetTemplate(ctx, sourceRole)
	if err != nil {
		return catalog.KeySets{}, err
	}
	prefixes := make([]string, 0, len(excludePrefixes))
	for _, p := range excludePrefixes {
		p = strings.TrimSpace(p)
		if p != "" {
			prefixes = append(prefixes, p)
		}
	}
	derived := catalog.KeySets{}
	for _, domain := range catalog.AllDomains() {
		keys := source.ForDomain(domain)
		if keys == nil {
			continue
		}
		kept := make([]string, 0, len(keys))
		for _, key := range keys {
			if !matchesAnyPrefix(key, prefixes) {
				kept = append(kept, key)
			}
		}
		derived.SetDomain(domain, kept)
	}
	return derived, nil
}

// RoleExists reports whether a role key resolves to a template.
func (s *Service) RoleExists(ctx context.Context, role string) (bool, error) {
	_, err := s.GetTemplate(ctx, role)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Service) normalizeSelection(domain catalog.Domain, keys []string) ([]string, error) {
	return NormalizeSelection(s.cat, domain, keys)
}

// NormalizeSelection validates every key against the domain catalog and
// applies the write-path normalization: menu selections gain their
// ancestor closure, the other domains are deduplicated. Unknown keys are
// rejected rather than silently dropped, so a typo in the console cannot
// quietly shrink a grant.
func NormalizeSelection(cat *catalog.Catalog, domain catalog.Domain, keys []string) ([]string, error) {
	if keys == nil {
		return nil, nil
	}
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if !cat.Has(domain, key) {
			return nil, fmt.Errorf("permissions: unknown %s key %q: %w", domain, key, shared.ErrValidation)
		}
	}
	if domain == catalog.DomainMenu {
		return cat.WithAncestors(domain, keys), nil
	}
	return catalog.Dedup(keys), nil
}

func (s *Service) fullCatalogSets() catalog.KeySets {
	var sets catalog.KeySets
	for _, domain := range catalog.AllDomains() {
		sets.SetDomain(domain, s.cat.Keys(domain))
	}
	return sets
}

func matchesAnyPrefix(key string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
