package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/singleflight"

	"github.com/routewise/routewise/internal/catalog"
	"github.com/routewise/routewise/internal/overrides"
	"github.com/routewise/routewise/internal/shared"
	"github.com/routewise/routewise/internal/users"
)

// Status classifies a catalog key against a user's resolution.
type Status string

const (
	// StatusInherited marks keys granted by the role template. A key
	// present in both template and override still reports inherited:
	// removing the override would not revoke it.
	StatusInherited Status = "inherited"
	// StatusCustom marks keys granted only by the user override.
	StatusCustom Status = "custom"
	// StatusNone marks keys the user does not hold.
	StatusNone Status = "none"
)

// AnnotatedItem pairs a catalog entry with its grant status.
type AnnotatedItem struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Parent string `json:"parent,omitempty"`
	Status Status `json:"status"`
}

// DomainResult is the resolution of a single permission domain.
type DomainResult struct {
	Effective []string        `json:"effective"`
	Custom    bool            `json:"custom"`
	Items     []AnnotatedItem `json:"items"`
}

// Effective is the full per-user resolution across all four domains.
type Effective struct {
	UserID  int64                           `json:"user_id"`
	Role    string                          `json:"role"`
	Domains map[catalog.Domain]DomainResult `json:"domains"`
}

// UserPort supplies user records.
type UserPort interface {
	GetUser(ctx context.Context, id int64) (users.User, error)
}

// TemplatePort supplies role template sets, with the admin special case
// applied.
type TemplatePort interface {
	GetTemplate(ctx context.Context, role string) (catalog.KeySets, error)
}

// OverridePort supplies user override rows.
type OverridePort interface {
	Get(ctx context.Context, userID int64) (overrides.Override, bool, error)
}

// Service computes effective permissions. It is stateless between calls;
// the cache and singleflight group only deduplicate work.
type Service struct {
	logger    *slog.Logger
	users     UserPort
	templates TemplatePort
	overrides OverridePort
	cat       *catalog.Catalog
	cache     *Cache
	sf        singleflight.Group
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, userPort UserPort, templatePort TemplatePort, overridePort OverridePort, cat *catalog.Catalog, cache *Cache) *Service {
	return &Service{
		logger:    logger,
		users:     userPort,
		templates: templatePort,
		overrides: overridePort,
		cat:       cat,
		cache:     cache,
	}
}

// ResolveEffective computes the effective permission set per domain for a
// user, with per-key status annotations. Concurrent calls for the same
// user share one computation.
func (s *Service) ResolveEffective(ctx context.Context, userID int64) (Effective, error) {
	if cached, ok := s.cache.Get(ctx, userID); ok {
		return cached, nil
	}
	v, err, _ := s.sf.Do(fmt.Sprintf("resolve:%d", userID), func() (any, error) {
		eff, err := s.resolve(ctx, userID)
		if err != nil {
			return Effective{}, err
		}
		s.cache.Put(ctx, eff)
		return eff, nil
	})
	if err != nil {
		return Effective{}, err
	}
	return v.(Effective), nil
}

func (s *Service) resolve(ctx context.Context, userID int64) (Effective, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return Effective{}, err
	}

	template, err := s.templates.GetTemplate(ctx, user.Role)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return Effective{}, err
		}
		// A role without a template degrades to "no permissions" so the
		// other domains still resolve; it never blocks the whole call.
		s.logger.Warn("role has no template", slog.String("role", user.Role), slog.Int64("user", userID))
		template = catalog.KeySets{}
	}

	override, _, err := s.overrides.Get(ctx, userID)
	if err != nil {
		return Effective{}, err
	}

	eff := Effective{
		UserID:  userID,
		Role:    user.Role,
		Domains: make(map[catalog.Domain]DomainResult, 4),
	}
	for _, domain := range catalog.AllDomains() {
		eff.Domains[domain] = s.resolveDomain(domain, template.ForDomain(domain), override.Sets.ForDomain(domain))
	}
	return eff, nil
}

// resolveDomain applies the replace-not-merge rule: a non-nil override
// set is used verbatim, otherwise the template set. It never unions the
// two.
func (s *Service) resolveDomain(domain catalog.Domain, templateKeys, overrideKeys []string) DomainResult {
	custom := overrideKeys != nil

	// Stored sets are normalized on write; re-normalizing on read
	// tolerates legacy rows that predate ancestor closure. Annotation
	// works off the same normalized sets, otherwise a key present only
	// through its closure would show in Effective yet report none.
	templateKeys = s.normalizeRead(domain, templateKeys)
	overrideKeys = s.normalizeRead(domain, overrideKeys)

	effective := templateKeys
	if custom {
		effective = overrideKeys
	}
	if effective == nil {
		effective = []string{}
	}
	sort.Strings(effective)

	items := s.cat.List(domain)
	annotated := make([]AnnotatedItem, 0, len(items))
	for _, it := range items {
		status := StatusNone
		switch {
		case catalog.Contains(templateKeys, it.Key):
			status = StatusInherited
		case catalog.Contains(overrideKeys, it.Key):
			status = StatusCustom
		}
		annotated = append(annotated, AnnotatedItem{Key: it.Key, Label: it.Label, Parent: it.Parent, Status: status})
	}
	return DomainResult{Effective: effective, Custom: custom, Items: annotated}
}

// normalizeRead applies the domain's write-time normalization to a
// stored set. Nil stays nil so template fallback detection still works.
func (s *Service) normalizeRead(domain catalog.Domain, keys []string) []string {
	if domain == catalog.DomainMenu {
		return s.cat.WithAncestors(domain, keys)
	}
	return catalog.Dedup(keys)
}
