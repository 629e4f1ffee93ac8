package changes

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/routewise/routewise/internal/assignments"
	"github.com/routewise/routewise/internal/catalog"
	"github.com/routewise/routewise/internal/overrides"
	"github.com/routewise/routewise/internal/shared"
	"github.com/routewise/routewise/internal/templates"
	"github.com/routewise/routewise/internal/users"
)

// OverridePort reads per-user override rows.
type OverridePort interface {
	Get(ctx context.Context, userID int64) (overrides.Override, bool, error)
}

// UserPort supplies and mutates user records.
type UserPort interface {
	GetUser(ctx context.Context, id int64) (users.User, error)
	UpdateRole(ctx context.Context, id int64, role string) error
	UpdateStatus(ctx context.Context, id int64, active bool) error
}

// AssignmentPort reads and toggles project assignments. The diff needs
// the raw row, not the resolved access: role changes and row presence
// are invisible at the access level.
type AssignmentPort interface {
	GetAssignment(ctx context.Context, userID, projectID int64) (assignments.Assignment, bool, error)
	ToggleAssignment(ctx context.Context, userID, projectID int64, assign bool, role string) error
}

// TemplatePort reads and mutates role templates.
type TemplatePort interface {
	GetTemplate(ctx context.Context, role string) (catalog.KeySets, error)
	RoleExists(ctx context.Context, role string) (bool, error)
	UpsertTemplate(ctx context.Context, role string, domain catalog.Domain, keys []string) error
}

// OverrideWriter applies the override mutation a confirmed set carries.
type OverrideWriter interface {
	ReplaceDomain(ctx context.Context, userID int64, domain catalog.Domain, keys []string) error
}

// AuditSink records confirmed changes.
type AuditSink interface {
	Record(ctx context.Context, change shared.PermissionChange) error
}

// Invalidator drops cached resolutions after a confirmed mutation.
type Invalidator interface {
	Invalidate(ctx context.Context, userIDs ...int64) error
}

// staleAfter is how long a proposed set survives before Sweep discards
// it. Long enough for a human review, short enough that the diff cannot
// rot far from current state.
const staleAfter = 30 * time.Minute

// Service stages permission mutations as reviewable diffs. Nothing
// reaches storage until the actor confirms; a confirm applies the
// mutation and writes one audit entry per change.
type Service struct {
	logger      *slog.Logger
	overrides   OverridePort
	overrideW   OverrideWriter
	users       UserPort
	assignments AssignmentPort
	templates   TemplatePort
	cat         *catalog.Catalog
	audit       AuditSink
	cache       Invalidator

	mu      sync.Mutex
	pending map[uuid.UUID]*Set
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, overridePort OverridePort, overrideWriter OverrideWriter, userPort UserPort, assignmentPort AssignmentPort, templatePort TemplatePort, cat *catalog.Catalog, audit AuditSink, cache Invalidator) *Service {
	return &Service{
		logger:      logger,
		overrides:   overridePort,
		overrideW:   overrideWriter,
		users:       userPort,
		assignments: assignmentPort,
		templates:   templatePort,
		cat:         cat,
		audit:       audit,
		cache:       cache,
		pending:     make(map[uuid.UUID]*Set),
	}
}

// ProposeOverride stages a replacement of one override domain for a
// user. The diff is computed against the current stored override, not
// the effective resolution, so clearing to template fallback shows up
// as its own entry.
func (s *Service) ProposeOverride(ctx context.Context, actor shared.Actor, userID int64, domain catalog.Domain, keys []string) (*Set, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	normalized, err := templates.NormalizeSelection(s.cat, domain, keys)
	if err != nil {
		return nil, err
	}
	current, _, err := s.overrides.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	currentKeys := current.Sets.ForDomain(domain)
	added, removed := diffKeys(currentKeys, normalized)
	if len(added) == 0 && len(removed) == 0 && (currentKeys == nil) == (normalized == nil) {
		return nil, fmt.Errorf("changes: nothing to change: %w", shared.ErrValidation)
	}

	change := Change{
		Kind:        KindUserPermission,
		UserID:      userID,
		Field:       string(domain),
		Old:         renderKeys(currentKeys),
		New:         renderKeys(normalized),
		Description: describeKeyDiff(domain, added, removed, normalized),
	}
	return s.stage(actor, []Change{change}, func(ctx context.Context) error {
		if err := s.overrideW.ReplaceDomain(ctx, userID, domain, normalized); err != nil {
			return err
		}
		s.invalidate(ctx, userID)
		return nil
	}), nil
}

// ProposeTemplate stages a replacement of one domain set on a role
// template. Confirming affects every user inheriting the role.
func (s *Service) ProposeTemplate(ctx context.Context, actor shared.Actor, role string, domain catalog.Domain, keys []string) (*Set, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == templates.AdminRole {
		return nil, templates.ErrAdminImmutable
	}
	current, err := s.templates.GetTemplate(ctx, role)
	if err != nil {
		return nil, err
	}
	normalized, err := templates.NormalizeSelection(s.cat, domain, keys)
	if err != nil {
		return nil, err
	}
	currentKeys := current.ForDomain(domain)
	added, removed := diffKeys(currentKeys, normalized)
	if len(added) == 0 && len(removed) == 0 {
		return nil, fmt.Errorf("changes: nothing to change: %w", shared.ErrValidation)
	}

	change := Change{
		Kind:        KindRoleTemplate,
		Field:       fmt.Sprintf("%s/%s", role, domain),
		Old:         renderKeys(currentKeys),
		New:         renderKeys(normalized),
		Description: fmt.Sprintf("role %q: %s", role, describeKeyDiff(domain, added, removed, normalized)),
	}
	return s.stage(actor, []Change{change}, func(ctx context.Context) error {
		if err := s.templates.UpsertTemplate(ctx, role, domain, normalized); err != nil {
			return err
		}
		// Template edits fan out to every user of the role.
		s.invalidate(ctx)
		return nil
	}), nil
}

// ProposeRoleChange stages moving a user to another role.
func (s *Service) ProposeRoleChange(ctx context.Context, actor shared.Actor, userID int64, role string) (*Set, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return nil, fmt.Errorf("changes: user already has role %q: %w", role, shared.ErrValidation)
	}
	exists, err := s.templates.RoleExists(ctx, role)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("changes: unknown role %q: %w", role, shared.ErrValidation)
	}

	change := Change{
		Kind:        KindUserRole,
		UserID:      userID,
		Field:       "role",
		Old:         user.Role,
		New:         role,
		Description: fmt.Sprintf("move %s from %q to %q", user.Name, user.Role, role),
	}
	return s.stage(actor, []Change{change}, func(ctx context.Context) error {
		if err := s.users.UpdateRole(ctx, userID, role); err != nil {
			return err
		}
		s.invalidate(ctx, userID)
		return nil
	}), nil
}

// ProposeStatusChange stages activating or deactivating a user.
func (s *Service) ProposeStatusChange(ctx context.Context, actor shared.Actor, userID int64, active bool) (*Set, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsActive == active {
		return nil, fmt.Errorf("changes: status unchanged: %w", shared.ErrValidation)
	}

	verb := "deactivate"
	if active {
		verb = "activate"
	}
	change := Change{
		Kind:        KindUserStatus,
		UserID:      userID,
		Field:       "is_active",
		Old:         strconv.FormatBool(user.IsActive),
		New:         strconv.FormatBool(active),
		Description: fmt.Sprintf("%s %s", verb, user.Name),
	}
	return s.stage(actor, []Change{change}, func(ctx context.Context) error {
		if err := s.users.UpdateStatus(ctx, userID, active); err != nil {
			return err
		}
		s.invalidate(ctx, userID)
		return nil
	}), nil
}

// ProposeAssignment stages assigning or restricting one project for a
// user. The diff compares against the stored row, not the resolved
// access: restricting an unassigned project is a real change despite
// default-allow, and so is assigning one, since the explicit row pins
// a project role that later survives on its own.
func (s *Service) ProposeAssignment(ctx context.Context, actor shared.Actor, userID, projectID int64, assign bool, role string) (*Set, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	row, found, err := s.assignments.GetAssignment(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	role = strings.TrimSpace(role)
	if role == "" {
		role = templates.DefaultProjectRole
	}
	if assign {
		if found && row.CanView && row.Role == role {
			return nil, fmt.Errorf("changes: assignment unchanged: %w", shared.ErrValidation)
		}
	} else if found && !row.CanView {
		return nil, fmt.Errorf("changes: assignment unchanged: %w", shared.ErrValidation)
	}

	target := "restricted"
	description := fmt.Sprintf("restrict project %d", projectID)
	if assign {
		target = "assigned as " + role
		description = fmt.Sprintf("assign project %d as %q", projectID, role)
	}
	change := Change{
		Kind:        KindProjectAssignment,
		UserID:      userID,
		Field:       fmt.Sprintf("project/%d", projectID),
		Old:         renderAssignment(found, row),
		New:         target,
		Description: description,
	}
	return s.stage(actor, []Change{change}, func(ctx context.Context) error {
		return s.assignments.ToggleAssignment(ctx, userID, projectID, assign, role)
	}), nil
}

// Get returns a staged set by id. Like every Set leaving the service,
// the result is a detached copy: the stored set keeps changing state
// under the lock while callers marshal theirs.
func (s *Service) Get(id uuid.UUID) (*Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.pending[id]
	if !ok {
		return nil, fmt.Errorf("changes: set %s: %w", id, shared.ErrNotFound)
	}
	return set.snapshot(), nil
}

// stateApplying guards a set whose commit is in flight so concurrent
// confirms cannot double-apply. Never serialized to clients.
const stateApplying State = "applying"

// Confirm applies a staged set. The mutation runs first; only a
// successful apply is audited and finalized, so a failed confirm can be
// retried. Finalized sets stay readable until the sweeper drops them.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Set, error) {
	s.mu.Lock()
	set, ok := s.pending[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("changes: set %s: %w", id, shared.ErrNotFound)
	}
	if set.State != StateProposed {
		s.mu.Unlock()
		return nil, ErrFinalized
	}
	set.State = stateApplying
	s.mu.Unlock()

	if err := set.commit(ctx); err != nil {
		s.mu.Lock()
		set.State = StateProposed
		s.mu.Unlock()
		return nil, err
	}

	s.mu.Lock()
	set.State = StateConfirmed
	confirmed := set.snapshot()
	s.mu.Unlock()

	for _, change := range confirmed.Changes {
		s.recordAudit(ctx, confirmed.ActorID, change)
	}
	s.logger.Info("change set confirmed",
		slog.String("set", id.String()),
		slog.Int64("actor", confirmed.ActorID),
		slog.Int("changes", len(confirmed.Changes)))
	return confirmed, nil
}

// Cancel discards a staged set without applying anything.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.pending[id]
	if !ok {
		return nil, fmt.Errorf("changes: set %s: %w", id, shared.ErrNotFound)
	}
	if set.State != StateProposed {
		return nil, ErrFinalized
	}
	set.State = StateCancelled
	s.logger.Info("change set cancelled", slog.String("set", id.String()))
	return set.snapshot(), nil
}

// Sweep drops sets older than the staleness window, proposed or
// finalized, and returns how many were removed. Invoked periodically by
// the server's sweep ticker.
func (s *Service) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, set := range s.pending {
		if now.Sub(set.CreatedAt) > staleAfter {
			delete(s.pending, id)
			removed++
		}
	}
	return removed
}

func (s *Service) stage(actor shared.Actor, list []Change, commit func(context.Context) error) *Set {
	set := &Set{
		ID:        uuid.New(),
		ActorID:   actor.ID,
		State:     StateProposed,
		Changes:   list,
		CreatedAt: time.Now().UTC(),
		commit:    commit,
	}
	s.mu.Lock()
	s.pending[set.ID] = set
	out := set.snapshot()
	s.mu.Unlock()
	return out
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, change Change) {
	if s.audit == nil {
		return
	}
	entityID := change.Field
	if change.UserID != 0 {
		entityID = strconv.FormatInt(change.UserID, 10)
	}
	err := s.audit.Record(ctx, shared.PermissionChange{
		ActorID:  actorID,
		Action:   string(change.Kind),
		Entity:   "permission_change",
		EntityID: entityID,
		Field:    change.Field,
		Old:      change.Old,
		New:      change.New,
		Note:     change.Description,
	})
	if err != nil {
		s.logger.Warn("audit write failed", slog.Any("error", err))
	}
}

func (s *Service) invalidate(ctx context.Context, userIDs ...int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userIDs...); err != nil {
		s.logger.Warn("cache invalidation failed", slog.Any("error", err))
	}
}

func diffKeys(oldKeys, newKeys []string) (added, removed []string) {
	oldSet := make(map[string]struct{}, len(oldKeys))
	for _, k := range oldKeys {
		oldSet[k] = struct{}{}
	}
	newSet := make(map[string]struct{}, len(newKeys))
	for _, k := range newKeys {
		newSet[k] = struct{}{}
		if _, ok := oldSet[k]; !ok {
			added = append(added, k)
		}
	}
	for _, k := range oldKeys {
		if _, ok := newSet[k]; !ok {
			removed = append(removed, k)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func describeKeyDiff(domain catalog.Domain, added, removed, normalized []string) string {
	var parts []string
	if len(added) > 0 {
		parts = append(parts, "grant "+strings.Join(added, ", "))
	}
	if len(removed) > 0 {
		parts = append(parts, "revoke "+strings.Join(removed, ", "))
	}
	if len(parts) == 0 {
		if normalized == nil {
			return fmt.Sprintf("%s: restore role template", domain)
		}
		return fmt.Sprintf("%s: pin current set as override", domain)
	}
	return fmt.Sprintf("%s: %s", domain, strings.Join(parts, "; "))
}

func renderKeys(keys []string) string {
	if keys == nil {
		return "(role template)"
	}
	if len(keys) == 0 {
		return "(none)"
	}
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)
	return strings.Join(sorted, ", ")
}

func renderAssignment(found bool, row assignments.Assignment) string {
	switch {
	case !found:
		return "default access"
	case !row.CanView:
		return "restricted"
	default:
		return "assigned as " + row.Role
	}
}
