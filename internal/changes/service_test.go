package changes

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/routewise/routewise/internal/assignments"
	"github.com/routewise/routewise/internal/catalog"
	"github.com/routewise/routewise/internal/overrides"
	"github.com/routewise/routewise/internal/shared"
	"github.com/routewise/routewise/internal/users"
)

type memoryState struct {
	users       map[int64]users.User
	overrides   map[int64]overrides.Override
	assignments map[[2]int64]assignments.Assignment
	templates   map[string]catalog.KeySets
}

func newMemoryState() *memoryState {
	return &memoryState{
		users:       make(map[int64]users.User),
		overrides:   make(map[int64]overrides.Override),
		assignments: make(map[[2]int64]assignments.Assignment),
		templates:   make(map[string]catalog.KeySets),
	}
}

func (m *memoryState) Get(ctx context.Context, userID int64) (overrides.Override, bool, error) {
	o, ok := m.overrides[userID]
	return o, ok, nil
}

func (m *memoryState) ReplaceDomain(ctx context.Context, userID int64, domain catalog.Domain, keys []string) error {
	o := m.overrides[userID]
	o.UserID = userID
	o.Sets.SetDomain(domain, keys)
	m.overrides[userID] = o
	return nil
}

func (m *memoryState) GetUser(ctx context.Context, id int64) (users.User, error) {
	u, ok := m.users[id]
	if !ok {
		return users.User{}, shared.ErrNotFound
	}
	return u, nil
}

func (m *memoryState) UpdateRole(ctx context.Context, id int64, role string) error {
	u := m.users[id]
	u.Role = role
	m.users[id] = u
	return nil
}

func (m *memoryState) UpdateStatus(ctx context.Context, id int64, active bool) error {
	u := m.users[id]
	u.IsActive = active
	m.users[id] = u
	return nil
}

func (m *memoryState) GetAssignment(ctx context.Context, userID, projectID int64) (assignments.Assignment, bool, error) {
	row, ok := m.assignments[[2]int64{userID, projectID}]
	return row, ok, nil
}

func (m *memoryState) ToggleAssignment(ctx context.Context, userID, projectID int64, assign bool, role string) error {
	m.assignments[[2]int64{userID, projectID}] = assignments.Assignment{
		UserID: userID, ProjectID: projectID,
		CanView: assign, CanEdit: assign, Role: role,
	}
	return nil
}

func (m *memoryState) GetTemplate(ctx context.Context, role string) (catalog.KeySets, error) {
	sets, ok := m.templates[role]
	if !ok {
		return catalog.KeySets{}, shared.ErrNotFound
	}
	return sets, nil
}

func (m *memoryState) RoleExists(ctx context.Context, role string) (bool, error) {
	_, ok := m.templates[role]
	return ok, nil
}

func (m *memoryState) UpsertTemplate(ctx context.Context, role string, domain catalog.Domain, keys []string) error {
	sets := m.templates[role]
	sets.SetDomain(domain, keys)
	m.templates[role] = sets
	return nil
}

type recordingAudit struct {
	logs []shared.PermissionChange
}

func (a *recordingAudit) Record(ctx context.Context, change shared.PermissionChange) error {
	a.logs = append(a.logs, change)
	return nil
}

func newTestService(state *memoryState, audit *recordingAudit) *Service {
	var sink AuditSink
	if audit != nil {
		sink = audit
	}
	return NewService(slog.New(slog.DiscardHandler), state, state, state, state, state, catalog.Default(), sink, nil)
}

var testActor = shared.Actor{ID: 9, Name: "ops"}

func TestProposeOverrideStagesWithoutWriting(t *testing.T) {
	state := newMemoryState()
	state.users[1] = users.User{ID: 1, Name: "Jo", Role: "operator"}
	svc := newTestService(state, nil)

	set, err := svc.ProposeOverride(context.Background(), testActor, 1, catalog.DomainMenu, []string{"contracts.list"})
	require.NoError(t, err)
	require.Equal(t, StateProposed, set.State)
	require.Len(t, set.Changes, 1)
	require.Equal(t, KindUserPermission, set.Changes[0].Kind)

	// Nothing is persisted until the set is confirmed.
	require.Empty(t, state.overrides)
}

func TestConfirmAppliesAndAudits(t *testing.T) {
	state := newMemoryState()
	state.users[1] = users.User{ID: 1, Name: "Jo", Role: "operator"}
	audit := &recordingAudit{}
	svc := newTestService(state, audit)

	set, err := svc.ProposeOverride(context.Background(), testActor, 1, catalog.DomainMenu, []string{"contracts.list"})
	require.NoError(t, err)

	confirmed, err := svc.Confirm(context.Background(), set.ID)
	require.NoError(t, err)
	require.Equal(t, StateConfirmed, confirmed.State)

	// The menu override includes the ancestor closure.
	stored := state.overrides[1]
	require.ElementsMatch(t, []string{"contracts", "contracts.list"}, stored.Sets.Menu)

	require.Len(t, audit.logs, 1)
	require.Equal(t, int64(9), audit.logs[0].ActorID)
	require.Equal(t, string(KindUserPermission), audit.logs[0].Action)
}

func TestConfirmTwiceIsRejected(t *testing.T) {
	state := newMemoryState()
	state.users[1] = users.User{ID: 1, Role: "operator"}
	svc := newTestService(state, nil)

	set, err := svc.ProposeOverride(context.Background(), testActor, 1, catalog.DomainData, []string{"data.own"})
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), set.ID)
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), set.ID)
	require.ErrorIs(t, err, ErrFinalized)

	// The confirmed set stays readable until the sweeper drops it.
	got, err := svc.Get(set.ID)
	require.NoError(t, err)
	require.Equal(t, StateConfirmed, got.State)
}

func TestCancelDiscardsWithoutWriting(t *testing.T) {
	state := newMemoryState()
	state.users[1] = users.User{ID: 1, Role: "operator"}
	svc := newTestService(state, nil)

	set, err := svc.ProposeOverride(context.Background(), testActor, 1, catalog.DomainData, []string{"data.team"})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), set.ID)
	require.NoError(t, err)
	require.Equal(t, StateCancelled, cancelled.State)
	require.Empty(t, state.overrides)

	_, err = svc.Confirm(context.Background(), set.ID)
	require.ErrorIs(t, err, ErrFinalized)
}

func TestProposeOverrideRejectsUnknownKey(t *testing.T) {
	state := newMemoryState()
	state.users[1] = users.User{ID: 1, Role: "operator"}
	svc := newTestService(state, nil)

	_, err := svc.ProposeOverride(context.Background(), testActor, 1, catalog.DomainMenu, []string{"ghost.page"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestProposeRoleChangeDiff(t *testing.T) {
	state := newMemoryState()
	state.users[1] = users.User{ID: 1, Name: "Jo", Role: "operator"}
	state.templates["dispatcher"] = catalog.KeySets{}
	svc := newTestService(state, nil)

	set, err := svc.ProposeRoleChange(context.Background(), testActor, 1, "dispatcher")
	require.NoError(t, err)
	require.Equal(t, "operator", set.Changes[0].Old)
	require.Equal(t, "dispatcher", set.Changes[0].New)

	_, err = svc.Confirm(context.Background(), set.ID)
	require.NoError(t, err)
	require.Equal(t, "dispatcher", state.users[1].Role)
}

func TestProposeRoleChangeRejectsNoop(t *testing.T) {
	state := newMemoryState()
	state.users[1] = users.User{ID: 1, Role: "operator"}
	svc := newTestService(state, nil)

	_, err := svc.ProposeRoleChange(context.Background(), testActor, 1, "operator")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestProposeAssignmentOnDefaultAllowProject(t *testing.T) {
	state := newMemoryState()
	state.users[1] = users.User{ID: 1, Role: "operator"}
	svc := newTestService(state, nil)

	// Restricting an unassigned project is a visible change even though
	// no row exists yet.
	set, err := svc.ProposeAssignment(context.Background(), testActor, 1, 100, false, "")
	require.NoError(t, err)
	require.Equal(t, "default access", set.Changes[0].Old)
	require.Equal(t, "restricted", set.Changes[0].New)

	// So is an explicit assignment: it materializes the row that pins
	// the project role, even at the default role.
	set, err = svc.ProposeAssignment(context.Background(), testActor, 1, 100, true, "")
	require.NoError(t, err)
	require.Equal(t, "default access", set.Changes[0].Old)
	require.Equal(t, "assigned as member", set.Changes[0].New)

	_, err = svc.Confirm(context.Background(), set.ID)
	require.NoError(t, err)
	stored := state.assignments[[2]int64{1, 100}]
	require.True(t, stored.CanView)
	require.Equal(t, "member", stored.Role)
}

func TestProposeAssignmentRoleChange(t *testing.T) {
	state := newMemoryState()
	state.users[1] = users.User{ID: 1, Role: "operator"}
	state.assignments[[2]int64{1, 100}] = assignments.Assignment{
		UserID: 1, ProjectID: 100, Role: "lead", CanView: true, CanEdit: true,
	}
	svc := newTestService(state, nil)

	// Re-assigning with a different role is a change in its own right.
	set, err := svc.ProposeAssignment(context.Background(), testActor, 1, 100, true, "member")
	require.NoError(t, err)
	require.Equal(t, "assigned as lead", set.Changes[0].Old)
	require.Equal(t, "assigned as member", set.Changes[0].New)

	_, err = svc.Confirm(context.Background(), set.ID)
	require.NoError(t, err)
	require.Equal(t, "member", state.assignments[[2]int64{1, 100}].Role)
}

func TestProposeAssignmentRejectsNoop(t *testing.T) {
	state := newMemoryState()
	state.users[1] = users.User{ID: 1, Role: "operator"}
	state.assignments[[2]int64{1, 100}] = assignments.Assignment{
		UserID: 1, ProjectID: 100, Role: "member", CanView: true, CanEdit: true,
	}
	state.assignments[[2]int64{1, 200}] = assignments.Assignment{
		UserID: 1, ProjectID: 200, Role: "member",
	}
	svc := newTestService(state, nil)

	// Same role on an already-assigned project.
	_, err := svc.ProposeAssignment(context.Background(), testActor, 1, 100, true, "member")
	require.ErrorIs(t, err, shared.ErrValidation)

	// Restricting an already-restricted project.
	_, err = svc.ProposeAssignment(context.Background(), testActor, 1, 200, false, "")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestProposeTemplateRejectsAdmin(t *testing.T) {
	svc := newTestService(newMemoryState(), nil)
	_, err := svc.ProposeTemplate(context.Background(), testActor, "admin", catalog.DomainMenu, []string{"dashboard"})
	require.ErrorIs(t, err, shared.ErrPermissionDenied)
}

func TestSweepDropsStaleSets(t *testing.T) {
	state := newMemoryState()
	state.users[1] = users.User{ID: 1, Role: "operator"}
	svc := newTestService(state, nil)

	set, err := svc.ProposeOverride(context.Background(), testActor, 1, catalog.DomainData, []string{"data.own"})
	require.NoError(t, err)

	require.Equal(t, 0, svc.Sweep(time.Now()))
	require.Equal(t, 1, svc.Sweep(time.Now().Add(time.Hour)))

	_, err = svc.Get(set.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestReturnedSetsAreDetachedCopies(t *testing.T) {
	state := newMemoryState()
	state.users[1] = users.User{ID: 1, Role: "operator"}
	svc := newTestService(state, nil)

	set, err := svc.ProposeOverride(context.Background(), testActor, 1, catalog.DomainData, []string{"data.own"})
	require.NoError(t, err)

	// Mutating the returned copy must not touch the staged set.
	set.State = StateCancelled
	set.Changes[0].New = "tampered"

	got, err := svc.Get(set.ID)
	require.NoError(t, err)
	require.Equal(t, StateProposed, got.State)
	require.NotEqual(t, "tampered", got.Changes[0].New)

	confirmed, err := svc.Confirm(context.Background(), set.ID)
	require.NoError(t, err)
	require.Equal(t, StateConfirmed, confirmed.State)
}

func TestGetUnknownSet(t *testing.T) {
	svc := newTestService(newMemoryState(), nil)
	_, err := svc.Get(uuid.New())
	require.ErrorIs(t, err, shared.ErrNotFound)
}
