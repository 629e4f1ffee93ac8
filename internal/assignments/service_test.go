package assignments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/routewise/routewise/internal/shared"
	"github.com/routewise/routewise/internal/templates"
)

type pairKey struct {
	userID    int64
	projectID int64
}

type memoryAssignmentRepo struct {
	rows      map[pairKey]Assignment
	failOn    map[int64]error
	deleteAll int
}

func newMemoryAssignmentRepo() *memoryAssignmentRepo {
	return &memoryAssignmentRepo{rows: make(map[pairKey]Assignment), failOn: make(map[int64]error)}
}

func (r *memoryAssignmentRepo) Get(ctx context.Context, userID, projectID int64) (Assignment, bool, error) {
	row, ok := r.rows[pairKey{userID, projectID}]
	return row, ok, nil
}

func (r *memoryAssignmentRepo) List(ctx context.Context, userID int64) ([]Assignment, error) {
	var out []Assignment
	for key, row := range r.rows {
		if key.userID == userID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memoryAssignmentRepo) Upsert(ctx context.Context, a Assignment) error {
	if err := r.failOn[a.ProjectID]; err != nil {
		return err
	}
	r.rows[pairKey{a.UserID, a.ProjectID}] = a
	return nil
}

func (r *memoryAssignmentRepo) DeleteAll(ctx context.Context, userID int64) error {
	for key := range r.rows {
		if key.userID == userID {
			delete(r.rows, key)
		}
	}
	r.deleteAll++
	return nil
}

func TestHasAccessDefaultAllow(t *testing.T) {
	svc := NewService(newMemoryAssignmentRepo(), nil)

	access, err := svc.HasAccess(context.Background(), 1, 100)
	require.NoError(t, err)
	require.True(t, access.CanView)
	require.True(t, access.CanEdit)
	require.False(t, access.CanDelete)
	require.Equal(t, templates.DefaultProjectRole, access.Role)
}

func TestHasAccessExplicitRestriction(t *testing.T) {
	repo := newMemoryAssignmentRepo()
	svc := NewService(repo, nil)

	require.NoError(t, svc.ToggleAssignment(context.Background(), 1, 100, false, ""))

	access, err := svc.HasAccess(context.Background(), 1, 100)
	require.NoError(t, err)
	require.False(t, access.CanView)
	require.False(t, access.CanEdit)
	require.False(t, access.CanDelete)

	// The restriction row stays in place, it is never deleted.
	_, found, err := repo.Get(context.Background(), 1, 100)
	require.NoError(t, err)
	require.True(t, found)
}

func TestHasAccessRestrictionMasksStoredFlags(t *testing.T) {
	repo := newMemoryAssignmentRepo()
	repo.rows[pairKey{1, 100}] = Assignment{UserID: 1, ProjectID: 100, CanView: false, CanEdit: true, CanDelete: true, Role: "lead"}
	svc := NewService(repo, nil)

	access, err := svc.HasAccess(context.Background(), 1, 100)
	require.NoError(t, err)
	require.False(t, access.CanView)
	require.False(t, access.CanEdit)
	require.False(t, access.CanDelete)
}

func TestToggleAssignmentAssignDefaults(t *testing.T) {
	repo := newMemoryAssignmentRepo()
	svc := NewService(repo, nil)

	require.NoError(t, svc.ToggleAssignment(context.Background(), 1, 100, true, "lead"))

	row := repo.rows[pairKey{1, 100}]
	require.True(t, row.CanView)
	require.True(t, row.CanEdit)
	require.False(t, row.CanDelete)
	require.Equal(t, "lead", row.Role)

	// Blank role falls back to the default project role.
	require.NoError(t, svc.ToggleAssignment(context.Background(), 1, 101, true, "  "))
	require.Equal(t, templates.DefaultProjectRole, repo.rows[pairKey{1, 101}].Role)
}

func TestBatchAssignReportsPerItemFailures(t *testing.T) {
	repo := newMemoryAssignmentRepo()
	repo.failOn[101] = errors.New("deadlock detected")
	svc := NewService(repo, nil)

	result, err := svc.BatchAssign(context.Background(), 1, []int64{100, 101, 102}, "lead")

	var partial *shared.PartialBatchError
	require.ErrorAs(t, err, &partial)
	require.Equal(t, []int64{100, 102}, result.Succeeded)
	require.Len(t, result.Failed, 1)
	require.Equal(t, int64(101), result.Failed[0].ID)

	// The succeeded half stays written: retries target just the failure.
	_, found, _ := repo.Get(context.Background(), 1, 100)
	require.True(t, found)
}

func TestBatchRestrictAllSucceed(t *testing.T) {
	repo := newMemoryAssignmentRepo()
	svc := NewService(repo, nil)

	result, err := svc.BatchRestrict(context.Background(), 1, []int64{100, 101})
	require.NoError(t, err)
	require.True(t, result.Ok())
	require.Len(t, result.Succeeded, 2)

	access, _ := svc.HasAccess(context.Background(), 1, 100)
	require.False(t, access.CanView)
}

func TestBatchAssignRejectsEmptySet(t *testing.T) {
	svc := NewService(newMemoryAssignmentRepo(), nil)
	_, err := svc.BatchAssign(context.Background(), 1, nil, "lead")
	require.ErrorIs(t, err, shared.ErrValidation)
}
