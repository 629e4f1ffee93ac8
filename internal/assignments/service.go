package assignments

import (
	"context"
	"fmt"
	"strings"

	"github.com/routewise/routewise/internal/shared"
	"github.com/routewise/routewise/internal/templates"
)

// RepositoryPort defines data access methods for project assignments.
type RepositoryPort interface {
	Get(ctx context.Context, userID, projectID int64) (Assignment, bool, error)
	List(ctx context.Context, userID int64) ([]Assignment, error)
	Upsert(ctx context.Context, a Assignment) error
	DeleteAll(ctx context.Context, userID int64) error
}

// Invalidator lets the service bump the resolver cache after writes.
type Invalidator interface {
	Invalidate(ctx context.Context, userIDs ...int64) error
}

// Service implements the default-allow project access model.
type Service struct {
	repo        RepositoryPort
	invalidator Invalidator
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, invalidator Invalidator) *Service {
	return &Service{repo: repo, invalidator: invalidator}
}

// HasAccess resolves the capability of a user on a project. No row means
// full view/edit and no delete, under the default project role. A row
// with CanView=false forces edit and delete off regardless of the stored
// flags.
func (s *Service) HasAccess(ctx context.Context, userID, projectID int64) (Access, error) {
	row, found, err := s.repo.Get(ctx, userID, projectID)
	if err != nil {
		return Access{}, err
	}
	if !found {
		return Access{CanView: true, CanEdit: true, CanDelete: false, Role: templates.DefaultProjectRole}, nil
	}
	access := Access{CanView: row.CanView, Role: row.Role}
	if row.CanView {
		access.CanEdit = row.CanEdit
		access.CanDelete = row.CanDelete
	}
	return access, nil
}

// GetAssignment returns the stored row for a (user, project) pair and
// whether one exists. Callers that need the default-allow semantics use
// HasAccess; this is for flows that diff against the raw row.
func (s *Service) GetAssignment(ctx context.Context, userID, projectID int64) (Assignment, bool, error) {
	return s.repo.Get(ctx, userID, projectID)
}

// ListAssignments returns every explicit assignment row of a user.
func (s *Service) ListAssignments(ctx context.Context, userID int64) ([]Assignment, error) {
	return s.repo.List(ctx, userID)
}

// ToggleAssignment assigns or restricts a single project. Restriction
// upserts an all-false row rather than deleting; deletion is reserved
// for the full reset path.
func (s *Service) ToggleAssignment(ctx context.Context, userID, projectID int64, assigned bool, role string) error {
	row := Assignment{UserID: userID, ProjectID: projectID}
	if assigned {
		role = strings.TrimSpace(role)
		if role == "" {
			role = templates.DefaultProjectRole
		}
		row.Role = role
		row.CanView = true
		row.CanEdit = true
	}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return err
	}
	return s.invalidate(ctx, userID)
}

// BatchAssign applies ToggleAssignment(assigned=true) across a project
// set. Items are upserted one by one; a failed item does not roll back
// the ones already written, the caller gets the per-item list instead.
func (s *Service) BatchAssign(ctx context.Context, userID int64, projectIDs []int64, role string) (shared.BatchResult, error) {
	return s.batchToggle(ctx, "assignments: batch assign", userID, projectIDs, true, role)
}

// BatchRestrict applies ToggleAssignment(assigned=false) across a
// project set.
func (s *Service) BatchRestrict(ctx context.Context, userID int64, projectIDs []int64) (shared.BatchResult, error) {
	return s.batchToggle(ctx, "assignments: batch restrict", userID, projectIDs, false, "")
}

func (s *Service) batchToggle(ctx context.Context, op string, userID int64, projectIDs []int64, assigned bool, role string) (shared.BatchResult, error) {
	if len(projectIDs) == 0 {
		return shared.BatchResult{}, fmt.Errorf("%s: no project ids: %w", op, shared.ErrValidation)
	}
	var result shared.BatchResult
	for _, projectID := range projectIDs {
		if err := s.ToggleAssignment(ctx, userID, projectID, assigned, role); err != nil {
			result.Failed = append(result.Failed, shared.BatchItemResult{ID: projectID, Err: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, projectID)
	}
	return result, shared.NewPartialBatchError(op, result)
}

func (s *Service) invalidate(ctx context.Context, userID int64) error {
	if s.invalidator == nil {
		return nil
	}
	return s.invalidator.Invalidate(ctx, userID)
}
