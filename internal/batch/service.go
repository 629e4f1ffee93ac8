package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/routewise/routewise/internal/catalog"
	"github.com/routewise/routewise/internal/overrides"
	"github.com/routewise/routewise/internal/shared"
)

// TemplatePort exposes the template lookups the coordinator needs.
type TemplatePort interface {
	GetTemplate(ctx context.Context, role string) (catalog.KeySets, error)
	RoleExists(ctx context.Context, role string) (bool, error)
}

// Invalidator drops cached resolutions after a mutation commits.
type Invalidator interface {
	Invalidate(ctx context.Context, userIDs ...int64) error
}

// Service coordinates multi-row permission mutations. Copy and reset run
// inside one transaction; the per-user bulk operations report per-item
// outcomes instead.
type Service struct {
	logger    *slog.Logger
	repo      Repository
	templates TemplatePort
	cache     Invalidator
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, repo Repository, templates TemplatePort, cache Invalidator) *Service {
	return &Service{logger: logger, repo: repo, templates: templates, cache: cache}
}

// CopyPermissions replicates the source user's override row and project
// assignments onto the target, replacing whatever the target had. The
// target's prior state is fully discarded even where the source has
// nothing, so the two users end up indistinguishable. Atomic: a failure
// midway leaves the target untouched.
func (s *Service) CopyPermissions(ctx context.Context, sourceID, targetID int64) error {
	if sourceID == targetID {
		return fmt.Errorf("batch: source and target must differ: %w", shared.ErrValidation)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		src, found, err := tx.GetOverride(ctx, sourceID)
		if err != nil {
			return err
		}
		if found {
			if err := tx.ReplaceOverride(ctx, overrides.Override{UserID: targetID, Sets: src.Sets.Clone()}); err != nil {
				return err
			}
		} else {
			if err := tx.DeleteOverride(ctx, targetID); err != nil {
				return err
			}
		}

		if err := tx.DeleteAssignments(ctx, targetID); err != nil {
			return err
		}
		rows, err := tx.ListAssignments(ctx, sourceID)
		if err != nil {
			return err
		}
		for _, row := range rows {
			row.UserID = targetID
			if err := tx.InsertAssignment(ctx, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, targetID)
	s.logger.Info("permissions copied", slog.Int64("source", sourceID), slog.Int64("target", targetID))
	return nil
}

// ResetToRoleDefault deletes the user's override row and every project
// assignment, returning the user to pure template inheritance and
// default-allow project access.
func (s *Service) ResetToRoleDefault(ctx context.Context, userID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteOverride(ctx, userID); err != nil {
			return err
		}
		return tx.DeleteAssignments(ctx, userID)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	s.logger.Info("permissions reset to role default", slog.Int64("user", userID))
	return nil
}

// BulkRoleChange moves a set of users to a new role. Overrides and
// assignments are left in place; only the template half of each user's
// resolution changes. Per-item outcomes are reported, a partial failure
// surfaces as PartialBatchError.
func (s *Service) BulkRoleChange(ctx context.Context, userIDs []int64, role string) (shared.BatchResult, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if len(userIDs) == 0 {
		return shared.BatchResult{}, fmt.Errorf("batch: user set required: %w", shared.ErrValidation)
	}
	exists, err := s.templates.RoleExists(ctx, role)
	if err != nil {
		return shared.BatchResult{}, err
	}
	if !exists {
		return shared.BatchResult{}, fmt.Errorf("batch: unknown role %q: %w", role, shared.ErrValidation)
	}

	var result shared.BatchResult
	for _, id := range userIDs {
		if err := s.repo.UpdateUserRole(ctx, id, role); err != nil {
			s.logger.Warn("bulk role change item failed", slog.Int64("user", id), slog.Any("error", err))
			result.Failed = append(result.Failed, shared.BatchItemResult{ID: id, Err: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
		s.invalidate(ctx, id)
	}
	return result, shared.NewPartialBatchError("bulk role change", result)
}

// ApplyTemplate materializes a role's template sets as explicit overrides
// on each listed user. Unlike inheritance the snapshot is pinned: later
// template edits do not reach these users until their override is
// cleared.
func (s *Service) ApplyTemplate(ctx context.Context, role string, userIDs []int64) (shared.BatchResult, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if len(userIDs) == 0 {
		return shared.BatchResult{}, fmt.Errorf("batch: user set required: %w", shared.ErrValidation)
	}
	sets, err := s.templates.GetTemplate(ctx, role)
	if err != nil {
		return shared.BatchResult{}, err
	}
	// Domains the template leaves unset are written as explicit empty
	// sets. A nil column would fall back to the template again, and the
	// point of applying is to pin what the template says right now.
	snapshot := sets.Clone()
	for _, domain := range catalog.AllDomains() {
		if snapshot.ForDomain(domain) == nil {
			snapshot.SetDomain(domain, []string{})
		}
	}

	var result shared.BatchResult
	for _, id := range userIDs {
		if err := s.repo.ReplaceOverride(ctx, overrides.Override{UserID: id, Sets: snapshot.Clone()}); err != nil {
			s.logger.Warn("apply template item failed", slog.Int64("user", id), slog.Any("error", err))
			result.Failed = append(result.Failed, shared.BatchItemResult{ID: id, Err: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
		s.invalidate(ctx, id)
	}
	return result, shared.NewPartialBatchError("apply template", result)
}

func (s *Service) invalidate(ctx context.Context, userIDs ...int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userIDs...); err != nil {
		s.logger.Warn("cache invalidation failed", slog.Any("error", err))
	}
}
