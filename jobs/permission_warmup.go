package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/routewise/routewise/internal/resolver"
	"github.com/routewise/routewise/internal/users"
)

// UserLister supplies the users to warm.
type UserLister interface {
	ListUsers(ctx context.Context) ([]users.User, error)
}

// Resolver computes effective permissions, filling the cache as a side
// effect.
type Resolver interface {
	ResolveEffective(ctx context.Context, userID int64) (resolver.Effective, error)
}

// NewPermissionWarmupHandler returns the handler for TaskPermissionWarmup.
// Resolving a user populates the cache, so first console loads after an
// invalidation stay fast.
func NewPermissionWarmupHandler(lister UserLister, res Resolver, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		all, err := lister.ListUsers(ctx)
		if err != nil {
			return err
		}
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(8)
		warmed := 0
		for _, u := range all {
			if !u.IsActive {
				continue
			}
			warmed++
			id := u.ID
			g.Go(func() error {
				if _, err := res.ResolveEffective(ctx, id); err != nil {
					logger.Warn("warmup resolve failed", slog.Int64("user", id), slog.Any("error", err))
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		logger.Info("permission warmup done", slog.Int("users", warmed))
		return nil
	}
}
