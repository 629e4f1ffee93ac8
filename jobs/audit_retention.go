package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// AuditPruner is the slice of the audit service the retention task uses.
type AuditPruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// NewAuditRetentionHandler returns the handler for TaskAuditRetention.
// The payload can override the configured retention; zero keeps the
// default.
func NewAuditRetentionHandler(pruner AuditPruner, defaultRetention time.Duration, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		retention := defaultRetention
		var payload AuditRetentionPayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return asynq.SkipRetry
			}
			if payload.RetentionHours > 0 {
				retention = time.Duration(payload.RetentionHours) * time.Hour
			}
		}
		removed, err := pruner.Prune(ctx, retention)
		if err != nil {
			logger.Error("audit retention", slog.Any("error", err))
			return err
		}
		logger.Info("audit retention done",
			slog.Int64("removed", removed),
			slog.Duration("retention", retention))
		return nil
	}
}
