package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditRetention prunes audit entries past the retention window.
	TaskAuditRetention = "audit:retention"
	// TaskPermissionWarmup pre-resolves active users into the cache.
	TaskPermissionWarmup = "perm:warmup"
)

// AuditRetentionPayload parameterizes the retention task.
type AuditRetentionPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewAuditRetentionTask constructs an Asynq task.
func NewAuditRetentionTask(payload AuditRetentionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRetention, data), nil
}

// NewPermissionWarmupTask constructs an Asynq task.
func NewPermissionWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskPermissionWarmup, nil)
}
