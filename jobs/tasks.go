package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGovernanceHealthSnapshot rebuilds the cached role health report.
	TaskGovernanceHealthSnapshot = "governance:health_snapshot"
)

// HealthSnapshotPayload describes a health snapshot request.
type HealthSnapshotPayload struct {
	Reason string `json:"reason"`
}

// NewHealthSnapshotTask constructs an Asynq task.
func NewHealthSnapshotTask(reason string) (*asynq.Task, error) {
	if reason == "" {
		reason = "scheduled"
	}
	data, err := json.Marshal(HealthSnapshotPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGovernanceHealthSnapshot, data), nil
}
