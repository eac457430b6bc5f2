package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-hrms/internal/governance"
	jobmetrics "github.com/odyssey-erp/odyssey-hrms/internal/jobs"
)

// HealthRefresher rebuilds the governance health report.
type HealthRefresher interface {
	Refresh(ctx context.Context) (governance.Report, error)
}

// HealthSnapshotJob refreshes the cached health report and its gauges.
type HealthSnapshotJob struct {
	Refresher HealthRefresher
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewHealthSnapshotJob wires dependencies for the snapshot handler.
func NewHealthSnapshotJob(refresher HealthRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *HealthSnapshotJob {
	return &HealthSnapshotJob{Refresher: refresher, Logger: logger, Metrics: metrics}
}

// Handle processes TaskGovernanceHealthSnapshot tasks.
func (j *HealthSnapshotJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Refresher == nil {
		return errors.New("health snapshot: handler not configured")
	}
	var payload HealthSnapshotPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.Metrics.Track(TaskGovernanceHealthSnapshot)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(slog.String("reason", payload.Reason))
	report, err := j.Refresher.Refresh(ctx)
	if err != nil {
		logger.Error("governance health snapshot", slog.Any("error", err))
		return err
	}
	logger.Info("governance health snapshot",
		slog.Int("health_score", report.HealthScore),
		slog.Int("unused_roles", report.Summary.UnusedRolesCount),
		slog.Int("overprivileged_roles", report.Summary.OverprivilegedRolesCount),
		slog.Int("orphan_permissions", report.Summary.OrphanPermissionsCount),
	)
	return nil
}

func (j *HealthSnapshotJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
