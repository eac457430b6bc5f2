package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-hrms/internal/governance"
	jobmetrics "github.com/odyssey-erp/odyssey-hrms/internal/jobs"
)

type stubRefresher struct {
	calls  int
	report governance.Report
	err    error
}

func (s *stubRefresher) Refresh(context.Context) (governance.Report, error) {
	s.calls++
	return s.report, s.err
}

func TestHealthSnapshotJobRefreshes(t *testing.T) {
	refresher := &stubRefresher{report: governance.Report{HealthScore: 90}}
	job := NewHealthSnapshotJob(refresher, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewHealthSnapshotTask("")
	require.NoError(t, err)
	assert.Equal(t, TaskGovernanceHealthSnapshot, task.Type())
	assert.JSONEq(t, `{"reason":"scheduled"}`, string(task.Payload()))

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, refresher.calls)
}

func TestHealthSnapshotJobPropagatesFailure(t *testing.T) {
	boom := errors.New("redis down")
	job := NewHealthSnapshotJob(&stubRefresher{err: boom}, nil, nil)

	task, err := NewHealthSnapshotTask("manual")
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

func TestHealthSnapshotJobRejectsBadPayload(t *testing.T) {
	refresher := &stubRefresher{}
	job := NewHealthSnapshotJob(refresher, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskGovernanceHealthSnapshot, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, refresher.calls)

	var unset *HealthSnapshotJob
	assert.Error(t, unset.Handle(context.Background(), asynq.NewTask(TaskGovernanceHealthSnapshot, nil)))
}
