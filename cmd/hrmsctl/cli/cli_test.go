package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-hrms/internal/roles"
	"github.com/odyssey-erp/odyssey-hrms/jobs"
)

type stubConsolidator struct {
	results []roles.ConsolidationResult
	err     error
	dryRun  bool
	actorID int64
}

func (s *stubConsolidator) ConsolidateLegacyRoles(_ context.Context, actorID int64, _ []roles.LegacyRole, dryRun bool) ([]roles.ConsolidationResult, error) {
	s.actorID = actorID
	s.dryRun = dryRun
	return s.results, s.err
}

type stubEnqueuer struct {
	reason string
	err    error
}

func (s *stubEnqueuer) EnqueueHealthSnapshot(_ context.Context, reason string) (*asynq.TaskInfo, error) {
	s.reason = reason
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{ID: "task-1", Queue: jobs.QueueDefault, Type: jobs.TaskGovernanceHealthSnapshot}, nil
}

type stubInspector struct {
	stats QueueStats
	err   error
}

func (s stubInspector) InspectQueue(context.Context) (QueueStats, error) {
	return s.stats, s.err
}

func TestConsolidateCommandJSON(t *testing.T) {
	c := &stubConsolidator{results: []roles.ConsolidationResult{
		{Legacy: "hr_officer", Canonical: "hr", MovedUsers: []int64{4, 5}},
		{Legacy: "manager", Canonical: "company", Skipped: true, MovedUsers: []int64{}},
	}}
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)

	code := ConsolidateCommand(context.Background(), c, ConsolidateOptions{ActorID: 1, JSONOutput: true, Stdout: stdout, Stderr: stderr})
	require.Zero(t, code)
	require.Empty(t, stderr.String())
	require.Equal(t, int64(1), c.actorID)

	var summary ConsolidateSummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	require.False(t, summary.DryRun)
	require.Len(t, summary.Results, 2)
	require.True(t, summary.Results[1].Skipped)
}

func TestConsolidateCommandDryRunHuman(t *testing.T) {
	c := &stubConsolidator{results: []roles.ConsolidationResult{{Legacy: "hr_officer", Canonical: "hr", MovedUsers: []int64{4}}}}
	stdout := new(bytes.Buffer)

	code := ConsolidateCommand(context.Background(), c, ConsolidateOptions{DryRun: true, Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Zero(t, code)
	require.True(t, c.dryRun)
	require.Contains(t, stdout.String(), "Dry run")
	require.Contains(t, stdout.String(), "hr_officer -> hr: 1 user(s) moved")
}

func TestConsolidateCommandRequiresActor(t *testing.T) {
	stderr := new(bytes.Buffer)
	code := ConsolidateCommand(context.Background(), &stubConsolidator{}, ConsolidateOptions{Stdout: new(bytes.Buffer), Stderr: stderr})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "--actor")
}

func TestConsolidateCommandFailure(t *testing.T) {
	stderr := new(bytes.Buffer)
	c := &stubConsolidator{err: errors.New("connection refused")}
	code := ConsolidateCommand(context.Background(), c, ConsolidateOptions{ActorID: 1, Stdout: new(bytes.Buffer), Stderr: stderr})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "connection refused")
}

func TestSnapshotCommand(t *testing.T) {
	enq := &stubEnqueuer{}
	stdout := new(bytes.Buffer)

	code := SnapshotCommand(context.Background(), enq, SnapshotOptions{Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Zero(t, code)
	require.Equal(t, "manual", enq.reason)
	require.Contains(t, stdout.String(), "task-1")
}

func TestSnapshotCommandDuplicateIsNotAFailure(t *testing.T) {
	enq := &stubEnqueuer{err: asynq.ErrDuplicateTask}
	stdout := new(bytes.Buffer)

	code := SnapshotCommand(context.Background(), enq, SnapshotOptions{Reason: "role-cleanup", Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Zero(t, code)
	require.Equal(t, "role-cleanup", enq.reason)
	require.Contains(t, stdout.String(), "already requested")
}

func TestQueueCommand(t *testing.T) {
	stdout := new(bytes.Buffer)
	code := QueueCommand(context.Background(), stubInspector{stats: QueueStats{Queue: "default", Pending: 2, Failed: 1}}, true, stdout, new(bytes.Buffer))
	require.Zero(t, code)

	var stats QueueStats
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &stats))
	require.Equal(t, 2, stats.Pending)
	require.Equal(t, 1, stats.Failed)

	stderr := new(bytes.Buffer)
	code = QueueCommand(context.Background(), stubInspector{err: errors.New("redis down")}, false, new(bytes.Buffer), stderr)
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "redis down")
}
