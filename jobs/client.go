package jobs

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
)

// Client submits governance jobs.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	return &Client{client: asynq.NewClient(redisOpts)}, nil
}

// EnqueueHealthSnapshot enqueues an out-of-schedule health snapshot. Repeated
// requests within a minute collapse into one task and return
// asynq.ErrDuplicateTask.
func (c *Client) EnqueueHealthSnapshot(ctx context.Context, reason string) (*asynq.TaskInfo, error) {
	task, err := NewHealthSnapshotTask(reason)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.Unique(time.Minute),
	)
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
