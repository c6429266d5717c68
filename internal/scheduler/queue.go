// Package scheduler keeps the document store in step with Postgres: data
// point events become asynq tasks, and the worker replays them into Redis.
package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"fieldsurvey/platform/config"
	"fieldsurvey/platform/docstore"

	"github.com/hibiken/asynq"
)

const (
	TaskMirrorDataPoint = "datapoints.mirror"

	defaultQueue   = "default"
	mirrorMaxRetry = 5
)

// MirrorPayload asks the worker to copy one data point into the document
// store, or remove it when Deleted is set. Version is the row's updated_at,
// or the deletion time, and orders tasks that run out of order.
type MirrorPayload struct {
	StudyID     string         `json:"studyId"`
	SurveyID    string         `json:"surveyId"`
	DataPointID string         `json:"dataPointId"`
	Version     time.Time      `json:"version"`
	Deleted     bool           `json:"deleted,omitempty"`
	Document    map[string]any `json:"document,omitempty"`
}

func NewMirrorTask(payload MirrorPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMirrorDataPoint, data, asynq.MaxRetry(mirrorMaxRetry)), nil
}

func parseMirrorPayload(task *asynq.Task) (payload MirrorPayload, err error) {
	err = json.Unmarshal(task.Payload(), &payload)
	return payload, err
}

// MirrorEnqueuer schedules document store mirror tasks.
type MirrorEnqueuer interface {
	EnqueueMirror(ctx context.Context, payload MirrorPayload) error
}

// Client enqueues mirror tasks on the configured queue.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, err := redisClientOpt(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{client: asynq.NewClient(opt), queue: queueName(cfg)}, nil
}

func (c *Client) Close() error { return c.client.Close() }

func (c *Client) EnqueueMirror(ctx context.Context, payload MirrorPayload) error {
	task, err := NewMirrorTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

func queueName(cfg config.SchedulerConfig) string {
	if q := cfg.GetAsynqQueueName(); q != "" {
		return q
	}
	return defaultQueue
}

// redisClientOpt points asynq at the same Redis the document store uses.
func redisClientOpt(cfg config.RedisConfig) (asynq.RedisClientOpt, error) {
	opt, err := docstore.RedisOptions(cfg)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}

var _ MirrorEnqueuer = (*Client)(nil)
