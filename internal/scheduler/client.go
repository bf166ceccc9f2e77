package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"prospector_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client schedules keyed lead work and one-off jobs on the asynq queue.
type Client struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	queue     string
	maxRetry  int
	now       func() time.Time
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return newClient(opt, cfg.GetAsynqQueueName(), cfg.GetAsynqMaxRetry()), nil
}

func newClient(opt asynq.RedisConnOpt, queue string, maxRetry int) *Client {
	if queue == "" {
		queue = "default"
	}
	if maxRetry < 0 {
		maxRetry = 0
	}
	return &Client{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		queue:     queue,
		maxRetry:  maxRetry,
		now:       time.Now,
	}
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return errors.Join(c.client.Close(), c.inspector.Close())
}

// Schedule enqueues key with its string form as the task id. A conflicting live task yields
// ErrTaskExists; a dead task left over from exhausted retries is replaced.
func (c *Client) Schedule(ctx context.Context, key TaskKey, delay time.Duration) (Handle, error) {
	if err := key.Validate(); err != nil {
		return Handle{}, err
	}
	if delay < 0 {
		delay = 0
	}

	fireAt := c.now().Add(delay)
	task, err := NewLeadWorkTask(key, fireAt)
	if err != nil {
		return Handle{}, err
	}

	id := key.String()
	info, err := c.enqueue(ctx, task, id, delay)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		replaced, rerr := c.replaceArchived(id)
		if rerr != nil {
			return Handle{}, rerr
		}
		if !replaced {
			return Handle{}, ErrTaskExists
		}
		info, err = c.enqueue(ctx, task, id, delay)
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return Handle{}, ErrTaskExists
		}
	}
	if err != nil {
		return Handle{}, fmt.Errorf("schedule %s: %w", id, err)
	}

	return Handle{ID: info.ID, FireAt: fireAt}, nil
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task, id string, delay time.Duration) (*asynq.TaskInfo, error) {
	return c.client.EnqueueContext(ctx, task,
		asynq.TaskID(id),
		asynq.Queue(c.queue),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(c.maxRetry),
	)
}

func (c *Client) replaceArchived(id string) (bool, error) {
	info, err := c.inspector.GetTaskInfo(c.queue, id)
	if err != nil {
		if isNotFound(err) {
			return true, nil
		}
		return false, err
	}
	if info.State != asynq.TaskStateArchived {
		return false, nil
	}
	if err := c.inspector.DeleteTask(c.queue, id); err != nil && !isNotFound(err) {
		return false, err
	}
	return true, nil
}

// Cancel deletes a pending, scheduled or retrying task. Running tasks cannot be cancelled
// and report false; their handlers re-check lead status before acting.
func (c *Client) Cancel(ctx context.Context, key TaskKey) (bool, error) {
	id := key.String()
	info, err := c.inspector.GetTaskInfo(c.queue, id)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("cancel %s: %w", id, err)
	}

	switch info.State {
	case asynq.TaskStateActive, asynq.TaskStateCompleted:
		return false, nil
	case asynq.TaskStateArchived:
		// Dead tasks would block the key forever.
		if err := c.inspector.DeleteTask(c.queue, id); err != nil && !isNotFound(err) {
			return false, fmt.Errorf("cancel %s: %w", id, err)
		}
		return false, nil
	}

	if err := c.inspector.DeleteTask(c.queue, id); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("cancel %s: %w", id, err)
	}
	return true, nil
}

// EnqueueJob enqueues a one-off job. Identical jobs within uniqueFor are dropped and
// reported as ErrTaskExists.
func (c *Client) EnqueueJob(ctx context.Context, taskType string, payload any, uniqueFor time.Duration) error {
	task, err := NewJobTask(taskType, payload)
	if err != nil {
		return err
	}

	opts := []asynq.Option{asynq.Queue(c.queue), asynq.MaxRetry(1)}
	if uniqueFor > 0 {
		opts = append(opts, asynq.Unique(uniqueFor))
	}

	_, err = c.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return ErrTaskExists
	}
	return err
}

// Pending counts tasks per state in the queue for the dashboard.
func (c *Client) Pending() (QueueStats, error) {
	info, err := c.inspector.GetQueueInfo(c.queue)
	if err != nil {
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return QueueStats{Queue: c.queue}, nil
		}
		return QueueStats{}, err
	}
	return QueueStats{
		Queue:     info.Queue,
		Scheduled: info.Scheduled,
		Pending:   info.Pending,
		Active:    info.Active,
		Retry:     info.Retry,
		Dead:      info.Archived,
	}, nil
}

// QueueStats is a point-in-time view of the task queue.
type QueueStats struct {
	Queue     string `json:"queue"`
	Scheduled int    `json:"scheduled"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Retry     int    `json:"retry"`
	Dead      int    `json:"dead"`
}

func isNotFound(err error) bool {
	return errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound)
}

// NewRedisClient opens a go-redis client for the configured URL, used for settings reload
// notifications.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	opt.TLSConfig = tlsConfig(opt.TLSConfig, cfg.GetRedisTLSInsecure())
	return redis.NewClient(opt), nil
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig(opt.TLSConfig, tlsInsecure),
	}, nil
}

func tlsConfig(base *tls.Config, insecure bool) *tls.Config {
	if base != nil {
		clone := base.Clone()
		if insecure {
			clone.InsecureSkipVerify = true
		}
		return clone
	}
	if insecure {
		return &tls.Config{InsecureSkipVerify: true}
	}
	return nil
}
