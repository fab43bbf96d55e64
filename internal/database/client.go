package database

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/types"
)

//go:embed schema.sql
var schemaSQL string

type Client struct {
	db *sql.DB
}

func NewClient(databaseURL string) (*Client, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{db: db}, nil
}

// NewFromDB wraps an existing handle.
func NewFromDB(db *sql.DB) *Client {
	return &Client{db: db}
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Migrate applies the queue schema. It is idempotent.
func (c *Client) Migrate(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply queue schema: %w", err)
	}
	return nil
}

// DequeueNextTask claims the next ready task on one of queues and holds a
// lease on it; if the task is not finished before the lease expires it
// becomes available again. Returns nil when nothing is ready.
func (c *Client) DequeueNextTask(ctx context.Context, queues []string, lease time.Duration) (*types.Task, error) {
	var task types.Task
	var payloadBytes []byte
	var dequeuedAt sql.NullTime

	query := `select * from queues.dequeue_next_available_task($1, $2)`
	row := c.db.QueryRowContext(ctx, query, pq.Array(queues), lease.Seconds())

	err := row.Scan(
		&task.TaskID,
		&task.TaskType,
		&task.Queue,
		&payloadBytes,
		&task.Attempts,
		&task.EnqueuedAt,
		&task.ScheduledAt,
		&dequeuedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue task: %w", err)
	}

	task.Payload = payloadBytes
	if dequeuedAt.Valid {
		t := dequeuedAt.Time
		task.DequeuedAt = &t
	}

	return &task, nil
}

// ErrLeaseLost is returned by the task transitions when the task is no
// longer running under the caller's claim.
var ErrLeaseLost = errors.New("task lease lost")

// CompleteTask marks a task as completed so it won't be processed again
func (c *Client) CompleteTask(ctx context.Context, taskID int64, attempt int) error {
	query := `select queues.complete_task($1, $2)`
	if err := c.transition(ctx, query, taskID, attempt); err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	return nil
}

// RetryTask puts the task back on its queue, visible again after delay.
func (c *Client) RetryTask(ctx context.Context, taskID int64, attempt int, delay time.Duration, errorMessage string) error {
	query := `select queues.retry_task($1, $2, $3, $4)`
	if err := c.transition(ctx, query, taskID, attempt, delay.Seconds(), errorMessage); err != nil {
		return fmt.Errorf("failed to schedule task retry: %w", err)
	}
	return nil
}

// FailTask marks a task permanently failed with the last error.
func (c *Client) FailTask(ctx context.Context, taskID int64, attempt int, errorMessage string) error {
	query := `select queues.fail_task($1, $2, $3)`
	if err := c.transition(ctx, query, taskID, attempt, errorMessage); err != nil {
		return fmt.Errorf("failed to record task failure: %w", err)
	}
	return nil
}

func (c *Client) transition(ctx context.Context, query string, args ...any) error {
	var applied bool
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&applied); err != nil {
		return err
	}
	if !applied {
		return ErrLeaseLost
	}
	return nil
}

// Enqueue adds a job to the queue its name routes to.
func (c *Client) Enqueue(ctx context.Context, taskType string, payload []byte, delay time.Duration) (int64, error) {
	var taskID int64
	query := `select queues.enqueue_task($1, $2, $3, $4)`
	err := c.db.QueryRowContext(ctx, query, taskType, types.QueueFor(taskType), payload, delay.Seconds()).Scan(&taskID)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue %s: %w", taskType, err)
	}
	return taskID, nil
}

// QueueDepth counts pending tasks per queue.
func (c *Client) QueueDepth(ctx context.Context) (map[string]int64, error) {
	rows, err := c.db.QueryContext(ctx, `
		select queue, count(*)
		from queues.tasks
		where status = 'pending'
		group by queue`)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue depth: %w", err)
	}
	defer rows.Close()

	depth := make(map[string]int64)
	for rows.Next() {
		var queue string
		var count int64
		if err := rows.Scan(&queue, &count); err != nil {
			return nil, fmt.Errorf("failed to scan queue depth: %w", err)
		}
		depth[queue] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read queue depth: %w", err)
	}
	return depth, nil
}
