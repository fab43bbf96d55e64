// Package results stores job outcomes in Redis so producers can look them up
// by task id.
package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/config"
)

const (
	StatusSuccess = "SUCCESS"
	StatusRetry   = "RETRY"
	StatusFailure = "FAILURE"
)

// Result is the stored record for one task.
type Result struct {
	TaskID   int64           `json:"task_id"`
	TaskType string          `json:"task_type"`
	Status   string          `json:"status"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
	Attempts int             `json:"attempts"`
	DoneAt   time.Time       `json:"date_done"`
}

type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(ctx context.Context, cfg config.RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisBackend{client: client, ttl: cfg.ResultTTL}, nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func key(taskID int64) string {
	return "result:" + strconv.FormatInt(taskID, 10)
}

// Store overwrites the record for the task.
func (b *RedisBackend) Store(ctx context.Context, r Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := b.client.Set(ctx, key(r.TaskID), data, b.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store result for task %d: %w", r.TaskID, err)
	}
	return nil
}

// Get returns the stored record, or nil when none exists.
func (b *RedisBackend) Get(ctx context.Context, taskID int64) (*Result, error) {
	data, err := b.client.Get(ctx, key(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result for task %d: %w", taskID, err)
	}

	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &r, nil
}
