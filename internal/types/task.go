package types

import (
	"encoding/json"
	"strings"
	"time"
)

// Task represents a task row from the queues.tasks table
type Task struct {
	TaskID      int64           `json:"task_id"`
	TaskType    string          `json:"task_type"`
	Queue       string          `json:"queue"`
	Payload     json.RawMessage `json:"payload"`
	Attempts    int             `json:"attempts"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	DequeuedAt  *time.Time      `json:"dequeued_at"`
}

// TaskResult represents the result of processing a task
type TaskResult struct {
	Success       bool
	WorkerPayload any   // The job's return value, stored in the result backend
	Error         error // Any error that occurred
}

// NewTaskSuccess creates a successful task result
func NewTaskSuccess(workerPayload any) *TaskResult {
	return &TaskResult{
		Success:       true,
		WorkerPayload: workerPayload,
	}
}

// NewTaskFailure creates a failed task result
func NewTaskFailure(err error) *TaskResult {
	return &TaskResult{
		Success: false,
		Error:   err,
	}
}

// QueueFor routes a job name to its queue: notifications.* and images.* get
// their own queues, anything else lands on the default one.
func QueueFor(taskType string) string {
	switch {
	case strings.HasPrefix(taskType, "notifications."):
		return "notifications"
	case strings.HasPrefix(taskType, "images."):
		return "images"
	default:
		return "notifications"
	}
}
