package processing

import (
	"context"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/types"
)

// Job names as they appear in queues.tasks.task_type.
const (
	TaskTypeAdminNotification = "notifications.send_notification.order.admin"
	TaskTypeUserNotification  = "notifications.send_notification.order.user"
	TaskTypeCreateVariants    = "images.create_variants"
)

// Processor defines the contract for handling a specific task type.
// Implementations decode and validate the payload, then delegate to
// services. Processors must tolerate re-execution of the same task.
type Processor interface {
	// TaskType returns the queues.task_type handled by this processor.
	TaskType() string
	// RetryPolicy decides what happens to a failed execution.
	RetryPolicy() RetryPolicy
	// Process performs the unit of work and returns a TaskResult. It must not enqueue.
	Process(ctx context.Context, task *types.Task) *types.TaskResult
}
