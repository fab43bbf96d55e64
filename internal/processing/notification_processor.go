package processing

import (
	"context"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/logger"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/services/dispatch"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/types"
)

// AdminNotificationProcessor handles notifications.send_notification.order.admin.
type AdminNotificationProcessor struct {
	dispatcher *dispatch.Dispatcher
}

func NewAdminNotificationProcessor(dispatcher *dispatch.Dispatcher) *AdminNotificationProcessor {
	return &AdminNotificationProcessor{dispatcher: dispatcher}
}

func (p *AdminNotificationProcessor) TaskType() string         { return TaskTypeAdminNotification }
func (p *AdminNotificationProcessor) RetryPolicy() RetryPolicy { return AdminNotificationPolicy() }

func (p *AdminNotificationProcessor) Process(ctx context.Context, task *types.Task) *types.TaskResult {
	ev, err := types.DecodeOrderStatusEvent(task.Payload)
	if err != nil {
		return types.NewTaskFailure(err)
	}

	if err := p.dispatcher.NotifyAdmin(ctx, ev); err != nil {
		return types.NewTaskFailure(err)
	}
	return types.NewTaskSuccess(nil)
}

// UserNotificationProcessor handles notifications.send_notification.order.user.
type UserNotificationProcessor struct {
	dispatcher *dispatch.Dispatcher
}

func NewUserNotificationProcessor(dispatcher *dispatch.Dispatcher) *UserNotificationProcessor {
	return &UserNotificationProcessor{dispatcher: dispatcher}
}

func (p *UserNotificationProcessor) TaskType() string         { return TaskTypeUserNotification }
func (p *UserNotificationProcessor) RetryPolicy() RetryPolicy { return UserNotificationPolicy() }

func (p *UserNotificationProcessor) Process(ctx context.Context, task *types.Task) *types.TaskResult {
	ev, err := types.DecodeOrderStatusEvent(task.Payload)
	if err != nil {
		return types.NewTaskFailure(err)
	}

	outcome, err := p.dispatcher.NotifyUser(ctx, ev)
	if err != nil {
		return types.NewTaskFailure(err)
	}

	logger.Debug(ctx, "user notification finished", logger.Fields{
		"order_id": ev.OrderID,
		"outcome":  outcome.String(),
	})
	return types.NewTaskSuccess(map[string]string{"outcome": outcome.String()})
}
