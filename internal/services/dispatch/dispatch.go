// Package dispatch turns order events into Telegram messages for the admin
// chat and for the customer.
package dispatch

import (
	"context"
	"fmt"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/logger"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/services/telegram"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/services/templates"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/types"
)

// Sender delivers one message. Failures should be *telegram.Error values.
type Sender interface {
	Send(ctx context.Context, msg telegram.Message) error
}

// Outcome is the result of a customer notification that did not fail.
type Outcome int

const (
	// Delivered means the message was accepted by Telegram.
	Delivered Outcome = iota + 1
	// Skipped means there was no recipient or delivery failed permanently.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

type Dispatcher struct {
	sender      Sender
	adminChatID int64
}

func NewDispatcher(sender Sender, adminChatID int64) *Dispatcher {
	return &Dispatcher{sender: sender, adminChatID: adminChatID}
}

// NotifyAdmin sends the admin message to the configured admin chat. Every
// delivery error is returned.
func (d *Dispatcher) NotifyAdmin(ctx context.Context, ev *types.OrderStatusEvent) error {
	msg := telegram.Message{
		ChatID:      d.adminChatID,
		Text:        templates.Admin(ev),
		ReplyMarkup: telegram.AdminOrderActions(ev.OrderID),
	}
	if thread, ok := ev.Thread(); ok {
		msg.ThreadID = thread
	}

	if err := d.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to notify admin about order %s: %w", ev.OrderID, err)
	}

	logger.Info(ctx, "admin notified", logger.Fields{
		"order_id":   ev.OrderID,
		"new_status": ev.NewStatus,
	})
	return nil
}

// NotifyUser sends the customer message. Orders without a linked chat and
// permanent delivery failures are skipped; anything else is returned.
func (d *Dispatcher) NotifyUser(ctx context.Context, ev *types.OrderStatusEvent) (Outcome, error) {
	chatID, ok := ev.Recipient()
	if !ok {
		logger.Debug(ctx, "order has no telegram recipient", logger.Fields{"order_id": ev.OrderID})
		return Skipped, nil
	}

	msg := telegram.Message{
		ChatID:      chatID,
		Text:        templates.User(ev),
		ReplyMarkup: telegram.OrderActions(ev.OrderID),
	}

	err := d.sender.Send(ctx, msg)
	switch {
	case err == nil:
		logger.Info(ctx, "user notified", logger.Fields{"order_id": ev.OrderID, "chat_id": chatID})
		return Delivered, nil
	case telegram.IsNonRetryable(err):
		logger.WarnErr(ctx, "user notification skipped", err, logger.Fields{
			"order_id": ev.OrderID,
			"chat_id":  chatID,
		})
		return Skipped, nil
	default:
		return 0, fmt.Errorf("failed to notify user about order %s: %w", ev.OrderID, err)
	}
}
