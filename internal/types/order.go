package types

import "github.com/shopspring/decimal"

type OrderStatus string

const (
	OrderStatusCreated    OrderStatus = "created"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusFulfilled  OrderStatus = "fulfilled"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type DeliveryMethod string

const (
	DeliveryPickup  DeliveryMethod = "pickup"
	DeliveryCourier DeliveryMethod = "courier"
	DeliveryCDEK    DeliveryMethod = "cdek"
)

// OrderStatusEvent is the payload of both order notification jobs. Total is
// kept as an exact decimal from the wire to the rendered message.
type OrderStatusEvent struct {
	OrderID        string          `json:"order_id"`
	TelegramID     *int64          `json:"telegram_id,omitempty"`
	OldStatus      OrderStatus     `json:"old_status" validate:"oneof=created processing paid fulfilled cancelled"`
	NewStatus      OrderStatus     `json:"new_status" validate:"oneof=created processing paid fulfilled cancelled"`
	Comment        *string         `json:"comment,omitempty"`
	Phone          string          `json:"phone"`
	CustomerName   string          `json:"customer_name"`
	Total          decimal.Decimal `json:"total"`
	DeliveryMethod DeliveryMethod  `json:"delivery_method" validate:"oneof=pickup courier cdek"`
	Email          *string         `json:"email,omitempty"`
	Address        *string         `json:"address,omitempty"`
	StatusComment  *string         `json:"status_comment,omitempty"`
	AdminChatID    *int64          `json:"admin_chat_id,omitempty"`
	ThreadID       *int64          `json:"thread_id,omitempty"`
	CreatedAt      string          `json:"created_at"`
}

// DecodeOrderStatusEvent strictly decodes a notification job payload.
func DecodeOrderStatusEvent(data []byte) (*OrderStatusEvent, error) {
	var ev OrderStatusEvent
	if err := DecodeStrict("order status event", data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// IsCreation reports whether the event announces a new order rather than a
// status transition.
func (e *OrderStatusEvent) IsCreation() bool {
	return e.OldStatus == OrderStatusCreated && e.NewStatus == OrderStatusCreated
}

// Recipient returns the customer's chat id, if the customer linked one.
func (e *OrderStatusEvent) Recipient() (int64, bool) {
	if e.TelegramID == nil || *e.TelegramID == 0 {
		return 0, false
	}
	return *e.TelegramID, true
}

// Thread returns the admin forum thread when present and positive.
func (e *OrderStatusEvent) Thread() (int64, bool) {
	if e.ThreadID == nil || *e.ThreadID <= 0 {
		return 0, false
	}
	return *e.ThreadID, true
}
