package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderPayload = `{
	"order_id": "A-1001",
	"telegram_id": 555,
	"old_status": "processing",
	"new_status": "paid",
	"phone": "+79990000000",
	"customer_name": "Анна",
	"total": 199.99,
	"delivery_method": "cdek",
	"thread_id": 7,
	"created_at": "2026-10-01T12:00:00+03:00"
}`

func TestDecodeOrderStatusEvent(t *testing.T) {
	ev, err := DecodeOrderStatusEvent([]byte(orderPayload))
	require.NoError(t, err)

	assert.Equal(t, "A-1001", ev.OrderID)
	assert.Equal(t, OrderStatusPaid, ev.NewStatus)
	assert.Equal(t, "199.99", ev.Total.String())
	assert.Equal(t, "2026-10-01T12:00:00+03:00", ev.CreatedAt)
	assert.False(t, ev.IsCreation())

	recipient, ok := ev.Recipient()
	assert.True(t, ok)
	assert.Equal(t, int64(555), recipient)

	thread, ok := ev.Thread()
	assert.True(t, ok)
	assert.Equal(t, int64(7), thread)
}

func TestDecodeOrderStatusEvent_TotalAsString(t *testing.T) {
	payload := `{"order_id":"1","old_status":"created","new_status":"created","phone":"p",
		"customer_name":"c","total":"0.10","delivery_method":"pickup","created_at":"x"}`

	ev, err := DecodeOrderStatusEvent([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, "0.1", ev.Total.String())
	assert.True(t, ev.IsCreation())

	_, ok := ev.Recipient()
	assert.False(t, ok)
	_, ok = ev.Thread()
	assert.False(t, ok)
}

func TestDecodeOrderStatusEvent_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{
			name: "unknown field",
			payload: `{"order_id":"1","old_status":"created","new_status":"created","phone":"p",
				"customer_name":"c","total":1,"delivery_method":"pickup","created_at":"x","extra":true}`,
			want: "unknown field",
		},
		{
			name: "case variant of known field",
			payload: `{"order_id":"1","old_status":"created","new_status":"created","phone":"p",
				"customer_name":"c","total":1,"delivery_method":"pickup","created_at":"x","TELEGRAM_ID":42}`,
			want: "unknown fields: TELEGRAM_ID",
		},
		{
			name: "missing total",
			payload: `{"order_id":"1","old_status":"created","new_status":"created","phone":"p",
				"customer_name":"c","delivery_method":"pickup","created_at":"x"}`,
			want: "total",
		},
		{
			name: "null required",
			payload: `{"order_id":null,"old_status":"created","new_status":"created","phone":"p",
				"customer_name":"c","total":1,"delivery_method":"pickup","created_at":"x"}`,
			want: "order_id",
		},
		{
			name: "bad status",
			payload: `{"order_id":"1","old_status":"created","new_status":"shipped","phone":"p",
				"customer_name":"c","total":1,"delivery_method":"pickup","created_at":"x"}`,
			want: "new_status",
		},
		{
			name: "bad delivery method",
			payload: `{"order_id":"1","old_status":"created","new_status":"created","phone":"p",
				"customer_name":"c","total":1,"delivery_method":"drone","created_at":"x"}`,
			want: "delivery_method",
		},
		{
			name:    "not an object",
			payload: `[1,2]`,
			want:    "invalid order status event payload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeOrderStatusEvent([]byte(tt.payload))
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecodeImageUploadedEvent(t *testing.T) {
	payload := `{"image_id":123,"product_id":"tea","original_url":"https://cdn.example.com/o.jpg",
		"original_key":"public/products/tea/123/original.jpg","original_format":"jpeg",
		"original_width":2000,"original_height":1500}`

	ev, err := DecodeImageUploadedEvent([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, int64(123), ev.ImageID)
	assert.Equal(t, "public/products/tea/123/original.jpg", ev.OriginalKey)

	_, err = DecodeImageUploadedEvent([]byte(`{"image_id":1,"product_id":"p","original_url":"https://x/y",
		"original_key":"k","original_format":"png","original_width":0,"original_height":10}`))
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "original_width")

	_, err = DecodeImageUploadedEvent([]byte(`{"image_id":1,"Image_Id":2,"product_id":"p",
		"original_url":"https://x/y","original_key":"k","original_format":"png",
		"original_width":10,"original_height":10}`))
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "unknown fields: Image_Id")
}

func TestQueueFor(t *testing.T) {
	assert.Equal(t, "notifications", QueueFor("notifications.send_notification.order.admin"))
	assert.Equal(t, "images", QueueFor("images.create_variants"))
	assert.Equal(t, "notifications", QueueFor("something.else"))
}
