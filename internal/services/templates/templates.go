// Package templates renders the Telegram HTML bodies for order events.
package templates

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/types"
)

const separator = "━━━━━━━━━━━━━━━━━━━━"

var statusNames = map[types.OrderStatus]string{
	types.OrderStatusCreated:    "Создан",
	types.OrderStatusProcessing: "В обработке",
	types.OrderStatusPaid:       "Оплачен",
	types.OrderStatusFulfilled:  "Выполнен",
	types.OrderStatusCancelled:  "Отменён",
}

var statusEmoji = map[types.OrderStatus]string{
	types.OrderStatusCreated:    "🆕",
	types.OrderStatusProcessing: "⏳",
	types.OrderStatusPaid:       "💰",
	types.OrderStatusFulfilled:  "✅",
	types.OrderStatusCancelled:  "❌",
}

var deliveryNames = map[types.DeliveryMethod]string{
	types.DeliveryCourier: "Курьер",
	types.DeliveryPickup:  "Самовывоз",
}

// StatusName returns the customer-facing status label.
func StatusName(status types.OrderStatus) string {
	if name, ok := statusNames[status]; ok {
		return name
	}
	if status == "" {
		return "Неизвестно"
	}
	return string(status)
}

func StatusEmoji(status types.OrderStatus) string {
	if emoji, ok := statusEmoji[status]; ok {
		return emoji
	}
	return "📋"
}

func DeliveryName(method types.DeliveryMethod) string {
	if name, ok := deliveryNames[method]; ok {
		return name
	}
	if method == "" {
		return "Не указан"
	}
	return string(method)
}

// FormatTotal prints the amount with the scale it arrived with, so 0.10
// stays 0.10.
func FormatTotal(total decimal.Decimal) string {
	places := -total.Exponent()
	if places < 0 {
		places = 0
	}
	return total.StringFixed(places)
}

// AdminCreation is the admin message for a new order.
func AdminCreation(ev *types.OrderStatusEvent) string {
	lines := []string{
		"<b>Новый заказ</b>",
		fmt.Sprintf("📦 <b>Заказ #%s</b>", esc(ev.OrderID)),
		fmt.Sprintf("👤 <b>Клиент:</b> %s", esc(ev.CustomerName)),
		fmt.Sprintf("📱 <b>Телефон:</b> %s", esc(ev.Phone)),
		fmt.Sprintf("💰 <b>Сумма:</b> %s", FormatTotal(ev.Total)),
		fmt.Sprintf("🚚 <b>Доставка:</b> %s", esc(DeliveryName(ev.DeliveryMethod))),
	}
	if present(ev.Email) {
		lines = append(lines, fmt.Sprintf("📧 <b>Email:</b> %s", esc(*ev.Email)))
	}
	if present(ev.Address) {
		lines = append(lines, fmt.Sprintf("🗾 <b>Адрес:</b> %s", esc(*ev.Address)))
	}
	if present(ev.Comment) {
		lines = append(lines, "", separator, "", "💬 <b>Комментарий:</b>\n"+esc(*ev.Comment))
	}
	return strings.Join(lines, "\n")
}

// AdminUpdate is the admin message for a status transition.
func AdminUpdate(ev *types.OrderStatusEvent) string {
	return strings.Join([]string{
		"✅ <b>Статус заказа обновлён</b>\n",
		fmt.Sprintf("📦 Заказ: #%s", esc(ev.OrderID)),
		esc(StatusName(ev.NewStatus)),
	}, "\n")
}

// UserCreation is the customer message for a new order.
func UserCreation(ev *types.OrderStatusEvent) string {
	return strings.Join([]string{
		fmt.Sprintf("✅ <b>Заказ #%s создан</b>", esc(ev.OrderID)),
		"В ближайшее время с вами свяжется оператор. Если у вас возникнут вопросы, " +
			"вы можете написать нам, нажав соответствующую кнопку ниже.",
	}, "\n")
}

// UserUpdate is the customer message for a status transition.
func UserUpdate(ev *types.OrderStatusEvent) string {
	lines := []string{
		fmt.Sprintf("🔔 <b>Обновление по заказу #%s</b>", esc(ev.OrderID)),
		fmt.Sprintf("%s <b>Новый статус:</b> %s", StatusEmoji(ev.NewStatus), esc(StatusName(ev.NewStatus))),
	}
	if present(ev.StatusComment) {
		lines = append(lines, "", "💬 <b>Комментарий:</b>\n"+esc(*ev.StatusComment))
	}
	return strings.Join(lines, "\n")
}

// Admin picks the admin body for the event.
func Admin(ev *types.OrderStatusEvent) string {
	if ev.IsCreation() {
		return AdminCreation(ev)
	}
	return AdminUpdate(ev)
}

// User picks the customer body for the event.
func User(ev *types.OrderStatusEvent) string {
	if ev.IsCreation() {
		return UserCreation(ev)
	}
	return UserUpdate(ev)
}

func present(s *string) bool {
	return s != nil && *s != ""
}

// esc escapes free text for parse_mode=HTML.
func esc(s string) string {
	return html.EscapeString(s)
}
