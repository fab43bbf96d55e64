package telegram

// InlineKeyboardButton is a callback button under a message.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// InlineKeyboardMarkup is the reply_markup of a message.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// OrderActions is the customer keyboard: order details and the order chat.
func OrderActions(orderID string) *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{
			{{Text: "Подробнее", CallbackData: "order:" + orderID}},
			{{Text: "Чат по заказу", CallbackData: "chat:order:" + orderID}},
		},
	}
}

// AdminOrderActions is the admin keyboard: order details and status change.
func AdminOrderActions(orderID string) *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{
			{{Text: "📋 Подробнее", CallbackData: "admin:order:" + orderID}},
			{{Text: "✏️ Изменить статус", CallbackData: "admin:status:" + orderID}},
		},
	}
}
