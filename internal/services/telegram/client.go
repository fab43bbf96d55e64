package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/config"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/logger"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/metrics"
)

// Message is one sendMessage call. ThreadID <= 0 means no forum thread.
type Message struct {
	ChatID      int64
	Text        string
	ThreadID    int64
	ReplyMarkup *InlineKeyboardMarkup
}

type sendMessageRequest struct {
	ChatID                int64                 `json:"chat_id"`
	Text                  string                `json:"text"`
	ParseMode             string                `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool                  `json:"disable_web_page_preview"`
	MessageThreadID       int64                 `json:"message_thread_id,omitempty"`
	ReplyMarkup           *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// Client is a Bot API client. It holds no per-call state and is safe to
// share between workers.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient builds a client with the configured connect and total timeouts.
func NewClient(cfg config.TelegramConfig) *Client {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout, KeepAlive: 30 * time.Second}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:   cfg.BotToken,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         dialer.DialContext,
				TLSHandshakeTimeout: cfg.ConnectTimeout,
				MaxIdleConns:        20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Send delivers an HTML message with link previews disabled. Every failure
// is returned as a classified *Error.
func (c *Client) Send(ctx context.Context, msg Message) error {
	payload := sendMessageRequest{
		ChatID:                msg.ChatID,
		Text:                  msg.Text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
		ReplyMarkup:           msg.ReplyMarkup,
	}
	if msg.ThreadID > 0 {
		payload.MessageThreadID = msg.ThreadID
	}

	logger.Debug(ctx, "sending telegram message", logger.Fields{
		"chat_id":   msg.ChatID,
		"thread_id": msg.ThreadID,
	})

	err := c.post(ctx, "sendMessage", payload)
	if tgErr, ok := AsError(err); ok {
		metrics.DeliveryErrors.WithLabelValues(tgErr.Kind.String()).Inc()
	}
	return err
}

func (c *Client) post(ctx context.Context, method string, payload any) error {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TransportError(redactToken(err, c.token))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return TransportError(err)
	}

	return Classify(resp.StatusCode, body)
}

// redactToken keeps the bot token out of logged url errors.
func redactToken(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), token, "<redacted>"))
}
