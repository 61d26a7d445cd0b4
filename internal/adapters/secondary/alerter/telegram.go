package alerter

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/telegram"
)

// лимит Telegram на текст сообщения
const maxMessageRunes = 4096

// Client шлёт алерты в чат дежурных через Bot API (отдельный бот или тот же, что у магазина)
type Client struct {
	tg       *telegram.Client
	chatID   int64
	threadID *int64
	log      *slog.Logger
}

func NewClient(cfg *Config, log *slog.Logger) *Client {
	if cfg == nil {
		return nil
	}
	return &Client{
		tg:       telegram.NewClient(cfg.APIURL, cfg.BotToken, log),
		chatID:   cfg.ChatID,
		threadID: cfg.MessageThreadID,
		log:      log.With("component", "alerter"),
	}
}

// SendAlert message уже в HTML (экранирование делает сервис)
func (c *Client) SendAlert(ctx context.Context, message string) error {
	if c == nil || c.tg == nil {
		return fmt.Errorf("alerter client is not initialized")
	}

	_, err := c.tg.SendMessageWithRequest(ctx, telegram.SendMessageRequest{
		ChatID:          c.chatID,
		Text:            clip(message),
		ParseMode:       "HTML",
		MessageThreadID: c.threadID,
	})
	if err != nil {
		c.log.Warn("failed to deliver alert", "error", err, "chat_id", c.chatID)
		return fmt.Errorf("failed to send alert: %w", err)
	}
	return nil
}

// clip режет по символам, не разрывая руну
func clip(s string) string {
	if utf8.RuneCountInString(s) <= maxMessageRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxMessageRunes-1]) + "…"
}
