package telegram

import (
	"strconv"
	"strings"
)

type Config struct {
	BotToken string `envconfig:"BOT_TOKEN"`
	APIURL   string `envconfig:"API_URL" default:"https://api.telegram.org"`
	// UseWebhook строкой: пустое значение = polling
	UseWebhook string `envconfig:"USE_WEBHOOK"`
	// WebhookURL публичный адрес сервиса, к нему добавляется /payment/webhook
	WebhookURL    string `envconfig:"WEBHOOK_URL"`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`
	// PollingTimeout long polling, секунды
	PollingTimeout int `envconfig:"POLLING_TIMEOUT" default:"30"`
}

func (c *Config) IsWebhookEnabled() bool {
	enabled, err := strconv.ParseBool(strings.TrimSpace(c.UseWebhook))
	return err == nil && enabled
}
