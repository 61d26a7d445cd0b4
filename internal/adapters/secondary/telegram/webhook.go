package telegram

import (
	"context"
	"fmt"
)

// allowedUpdates только то, что нужно для оплаты
var allowedUpdates = []string{"message", "pre_checkout_query"}

type setWebhookRequest struct {
	URL            string   `json:"url"`
	SecretToken    string   `json:"secret_token,omitempty"`
	AllowedUpdates []string `json:"allowed_updates"`
}

// SetWebhook регистрирует webhook, Telegram будет присылать secret в X-Telegram-Bot-Api-Secret-Token
func (c *Client) SetWebhook(ctx context.Context, url, secretToken string) error {
	req := setWebhookRequest{
		URL:            url,
		SecretToken:    secretToken,
		AllowedUpdates: allowedUpdates,
	}

	if err := c.call(ctx, "setWebhook", req, nil); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}

	c.log.Info("webhook registered", "url", url, "with_secret", secretToken != "")
	return nil
}

// DeleteWebhook удаляет webhook (нужно вызывать перед запуском polling)
func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) error {
	req := struct {
		DropPendingUpdates bool `json:"drop_pending_updates"`
	}{DropPendingUpdates: dropPending}

	if err := c.call(ctx, "deleteWebhook", req, nil); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	c.log.Info("webhook deleted successfully")
	return nil
}
