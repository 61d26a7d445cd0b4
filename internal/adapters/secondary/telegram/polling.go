package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"log/slog"
)

// UpdateHandler обработчик сырого обновления (тело как в webhook)
type UpdateHandler func(ctx context.Context, raw []byte) error

// Poller реализует long polling для локальной разработки без публичного webhook
type Poller struct {
	client       *Client
	config       *Config
	handler      UpdateHandler
	lastUpdateID int64
	log          *slog.Logger
}

func NewPoller(client *Client, config *Config, handler UpdateHandler, log *slog.Logger) *Poller {
	pollingTimeout := config.PollingTimeout
	if pollingTimeout <= 0 {
		pollingTimeout = 30
	}

	// отдельный HTTP клиент: таймаут = polling timeout + запас
	pollClient := *client
	pollClient.httpClient = &http.Client{
		Timeout: time.Duration(pollingTimeout+10) * time.Second,
	}

	return &Poller{
		client:  &pollClient,
		config:  config,
		handler: handler,
		log:     log,
	}
}

type getUpdatesRequest struct {
	Offset         int64    `json:"offset"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates"`
}

// Start запускает long polling, блокируется до отмены ctx
func (p *Poller) Start(ctx context.Context) error {
	p.log.Info("starting telegram polling", "timeout", p.config.PollingTimeout)

	for {
		select {
		case <-ctx.Done():
			p.log.Info("polling stopped")
			return nil
		default:
		}

		updates, err := p.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.log.Error("failed to get updates", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, raw := range updates {
			var head struct {
				UpdateID int64 `json:"update_id"`
			}
			if err := json.Unmarshal(raw, &head); err != nil {
				p.log.Warn("skipping malformed update", "error", err)
				continue
			}
			if head.UpdateID >= p.lastUpdateID {
				p.lastUpdateID = head.UpdateID + 1
			}

			if err := p.handler(ctx, raw); err != nil {
				// продолжаем обработку следующих обновлений
				p.log.Error("failed to handle update",
					"error", err,
					"update_id", head.UpdateID,
				)
			}
		}
	}
}

// getUpdates получает обновления от Telegram API
func (p *Poller) getUpdates(ctx context.Context) ([]json.RawMessage, error) {
	timeout := p.config.PollingTimeout
	if timeout <= 0 {
		timeout = 30
	}

	req := getUpdatesRequest{
		Offset:         p.lastUpdateID,
		Timeout:        timeout,
		AllowedUpdates: allowedUpdates,
	}

	var updates []json.RawMessage
	if err := p.client.call(ctx, "getUpdates", req, &updates); err != nil {
		var apiErr *APIError
		// 409 - активен webhook или другой экземпляр
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict {
			p.log.Warn("telegram API conflict - another bot instance or webhook is active",
				"description", apiErr.Description,
			)
		}
		return nil, fmt.Errorf("getUpdates failed: %w", err)
	}

	return updates, nil
}

// DeleteWebhook перед polling: при активном webhook getUpdates отвечает 409
func (p *Poller) DeleteWebhook(ctx context.Context) error {
	return p.client.DeleteWebhook(ctx, false)
}
