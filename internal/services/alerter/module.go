package alerter

import (
	"context"
	"html"
	"log/slog"

	"github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/alerter"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/service"
)

// Service реализует IAlerterService поверх Telegram чата дежурных
type Service struct {
	client *alerter.Client
	log    *slog.Logger
}

// New без клиента (ALERTER не настроен) алерты только пишутся в лог
func New(client *alerter.Client, log *slog.Logger) service.IAlerterService {
	return &Service{
		client: client,
		log:    log,
	}
}

// SendAlert текст экранируется, сообщение уходит в HTML режиме
func (s *Service) SendAlert(ctx context.Context, message string) error {
	if s.client == nil {
		s.log.Warn("alert skipped, alerter is not configured", "message", message)
		return nil
	}

	return s.client.SendAlert(ctx, html.EscapeString(message))
}
