package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	TgClient "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/telegram"
	"github.com/Sskutushev/Bookly-sub000/internal/domain"
)

// SendMessage отправляет текстовое сообщение пользователю
func (s *Service) SendMessage(ctx context.Context, chatID int64, text string) error {
	if s.Client == nil {
		return fmt.Errorf("telegram client is not configured")
	}

	if err := s.Client.SendMessage(ctx, chatID, text); err != nil {
		// пользователь заблокировал бота или не начинал с ним диалог - повторять бесполезно
		var apiErr *TgClient.APIError
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden {
			s.Log.Info("user is unreachable by bot",
				"chat_id", chatID,
				"description", apiErr.Description,
			)
			return domain.WrapBusinessError(err)
		}

		s.Log.Error("failed to send message",
			"error", err,
			"chat_id", chatID,
		)
		return fmt.Errorf("failed to send message: %w", err)
	}

	s.Log.Debug("message sent successfully", "chat_id", chatID)
	return nil
}
