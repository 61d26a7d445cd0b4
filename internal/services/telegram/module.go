package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	TgClient "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/telegram"
	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/service"
)

const purchaseCompletedText = "Книга добавлена в вашу библиотеку"

// Service отправка сообщений пользователям от имени бота магазина
type Service struct {
	Client *TgClient.Client
	Log    *slog.Logger
}

func New(client *TgClient.Client, log *slog.Logger) *Service {
	return &Service{
		Client: client,
		Log:    log,
	}
}

var (
	_ service.ITelegramSender   = (*Service)(nil)
	_ service.IPurchaseNotifier = (*Service)(nil)
)

// NotifyPurchaseCompleted сообщает пользователю о покупке.
// chat_id берётся из события, иначе совпадает с id пользователя (личный чат с ботом)
func (s *Service) NotifyPurchaseCompleted(ctx context.Context, event domain.PurchaseCompletedEvent) error {
	chatID := event.ChatID
	if chatID == 0 {
		id, err := strconv.ParseInt(event.UserID, 10, 64)
		if err != nil {
			return domain.WrapBusinessError(fmt.Errorf("%w: user id %q is not a telegram id", domain.ErrValidation, event.UserID))
		}
		chatID = id
	}

	text := purchaseCompletedText
	if event.BookTitle != "" {
		text = fmt.Sprintf("%s: «%s»", purchaseCompletedText, event.BookTitle)
	}

	return s.SendMessage(ctx, chatID, text)
}
