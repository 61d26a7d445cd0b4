package service

import "context"

// ITelegramSender отправка сообщений пользователю от имени бота
type ITelegramSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}
