package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/repository"
)

// ExpectedAmount сумма, которую должен был заплатить пользователь.
// Берётся из намерения по хэндлу, если намерения нет - текущая цена книги.
// Возвращает Rejection, если намерение принадлежит другому пользователю/книге или книги нет.
func ExpectedAmount(
	ctx context.Context,
	intents repository.IIntentRepo,
	books repository.IBookRepo,
	method domain.PaymentMethod,
	handle, userID, bookID string,
) (decimal.Decimal, *domain.Verification, error) {
	if handle == "" {
		return bookPrice(ctx, books, bookID)
	}

	intent, err := intents.GetByHandle(ctx, method, handle)
	switch {
	case err == nil:
		if intent.UserID != userID || intent.BookID != bookID {
			v := domain.Rejected(domain.RejectMalformed, "notification does not match intent")
			return decimal.Zero, &v, nil
		}
		return intent.ExpectedAmount, nil, nil
	case !errors.Is(err, domain.ErrIntentNotFound):
		return decimal.Zero, nil, fmt.Errorf("failed to load intent: %w", err)
	}
	return bookPrice(ctx, books, bookID)
}

func bookPrice(ctx context.Context, books repository.IBookRepo, bookID string) (decimal.Decimal, *domain.Verification, error) {
	book, err := books.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			v := domain.Rejected(domain.RejectUnknownIntent, "book not found")
			return decimal.Zero, &v, nil
		}
		return decimal.Zero, nil, fmt.Errorf("failed to load book: %w", err)
	}
	return book.Price, nil, nil
}
