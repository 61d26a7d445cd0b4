package access

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/repository"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/storage"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/usecase"
)

// Service отвечает, может ли пользователь читать книгу.
// Журнал читается напрямую без кэша: только что записанная покупка видна сразу
type Service struct {
	PurchaseRepo repository.IPurchaseRepo
	BookRepo     repository.IBookRepo
	Content      storage.IContentStorage
	PresignTTL   time.Duration
	Log          *slog.Logger
}

func New(
	purchaseRepo repository.IPurchaseRepo,
	bookRepo repository.IBookRepo,
	content storage.IContentStorage,
	presignTTL time.Duration,
	log *slog.Logger,
) *Service {
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}
	return &Service{
		PurchaseRepo: purchaseRepo,
		BookRepo:     bookRepo,
		Content:      content,
		PresignTTL:   presignTTL,
		Log:          log,
	}
}

var _ usecase.IAccessUseCase = (*Service)(nil)

func (s *Service) HasAccess(ctx context.Context, userID, bookID string) (bool, error) {
	if userID == "" || bookID == "" {
		return false, fmt.Errorf("%w: userId and bookId are required", domain.ErrValidation)
	}
	return s.PurchaseRepo.HasAccess(ctx, userID, bookID)
}

// ResolveRead временная ссылка на файл книги, только при наличии доступа
func (s *Service) ResolveRead(ctx context.Context, userID, bookID string) (*usecase.ReadGrant, error) {
	ok, err := s.HasAccess(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrAccessDenied
	}

	book, err := s.BookRepo.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.ContentKey == "" {
		s.Log.Warn("book has no content file", "book_id", bookID)
		return nil, fmt.Errorf("%w: no content for book %s", domain.ErrBookNotFound, bookID)
	}
	if s.Content == nil {
		return nil, fmt.Errorf("content storage is not configured")
	}

	exists, err := s.Content.ObjectExists(ctx, book.ContentKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check book content: %w", err)
	}
	if !exists {
		s.Log.Error("book content file is missing in storage", "book_id", bookID, "content_key", book.ContentKey)
		return nil, fmt.Errorf("%w: content file is missing", domain.ErrBookNotFound)
	}

	expiresAt := time.Now().UTC().Add(s.PresignTTL)
	url, err := s.Content.GetPresignedURL(ctx, book.ContentKey, s.PresignTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to presign book content: %w", err)
	}

	s.Log.Debug("read access granted", "user_id", userID, "book_id", bookID)
	return &usecase.ReadGrant{
		BookID:    bookID,
		URL:       url,
		ExpiresAt: expiresAt,
	}, nil
}
