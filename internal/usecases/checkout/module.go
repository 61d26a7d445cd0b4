package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	"github.com/Sskutushev/Bookly-sub000/internal/pkg/metrics"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/cache"
	paymentPort "github.com/Sskutushev/Bookly-sub000/internal/ports/payment"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/repository"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/usecase"
)

type Config struct {
	IntentTTL     time.Duration `envconfig:"INTENT_TTL" default:"30m"`
	CreateTimeout time.Duration `envconfig:"CREATE_TIMEOUT" default:"10s"`
	// лимиты создания платежей на пользователя, 0 - без ограничения
	RatePerMinute int           `envconfig:"RATE_PER_MINUTE" default:"10"`
	RatePer10Sec  int           `envconfig:"RATE_PER_10S" default:"3"`
}

// IRateLimiter лимит создания платежей
type IRateLimiter interface {
	Allow(ctx context.Context, userID string) (int64, bool, error)
}

// Service оркестратор: по книге и способу оплаты получает у провайдера то, куда платить.
// Покупки не пишет никогда
type Service struct {
	BookRepo     repository.IBookRepo
	PurchaseRepo repository.IPurchaseRepo
	Providers    map[domain.PaymentMethod]paymentPort.IProvider
	Cache        cache.Cache // nil - без кэша намерений
	Limiter      IRateLimiter
	Cfg          Config
	Log          *slog.Logger

	now func() time.Time
}

func New(
	bookRepo repository.IBookRepo,
	purchaseRepo repository.IPurchaseRepo,
	providers []paymentPort.IProvider,
	intentCache cache.Cache,
	limiter IRateLimiter,
	cfg *Config,
	log *slog.Logger,
) *Service {
	byMethod := make(map[domain.PaymentMethod]paymentPort.IProvider, len(providers))
	for _, p := range providers {
		byMethod[p.Method()] = p
	}

	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	if c.IntentTTL <= 0 {
		c.IntentTTL = 30 * time.Minute
	}
	if c.CreateTimeout <= 0 {
		c.CreateTimeout = 10 * time.Second
	}

	return &Service{
		BookRepo:     bookRepo,
		PurchaseRepo: purchaseRepo,
		Providers:    byMethod,
		Cache:        intentCache,
		Limiter:      limiter,
		Cfg:          c,
		Log:          log,
		now:          time.Now,
	}
}

var _ usecase.ICheckoutUseCase = (*Service)(nil)

// StartPurchase проверяет книгу и владение, затем создаёт (или отдаёт из кэша) платёж у провайдера
func (s *Service) StartPurchase(ctx context.Context, userID, bookID string, method domain.PaymentMethod) (*usecase.StartResult, error) {
	if userID == "" || bookID == "" {
		return nil, fmt.Errorf("%w: userId and bookId are required", domain.ErrValidation)
	}
	if !method.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMethod, method)
	}

	book, err := s.BookRepo.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	owned := book.IsFree
	if !owned {
		owned, err = s.PurchaseRepo.HasAccess(ctx, userID, bookID)
		if err != nil {
			return nil, err
		}
	}
	if owned {
		s.Log.Info("book already owned, payment skipped", "user_id", userID, "book_id", bookID, "method", method)
		return &usecase.StartResult{BookID: bookID, AlreadyOwned: true}, nil
	}

	provider, ok := s.Providers[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotConfigured, method)
	}
	if err := provider.Ready(); err != nil {
		return nil, err
	}

	key := cacheKey(method, userID, bookID)
	if handle := s.cachedHandle(ctx, key); handle != nil {
		s.Log.Debug("returning cached payment intent", "user_id", userID, "book_id", bookID, "method", method)
		return &usecase.StartResult{BookID: bookID, Handle: handle}, nil
	}

	if err := s.checkRate(ctx, userID); err != nil {
		return nil, err
	}

	createCtx, cancel := context.WithTimeout(ctx, s.Cfg.CreateTimeout)
	defer cancel()

	handle, err := provider.CreateIntent(createCtx, paymentPort.IntentRequest{
		UserID:         userID,
		BookID:         bookID,
		Title:          book.Title,
		Description:    describe(book),
		Amount:         book.Price,
		TTL:            s.Cfg.IntentTTL,
		IdempotenceKey: idempotenceKey(method, userID, bookID, s.now(), s.Cfg.IntentTTL),
	})
	if err != nil {
		s.Log.Warn("failed to create payment intent",
			"method", method,
			"user_id", userID,
			"book_id", bookID,
			"error", err,
		)
		switch {
		case errors.Is(err, domain.ErrValidation),
			errors.Is(err, domain.ErrProviderNotConfigured),
			errors.Is(err, domain.ErrProviderUnavailable):
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}

	metrics.IntentsCreated.WithLabelValues(string(method)).Inc()
	s.cacheHandle(ctx, key, handle)

	return &usecase.StartResult{BookID: bookID, Handle: handle}, nil
}

func describe(book *domain.Book) string {
	if book.Author == "" {
		return book.Title
	}
	return fmt.Sprintf("%s - %s", book.Author, book.Title)
}

// checkRate Redis недоступен - пропускаем, оплату из-за лимитера не блокируем
func (s *Service) checkRate(ctx context.Context, userID string) error {
	if s.Limiter == nil {
		return nil
	}
	retryAfter, allowed, err := s.Limiter.Allow(ctx, userID)
	if err != nil {
		s.Log.Warn("rate limiter unavailable", "user_id", userID, "error", err)
		return nil
	}
	if !allowed {
		return &domain.RateLimitError{RetryAfter: retryAfter}
	}
	return nil
}

// idempotenceKey одинаков для повторных нажатий в пределах окна IntentTTL,
// поэтому без кэша шлюз всё равно вернёт уже созданный платёж
func idempotenceKey(method domain.PaymentMethod, userID, bookID string, now time.Time, window time.Duration) string {
	bucket := now.Truncate(window).Unix()
	name := fmt.Sprintf("bookly:checkout:%s:%s:%s:%d", method, userID, bookID, bucket)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

func cacheKey(method domain.PaymentMethod, userID, bookID string) string {
	return fmt.Sprintf("checkout:intent:%s:%s:%s", method, userID, bookID)
}

// cachedHandle намерение, которому осталось жить меньше минуты, не отдаём
func (s *Service) cachedHandle(ctx context.Context, key string) *domain.ProviderHandle {
	if s.Cache == nil {
		return nil
	}

	raw, err := s.Cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.Log.Warn("failed to read intent cache", "key", key, "error", err)
		}
		return nil
	}

	var handle domain.ProviderHandle
	if err := json.Unmarshal([]byte(raw), &handle); err != nil {
		s.Log.Warn("broken intent cache entry", "key", key, "error", err)
		return nil
	}
	if time.Until(handle.ExpiresAt) < time.Minute {
		return nil
	}
	return &handle
}

func (s *Service) cacheHandle(ctx context.Context, key string, handle *domain.ProviderHandle) {
	if s.Cache == nil {
		return
	}

	ttl := time.Until(handle.ExpiresAt)
	if ttl <= 0 || ttl > s.Cfg.IntentTTL {
		ttl = s.Cfg.IntentTTL
	}

	data, err := json.Marshal(handle)
	if err != nil {
		return
	}
	if err := s.Cache.Set(ctx, key, string(data), ttl); err != nil {
		s.Log.Warn("failed to cache payment intent", "key", key, "error", err)
	}
}
