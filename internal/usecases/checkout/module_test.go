package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/storage/inmemory"
	storageRedis "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/storage/redis"
	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	paymentPort "github.com/Sskutushev/Bookly-sub000/internal/ports/payment"
	"github.com/Sskutushev/Bookly-sub000/internal/services/ratelimit"
)

type fakeProvider struct {
	method   domain.PaymentMethod
	readyErr error
	err      error
	requests []paymentPort.IntentRequest
	deadline bool
}

func (p *fakeProvider) Method() domain.PaymentMethod { return p.method }
func (p *fakeProvider) Ready() error { return p.readyErr }

func (p *fakeProvider) CreateIntent(ctx context.Context, req paymentPort.IntentRequest) (*domain.ProviderHandle, error) {
	_, p.deadline = ctx.Deadline()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	return &domain.ProviderHandle{
		Method:      p.method,
		Handle:      fmt.Sprintf("nonce-%d", len(p.requests)),
		InvoiceLink: "https://t.me/$invoice",
		Amount:      req.Amount,
		ExpiresAt:   time.Now().Add(req.TTL),
	}, nil
}

func (p *fakeProvider) CanHandle(domain.Notification) bool { return false }

func (p *fakeProvider) VerifyNotification(context.Context, domain.Notification) domain.Verification {
	return domain.Ignore("unused")
}

func (p *fakeProvider) RejectAck() int { return 200 }

type fixture struct {
	store   *inmemory.Store
	stars   *fakeProvider
	gateway *fakeProvider
	redis   *storageRedis.Client
	svc     *Service
}

func newFixture(t *testing.T, perMinute, per10Sec int, withCache bool) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	redisClient := storageRedis.NewClient(client)

	store := inmemory.NewStore()
	store.PutBook(domain.Book{ID: "book-1", Title: "Дюна", Author: "Ф. Герберт", Price: decimal.NewFromInt(149)})
	store.PutBook(domain.Book{ID: "free-1", Title: "Бесплатная", IsFree: true})

	f := &fixture{
		store:   store,
		stars:   &fakeProvider{method: domain.PaymentMethodTelegramStars},
		gateway: &fakeProvider{method: domain.PaymentMethodYooKassa, readyErr: domain.ErrProviderNotConfigured},
		redis:   redisClient,
	}

	f.svc = New(store, store,
		[]paymentPort.IProvider{f.stars, f.gateway},
		nil,
		ratelimit.NewLimiter(redisClient, perMinute, per10Sec),
		&Config{IntentTTL: 30 * time.Minute},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	if withCache {
		f.svc.Cache = redisClient
	}
	return f
}

func TestStartPurchaseValidation(t *testing.T) {
	f := newFixture(t, 0, 0, false)
	ctx := context.Background()

	_, err := f.svc.StartPurchase(ctx, "", "book-1", domain.PaymentMethodTelegramStars)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.StartPurchase(ctx, "777", "book-1", domain.PaymentMethod("paypal"))
	assert.ErrorIs(t, err, domain.ErrUnknownMethod)

	_, err = f.svc.StartPurchase(ctx, "777", "missing", domain.PaymentMethodTelegramStars)
	assert.ErrorIs(t, err, domain.ErrBookNotFound)

	assert.Empty(t, f.stars.requests)
}

func TestStartPurchaseCreatesIntentFromBookPrice(t *testing.T) {
	f := newFixture(t, 0, 0, false)

	res, err := f.svc.StartPurchase(context.Background(), "777", "book-1", domain.PaymentMethodTelegramStars)

	require.NoError(t, err)
	assert.False(t, res.AlreadyOwned)
	require.NotNil(t, res.Handle)
	assert.Equal(t, "https://t.me/$invoice", res.Handle.InvoiceLink)

	require.Len(t, f.stars.requests, 1)
	req := f.stars.requests[0]
	assert.True(t, decimal.NewFromInt(149).Equal(req.Amount))
	assert.Equal(t, 30*time.Minute, req.TTL)
	assert.Equal(t, "Ф. Герберт - Дюна", req.Description)
	assert.NotEmpty(t, req.IdempotenceKey)
	assert.True(t, f.stars.deadline)

	assert.Empty(t, f.store.Purchases())
}

func TestStartPurchaseIdempotenceKeyWithoutCache(t *testing.T) {
	f := newFixture(t, 0, 0, false)
	clock := time.Date(2026, 5, 1, 10, 5, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return clock }
	ctx := context.Background()

	_, err := f.svc.StartPurchase(ctx, "777", "book-1", domain.PaymentMethodTelegramStars)
	require.NoError(t, err)
	clock = clock.Add(10 * time.Second)
	_, err = f.svc.StartPurchase(ctx, "777", "book-1", domain.PaymentMethodTelegramStars)
	require.NoError(t, err)

	require.Len(t, f.stars.requests, 2)
	first := f.stars.requests[0].IdempotenceKey
	assert.Equal(t, first, f.stars.requests[1].IdempotenceKey)

	_, err = f.svc.StartPurchase(ctx, "888", "book-1", domain.PaymentMethodTelegramStars)
	require.NoError(t, err)
	assert.NotEqual(t, first, f.stars.requests[2].IdempotenceKey)

	// следующее окно - новый платёж
	clock = clock.Add(30 * time.Minute)
	_, err = f.svc.StartPurchase(ctx, "777", "book-1", domain.PaymentMethodTelegramStars)
	require.NoError(t, err)
	assert.NotEqual(t, first, f.stars.requests[3].IdempotenceKey)
}

func TestIdempotenceKeyDependsOnMethodAndBook(t *testing.T) {
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	base := idempotenceKey(domain.PaymentMethodYooKassa, "777", "book-1", at, 30*time.Minute)

	assert.Equal(t, base, idempotenceKey(domain.PaymentMethodYooKassa, "777", "book-1", at.Add(29*time.Minute), 30*time.Minute))
	assert.NotEqual(t, base, idempotenceKey(domain.PaymentMethodTelegramStars, "777", "book-1", at, 30*time.Minute))
	assert.NotEqual(t, base, idempotenceKey(domain.PaymentMethodYooKassa, "777", "book-2", at, 30*time.Minute))
	assert.Len(t, base, 36)
}

func TestStartPurchaseShortCircuitsOwnedBook(t *testing.T) {
	f := newFixture(t, 0, 0, false)
	ctx := context.Background()

	_, err := f.store.CompletePurchase(ctx, nil, &domain.Purchase{
		UserID:        "777",
		BookID:        "book-1",
		Amount:        decimal.NewFromInt(149),
		PaymentMethod: domain.PaymentMethodYooKassa,
		TransactionID: "pay_1",
	})
	require.NoError(t, err)

	res, err := f.svc.StartPurchase(ctx, "777", "book-1", domain.PaymentMethodTelegramStars)
	require.NoError(t, err)
	assert.True(t, res.AlreadyOwned)
	assert.Nil(t, res.Handle)

	res, err = f.svc.StartPurchase(ctx, "777", "free-1", domain.PaymentMethodTelegramStars)
	require.NoError(t, err)
	assert.True(t, res.AlreadyOwned)

	assert.Empty(t, f.stars.requests)
}

func TestStartPurchaseProviderNotConfigured(t *testing.T) {
	f := newFixture(t, 0, 0, false)
	ctx := context.Background()

	_, err := f.svc.StartPurchase(ctx, "777", "book-1", domain.PaymentMethodYooKassa)
	assert.ErrorIs(t, err, domain.ErrProviderNotConfigured)
	assert.Empty(t, f.gateway.requests)

	_, err = f.svc.StartPurchase(ctx, "777", "book-1", domain.PaymentMethodUSDTTON)
	assert.ErrorIs(t, err, domain.ErrProviderNotConfigured)
}

func TestStartPurchaseProviderFailure(t *testing.T) {
	f := newFixture(t, 0, 0, true)
	f.stars.err = errors.New("connection reset")

	_, err := f.svc.StartPurchase(context.Background(), "777", "book-1", domain.PaymentMethodTelegramStars)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)

	exists, err := f.redis.Exists(context.Background(), cacheKey(domain.PaymentMethodTelegramStars, "777", "book-1"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStartPurchaseProviderValidationPassesThrough(t *testing.T) {
	f := newFixture(t, 0, 0, false)
	f.stars.err = fmt.Errorf("%w: payload too long", domain.ErrValidation)

	_, err := f.svc.StartPurchase(context.Background(), "777", "book-1", domain.PaymentMethodTelegramStars)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.NotErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestStartPurchaseReusesCachedIntent(t *testing.T) {
	f := newFixture(t, 0, 0, true)
	ctx := context.Background()

	first, err := f.svc.StartPurchase(ctx, "777", "book-1", domain.PaymentMethodTelegramStars)
	require.NoError(t, err)
	second, err := f.svc.StartPurchase(ctx, "777", "book-1", domain.PaymentMethodTelegramStars)
	require.NoError(t, err)

	assert.Len(t, f.stars.requests, 1)
	assert.Equal(t, first.Handle.Handle, second.Handle.Handle)

	// другой пользователь получает своё намерение
	_, err = f.svc.StartPurchase(ctx, "888", "book-1", domain.PaymentMethodTelegramStars)
	require.NoError(t, err)
	assert.Len(t, f.stars.requests, 2)
}

func TestStartPurchaseRateLimited(t *testing.T) {
	f := newFixture(t, 100, 1, false)
	ctx := context.Background()

	_, err := f.svc.StartPurchase(ctx, "777", "book-1", domain.PaymentMethodTelegramStars)
	require.NoError(t, err)

	_, err = f.svc.StartPurchase(ctx, "777", "book-1", domain.PaymentMethodTelegramStars)
	require.ErrorIs(t, err, domain.ErrRateLimited)

	var rateErr *domain.RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Positive(t, rateErr.RetryAfter)
	assert.Len(t, f.stars.requests, 1)
}
