package intentRepo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/storage/pg"
	"github.com/Sskutushev/Bookly-sub000/internal/domain"
)

const cooldown = 24 * time.Hour

var (
	allocateQuery = `(?s)INSERT INTO pending_intents \(.+\)\s+SELECT .+FROM deposit_addresses a\s+WHERE a\.network = \$10.+ON CONFLICT DO NOTHING\s+RETURNING handle`
	markAllocated = `UPDATE deposit_addresses SET last_allocated_at = \$1 WHERE network = \$2 AND address = \$3`
	consumeQuery  = `UPDATE pending_intents SET status = \$1, consumed_at = \$2 WHERE method = \$3 AND handle = \$4 AND status = \$5`
)

func newRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mockDB.Close()
	})

	db := pg.NewDB(sqlx.NewDb(mockDB, "sqlmock"))
	repo := New(db, cooldown, slog.New(slog.NewTextHandler(io.Discard, nil))).(*Repository)
	return repo, mock
}

func tonIntent() *domain.PendingIntent {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.PendingIntent{
		ID:             uuid.New(),
		Method:         domain.PaymentMethodUSDTTON,
		UserID:         "777",
		BookID:         "book-1",
		ExpectedAmount: decimal.RequireFromString("1.57"),
		Currency:       "USDT",
		Status:         domain.IntentStatusPending,
		ExpiresAt:      created.Add(time.Hour),
		CreatedAt:      created,
	}
}

func TestAllocateAddress(t *testing.T) {
	repo, mock := newRepo(t)
	intent := tonIntent()

	mock.ExpectQuery(allocateQuery).
		WithArgs(
			sqlmock.AnyArg(), "usdt_ton", "777", "book-1", sqlmock.AnyArg(), "USDT",
			"pending", intent.ExpiresAt, intent.CreatedAt, "TON", intent.CreatedAt.Add(-cooldown),
		).
		WillReturnRows(sqlmock.NewRows([]string{"handle"}).AddRow("0:aa"))
	mock.ExpectExec(markAllocated).
		WithArgs(intent.CreatedAt, "TON", "0:aa").
		WillReturnResult(sqlmock.NewResult(0, 1))

	address, err := repo.AllocateAddress(context.Background(), domain.NetworkTON, intent)

	require.NoError(t, err)
	assert.Equal(t, "0:aa", address)
	assert.Equal(t, "0:aa", intent.Handle)
	require.NotNil(t, intent.Network)
	assert.Equal(t, "TON", *intent.Network)
}

func TestAllocateAddressLostRace(t *testing.T) {
	repo, mock := newRepo(t)
	intent := tonIntent()

	// конкурент занял последний свободный адрес: ON CONFLICT DO NOTHING ничего не вернул
	mock.ExpectQuery(allocateQuery).WillReturnRows(sqlmock.NewRows([]string{"handle"}))

	_, err := repo.AllocateAddress(context.Background(), domain.NetworkTON, intent)

	assert.ErrorIs(t, err, domain.ErrNoFreeDepositAddress)
	assert.Empty(t, intent.Handle)
}

func TestAllocateAddressMarkFailureKeepsIntent(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(allocateQuery).WillReturnRows(sqlmock.NewRows([]string{"handle"}).AddRow("0:bb"))
	mock.ExpectExec(markAllocated).WillReturnError(errors.New("timeout"))

	address, err := repo.AllocateAddress(context.Background(), domain.NetworkTON, tonIntent())

	require.NoError(t, err)
	assert.Equal(t, "0:bb", address)
}

func TestAllocateAddressQueryError(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(allocateQuery).WillReturnError(errors.New("connection refused"))

	_, err := repo.AllocateAddress(context.Background(), domain.NetworkTON, tonIntent())

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNoFreeDepositAddress)
}

func TestConsumeOnlyPending(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	t.Run("pending intent", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectExec(consumeQuery).
			WithArgs("consumed", at, "telegram_stars", "nonce-1", "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Consume(context.Background(), nil, domain.PaymentMethodTelegramStars, "nonce-1", at))
	})

	t.Run("already consumed or expired", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectExec(consumeQuery).
			WithArgs("consumed", at, "telegram_stars", "nonce-1", "pending").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, repo.Consume(context.Background(), nil, domain.PaymentMethodTelegramStars, "nonce-1", at))
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectExec(consumeQuery).WillReturnError(errors.New("db down"))

		assert.Error(t, repo.Consume(context.Background(), nil, domain.PaymentMethodTelegramStars, "nonce-1", at))
	})
}

func TestGetByHandleNotFound(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(`SELECT .+ FROM pending_intents WHERE method = \$1 AND handle = \$2 ORDER BY created_at DESC LIMIT 1`).
		WithArgs("yookassa", "pay-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByHandle(context.Background(), domain.PaymentMethodYooKassa, "pay-1")
	assert.ErrorIs(t, err, domain.ErrIntentNotFound)
}

func TestExpireBefore(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE pending_intents SET status = \$1 WHERE status = \$2 AND expires_at <= \$3`).
		WithArgs("expired", "pending", now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.ExpireBefore(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
