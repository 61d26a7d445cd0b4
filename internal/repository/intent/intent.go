package intentRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/persistence"
	ports "github.com/Sskutushev/Bookly-sub000/internal/ports/repository"
)

type intentColumns struct {
	TableName      string
	ID             string
	Method         string
	Handle         string
	UserID         string
	BookID         string
	ExpectedAmount string
	Currency       string
	Network        string
	Status         string
	ExpiresAt      string
	ConsumedAt     string
	CreatedAt      string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns intentColumns
	// addressCooldown сколько адрес "отдыхает" после выдачи, чтобы поздний перевод не попал чужому заказу
	addressCooldown time.Duration
}

// New создаёт репозиторий платёжных намерений
func New(db persistence.Persistence, addressCooldown time.Duration, log *slog.Logger) ports.IIntentRepo {
	return &Repository{
		db:              db,
		Log:             log,
		addressCooldown: addressCooldown,
		columns: intentColumns{
			TableName:      "pending_intents",
			ID:             "id",
			Method:         "method",
			Handle:         "handle",
			UserID:         "user_id",
			BookID:         "book_id",
			ExpectedAmount: "expected_amount",
			Currency:       "currency",
			Network:        "network",
			Status:         "status",
			ExpiresAt:      "expires_at",
			ConsumedAt:     "consumed_at",
			CreatedAt:      "created_at",
		},
	}
}

func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s",
		r.columns.ID,
		r.columns.Method,
		r.columns.Handle,
		r.columns.UserID,
		r.columns.BookID,
		r.columns.ExpectedAmount,
		r.columns.Currency,
		r.columns.Network,
		r.columns.Status,
		r.columns.ExpiresAt,
		r.columns.ConsumedAt,
		r.columns.CreatedAt,
	)
}

// Create сохраняет намерение (Stars nonce, id платежа YooKassa)
func (r *Repository) Create(ctx context.Context, intent *domain.PendingIntent) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.columns.TableName,
		r.allColumns(),
	)

	err := r.db.Exec(ctx, query,
		intent.ID,
		string(intent.Method),
		intent.Handle,
		intent.UserID,
		intent.BookID,
		intent.ExpectedAmount,
		intent.Currency,
		intent.Network,
		string(intent.Status),
		intent.ExpiresAt,
		intent.ConsumedAt,
		intent.CreatedAt,
	)
	if err != nil {
		r.Log.Error("failed to create intent",
			"error", err,
			"method", intent.Method,
			"handle", intent.Handle,
		)
		return fmt.Errorf("failed to create intent: %w", err)
	}

	r.Log.Debug("intent created",
		"intent_id", intent.ID,
		"method", intent.Method,
		"user_id", intent.UserID,
		"book_id", intent.BookID,
	)
	return nil
}

// AllocateAddress выбирает свободный адрес пула и вставляет намерение одним запросом.
// Гонку двух заказов за один адрес разрешает частичный уникальный индекс (method, handle) WHERE status='pending':
// проигравший получает ErrNoFreeDepositAddress и может повторить.
func (r *Repository) AllocateAddress(ctx context.Context, network domain.Network, intent *domain.PendingIntent) (string, error) {
	query := fmt.Sprintf(`
		INSERT INTO %[1]s (%[2]s)
		SELECT $1, $2, a.address, $3, $4, $5, $6, a.network, $7, $8, NULL, $9
		FROM deposit_addresses a
		WHERE a.network = $10
		  AND (a.last_allocated_at IS NULL OR a.last_allocated_at < $11)
		  AND NOT EXISTS (
			SELECT 1 FROM %[1]s p
			WHERE p.%[3]s = $2 AND p.%[4]s = a.address AND p.%[5]s = $7
		  )
		ORDER BY a.last_allocated_at NULLS FIRST, a.address
		LIMIT 1
		ON CONFLICT DO NOTHING
		RETURNING %[4]s`,
		r.columns.TableName,
		r.allColumns(),
		r.columns.Method,
		r.columns.Handle,
		r.columns.Status,
	)

	var address string
	err := r.db.QueryRow(ctx, query,
		intent.ID,
		string(intent.Method),
		intent.UserID,
		intent.BookID,
		intent.ExpectedAmount,
		intent.Currency,
		string(domain.IntentStatusPending),
		intent.ExpiresAt,
		intent.CreatedAt,
		string(network),
		intent.CreatedAt.Add(-r.addressCooldown),
	).Scan(&address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNoFreeDepositAddress
		}
		r.Log.Error("failed to allocate deposit address",
			"error", err,
			"network", network,
			"user_id", intent.UserID,
		)
		return "", fmt.Errorf("failed to allocate deposit address: %w", err)
	}

	if err := r.db.Exec(ctx,
		`UPDATE deposit_addresses SET last_allocated_at = $1 WHERE network = $2 AND address = $3`,
		intent.CreatedAt, string(network), address,
	); err != nil {
		// намерение уже создано, адрес защищён индексом, cooldown просто начнётся позже
		r.Log.Warn("failed to mark deposit address allocated", "error", err, "address", address)
	}

	intent.Handle = address
	net := string(network)
	intent.Network = &net
	return address, nil
}

// GetByHandle последнее намерение с этим хэндлом в любом статусе
func (r *Repository) GetByHandle(ctx context.Context, method domain.PaymentMethod, handle string) (*domain.PendingIntent, error) {
	var intent domain.PendingIntent

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = $2 ORDER BY %s DESC LIMIT 1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.Method,
		r.columns.Handle,
		r.columns.CreatedAt,
	)

	if err := r.db.Get(ctx, &intent, query, string(method), handle); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrIntentNotFound
		}
		r.Log.Error("failed to get intent by handle", "error", err, "method", method, "handle", handle)
		return nil, fmt.Errorf("failed to get intent: %w", err)
	}
	return &intent, nil
}

// FindLive живое намерение пользователя на книгу этим способом
func (r *Repository) FindLive(ctx context.Context, method domain.PaymentMethod, userID, bookID string, now time.Time) (*domain.PendingIntent, error) {
	var intent domain.PendingIntent

	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE %s = $1 AND %s = $2 AND %s = $3 AND %s = $4 AND %s > $5
		ORDER BY %s DESC LIMIT 1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.Method,
		r.columns.UserID,
		r.columns.BookID,
		r.columns.Status,
		r.columns.ExpiresAt,
		r.columns.CreatedAt,
	)

	err := r.db.Get(ctx, &intent, query, string(method), userID, bookID, string(domain.IntentStatusPending), now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrIntentNotFound
		}
		r.Log.Error("failed to find live intent", "error", err, "method", method, "user_id", userID)
		return nil, fmt.Errorf("failed to find live intent: %w", err)
	}
	return &intent, nil
}

// ListLive живые намерения способа оплаты (для фоновой проверки USDT)
func (r *Repository) ListLive(ctx context.Context, method domain.PaymentMethod, now time.Time, limit int) ([]domain.PendingIntent, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = $2 AND %s > $3 ORDER BY %s LIMIT $4`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.Method,
		r.columns.Status,
		r.columns.ExpiresAt,
		r.columns.CreatedAt,
	)

	intents := make([]domain.PendingIntent, 0)
	if err := r.db.Select(ctx, &intents, query, string(method), string(domain.IntentStatusPending), now, limit); err != nil {
		r.Log.Error("failed to list live intents", "error", err, "method", method)
		return nil, fmt.Errorf("failed to list live intents: %w", err)
	}
	return intents, nil
}

// Consume помечает живое намерение использованным (в транзакции записи покупки)
func (r *Repository) Consume(ctx context.Context, tx persistence.Persistence, method domain.PaymentMethod, handle string, at time.Time) error {
	if tx == nil {
		tx = r.db
	}

	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = $2 WHERE %s = $3 AND %s = $4 AND %s = $5`,
		r.columns.TableName,
		r.columns.Status,
		r.columns.ConsumedAt,
		r.columns.Method,
		r.columns.Handle,
		r.columns.Status,
	)

	affected, err := tx.ExecWithResult(ctx, query,
		string(domain.IntentStatusConsumed),
		at,
		string(method),
		handle,
		string(domain.IntentStatusPending),
	)
	if err != nil {
		r.Log.Error("failed to consume intent", "error", err, "method", method, "handle", handle)
		return fmt.Errorf("failed to consume intent: %w", err)
	}

	if affected == 0 {
		r.Log.Debug("no live intent to consume", "method", method, "handle", handle)
	}
	return nil
}

// ExpireBefore переводит просроченные намерения в expired
func (r *Repository) ExpireBefore(ctx context.Context, now time.Time) (int64, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE %s = $2 AND %s <= $3`,
		r.columns.TableName,
		r.columns.Status,
		r.columns.Status,
		r.columns.ExpiresAt,
	)

	affected, err := r.db.ExecWithResult(ctx, query,
		string(domain.IntentStatusExpired),
		string(domain.IntentStatusPending),
		now,
	)
	if err != nil {
		r.Log.Error("failed to expire intents", "error", err)
		return 0, fmt.Errorf("failed to expire intents: %w", err)
	}
	return affected, nil
}

// SeedAddresses добавляет адреса пула из конфигурации (существующие не трогает)
func (r *Repository) SeedAddresses(ctx context.Context, network domain.Network, addresses []string) error {
	for _, address := range addresses {
		err := r.db.Exec(ctx,
			`INSERT INTO deposit_addresses (network, address) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			string(network), address,
		)
		if err != nil {
			r.Log.Error("failed to seed deposit address", "error", err, "network", network, "address", address)
			return fmt.Errorf("failed to seed deposit address: %w", err)
		}
	}

	r.Log.Info("deposit addresses seeded", "network", network, "count", len(addresses))
	return nil
}
