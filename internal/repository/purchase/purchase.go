package purchaseRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/persistence"
	ports "github.com/Sskutushev/Bookly-sub000/internal/ports/repository"
)

type purchaseColumns struct {
	TableName     string
	ID            string
	UserID        string
	BookID        string
	Amount        string
	PaymentMethod string
	Status        string
	TransactionID string
	CreatedAt     string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns purchaseColumns
}

// New создаёт репозиторий журнала покупок
func New(db persistence.Persistence, log *slog.Logger) ports.IPurchaseRepo {
	return &Repository{
		db:  db,
		Log: log,
		columns: purchaseColumns{
			TableName:     "purchases",
			ID:            "id",
			UserID:        "user_id",
			BookID:        "book_id",
			Amount:        "amount",
			PaymentMethod: "payment_method",
			Status:        "status",
			TransactionID: "transaction_id",
			CreatedAt:     "created_at",
		},
	}
}

func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s",
		r.columns.ID,
		r.columns.UserID,
		r.columns.BookID,
		r.columns.Amount,
		r.columns.PaymentMethod,
		r.columns.Status,
		r.columns.TransactionID,
		r.columns.CreatedAt,
	)
}

// CompletePurchase записывает completed покупку.
// Дедупликация только на уникальных индексах (transaction_id и (user_id, book_id) для completed),
// без проверки "прочитал, потом вставил".
func (r *Repository) CompletePurchase(ctx context.Context, tx persistence.Persistence, purchase *domain.Purchase) (*domain.CompleteResult, error) {
	if tx == nil {
		tx = r.db
	}

	purchase.Status = domain.PurchaseStatusCompleted
	inserted, err := r.insertIgnore(ctx, tx, purchase)
	if err != nil {
		return nil, err
	}
	if inserted {
		r.Log.Info("purchase completed",
			"purchase_id", purchase.ID,
			"user_id", purchase.UserID,
			"book_id", purchase.BookID,
			"transaction_id", purchase.TransactionID,
			"amount", purchase.Amount.String(),
		)
		return &domain.CompleteResult{Purchase: purchase}, nil
	}

	// Конфликт: либо повторная доставка той же транзакции, либо книга уже куплена другой транзакцией
	existing, err := r.getByTransactionID(ctx, tx, purchase.TransactionID)
	if err == nil {
		r.Log.Info("duplicate payment notification ignored",
			"transaction_id", purchase.TransactionID,
			"purchase_id", existing.ID,
		)
		return &domain.CompleteResult{Purchase: existing, Duplicate: true}, nil
	}
	if !errors.Is(err, domain.ErrPurchaseNotFound) {
		return nil, err
	}

	owned, err := r.getCompleted(ctx, tx, purchase.UserID, purchase.BookID)
	if err != nil {
		return nil, fmt.Errorf("purchase conflict without matching row [transaction_id=%s]: %w", purchase.TransactionID, err)
	}

	// Деньги пришли, но доступ уже выдан: сохраняем транзакцию как failed, чтобы она не потерялась
	purchase.Status = domain.PurchaseStatusFailed
	if _, err := r.insertIgnore(ctx, tx, purchase); err != nil {
		return nil, err
	}

	r.Log.Warn("book already owned, payment stored as failed",
		"user_id", purchase.UserID,
		"book_id", purchase.BookID,
		"transaction_id", purchase.TransactionID,
		"owned_purchase_id", owned.ID,
	)
	return &domain.CompleteResult{Purchase: owned, AlreadyOwned: true}, nil
}

// insertIgnore INSERT ... ON CONFLICT DO NOTHING, true если строка вставлена
func (r *Repository) insertIgnore(ctx context.Context, tx persistence.Persistence, p *domain.Purchase) (bool, error) {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT DO NOTHING`,
		r.columns.TableName,
		r.allColumns(),
	)

	affected, err := tx.ExecWithResult(ctx, query,
		p.ID,
		p.UserID,
		p.BookID,
		p.Amount,
		string(p.PaymentMethod),
		string(p.Status),
		p.TransactionID,
		p.CreatedAt,
	)
	if err != nil {
		r.Log.Error("failed to insert purchase",
			"error", err,
			"transaction_id", p.TransactionID,
			"user_id", p.UserID,
		)
		return false, fmt.Errorf("failed to insert purchase: %w", err)
	}
	return affected == 1, nil
}

// GetByTransactionID получает покупку по id транзакции провайдера
func (r *Repository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Purchase, error) {
	return r.getByTransactionID(ctx, r.db, transactionID)
}

func (r *Repository) getByTransactionID(ctx context.Context, q persistence.Persistence, transactionID string) (*domain.Purchase, error) {
	var purchase domain.Purchase

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.TransactionID,
	)

	if err := q.Get(ctx, &purchase, query, transactionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPurchaseNotFound
		}
		r.Log.Error("failed to get purchase by transaction_id",
			"error", err,
			"transaction_id", transactionID,
		)
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	return &purchase, nil
}

// GetCompleted получает completed покупку книги пользователем
func (r *Repository) GetCompleted(ctx context.Context, userID, bookID string) (*domain.Purchase, error) {
	return r.getCompleted(ctx, r.db, userID, bookID)
}

func (r *Repository) getCompleted(ctx context.Context, q persistence.Persistence, userID, bookID string) (*domain.Purchase, error) {
	var purchase domain.Purchase

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = $2 AND %s = $3`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.UserID,
		r.columns.BookID,
		r.columns.Status,
	)

	err := q.Get(ctx, &purchase, query, userID, bookID, string(domain.PurchaseStatusCompleted))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPurchaseNotFound
		}
		r.Log.Error("failed to get completed purchase",
			"error", err,
			"user_id", userID,
			"book_id", bookID,
		)
		return nil, fmt.Errorf("failed to get completed purchase: %w", err)
	}
	return &purchase, nil
}

// HasAccess одним запросом: книга бесплатная или есть completed покупка
func (r *Repository) HasAccess(ctx context.Context, userID, bookID string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM books WHERE id = $2 AND is_free)
		OR EXISTS (SELECT 1 FROM %s WHERE %s = $1 AND %s = $2 AND %s = $3)`,
		r.columns.TableName,
		r.columns.UserID,
		r.columns.BookID,
		r.columns.Status,
	)

	var hasAccess bool
	if err := r.db.Get(ctx, &hasAccess, query, userID, bookID, string(domain.PurchaseStatusCompleted)); err != nil {
		r.Log.Error("failed to check access",
			"error", err,
			"user_id", userID,
			"book_id", bookID,
		)
		return false, fmt.Errorf("failed to check access: %w", err)
	}
	return hasAccess, nil
}

// ListCompletedByUser completed покупки пользователя, новые первыми
func (r *Repository) ListCompletedByUser(ctx context.Context, userID string) ([]domain.Purchase, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = $2 ORDER BY %s DESC`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.UserID,
		r.columns.Status,
		r.columns.CreatedAt,
	)

	purchases := make([]domain.Purchase, 0)
	if err := r.db.Select(ctx, &purchases, query, userID, string(domain.PurchaseStatusCompleted)); err != nil {
		r.Log.Error("failed to list purchases", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return purchases, nil
}
