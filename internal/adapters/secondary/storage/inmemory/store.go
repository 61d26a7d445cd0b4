package inmemory

import (
	"context"
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/persistence"
)

var errNotSupported = errors.New("inmemory: raw queries are not supported")

// Store in-memory журнал покупок, намерений и каталог с теми же ограничениями уникальности, что и в Postgres.
// WithTransaction откатывает все изменения, если fn вернула ошибку
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	books     map[string]domain.Book
	purchases []domain.Purchase
	intents   []domain.PendingIntent
	addresses map[domain.Network][]poolAddress

	// FailNextCommit ошибка, которую вернёт следующая транзакция (имитация падения БД)
	FailNextCommit error
}

func NewStore() *Store {
	return &Store{
		books:     make(map[string]domain.Book),
		addresses: make(map[domain.Network][]poolAddress),
	}
}

type snapshot struct {
	purchases []domain.Purchase
	intents   []domain.PendingIntent
	addresses map[domain.Network][]poolAddress
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	addresses := make(map[domain.Network][]poolAddress, len(s.addresses))
	for network, pool := range s.addresses {
		addresses[network] = append([]poolAddress(nil), pool...)
	}
	return snapshot{
		purchases: append([]domain.Purchase(nil), s.purchases...),
		intents:   append([]domain.PendingIntent(nil), s.intents...),
		addresses: addresses,
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purchases = snap.purchases
	s.intents = snap.intents
	s.addresses = snap.addresses
}

// PutBook добавляет книгу в каталог
func (s *Store) PutBook(book domain.Book) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[book.ID] = book
}

// Purchases все строки журнала, включая failed
func (s *Store) Purchases() []domain.Purchase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Purchase(nil), s.purchases...)
}

// Intents все намерения во всех статусах
func (s *Store) Intents() []domain.PendingIntent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.PendingIntent(nil), s.intents...)
}

// Persistence

func (s *Store) Get(context.Context, interface{}, string, ...interface{}) error {
	return errNotSupported
}

func (s *Store) Select(context.Context, interface{}, string, ...interface{}) error {
	return errNotSupported
}

func (s *Store) Exec(context.Context, string, ...interface{}) error {
	return errNotSupported
}

func (s *Store) ExecWithResult(context.Context, string, ...interface{}) (int64, error) {
	return 0, errNotSupported
}

func (s *Store) NamedExec(context.Context, string, interface{}) error {
	return errNotSupported
}

func (s *Store) NamedExecWithResult(context.Context, string, interface{}) (int64, error) {
	return 0, errNotSupported
}

func (s *Store) QueryRow(context.Context, string, ...interface{}) *sqlx.Row {
	return nil
}

func (s *Store) NamedQuery(context.Context, string, interface{}) (*sqlx.Rows, error) {
	return nil, errNotSupported
}

// Transactor

type tx struct {
	*Store
}

func (t *tx) Commit() error   { return nil }
func (t *tx) Rollback() error { return nil }

func (s *Store) BeginTx(context.Context) (persistence.Transaction, error) {
	return nil, errNotSupported
}

func (s *Store) WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	err := fn(ctx, &tx{Store: s})
	if err == nil && s.FailNextCommit != nil {
		err, s.FailNextCommit = s.FailNextCommit, nil
	}
	if err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

var _ persistence.Transactor = (*Store)(nil)
