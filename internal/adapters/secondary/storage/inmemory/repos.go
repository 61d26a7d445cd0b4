package inmemory

import (
	"context"
	"sort"
	"time"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/persistence"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/repository"
)

var (
	_ repository.IBookRepo     = (*Store)(nil)
	_ repository.IPurchaseRepo = (*Store)(nil)
	_ repository.IIntentRepo   = (*Store)(nil)
)

type poolAddress struct {
	address         string
	lastAllocatedAt *time.Time
}

// AddressCooldown сколько адрес не выдаётся повторно после прошлой выдачи
var AddressCooldown = 24 * time.Hour

// books

func (s *Store) GetByID(_ context.Context, id string) (*domain.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	book, ok := s.books[id]
	if !ok {
		return nil, domain.ErrBookNotFound
	}
	return &book, nil
}

// purchases

func (s *Store) CompletePurchase(_ context.Context, _ persistence.Persistence, purchase *domain.Purchase) (*domain.CompleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.purchases {
		if p.TransactionID == purchase.TransactionID {
			existing := p
			return &domain.CompleteResult{Purchase: &existing, Duplicate: true}, nil
		}
	}

	if owned := s.completedLocked(purchase.UserID, purchase.BookID); owned != nil {
		failed := *purchase
		failed.Status = domain.PurchaseStatusFailed
		s.purchases = append(s.purchases, failed)
		return &domain.CompleteResult{Purchase: owned, AlreadyOwned: true}, nil
	}

	purchase.Status = domain.PurchaseStatusCompleted
	s.purchases = append(s.purchases, *purchase)
	stored := *purchase
	return &domain.CompleteResult{Purchase: &stored}, nil
}

func (s *Store) completedLocked(userID, bookID string) *domain.Purchase {
	for _, p := range s.purchases {
		if p.UserID == userID && p.BookID == bookID && p.Status == domain.PurchaseStatusCompleted {
			found := p
			return &found
		}
	}
	return nil
}

func (s *Store) GetByTransactionID(_ context.Context, transactionID string) (*domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.purchases {
		if p.TransactionID == transactionID {
			found := p
			return &found, nil
		}
	}
	return nil, domain.ErrPurchaseNotFound
}

func (s *Store) GetCompleted(_ context.Context, userID, bookID string) (*domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p := s.completedLocked(userID, bookID); p != nil {
		return p, nil
	}
	return nil, domain.ErrPurchaseNotFound
}

func (s *Store) HasAccess(_ context.Context, userID, bookID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if book, ok := s.books[bookID]; ok && book.IsFree {
		return true, nil
	}
	return s.completedLocked(userID, bookID) != nil, nil
}

func (s *Store) ListCompletedByUser(_ context.Context, userID string) ([]domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Purchase
	for _, p := range s.purchases {
		if p.UserID == userID && p.Status == domain.PurchaseStatusCompleted {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// intents

func (s *Store) pendingHandleLocked(handle string) bool {
	for _, i := range s.intents {
		if i.Handle == handle && i.Status == domain.IntentStatusPending {
			return true
		}
	}
	return false
}

func (s *Store) Create(_ context.Context, intent *domain.PendingIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingHandleLocked(intent.Handle) {
		return domain.ErrValidation
	}
	s.intents = append(s.intents, *intent)
	return nil
}

func (s *Store) AllocateAddress(_ context.Context, network domain.Network, intent *domain.PendingIntent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	pool := s.addresses[network]
	best := -1
	for idx, a := range pool {
		if s.pendingHandleLocked(a.address) {
			continue
		}
		if a.lastAllocatedAt != nil && a.lastAllocatedAt.After(now.Add(-AddressCooldown)) {
			continue
		}
		if best == -1 || older(a, pool[best]) {
			best = idx
		}
	}
	if best == -1 {
		return "", domain.ErrNoFreeDepositAddress
	}

	pool[best].lastAllocatedAt = &now
	networkName := string(network)
	intent.Handle = pool[best].address
	intent.Network = &networkName
	s.intents = append(s.intents, *intent)
	return intent.Handle, nil
}

// older порядок выдачи: никогда не выданные первыми, затем по давности
func older(a, b poolAddress) bool {
	switch {
	case a.lastAllocatedAt == nil && b.lastAllocatedAt == nil:
		return a.address < b.address
	case a.lastAllocatedAt == nil:
		return true
	case b.lastAllocatedAt == nil:
		return false
	default:
		return a.lastAllocatedAt.Before(*b.lastAllocatedAt)
	}
}

func (s *Store) GetByHandle(_ context.Context, method domain.PaymentMethod, handle string) (*domain.PendingIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for idx := len(s.intents) - 1; idx >= 0; idx-- {
		if i := s.intents[idx]; i.Method == method && i.Handle == handle {
			return &i, nil
		}
	}
	return nil, domain.ErrIntentNotFound
}

func (s *Store) FindLive(_ context.Context, method domain.PaymentMethod, userID, bookID string, now time.Time) (*domain.PendingIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for idx := len(s.intents) - 1; idx >= 0; idx-- {
		i := s.intents[idx]
		if i.Method == method && i.UserID == userID && i.BookID == bookID && i.IsLive(now) {
			return &i, nil
		}
	}
	return nil, domain.ErrIntentNotFound
}

func (s *Store) ListLive(_ context.Context, method domain.PaymentMethod, now time.Time, limit int) ([]domain.PendingIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.PendingIntent
	for _, i := range s.intents {
		if i.Method == method && i.IsLive(now) {
			out = append(out, i)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *Store) Consume(_ context.Context, _ persistence.Persistence, method domain.PaymentMethod, handle string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for idx := range s.intents {
		i := &s.intents[idx]
		if i.Method == method && i.Handle == handle && i.Status == domain.IntentStatusPending {
			i.Status = domain.IntentStatusConsumed
			consumedAt := at
			i.ConsumedAt = &consumedAt
		}
	}
	return nil
}

func (s *Store) ExpireBefore(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for idx := range s.intents {
		i := &s.intents[idx]
		if i.Status == domain.IntentStatusPending && !now.Before(i.ExpiresAt) {
			i.Status = domain.IntentStatusExpired
			n++
		}
	}
	return n, nil
}

func (s *Store) SeedAddresses(_ context.Context, network domain.Network, addresses []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, address := range addresses {
		exists := false
		for _, a := range s.addresses[network] {
			if a.address == address {
				exists = true
				break
			}
		}
		if !exists {
			s.addresses[network] = append(s.addresses[network], poolAddress{address: address})
		}
	}
	return nil
}
