package usdt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	chainAdapter "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/chain"
	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	chainPort "github.com/Sskutushev/Bookly-sub000/internal/ports/chain"
	paymentPort "github.com/Sskutushev/Bookly-sub000/internal/ports/payment"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/repository"
)

const CurrencyUSDT = "USDT"

// Provider USDT в одной сети: адрес из пула + проверка перевода в блокчейне
type Provider struct {
	network  domain.Network
	cfg      *Config
	intents  repository.IIntentRepo
	explorer chainPort.IExplorer
	log      *slog.Logger
}

func NewProvider(network domain.Network, cfg *Config, intents repository.IIntentRepo, explorer chainPort.IExplorer, log *slog.Logger) *Provider {
	return &Provider{
		network:  network,
		cfg:      cfg,
		intents:  intents,
		explorer: explorer,
		log:      log.With("network", string(network)),
	}
}

var (
	_ paymentPort.IProvider      = (*Provider)(nil)
	_ paymentPort.IChainVerifier = (*Provider)(nil)
)

func (p *Provider) Method() domain.PaymentMethod {
	return p.network.Method()
}

func (p *Provider) Network() domain.Network {
	return p.network
}

func (p *Provider) Ready() error {
	switch {
	case p.cfg == nil || !p.cfg.RUBRate.IsPositive():
		return fmt.Errorf("%w: USDT/RUB rate is not set", domain.ErrProviderNotConfigured)
	case len(p.cfg.Addresses(p.network)) == 0:
		return fmt.Errorf("%w: no %s deposit addresses configured", domain.ErrProviderNotConfigured, p.network)
	case p.explorer == nil:
		return fmt.Errorf("%w: no %s explorer", domain.ErrProviderNotConfigured, p.network)
	}
	return nil
}

// ExpectedAmount цена в USDT, округление вверх до центов
func (p *Provider) ExpectedAmount(priceRUB decimal.Decimal) decimal.Decimal {
	return priceRUB.Div(p.cfg.RUBRate).RoundCeil(2)
}

// SeedPool нормализует адреса из конфигурации и добавляет их в пул
func (p *Provider) SeedPool(ctx context.Context) error {
	addresses := p.cfg.Addresses(p.network)
	normalized := make([]string, 0, len(addresses))
	for _, address := range addresses {
		addr, err := chainAdapter.NormalizeAddress(p.network, address)
		if err != nil {
			return fmt.Errorf("invalid deposit address %q: %w", address, err)
		}
		normalized = append(normalized, addr)
	}
	return p.intents.SeedAddresses(ctx, p.network, normalized)
}

// CreateIntent выдаёт адрес из пула; живое намерение того же пользователя на ту же книгу переиспользуется
func (p *Provider) CreateIntent(ctx context.Context, req paymentPort.IntentRequest) (*domain.ProviderHandle, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	live, err := p.intents.FindLive(ctx, p.Method(), req.UserID, req.BookID, now)
	if err == nil {
		p.log.Debug("reusing live usdt intent", "address", live.Handle, "user_id", req.UserID)
		return p.handle(live), nil
	}
	if !errors.Is(err, domain.ErrIntentNotFound) {
		return nil, err
	}

	network := string(p.network)
	intent := &domain.PendingIntent{
		Method:         p.Method(),
		UserID:         req.UserID,
		BookID:         req.BookID,
		ExpectedAmount: p.ExpectedAmount(req.Amount),
		Currency:       CurrencyUSDT,
		Network:        &network,
		Status:         domain.IntentStatusPending,
		ExpiresAt:      now.Add(req.TTL),
		CreatedAt:      now,
	}

	attempts := p.cfg.AllocateAttempts
	if attempts == 0 {
		attempts = 1
	}

	// проигранная гонка за адрес выглядит как "нет свободного", пробуем ещё раз
	err = retry.Do(
		func() error {
			intent.ID = uuid.New()
			_, err := p.intents.AllocateAddress(ctx, p.network, intent)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(50*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, domain.ErrNoFreeDepositAddress)
		}),
	)
	if err != nil {
		if errors.Is(err, domain.ErrNoFreeDepositAddress) {
			p.log.Warn("deposit address pool exhausted", "user_id", req.UserID, "book_id", req.BookID)
			return nil, fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
		}
		return nil, err
	}

	p.log.Info("usdt deposit address allocated",
		"address", intent.Handle,
		"user_id", req.UserID,
		"book_id", req.BookID,
		"expected_amount", intent.ExpectedAmount.String(),
	)
	return p.handle(intent), nil
}

func (p *Provider) handle(intent *domain.PendingIntent) *domain.ProviderHandle {
	return &domain.ProviderHandle{
		Method:    p.Method(),
		Handle:    intent.Handle,
		Address:   intent.Handle,
		Network:   p.network,
		Amount:    intent.ExpectedAmount,
		ExpiresAt: intent.ExpiresAt,
	}
}

// CanHandle блокчейн не присылает уведомлений
func (p *Provider) CanHandle(domain.Notification) bool {
	return false
}

func (p *Provider) VerifyNotification(context.Context, domain.Notification) domain.Verification {
	return domain.Ignore("usdt_has_no_push")
}

// VerifyAddress ищет подтверждённый перевод на адрес намерения с суммой не меньше ожидаемой
func (p *Provider) VerifyAddress(ctx context.Context, intent *domain.PendingIntent) domain.Verification {
	if p.explorer == nil {
		return domain.TransientFailure(domain.ErrProviderNotConfigured)
	}

	// секунды в TON, мс в TRON - берём с запасом в секунду.
	// Поздний перевод прошлого владельца адреса после cooldown всё равно попадёт сюда
	since := intent.CreatedAt.Truncate(time.Second)
	transfers, err := p.explorer.FindIncoming(ctx, intent.Handle, since)
	if err != nil {
		p.log.Warn("explorer lookup failed", "error", err, "address", intent.Handle)
		return domain.TransientFailure(err)
	}

	sort.Slice(transfers, func(i, j int) bool {
		return transfers[i].Timestamp.Before(transfers[j].Timestamp)
	})

	var best decimal.Decimal
	for _, t := range transfers {
		if t.Timestamp.Before(since) {
			continue
		}
		if t.Amount.GreaterThanOrEqual(intent.ExpectedAmount) {
			return domain.Verified(domain.PaymentOutcome{
				Method:        p.Method(),
				UserID:        intent.UserID,
				BookID:        intent.BookID,
				PaidAmount:    t.Amount,
				TransactionID: fmt.Sprintf("%s:%s", p.network, t.TxHash),
				IntentHandle:  intent.Handle,
			})
		}
		if t.Amount.GreaterThan(best) {
			best = t.Amount
		}
	}

	if best.IsPositive() {
		return domain.Rejected(domain.RejectInsufficientAmount,
			fmt.Sprintf("largest transfer %s < expected %s", best.String(), intent.ExpectedAmount.String()))
	}
	return domain.Rejected(domain.RejectNotPaid, "no incoming transfer yet")
}

// RejectAck уведомлений нет, значение не используется
func (p *Provider) RejectAck() int {
	return http.StatusOK
}
