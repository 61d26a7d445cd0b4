package settlement

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	kafkaPort "github.com/Sskutushev/Bookly-sub000/internal/ports/kafka"
	paymentPort "github.com/Sskutushev/Bookly-sub000/internal/ports/payment"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/persistence"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/repository"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/service"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/usecase"
)

type Config struct {
	VerifyTimeout      time.Duration `envconfig:"VERIFY_TIMEOUT" default:"10s"`
	PreCheckoutTimeout time.Duration `envconfig:"PRE_CHECKOUT_TIMEOUT" default:"5s"`
	SideEffectTimeout  time.Duration `envconfig:"SIDE_EFFECT_TIMEOUT" default:"10s"`
	WatchBatch         int           `envconfig:"WATCH_BATCH" default:"100"`
}

func (c *Config) withDefaults() *Config {
	out := Config{}
	if c != nil {
		out = *c
	}
	if out.VerifyTimeout <= 0 {
		out.VerifyTimeout = 10 * time.Second
	}
	if out.PreCheckoutTimeout <= 0 {
		out.PreCheckoutTimeout = 5 * time.Second
	}
	if out.SideEffectTimeout <= 0 {
		out.SideEffectTimeout = 10 * time.Second
	}
	if out.WatchBatch <= 0 {
		out.WatchBatch = 100
	}
	return &out
}

// Service принимает уведомления провайдеров и записывает покупки в журнал
type Service struct {
	// Providers порядок важен: сначала проверяются заголовки всех, потом форма тела
	Providers []paymentPort.IProvider

	DB           persistence.Transactor
	PurchaseRepo repository.IPurchaseRepo
	IntentRepo   repository.IIntentRepo
	BookRepo     repository.IBookRepo
	Publisher    kafkaPort.IEventPublisher // nil - уведомляем пользователя напрямую
	Notifier     service.IPurchaseNotifier
	AlertService service.IAlerterService
	Cfg          *Config
	Log          *slog.Logger

	// sideEffects побочные эффекты после коммита, ответ провайдеру их не ждёт
	sideEffects sync.WaitGroup
}

func New(
	providers []paymentPort.IProvider,
	db persistence.Transactor,
	purchaseRepo repository.IPurchaseRepo,
	intentRepo repository.IIntentRepo,
	bookRepo repository.IBookRepo,
	publisher kafkaPort.IEventPublisher,
	notifier service.IPurchaseNotifier,
	alertService service.IAlerterService,
	cfg *Config,
	log *slog.Logger,
) *Service {
	return &Service{
		Providers:    providers,
		DB:           db,
		PurchaseRepo: purchaseRepo,
		IntentRepo:   intentRepo,
		BookRepo:     bookRepo,
		Publisher:    publisher,
		Notifier:     notifier,
		AlertService: alertService,
		Cfg:          cfg.withDefaults(),
		Log:          log,
	}
}

var _ usecase.ISettlementUseCase = (*Service)(nil)

// Wait дожидается фоновых побочных эффектов (уведомления, алерты) или отмены ctx
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.sideEffects.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) provider(method domain.PaymentMethod) paymentPort.IProvider {
	for _, p := range s.Providers {
		if p.Method() == method {
			return p
		}
	}
	return nil
}
