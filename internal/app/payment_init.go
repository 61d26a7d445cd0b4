package app

import (
	"context"
	"fmt"

	chainAdapter "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/chain"
	starsProvider "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/payment/telegram_stars"
	"github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/payment/usdt"
	"github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/payment/yookassa"
	"github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/storage/pg"
	redisAdapter "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/storage/redis"
	tgAdapter "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/telegram"
	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	chainPort "github.com/Sskutushev/Bookly-sub000/internal/ports/chain"
	kafkaPort "github.com/Sskutushev/Bookly-sub000/internal/ports/kafka"
	paymentPort "github.com/Sskutushev/Bookly-sub000/internal/ports/payment"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/service"
	"github.com/Sskutushev/Bookly-sub000/internal/services/ratelimit"
	"github.com/Sskutushev/Bookly-sub000/internal/usecases/checkout"
	"github.com/Sskutushev/Bookly-sub000/internal/usecases/settlement"
)

type paymentDeps struct {
	DB            *pg.DB
	Repos         *repositories
	Telegram      *tgAdapter.Client
	WebhookSecret string
	Publisher     kafkaPort.IEventPublisher
	Notifier      service.IPurchaseNotifier
	Alerter       service.IAlerterService
	Redis         *redisAdapter.Client
}

type paymentModule struct {
	Checkout   *checkout.Service
	Settlement *settlement.Service
	// Networks сети USDT, для которых настроен пул адресов
	Networks []domain.Network
}

// initPayment собирает адаптеры провайдеров, оркестратор и диспетчер уведомлений.
// Ненастроенный провайдер остаётся в списке: его способ оплаты отвечает 503, остальные работают
func (a *App) initPayment(ctx context.Context, deps paymentDeps) (*paymentModule, error) {
	repos := deps.Repos

	var bot starsProvider.BotAPI
	if deps.Telegram != nil {
		bot = deps.Telegram
	}
	stars := starsProvider.NewProvider(bot, deps.WebhookSecret, repos.Intent, repos.Book, a.Log)

	ykCfg := a.Cfg.YooKassa
	if ykCfg == nil {
		ykCfg = &yookassa.Config{}
	}
	var ykClient *yookassa.Client
	if ykCfg.IsConfigured() {
		ykClient = yookassa.NewClient(ykCfg, a.Log)
	} else {
		a.Log.Warn("yookassa credentials are not set, gateway payments are disabled")
	}
	gateway := yookassa.NewProvider(ykCfg, ykClient, repos.Intent, repos.Book, a.Log)

	// заголовок подписи шлюза проверяется раньше формы тела Telegram
	providers := []paymentPort.IProvider{gateway, stars}

	usdtProviders, networks, err := a.initUSDT(ctx, repos)
	if err != nil {
		return nil, err
	}
	providers = append(providers, usdtProviders...)

	intentCache := a.checkoutCache(deps.Redis)
	var limiter checkout.IRateLimiter
	if deps.Redis != nil {
		cfg := a.Cfg.Checkout
		if cfg == nil {
			cfg = &checkout.Config{}
		}
		limiter = ratelimit.NewLimiter(deps.Redis, cfg.RatePerMinute, cfg.RatePer10Sec)
	}

	checkoutUseCase := checkout.New(repos.Book, repos.Purchase, providers, intentCache, limiter, a.Cfg.Checkout, a.Log)
	settlementUseCase := settlement.New(
		providers,
		deps.DB,
		repos.Purchase,
		repos.Intent,
		repos.Book,
		deps.Publisher,
		deps.Notifier,
		deps.Alerter,
		a.Cfg.Settlement,
		a.Log,
	)

	methods := make([]string, 0, len(providers))
	for _, p := range providers {
		if p.Ready() == nil {
			methods = append(methods, string(p.Method()))
		}
	}
	a.Log.Info("payment system initialized", "ready_methods", methods)

	return &paymentModule{
		Checkout:   checkoutUseCase,
		Settlement: settlementUseCase,
		Networks:   networks,
	}, nil
}

// initUSDT провайдер на каждую сеть; пул адресов засевается только у готовых
func (a *App) initUSDT(ctx context.Context, repos *repositories) ([]paymentPort.IProvider, []domain.Network, error) {
	usdtCfg := a.Cfg.USDT
	if usdtCfg == nil {
		usdtCfg = &usdt.Config{}
	}

	explorers := map[domain.Network]chainPort.IExplorer{}
	if a.Cfg.Chain != nil {
		if ton, err := chainAdapter.NewTonCenter(a.Cfg.Chain, a.Log); err != nil {
			a.Log.Warn("ton explorer is disabled", "error", err)
		} else {
			explorers[domain.NetworkTON] = ton
		}
		if tron, err := chainAdapter.NewTronGrid(a.Cfg.Chain, a.Log); err != nil {
			a.Log.Warn("tron explorer is disabled", "error", err)
		} else {
			explorers[domain.NetworkTRC20] = tron
		}
	}

	var (
		providers []paymentPort.IProvider
		networks  []domain.Network
	)
	for _, network := range []domain.Network{domain.NetworkTON, domain.NetworkTRC20} {
		p := usdt.NewProvider(network, usdtCfg, repos.Intent, explorers[network], a.Log)
		providers = append(providers, p)

		if err := p.Ready(); err != nil {
			a.Log.Info("usdt network is disabled", "network", network, "reason", err)
			continue
		}
		if err := p.SeedPool(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to seed %s deposit addresses: %w", network, err)
		}
		networks = append(networks, network)
	}

	return providers, networks, nil
}
