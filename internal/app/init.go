package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jmoiron/sqlx"

	server "github.com/Sskutushev/Bookly-sub000/internal/adapters/primary/http"
	accessController "github.com/Sskutushev/Bookly-sub000/internal/adapters/primary/http/controllers/access"
	healthcheckController "github.com/Sskutushev/Bookly-sub000/internal/adapters/primary/http/controllers/healthcheck"
	paymentController "github.com/Sskutushev/Bookly-sub000/internal/adapters/primary/http/controllers/payment"
	webhookController "github.com/Sskutushev/Bookly-sub000/internal/adapters/primary/http/controllers/webhook"
	"github.com/Sskutushev/Bookly-sub000/internal/adapters/primary/http/middlewares"
	kafkaConsumerAdapter "github.com/Sskutushev/Bookly-sub000/internal/adapters/primary/kafka"
	kafkaHandlers "github.com/Sskutushev/Bookly-sub000/internal/adapters/primary/kafka/handlers"
	alerterAdapter "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/alerter"
	kafkaAdapter "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/kafka"
	starsProvider "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/payment/telegram_stars"
	"github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/storage/pg"
	redisAdapter "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/storage/redis"
	s3Adapter "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/storage/s3"
	tgAdapter "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/telegram"
	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/cache"
	kafkaPort "github.com/Sskutushev/Bookly-sub000/internal/ports/kafka"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/repository"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/service"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/storage"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/usecase"
	bookRepo "github.com/Sskutushev/Bookly-sub000/internal/repository/book"
	intentRepo "github.com/Sskutushev/Bookly-sub000/internal/repository/intent"
	purchaseRepo "github.com/Sskutushev/Bookly-sub000/internal/repository/purchase"
	alerterService "github.com/Sskutushev/Bookly-sub000/internal/services/alerter"
	jobScheduler "github.com/Sskutushev/Bookly-sub000/internal/services/jobs"
	telegramService "github.com/Sskutushev/Bookly-sub000/internal/services/telegram"
	"github.com/Sskutushev/Bookly-sub000/internal/usecases/access"
	"github.com/Sskutushev/Bookly-sub000/internal/usecases/settlement"
)

type Dependencies struct {
	DB             *sqlx.DB
	Persistence    *pg.DB
	HTTPServer     *http.Server
	TelegramPoller *tgAdapter.Poller
	KafkaProducer  kafkaPort.IEventPublisher
	KafkaConsumer  *kafkaConsumerAdapter.Consumer
	Cache          *redisAdapter.Client
	JobScheduler   *jobScheduler.Scheduler
	Settlement     *settlement.Service
}

// repositories содержит инициализированные репозитории
type repositories struct {
	Book     repository.IBookRepo
	Purchase repository.IPurchaseRepo
	Intent   repository.IIntentRepo
}

// externalServices опциональные внешние сервисы, nil если не настроены
type externalServices struct {
	Alerter  service.IAlerterService
	Cache    *redisAdapter.Client
	Content  storage.IContentStorage
	Telegram *tgAdapter.Client
}

// initDependencies инициализирует все зависимости приложения
func (a *App) initDependencies(ctx context.Context) (*Dependencies, error) {
	db, err := a.initPostgres(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init postgres: %w", err)
	}

	persistenceLayer := pg.NewDB(db)
	repos := a.initRepositories(persistenceLayer)
	external := a.initExternalServices()

	// один секрет и для setWebhook, и для poller'а, иначе провайдер Stars отклонит все обновления
	webhookSecret, err := a.webhookSecret()
	if err != nil {
		return nil, err
	}

	tgSvc := telegramService.New(external.Telegram, a.Log)
	producer := a.initKafkaProducer()

	pay, err := a.initPayment(ctx, paymentDeps{
		DB:            persistenceLayer,
		Repos:         repos,
		Telegram:      external.Telegram,
		WebhookSecret: webhookSecret,
		Publisher:     producer,
		Notifier:      tgSvc,
		Alerter:       external.Alerter,
		Redis:         external.Cache,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init payment: %w", err)
	}

	accessUseCase := access.New(repos.Purchase, repos.Book, external.Content, a.presignTTL(), a.Log)

	consumer := a.initKafkaConsumer(tgSvc)
	httpServer := a.initHTTP(persistenceLayer, external.Cache, pay.Checkout, pay.Settlement, accessUseCase)

	poller, err := a.initTelegramMode(ctx, external.Telegram, webhookSecret, pay.Settlement)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram mode: %w", err)
	}

	scheduler := a.initJobScheduler(external.Alerter, repos, pay.Settlement, pay.Networks)

	return &Dependencies{
		DB:             db,
		Persistence:    persistenceLayer,
		HTTPServer:     httpServer,
		TelegramPoller: poller,
		KafkaProducer:  producer,
		KafkaConsumer:  consumer,
		Cache:          external.Cache,
		JobScheduler:   scheduler,
		Settlement:     pay.Settlement,
	}, nil
}

// initRepositories инициализирует репозитории для работы с БД
func (a *App) initRepositories(db *pg.DB) *repositories {
	cooldown := 24 * time.Hour
	if a.Cfg.USDT != nil && a.Cfg.USDT.AddressCooldown > 0 {
		cooldown = a.Cfg.USDT.AddressCooldown
	}

	return &repositories{
		Book:     bookRepo.New(db, a.Log),
		Purchase: purchaseRepo.New(db, a.Log),
		Intent:   intentRepo.New(db, cooldown, a.Log),
	}
}

// initExternalServices Telegram, алертер, Redis и S3; ничего из этого не обязательно для приёма уведомлений
func (a *App) initExternalServices() *externalServices {
	services := &externalServices{}

	if a.Cfg.Telegram != nil && a.Cfg.Telegram.BotToken != "" {
		services.Telegram = tgAdapter.NewClient(a.Cfg.Telegram.APIURL, a.Cfg.Telegram.BotToken, a.Log)
	} else {
		a.Log.Warn("telegram bot token is not set, stars payments and notifications are disabled")
	}

	var alerterClient *alerterAdapter.Client
	if a.Cfg.alerterEnabled() {
		alerterClient = alerterAdapter.NewClient(a.Cfg.Alerter, a.Log)
	}
	services.Alerter = alerterService.New(alerterClient, a.Log)

	if a.Cfg.redisEnabled() {
		redisClient, err := a.Cfg.Redis.NewConnection()
		if err != nil {
			a.Log.Warn("failed to init redis, continuing without cache and rate limit", "error", err)
		} else {
			services.Cache = redisAdapter.NewClient(redisClient)
			a.Log.Info("redis connected successfully")
		}
	}

	if a.Cfg.S3.Enabled() {
		s3Ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		minioClient, err := a.Cfg.S3.Connect(s3Ctx)
		cancel()
		if err != nil {
			a.Log.Warn("failed to init s3, book reading is disabled", "error", err)
		} else {
			services.Content = s3Adapter.NewClient(minioClient, a.Cfg.S3.Bucket, a.Log)
			a.Log.Info("s3 connected successfully", "bucket", a.Cfg.S3.Bucket)
		}
	}

	return services
}

func (a *App) presignTTL() time.Duration {
	if a.Cfg.S3 != nil {
		return a.Cfg.S3.PresignTTL
	}
	return 0
}

// checkoutCache nil-указатель нельзя класть в интерфейс, иначе проверка на nil в use case не сработает
func (a *App) checkoutCache(client *redisAdapter.Client) cache.Cache {
	if client == nil {
		return nil
	}
	return client
}

func (a *App) webhookSecret() (string, error) {
	if a.Cfg.Telegram != nil && a.Cfg.Telegram.WebhookSecret != "" {
		return a.Cfg.Telegram.WebhookSecret, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate webhook secret: %w", err)
	}
	a.Log.Info("telegram webhook secret is not set, generated a random one for this run")
	return hex.EncodeToString(buf), nil
}

// initKafkaProducer без брокеров события не публикуются, уведомление идёт напрямую
func (a *App) initKafkaProducer() kafkaPort.IEventPublisher {
	if !a.Cfg.kafkaEnabled() {
		a.Log.Info("kafka is not configured, purchase notifications are sent directly")
		return nil
	}

	producer, err := kafkaAdapter.NewProducer(a.Cfg.Kafka, a.Log)
	if err != nil {
		a.Log.Warn("failed to create kafka producer, falling back to direct notifications", "error", err)
		return nil
	}
	return producer
}

// initKafkaConsumer читает purchase.completed и отправляет сообщение покупателю
func (a *App) initKafkaConsumer(notifier service.IPurchaseNotifier) *kafkaConsumerAdapter.Consumer {
	if !a.Cfg.kafkaEnabled() || a.Cfg.Kafka.ConsumerGroup == "" {
		return nil
	}

	handler := kafkaHandlers.NewPurchaseCompletedHandler(notifier, a.Log)
	consumer, err := kafkaConsumerAdapter.NewConsumer(a.Cfg.Kafka, handler, a.Log)
	if err != nil {
		a.Log.Warn("failed to create kafka consumer", "error", err, "topic", a.Cfg.Kafka.Topic)
		return nil
	}
	return consumer
}

// initHTTP инициализирует HTTP сервер и контроллеры
func (a *App) initHTTP(
	db *pg.DB,
	redisClient *redisAdapter.Client,
	checkoutUseCase usecase.ICheckoutUseCase,
	settlementUseCase usecase.ISettlementUseCase,
	accessUseCase usecase.IAccessUseCase,
) *http.Server {
	botToken := ""
	if a.Cfg.Telegram != nil {
		botToken = a.Cfg.Telegram.BotToken
	}
	auth := middlewares.TelegramAuth(botToken, middlewares.DefaultInitDataMaxAge, a.Log)

	checks := map[string]healthcheckController.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = redisClient
	}

	controllers := []server.Controller{
		healthcheckController.New(checks, a.Log),
		webhookController.New(settlementUseCase, a.Log),
		paymentController.New(checkoutUseCase, settlementUseCase, auth, a.Log),
		accessController.New(accessUseCase, auth, a.Log),
	}

	return server.NewHTTPServer(a.Cfg.Server, a.Log, controllers...)
}

// initTelegramMode webhook в проде, long polling для локальной разработки
func (a *App) initTelegramMode(
	ctx context.Context,
	client *tgAdapter.Client,
	webhookSecret string,
	settlementUseCase usecase.ISettlementUseCase,
) (*tgAdapter.Poller, error) {
	if client == nil {
		return nil, nil
	}

	if a.Cfg.Telegram.IsWebhookEnabled() {
		webhookURL := strings.TrimSuffix(a.Cfg.Telegram.WebhookURL, "/") + "/payment/webhook"
		if err := client.SetWebhook(ctx, webhookURL, webhookSecret); err != nil {
			a.Log.Error("failed to set webhook", "error", err, "webhook_url", webhookURL)
			return nil, fmt.Errorf("failed to set webhook: %w", err)
		}
		a.Log.Info("webhook set successfully", "webhook_url", webhookURL)
		return nil, nil
	}

	a.Log.Warn("polling mode enabled - this should only be used for local development")
	return tgAdapter.NewPoller(client, a.Cfg.Telegram, a.pollHandler(webhookSecret, settlementUseCase), a.Log), nil
}

// pollHandler прогоняет обновление через тот же путь, что и webhook.
// Полученное через getUpdates обновление повторно не придёт, поэтому временные ошибки повторяем здесь
func (a *App) pollHandler(webhookSecret string, settlementUseCase usecase.ISettlementUseCase) tgAdapter.UpdateHandler {
	return func(ctx context.Context, raw []byte) error {
		headers := http.Header{}
		headers.Set(starsProvider.HeaderSecretToken, webhookSecret)
		n := domain.Notification{Headers: headers, Body: raw}

		return retry.Do(
			func() error {
				res := settlementUseCase.HandleNotification(ctx, n)
				if res.AckStatus >= http.StatusInternalServerError {
					return fmt.Errorf("update handling failed with status %d", res.AckStatus)
				}
				return nil
			},
			retry.Context(ctx),
			retry.Attempts(3),
			retry.Delay(time.Second),
			retry.LastErrorOnly(true),
		)
	}
}

// initJobScheduler истечение намерений и фоновая проверка USDT
func (a *App) initJobScheduler(
	alerterSvc service.IAlerterService,
	repos *repositories,
	settler jobScheduler.ILiveIntentSettler,
	networks []domain.Network,
) *jobScheduler.Scheduler {
	scheduler := jobScheduler.NewScheduler(a.Log, alerterSvc, nil)

	jobsCfg := a.Cfg.Jobs
	if jobsCfg == nil {
		jobsCfg = &JobsConfig{USDTWatchEnabled: true}
	}

	scheduler.Register(jobScheduler.NewIntentExpirer(repos.Intent, jobsCfg.IntentExpireInterval, a.Log))
	a.Log.Info("intent expirer job registered")

	if jobsCfg.USDTWatchEnabled && len(networks) > 0 {
		scheduler.Register(jobScheduler.NewUSDTWatcher(settler, networks, jobsCfg.USDTWatchInterval, a.Log))
		a.Log.Info("usdt watcher job registered", "networks", networks)
	}

	return scheduler
}

// initPostgres подключение к PostgreSQL и миграции
func (a *App) initPostgres(ctx context.Context) (*sqlx.DB, error) {
	db, err := a.Cfg.Postgres.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	a.Log.Info("postgres connected successfully")

	if err := pg.RunMigrations(ctx, db, a.Log); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}
