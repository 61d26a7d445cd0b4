package app

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	server "github.com/Sskutushev/Bookly-sub000/internal/adapters/primary/http"
	alerterAdapter "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/alerter"
	chainAdapter "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/chain"
	kafkaAdapter "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/kafka"
	"github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/payment/usdt"
	"github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/payment/yookassa"
	"github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/storage/pg"
	redisAdapter "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/storage/redis"
	s3Adapter "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/storage/s3"
	"github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/telegram"
	"github.com/Sskutushev/Bookly-sub000/internal/pkg/logger"
	"github.com/Sskutushev/Bookly-sub000/internal/usecases/checkout"
	"github.com/Sskutushev/Bookly-sub000/internal/usecases/settlement"
)

type Config struct {
	Postgres   *pg.Config             `envconfig:"POSTGRES"`
	Redis      *redisAdapter.Config   `envconfig:"REDIS"`
	S3         *s3Adapter.Config      `envconfig:"S3"`
	Log        *logger.Config         `envconfig:"LOG"`
	Server     *server.Config         `envconfig:"APISERVER"`
	Telegram   *telegram.Config       `envconfig:"TELEGRAM"`
	Alerter    *alerterAdapter.Config `envconfig:"ALERTER"`
	Kafka      *kafkaAdapter.Config   `envconfig:"KAFKA"`
	YooKassa   *yookassa.Config       `envconfig:"YOOKASSA"`
	USDT       *usdt.Config           `envconfig:"USDT"`
	Chain      *chainAdapter.Config   `envconfig:"CHAIN"`
	Checkout   *checkout.Config       `envconfig:"CHECKOUT"`
	Settlement *settlement.Config     `envconfig:"SETTLEMENT"`
	Jobs       *JobsConfig            `envconfig:"JOBS"`
}

// JobsConfig интервалы фоновых задач
type JobsConfig struct {
	IntentExpireInterval time.Duration `envconfig:"INTENT_EXPIRE_INTERVAL" default:"1m"`
	USDTWatchInterval    time.Duration `envconfig:"USDT_WATCH_INTERVAL" default:"30s"`
	// USDTWatchEnabled выключается, если проверка только по кнопке "Я оплатил"
	USDTWatchEnabled bool `envconfig:"USDT_WATCH_ENABLED" default:"true"`
}

func NewEnvConfig(envPrefix string) (*Config, error) {
	cfg := &Config{}

	_ = godotenv.Load("deployments/local/.env")

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate только то, без чего сервис не может стартовать; платёжные шлюзы опциональны
func (c *Config) validate() error {
	if c.Postgres == nil || c.Postgres.Host == "" {
		return fmt.Errorf("postgres host is required")
	}
	if c.Telegram != nil && c.Telegram.IsWebhookEnabled() && c.Telegram.WebhookURL == "" {
		return fmt.Errorf("webhook url is required when use_webhook is true")
	}
	return nil
}

// kafkaEnabled брокеры заданы явно
func (c *Config) kafkaEnabled() bool {
	return c.Kafka != nil && c.Kafka.Brokers != ""
}

func (c *Config) redisEnabled() bool {
	return c.Redis.Enabled()
}

func (c *Config) alerterEnabled() bool {
	return c.Alerter != nil && c.Alerter.BotToken != "" && c.Alerter.ChatID != 0
}
