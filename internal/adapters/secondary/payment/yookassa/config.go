package yookassa

import (
	"strings"
	"time"
)

type Config struct {
	ShopID        string `envconfig:"SHOP_ID"`
	SecretKey     string `envconfig:"SECRET_KEY"`
	APIURL        string `envconfig:"API_URL" default:"https://api.yookassa.ru/v3"`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"` // пусто - подпись не проверяется, остаётся повторный запрос платежа
	// PaymentMethodType "bank_card" или "sbp"
	PaymentMethodType string        `envconfig:"PAYMENT_METHOD_TYPE" default:"bank_card"`
	FrontendURL       string        `envconfig:"FRONTEND_URL"`
	Timeout           time.Duration `envconfig:"TIMEOUT" default:"10s"`
	RetryAttempts     uint          `envconfig:"RETRY_ATTEMPTS" default:"3"`
	RetryDelay        time.Duration `envconfig:"RETRY_DELAY" default:"200ms"`
	RetryMaxDelay     time.Duration `envconfig:"RETRY_MAX_DELAY" default:"2s"`
}

// IsConfigured есть учётные данные магазина
func (c *Config) IsConfigured() bool {
	return c != nil && c.ShopID != "" && c.SecretKey != ""
}

// ReturnURL куда ЮKassa вернёт пользователя после оплаты
func (c *Config) ReturnURL() string {
	return strings.TrimRight(c.FrontendURL, "/") + "/payment-success"
}
