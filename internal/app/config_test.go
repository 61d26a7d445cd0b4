package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvConfig(t *testing.T) {
	t.Setenv("BOOKLY_PAY_POSTGRES_HOST", "localhost")
	t.Setenv("BOOKLY_PAY_USDT_RUB_RATE", "92.5")
	t.Setenv("BOOKLY_PAY_USDT_TON_ADDRESSES", "UQaaa,UQbbb")
	t.Setenv("BOOKLY_PAY_CHECKOUT_INTENT_TTL", "15m")

	cfg, err := NewEnvConfig("bookly_pay")
	require.NoError(t, err)

	assert.Equal(t, "92.5", cfg.USDT.RUBRate.String())
	assert.Equal(t, []string{"UQaaa", "UQbbb"}, cfg.USDT.TONAddresses)
	assert.Equal(t, 15*time.Minute, cfg.Checkout.IntentTTL)
	assert.Equal(t, time.Minute, cfg.Jobs.IntentExpireInterval)
	assert.Equal(t, 10*time.Second, cfg.Settlement.VerifyTimeout)
	assert.False(t, cfg.kafkaEnabled())
	assert.False(t, cfg.S3.Enabled())
	assert.False(t, cfg.alerterEnabled())
	assert.False(t, cfg.YooKassa.IsConfigured())
}

func TestNewEnvConfigRequiresPostgres(t *testing.T) {
	t.Setenv("BOOKLY_PAY_POSTGRES_HOST", "")
	_, err := NewEnvConfig("bookly_pay")
	assert.Error(t, err)
}

func TestNewEnvConfigWebhookWithoutURL(t *testing.T) {
	t.Setenv("BOOKLY_PAY_POSTGRES_HOST", "localhost")
	t.Setenv("BOOKLY_PAY_TELEGRAM_USE_WEBHOOK", "true")
	t.Setenv("BOOKLY_PAY_TELEGRAM_WEBHOOK_URL", "")
	_, err := NewEnvConfig("bookly_pay")
	assert.Error(t, err)
}
