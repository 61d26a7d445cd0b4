package usdt

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
)

type Config struct {
	// RUBRate сколько рублей стоит 1 USDT
	RUBRate        decimal.Decimal `envconfig:"RUB_RATE"`
	TONAddresses   []string        `envconfig:"TON_ADDRESSES"`   // "UQ...,UQ..."
	TRC20Addresses []string        `envconfig:"TRC20_ADDRESSES"` // "T...,T..."
	// AddressCooldown адрес не выдаётся повторно, пока не пройдёт это время с прошлой выдачи
	AddressCooldown  time.Duration `envconfig:"ADDRESS_COOLDOWN" default:"24h"`
	AllocateAttempts uint          `envconfig:"ALLOCATE_ATTEMPTS" default:"3"`
}

// Addresses пул адресов сети из конфигурации
func (c *Config) Addresses(network domain.Network) []string {
	if c == nil {
		return nil
	}
	switch network {
	case domain.NetworkTON:
		return c.TONAddresses
	case domain.NetworkTRC20:
		return c.TRC20Addresses
	default:
		return nil
	}
}
