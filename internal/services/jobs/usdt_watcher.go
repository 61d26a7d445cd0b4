package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
)

const usdtWatcherName = "usdt-watcher"

// ILiveIntentSettler проверка живых USDT намерений в блокчейне
type ILiveIntentSettler interface {
	SettleLiveIntents(ctx context.Context, network domain.Network) (int, error)
}

// USDTWatcher периодически ищет оплату по выданным адресам, без участия клиента
type USDTWatcher struct {
	settler  ILiveIntentSettler
	networks []domain.Network
	interval time.Duration
	log      *slog.Logger
}

func NewUSDTWatcher(settler ILiveIntentSettler, networks []domain.Network, interval time.Duration, log *slog.Logger) *USDTWatcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &USDTWatcher{
		settler:  settler,
		networks: networks,
		interval: interval,
		log:      log,
	}
}

func (j *USDTWatcher) Name() string {
	return usdtWatcherName
}

func (j *USDTWatcher) NextRun(now time.Time) time.Time {
	return now.Add(j.interval)
}

// Run сети обрабатываются независимо, ошибка одной не мешает другой
func (j *USDTWatcher) Run(ctx context.Context) error {
	var errs []error
	for _, network := range j.networks {
		settled, err := j.settler.SettleLiveIntents(ctx, network)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if settled > 0 {
			j.log.Info("usdt payments settled by watcher", "network", network, "count", settled)
		}
	}
	return errors.Join(errs...)
}
