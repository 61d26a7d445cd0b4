package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sskutushev/Bookly-sub000/internal/ports/repository"
)

const intentExpirerName = "intent-expirer"

// IntentExpirer переводит просроченные pending намерения в expired, освобождая адреса USDT
type IntentExpirer struct {
	intents  repository.IIntentRepo
	interval time.Duration
	log      *slog.Logger
}

func NewIntentExpirer(intents repository.IIntentRepo, interval time.Duration, log *slog.Logger) *IntentExpirer {
	if interval <= 0 {
		interval = time.Minute
	}
	return &IntentExpirer{
		intents:  intents,
		interval: interval,
		log:      log,
	}
}

func (j *IntentExpirer) Name() string {
	return intentExpirerName
}

func (j *IntentExpirer) NextRun(now time.Time) time.Time {
	return now.Add(j.interval)
}

func (j *IntentExpirer) Run(ctx context.Context) error {
	expired, err := j.intents.ExpireBefore(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("expire intents: %w", err)
	}
	if expired > 0 {
		j.log.Info("pending intents expired", "count", expired)
	}
	return nil
}
