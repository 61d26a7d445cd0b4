package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/Sskutushev/Bookly-sub000/internal/ports/cache"
)

const (
	minuteWindow = time.Minute
	tenSecWindow = 10 * time.Second
)

// Limiter ограничение частоты создания платежей на пользователя, два фиксированных окна в Redis
type Limiter struct {
	store     cache.IWindowStore
	perMinute int
	per10Sec  int
}

// NewLimiter лимит 0 отключает соответствующее окно
func NewLimiter(store cache.IWindowStore, perMinute, per10Sec int) *Limiter {
	if perMinute < 0 {
		perMinute = 0
	}
	if per10Sec < 0 {
		per10Sec = 0
	}

	return &Limiter{
		store:     store,
		perMinute: perMinute,
		per10Sec:  per10Sec,
	}
}

// Allow засчитывает попытку; при превышении возвращает false и через сколько секунд повторить
func (l *Limiter) Allow(ctx context.Context, userID string) (int64, bool, error) {
	if userID == "" {
		return 0, false, fmt.Errorf("invalid user id")
	}
	if l == nil || l.store == nil {
		return 0, true, nil
	}

	retryAfterSec := int64(0)

	if l.perMinute > 0 {
		count, ttl, err := l.store.IncrementWindow(ctx, minuteKey(userID), minuteWindow)
		if err != nil {
			return 0, false, err
		}
		if count > int64(l.perMinute) {
			retryAfterSec = max(retryAfterSec, ceilSeconds(ttl))
		}
	}

	if l.per10Sec > 0 {
		count, ttl, err := l.store.IncrementWindow(ctx, tenSecKey(userID), tenSecWindow)
		if err != nil {
			return 0, false, err
		}
		if count > int64(l.per10Sec) {
			retryAfterSec = max(retryAfterSec, ceilSeconds(ttl))
		}
	}

	if retryAfterSec > 0 {
		return retryAfterSec, false, nil
	}
	return 0, true, nil
}

func minuteKey(userID string) string {
	return "rate:checkout:min:" + userID
}

func tenSecKey(userID string) string {
	return "rate:checkout:10s:" + userID
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	return sec
}
