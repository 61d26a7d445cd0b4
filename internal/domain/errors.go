package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation            = errors.New("validation error")
	ErrUnknownMethod         = errors.New("unknown payment method")
	ErrUnknownNetwork        = errors.New("unknown network")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrAccessDenied          = errors.New("access denied")
	ErrBookNotFound          = errors.New("book not found")
	ErrPurchaseNotFound      = errors.New("purchase not found")
	ErrIntentNotFound        = errors.New("payment intent not found")
	ErrRateLimited           = errors.New("rate limited")
	ErrProviderNotConfigured = errors.New("payment provider is not configured")
	ErrProviderUnavailable   = errors.New("payment provider unavailable")
	ErrNoFreeDepositAddress  = errors.New("no free deposit address")
	ErrTransactionIDConflict = errors.New("transaction id already used")
	ErrNotificationUnhandled = errors.New("no provider can handle notification")
)

// BusinessError ошибка бизнес-логики, которая уже залогирована в UseCase
type BusinessError struct {
	Err error
}

func (e *BusinessError) Error() string {
	return e.Err.Error()
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func WrapBusinessError(err error) error {
	if err == nil {
		return nil
	}
	return &BusinessError{Err: err}
}

func IsBusinessError(err error) bool {
	var businessErr *BusinessError
	return errors.As(err, &businessErr)
}

// RateLimitError превышен лимит, RetryAfter в секундах
type RateLimitError struct {
	RetryAfter int64
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s, retry after %ds", ErrRateLimited.Error(), e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}
