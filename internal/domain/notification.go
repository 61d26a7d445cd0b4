package domain

import (
	"net/http"

	"github.com/shopspring/decimal"
)

// Notification входящее асинхронное уведомление от провайдера (тело + заголовки)
type Notification struct {
	Headers http.Header
	Body    []byte
}

// Header значение заголовка без учёта регистра
func (n Notification) Header(key string) string {
	if n.Headers == nil {
		return ""
	}
	return n.Headers.Get(key)
}

// RejectReason причина отклонения уведомления
type RejectReason string

const (
	RejectBadSignature       RejectReason = "bad_signature"
	RejectMalformed          RejectReason = "malformed"
	RejectInsufficientAmount RejectReason = "insufficient_amount"
	RejectCurrencyMismatch   RejectReason = "currency_mismatch"
	RejectNotPaid            RejectReason = "not_paid"
	RejectUnknownIntent      RejectReason = "unknown_intent"
	RejectProviderError      RejectReason = "provider_error"
)

// PaymentOutcome подтверждённая провайдером оплата
type PaymentOutcome struct {
	Method        PaymentMethod
	UserID        string
	BookID        string
	PaidAmount    decimal.Decimal
	TransactionID string
	IntentHandle  string
	ChatID        int64 // если известен (Telegram), для уведомления
}

// Rejection уведомление не прошло проверку
type Rejection struct {
	Reason RejectReason
	Detail string
}

// PreCheckout запрос подтверждения перед списанием (Telegram Stars)
type PreCheckout struct {
	QueryID string
	UserID  string
	BookID  string
}

// Verification результат проверки уведомления адаптером.
// Ровно одно из Outcome, Rejection, Ignored или Err заполнено.
type Verification struct {
	Outcome   *PaymentOutcome
	Rejection *Rejection
	// Ignored событие не является финальной оплатой (например payment.waiting_for_capture)
	Ignored     string
	PreCheckout *PreCheckout
	// Err временная ошибка (провайдер недоступен), уведомление нужно доставить повторно
	Err error
}

func Verified(outcome PaymentOutcome) Verification {
	return Verification{Outcome: &outcome}
}

func Rejected(reason RejectReason, detail string) Verification {
	return Verification{Rejection: &Rejection{Reason: reason, Detail: detail}}
}

func Ignore(reason string) Verification {
	return Verification{Ignored: reason}
}

func TransientFailure(err error) Verification {
	return Verification{Err: err}
}

// Result метка для логов и метрик
func (v Verification) Result() string {
	switch {
	case v.Outcome != nil:
		return "verified"
	case v.Rejection != nil:
		return "rejected"
	case v.PreCheckout != nil:
		return "pre_checkout"
	case v.Err != nil:
		return "transient_error"
	default:
		return "ignored"
	}
}
