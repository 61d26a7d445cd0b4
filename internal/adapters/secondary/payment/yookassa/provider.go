package yookassa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	paymentAdapter "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/payment"
	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	paymentPort "github.com/Sskutushev/Bookly-sub000/internal/ports/payment"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/repository"
	"github.com/Sskutushev/Bookly-sub000/internal/pkg/metrics"
)

const (
	metadataBookID = "bookId"
	metadataUserID = "userId"

	maxDescriptionLen = 128
)

// Provider реализует IProvider для карт/СБП через ЮKassa
type Provider struct {
	cfg     *Config
	client  *Client
	intents repository.IIntentRepo
	books   repository.IBookRepo
	log     *slog.Logger
}

func NewProvider(cfg *Config, client *Client, intents repository.IIntentRepo, books repository.IBookRepo, log *slog.Logger) *Provider {
	return &Provider{
		cfg:     cfg,
		client:  client,
		intents: intents,
		books:   books,
		log:     log,
	}
}

var (
	_ paymentPort.IProvider            = (*Provider)(nil)
	_ paymentPort.IHeaderDiscriminator = (*Provider)(nil)
)

func (p *Provider) Method() domain.PaymentMethod {
	return domain.PaymentMethodYooKassa
}

// Ready без shopId/secretKey недоступен только этот способ оплаты
func (p *Provider) Ready() error {
	if !p.cfg.IsConfigured() || p.client == nil {
		return fmt.Errorf("%w: yookassa shop id or secret key is not set", domain.ErrProviderNotConfigured)
	}
	return nil
}

// CreateIntent создаёт платёж с redirect-подтверждением и сохраняет намерение по id платежа
func (p *Provider) CreateIntent(ctx context.Context, req paymentPort.IntentRequest) (*domain.ProviderHandle, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}

	idempotenceKey := req.IdempotenceKey
	if idempotenceKey == "" {
		idempotenceKey = uuid.NewString()
	}

	description := req.Description
	if description == "" {
		description = req.Title
	}
	if r := []rune(description); len(r) > maxDescriptionLen {
		description = string(r[:maxDescriptionLen])
	}

	body := CreatePaymentRequest{
		Amount: Amount{
			Value:    req.Amount.StringFixed(2),
			Currency: CurrencyRUB,
		},
		Capture: true,
		Confirmation: Confirmation{
			Type:      confirmationRedirect,
			ReturnURL: p.cfg.ReturnURL(),
		},
		Description: description,
		Metadata: map[string]string{
			metadataBookID: req.BookID,
			metadataUserID: req.UserID,
		},
	}
	if p.cfg.PaymentMethodType != "" {
		body.PaymentMethodData = &PaymentMethodData{Type: p.cfg.PaymentMethodType}
	}

	observe := metrics.ObserveProvider(string(p.Method()), "create_payment")
	payment, err := p.client.CreatePayment(ctx, body, idempotenceKey)
	observe()
	if err != nil {
		p.log.Warn("failed to create yookassa payment",
			"error", err,
			"user_id", req.UserID,
			"book_id", req.BookID,
		)
		return nil, err
	}

	now := time.Now().UTC()
	intent := &domain.PendingIntent{
		ID:             uuid.New(),
		Method:         p.Method(),
		Handle:         payment.ID,
		UserID:         req.UserID,
		BookID:         req.BookID,
		ExpectedAmount: req.Amount,
		Currency:       CurrencyRUB,
		Status:         domain.IntentStatusPending,
		ExpiresAt:      now.Add(req.TTL),
		CreatedAt:      now,
	}
	if err := p.intents.Create(ctx, intent); err != nil {
		return nil, fmt.Errorf("failed to persist yookassa intent: %w", err)
	}

	handle := &domain.ProviderHandle{
		Method:    p.Method(),
		Handle:    payment.ID,
		PaymentID: payment.ID,
		Status:    payment.Status,
		Amount:    req.Amount,
		ExpiresAt: intent.ExpiresAt,
	}
	if payment.Confirmation != nil {
		handle.ConfirmationURL = payment.Confirmation.ConfirmationURL
	}

	p.log.Info("yookassa payment created",
		"payment_id", payment.ID,
		"user_id", req.UserID,
		"book_id", req.BookID,
		"amount", body.Amount.Value,
	)
	return handle, nil
}

// MatchesHeader уведомление подписано шлюзом
func (p *Provider) MatchesHeader(n domain.Notification) bool {
	return n.Header(HeaderSignature) != ""
}

// CanHandle заголовок подписи или тело вида {event, object}
func (p *Provider) CanHandle(n domain.Notification) bool {
	if p.MatchesHeader(n) {
		return true
	}

	var shape struct {
		Event  *string          `json:"event"`
		Object *json.RawMessage `json:"object"`
	}
	if err := json.Unmarshal(n.Body, &shape); err != nil {
		return false
	}
	return shape.Event != nil && shape.Object != nil
}

// VerifyNotification подпись (если настроена), затем повторный запрос платежа - источник истины
func (p *Provider) VerifyNotification(ctx context.Context, n domain.Notification) domain.Verification {
	if p.cfg != nil && p.cfg.WebhookSecret != "" {
		if !VerifySignature(p.cfg.WebhookSecret, n.Body, n.Header(HeaderSignature)) {
			return domain.Rejected(domain.RejectBadSignature, "invalid "+HeaderSignature)
		}
	}

	var notification Notification
	if err := json.Unmarshal(n.Body, &notification); err != nil {
		return domain.Rejected(domain.RejectMalformed, "invalid notification json")
	}
	if notification.Event == "" || notification.Object.ID == "" {
		return domain.Rejected(domain.RejectMalformed, "event or object.id is missing")
	}
	if notification.Event != EventPaymentSucceeded {
		return domain.Ignore("event " + notification.Event)
	}

	if err := p.Ready(); err != nil {
		return domain.TransientFailure(err)
	}

	observe := metrics.ObserveProvider(string(p.Method()), "get_payment")
	payment, err := p.client.GetPayment(ctx, notification.Object.ID)
	observe()
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return domain.Rejected(domain.RejectUnknownIntent, "payment not found at provider")
		}
		return domain.TransientFailure(err)
	}

	return p.verifyPayment(ctx, payment)
}

func (p *Provider) verifyPayment(ctx context.Context, payment *Payment) domain.Verification {
	if payment.Status != StatusSucceeded || !payment.Paid {
		return domain.Rejected(domain.RejectNotPaid,
			fmt.Sprintf("status %s, paid %t", payment.Status, payment.Paid))
	}
	if payment.Amount.Currency != CurrencyRUB {
		return domain.Rejected(domain.RejectCurrencyMismatch, "currency "+payment.Amount.Currency)
	}

	bookID := payment.Metadata[metadataBookID]
	userID := payment.Metadata[metadataUserID]
	if bookID == "" || userID == "" {
		return domain.Rejected(domain.RejectMalformed, "metadata without bookId or userId")
	}

	paid, err := decimal.NewFromString(payment.Amount.Value)
	if err != nil {
		return domain.Rejected(domain.RejectMalformed, "invalid amount value")
	}

	expected, rejection, err := paymentAdapter.ExpectedAmount(ctx, p.intents, p.books, p.Method(), payment.ID, userID, bookID)
	if err != nil {
		return domain.TransientFailure(err)
	}
	if rejection != nil {
		return *rejection
	}

	if paid.LessThan(expected) {
		return domain.Rejected(domain.RejectInsufficientAmount,
			fmt.Sprintf("paid %s < expected %s", paid.String(), expected.String()))
	}

	return domain.Verified(domain.PaymentOutcome{
		Method:        p.Method(),
		UserID:        userID,
		BookID:        bookID,
		PaidAmount:    paid,
		TransactionID: payment.ID,
		IntentHandle:  payment.ID,
	})
}

// RejectAck неверная подпись или тело - ошибка навсегда, повторять нет смысла
func (p *Provider) RejectAck() int {
	return http.StatusBadRequest
}
