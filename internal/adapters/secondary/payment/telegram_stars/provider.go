package telegram_stars

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	paymentAdapter "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/payment"
	"github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/telegram"
	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	paymentPort "github.com/Sskutushev/Bookly-sub000/internal/ports/payment"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/repository"
	"github.com/Sskutushev/Bookly-sub000/internal/pkg/metrics"
)

const (
	CurrencyXTR = "XTR"

	// HeaderSecretToken Telegram присылает secret_token из setWebhook
	HeaderSecretToken = "X-Telegram-Bot-Api-Secret-Token"

	maxTitleRunes       = 32
	maxDescriptionRunes = 255
	maxLabelRunes       = 64

	// 1 рубль цены = 100 звёзд, обратно paid = total_amount / 100
	starsPerUnit = 100
)

// BotAPI методы Bot API, нужные для оплаты звёздами
type BotAPI interface {
	CreateInvoiceLink(ctx context.Context, req telegram.CreateInvoiceLinkRequest) (string, error)
	AnswerPreCheckoutQuery(ctx context.Context, queryID string, ok bool, errorMessage *string) error
}

// Provider реализует IProvider для Telegram Stars
type Provider struct {
	bot           BotAPI
	webhookSecret string
	intents       repository.IIntentRepo
	books         repository.IBookRepo
	log           *slog.Logger
}

// NewProvider создаёт провайдер Telegram Stars.
// webhookSecret тот же, что передан в setWebhook (или подставляется poller'ом)
func NewProvider(bot BotAPI, webhookSecret string, intents repository.IIntentRepo, books repository.IBookRepo, log *slog.Logger) *Provider {
	return &Provider{
		bot:           bot,
		webhookSecret: webhookSecret,
		intents:       intents,
		books:         books,
		log:           log,
	}
}

var (
	_ paymentPort.IProvider             = (*Provider)(nil)
	_ paymentPort.IHeaderDiscriminator  = (*Provider)(nil)
	_ paymentPort.IPreCheckoutConfirmer = (*Provider)(nil)
)

func (p *Provider) Method() domain.PaymentMethod {
	return domain.PaymentMethodTelegramStars
}

func (p *Provider) Ready() error {
	if p.bot == nil {
		return fmt.Errorf("%w: telegram bot token is not set", domain.ErrProviderNotConfigured)
	}
	if p.webhookSecret == "" {
		return fmt.Errorf("%w: telegram webhook secret is not set", domain.ErrProviderNotConfigured)
	}
	return nil
}

// CreateIntent сохраняет намерение с nonce и создаёт ссылку на invoice
func (p *Provider) CreateIntent(ctx context.Context, req paymentPort.IntentRequest) (*domain.ProviderHandle, error) {
	stars := req.Amount.Mul(decimal.NewFromInt(starsPerUnit)).Ceil().IntPart()
	if stars <= 0 {
		return nil, fmt.Errorf("%w: stars amount must be positive", domain.ErrValidation)
	}

	nonce := newNonce()
	payload, err := encodePayload(invoicePayload{
		BookID: req.BookID,
		UserID: req.UserID,
		Type:   payloadType,
		Nonce:  nonce,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err.Error())
	}

	now := time.Now().UTC()
	intent := &domain.PendingIntent{
		ID:             uuid.New(),
		Method:         p.Method(),
		Handle:         nonce,
		UserID:         req.UserID,
		BookID:         req.BookID,
		ExpectedAmount: req.Amount,
		Currency:       CurrencyXTR,
		Status:         domain.IntentStatusPending,
		ExpiresAt:      now.Add(req.TTL),
		CreatedAt:      now,
	}
	// намерение до ссылки: если ссылка не создастся, оно просто истечёт
	if err := p.intents.Create(ctx, intent); err != nil {
		return nil, fmt.Errorf("failed to persist stars intent: %w", err)
	}

	description := req.Description
	if description == "" {
		description = req.Title
	}

	observe := metrics.ObserveProvider(string(p.Method()), "create_invoice_link")
	link, err := p.bot.CreateInvoiceLink(ctx, telegram.CreateInvoiceLinkRequest{
		Title:         truncateRunes(req.Title, maxTitleRunes),
		Description:   truncateRunes(description, maxDescriptionRunes),
		Payload:       payload,
		ProviderToken: "",
		Currency:      CurrencyXTR,
		Prices: []telegram.LabeledPrice{
			{Label: truncateRunes(req.Title, maxLabelRunes), Amount: stars},
		},
	})
	observe()
	if err != nil {
		p.log.Warn("failed to create stars invoice link",
			"error", err,
			"user_id", req.UserID,
			"book_id", req.BookID,
		)
		return nil, fmt.Errorf("failed to create invoice link: %w", err)
	}

	return &domain.ProviderHandle{
		Method:      p.Method(),
		Handle:      nonce,
		InvoiceLink: link,
		Amount:      req.Amount,
		ExpiresAt:   intent.ExpiresAt,
	}, nil
}

// MatchesHeader уведомление пришло от Telegram webhook
func (p *Provider) MatchesHeader(n domain.Notification) bool {
	return n.Header(HeaderSecretToken) != ""
}

// CanHandle заголовок секрета или тело Update с update_id
func (p *Provider) CanHandle(n domain.Notification) bool {
	if p.MatchesHeader(n) {
		return true
	}

	var shape struct {
		UpdateID *int64 `json:"update_id"`
	}
	if err := json.Unmarshal(n.Body, &shape); err != nil {
		return false
	}
	return shape.UpdateID != nil
}

// VerifyNotification проверяет секрет и разбирает pre_checkout_query / successful_payment
func (p *Provider) VerifyNotification(ctx context.Context, n domain.Notification) domain.Verification {
	if !p.validSecret(n.Header(HeaderSecretToken)) {
		return domain.Rejected(domain.RejectBadSignature, "secret token mismatch")
	}

	var update domain.Update
	if err := json.Unmarshal(n.Body, &update); err != nil {
		return domain.Rejected(domain.RejectMalformed, "invalid update json")
	}

	if q := update.PreCheckoutQuery; q != nil {
		return p.preCheckout(q)
	}

	if update.Message == nil || update.Message.SuccessfulPayment == nil {
		return domain.Ignore("no_payment")
	}

	return p.verifyPayment(ctx, update.Message)
}

func (p *Provider) validSecret(got string) bool {
	if p.webhookSecret == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(p.webhookSecret)) == 1
}

// preCheckout всегда подтверждается, проверка суммы будет на successful_payment
func (p *Provider) preCheckout(q *domain.PreCheckoutQuery) domain.Verification {
	v := domain.Ignore("pre_checkout_query")
	v.PreCheckout = &domain.PreCheckout{QueryID: q.ID}

	if payload, err := decodePayload(q.InvoicePayload); err == nil {
		v.PreCheckout.UserID = payload.UserID
		v.PreCheckout.BookID = payload.BookID
	} else {
		p.log.Warn("pre_checkout_query with unexpected payload", "error", err, "query_id", q.ID)
	}
	return v
}

func (p *Provider) verifyPayment(ctx context.Context, msg *domain.Message) domain.Verification {
	sp := msg.SuccessfulPayment

	payload, err := decodePayload(sp.InvoicePayload)
	if err != nil {
		return domain.Rejected(domain.RejectMalformed, err.Error())
	}
	if sp.TelegramPaymentChargeID == "" {
		return domain.Rejected(domain.RejectMalformed, "empty telegram_payment_charge_id")
	}
	if sp.Currency != CurrencyXTR {
		return domain.Rejected(domain.RejectCurrencyMismatch, fmt.Sprintf("currency %s", sp.Currency))
	}

	paid := decimal.New(sp.TotalAmount, 0).Div(decimal.NewFromInt(starsPerUnit))

	expected, rejection, err := paymentAdapter.ExpectedAmount(ctx, p.intents, p.books, p.Method(), payload.Nonce, payload.UserID, payload.BookID)
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

	outcome := domain.PaymentOutcome{
		Method:        p.Method(),
		UserID:        payload.UserID,
		BookID:        payload.BookID,
		PaidAmount:    paid,
		TransactionID: sp.TelegramPaymentChargeID,
		IntentHandle:  payload.Nonce,
	}
	if msg.Chat != nil {
		outcome.ChatID = msg.Chat.ID
	}
	return domain.Verified(outcome)
}

// ConfirmPreCheckout отвечает на pre_checkout_query
func (p *Provider) ConfirmPreCheckout(ctx context.Context, queryID string, ok bool, errorMessage *string) error {
	if p.bot == nil {
		return domain.ErrProviderNotConfigured
	}

	defer metrics.ObserveProvider(string(p.Method()), "answer_pre_checkout")()
	if err := p.bot.AnswerPreCheckoutQuery(ctx, queryID, ok, errorMessage); err != nil {
		return fmt.Errorf("failed to answer pre_checkout_query: %w", err)
	}
	return nil
}

// RejectAck Telegram всегда получает 200, иначе будет повторять доставку бесконечно
func (p *Provider) RejectAck() int {
	return http.StatusOK
}
