package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/telegram"
	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	paymentPort "github.com/Sskutushev/Bookly-sub000/internal/ports/payment"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBot Bot API для Stars: запоминает invoice и ответы на pre_checkout_query
type fakeBot struct {
	mu        sync.Mutex
	invoices  []telegram.CreateInvoiceLinkRequest
	answers   map[string]bool
	answerErr error
}

func newFakeBot() *fakeBot {
	return &fakeBot{answers: make(map[string]bool)}
}

func (b *fakeBot) CreateInvoiceLink(_ context.Context, req telegram.CreateInvoiceLinkRequest) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.invoices = append(b.invoices, req)
	return "https://t.me/$invoice", nil
}

func (b *fakeBot) AnswerPreCheckoutQuery(_ context.Context, queryID string, ok bool, _ *string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.answerErr != nil {
		return b.answerErr
	}
	b.answers[queryID] = ok
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.PurchaseCompletedEvent
	err    error
	// hold не nil - публикация висит, пока канал не закроют (медленный брокер)
	hold chan struct{}
}

func (p *fakePublisher) PublishPurchaseCompleted(ctx context.Context, event domain.PurchaseCompletedEvent) error {
	if p.hold != nil {
		select {
		case <-p.hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeNotifier struct {
	mu     sync.Mutex
	events []domain.PurchaseCompletedEvent
}

func (n *fakeNotifier) NotifyPurchaseCompleted(_ context.Context, event domain.PurchaseCompletedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

type fakeAlerter struct {
	mu       sync.Mutex
	messages []string
}

func (a *fakeAlerter) SendAlert(_ context.Context, message string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, message)
	return nil
}

// stubProvider провайдер с заданным заголовком/формой и готовым результатом проверки
type stubProvider struct {
	method       domain.PaymentMethod
	header       string
	bodyKey      string
	verification domain.Verification
	rejectAck    int
	verified     int
}

func (p *stubProvider) Method() domain.PaymentMethod { return p.method }
func (p *stubProvider) Ready() error { return nil }

func (p *stubProvider) CreateIntent(context.Context, paymentPort.IntentRequest) (*domain.ProviderHandle, error) {
	return nil, errors.New("not used")
}

func (p *stubProvider) MatchesHeader(n domain.Notification) bool {
	return p.header != "" && n.Header(p.header) != ""
}

func (p *stubProvider) CanHandle(n domain.Notification) bool {
	return p.MatchesHeader(n) || (p.bodyKey != "" && bodyHasKey(n.Body, p.bodyKey))
}

func (p *stubProvider) VerifyNotification(context.Context, domain.Notification) domain.Verification {
	p.verified++
	return p.verification
}

func (p *stubProvider) RejectAck() int {
	if p.rejectAck == 0 {
		return http.StatusOK
	}
	return p.rejectAck
}

// stubChain USDT провайдер с заданным результатом проверки адреса
type stubChain struct {
	stubProvider
	addressResult func(intent *domain.PendingIntent) domain.Verification
}

func (p *stubChain) VerifyAddress(_ context.Context, intent *domain.PendingIntent) domain.Verification {
	return p.addressResult(intent)
}

func bodyHasKey(body []byte, key string) bool {
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(body, &shape); err != nil {
		return false
	}
	_, ok := shape[key]
	return ok
}
