package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkaAdapter "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/kafka"
	"github.com/Sskutushev/Bookly-sub000/internal/domain"
)

type fakeNotifier struct {
	events []domain.PurchaseCompletedEvent
	err    error
}

func (n *fakeNotifier) NotifyPurchaseCompleted(_ context.Context, event domain.PurchaseCompletedEvent) error {
	n.events = append(n.events, event)
	return n.err
}

func newHandler(n *fakeNotifier) *PurchaseCompletedHandler {
	return NewPurchaseCompletedHandler(n, slog.New(slog.NewTextHandler(io.Discard, nil))).(*PurchaseCompletedHandler)
}

var purchaseHeaders = map[string]string{kafkaAdapter.HeaderEventType: kafkaAdapter.EventTypePurchaseCompleted}

func TestHandleMessage(t *testing.T) {
	n := &fakeNotifier{}
	h := newHandler(n)

	err := h.HandleMessage(context.Background(), "u1",
		[]byte(`{"purchase_id":"p1","user_id":"u1","book_id":"b1","amount":"149","payment_method":"telegram_stars","chat_id":555}`),
		purchaseHeaders)
	require.NoError(t, err)
	require.Len(t, n.events, 1)
	assert.Equal(t, int64(555), n.events[0].ChatID)
	assert.Equal(t, "149", n.events[0].Amount.String())
}

func TestHandleMessageSkipsForeignEvents(t *testing.T) {
	n := &fakeNotifier{}
	h := newHandler(n)

	err := h.HandleMessage(context.Background(), "u1", []byte(`not json`), map[string]string{kafkaAdapter.HeaderEventType: "book.updated"})
	require.NoError(t, err)
	assert.Empty(t, n.events)
}

func TestHandleMessageErrors(t *testing.T) {
	h := newHandler(&fakeNotifier{})
	assert.Error(t, h.HandleMessage(context.Background(), "k", []byte(`{`), purchaseHeaders))
	assert.Error(t, h.HandleMessage(context.Background(), "k", []byte(`{"purchase_id":"p1"}`), purchaseHeaders))

	failing := newHandler(&fakeNotifier{err: errors.New("blocked by user")})
	err := failing.HandleMessage(context.Background(), "u1", []byte(`{"user_id":"u1","book_id":"b1"}`), purchaseHeaders)
	assert.Error(t, err)
}
