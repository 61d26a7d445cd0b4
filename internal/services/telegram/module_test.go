package telegram

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	TgClient "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/telegram"
	"github.com/Sskutushev/Bookly-sub000/internal/domain"
)

type sent struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

func newService(t *testing.T, reply string) (*Service, *[]sent) {
	t.Helper()
	var messages []sent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m sent
		_ = json.NewDecoder(r.Body).Decode(&m)
		messages = append(messages, m)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(TgClient.NewClient(srv.URL, "TOKEN", log), log), &messages
}

const okReply = `{"ok":true,"result":{"message_id":1,"date":1}}`

func TestNotifyPurchaseCompleted(t *testing.T) {
	svc, messages := newService(t, okReply)

	err := svc.NotifyPurchaseCompleted(context.Background(), domain.PurchaseCompletedEvent{
		UserID:    "123456",
		BookID:    "b1",
		BookTitle: "Идиот",
	})
	require.NoError(t, err)
	require.Len(t, *messages, 1)
	assert.Equal(t, int64(123456), (*messages)[0].ChatID)
	assert.Equal(t, "Книга добавлена в вашу библиотеку: «Идиот»", (*messages)[0].Text)

	require.NoError(t, svc.NotifyPurchaseCompleted(context.Background(), domain.PurchaseCompletedEvent{
		UserID: "123456",
		ChatID: 777,
	}))
	assert.Equal(t, int64(777), (*messages)[1].ChatID)
	assert.Equal(t, purchaseCompletedText, (*messages)[1].Text)
}

func TestNotifyNonTelegramUser(t *testing.T) {
	svc, messages := newService(t, okReply)

	err := svc.NotifyPurchaseCompleted(context.Background(), domain.PurchaseCompletedEvent{UserID: "web-user"})
	require.Error(t, err)
	assert.True(t, domain.IsBusinessError(err))
	assert.Empty(t, *messages)
}

func TestSendMessageBlockedByUser(t *testing.T) {
	svc, _ := newService(t, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`)

	err := svc.SendMessage(context.Background(), 1, "hi")
	require.Error(t, err)
	assert.True(t, domain.IsBusinessError(err))
}

func TestSendMessageServerError(t *testing.T) {
	svc, _ := newService(t, `{"ok":false,"error_code":500,"description":"Internal Server Error"}`)

	err := svc.SendMessage(context.Background(), 1, "hi")
	require.Error(t, err)
	assert.False(t, domain.IsBusinessError(err))
}

func TestSendMessageWithoutClient(t *testing.T) {
	svc := New(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, svc.SendMessage(context.Background(), 1, "hi"))
}
