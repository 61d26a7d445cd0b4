package alerter

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

	alerterAdapter "github.com/Sskutushev/Bookly-sub000/internal/adapters/secondary/alerter"
)

func TestSendAlertWithoutClient(t *testing.T) {
	svc := New(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NoError(t, svc.SendAlert(context.Background(), "webhook rejected"))
}

func TestSendAlertEscapesHTML(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":5,"date":1}}`)
	}))
	defer srv.Close()

	thread := int64(9)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := alerterAdapter.NewClient(&alerterAdapter.Config{
		BotToken:        "TOKEN",
		APIURL:          srv.URL,
		ChatID:          -100123,
		MessageThreadID: &thread,
	}, log)

	require.NoError(t, New(client, log).SendAlert(context.Background(), "amount <149> & <script>"))
	assert.Equal(t, "amount &lt;149&gt; &amp; &lt;script&gt;", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
	assert.Equal(t, float64(-100123), got["chat_id"])
	assert.Equal(t, float64(9), got["message_thread_id"])
}
