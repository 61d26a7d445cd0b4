package webhookController

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/usecase"
)

type fakeSettlement struct {
	got    domain.Notification
	result *usecase.SettlementResult
}

func (f *fakeSettlement) HandleNotification(_ context.Context, n domain.Notification) *usecase.SettlementResult {
	f.got = n
	return f.result
}

func (f *fakeSettlement) VerifyUSDT(context.Context, string, string, string, domain.Network) (bool, error) {
	return false, nil
}

func post(t *testing.T, settlement *fakeSettlement, path string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	New(settlement, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"update_id":1}`))
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "s3cret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestWebhookPassesRawBodyAndHeaders(t *testing.T) {
	settlement := &fakeSettlement{result: &usecase.SettlementResult{
		Verification: domain.Verified(domain.PaymentOutcome{TransactionID: "ch_1"}),
		Complete:     &domain.CompleteResult{},
		AckStatus:    http.StatusOK,
	}}

	rec := post(t, settlement, "/payment/webhook")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"duplicate":false}`, rec.Body.String())
	assert.Equal(t, `{"update_id":1}`, string(settlement.got.Body))
	assert.Equal(t, "s3cret", settlement.got.Header("X-Telegram-Bot-Api-Secret-Token"))
}

func TestWebhookAckStatus(t *testing.T) {
	t.Run("telegram rejection stays 200", func(t *testing.T) {
		rec := post(t, &fakeSettlement{result: &usecase.SettlementResult{
			Verification: domain.Rejected(domain.RejectBadSignature, "secret token mismatch"),
			AckStatus:    http.StatusOK,
		}}, "/api/payment/webhook")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"ok":true,"error":"bad_signature"}`, rec.Body.String())
	})

	t.Run("gateway rejection", func(t *testing.T) {
		rec := post(t, &fakeSettlement{result: &usecase.SettlementResult{
			Verification: domain.Rejected(domain.RejectBadSignature, "invalid signature"),
			AckStatus:    http.StatusBadRequest,
		}}, "/payment/webhook")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"ok":false,"error":"bad_signature"}`, rec.Body.String())
	})

	t.Run("transient", func(t *testing.T) {
		rec := post(t, &fakeSettlement{result: &usecase.SettlementResult{
			Verification: domain.TransientFailure(io.ErrUnexpectedEOF),
			AckStatus:    http.StatusInternalServerError,
		}}, "/payment/webhook")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("unknown provider", func(t *testing.T) {
		rec := post(t, &fakeSettlement{result: &usecase.SettlementResult{
			Verification: domain.Ignore("unknown_provider"),
			AckStatus:    http.StatusOK,
		}}, "/payment/webhook")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"ok":true,"ignored":"unknown_provider"}`, rec.Body.String())
	})
}
