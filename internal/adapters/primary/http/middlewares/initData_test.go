package middlewares

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const botToken = "123456:TEST-TOKEN"

func signedInitData(authDate time.Time, user string) string {
	fields := url.Values{}
	fields.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	fields.Set("query_id", "AAHdF6IQAAAAAN0XohDhrOrc")
	fields.Set("user", user)
	fields.Set("hash", SignInitData(fields, botToken))
	return fields.Encode()
}

func TestValidateInitData(t *testing.T) {
	now := time.Now()
	valid := signedInitData(now.Add(-time.Hour), `{"id":777,"first_name":"Ann"}`)

	t.Run("valid", func(t *testing.T) {
		id, err := ValidateInitData(valid, botToken, DefaultInitDataMaxAge, now)
		require.NoError(t, err)
		assert.Equal(t, int64(777), id)
	})

	t.Run("wrong token", func(t *testing.T) {
		_, err := ValidateInitData(valid, "other-token", DefaultInitDataMaxAge, now)
		assert.ErrorIs(t, err, ErrInvalidInitData)
	})

	t.Run("tampered user", func(t *testing.T) {
		fields, err := url.ParseQuery(valid)
		require.NoError(t, err)
		fields.Set("user", `{"id":1}`)
		_, err = ValidateInitData(fields.Encode(), botToken, DefaultInitDataMaxAge, now)
		assert.ErrorIs(t, err, ErrInvalidInitData)
	})

	t.Run("expired", func(t *testing.T) {
		old := signedInitData(now.Add(-25*time.Hour), `{"id":777}`)
		_, err := ValidateInitData(old, botToken, DefaultInitDataMaxAge, now)
		assert.ErrorIs(t, err, ErrInvalidInitData)
	})

	t.Run("from the future", func(t *testing.T) {
		future := signedInitData(now.Add(time.Hour), `{"id":777}`)
		_, err := ValidateInitData(future, botToken, DefaultInitDataMaxAge, now)
		assert.ErrorIs(t, err, ErrInvalidInitData)
	})

	t.Run("no hash", func(t *testing.T) {
		_, err := ValidateInitData("auth_date=1&user=%7B%22id%22%3A1%7D", botToken, DefaultInitDataMaxAge, now)
		assert.ErrorIs(t, err, ErrInvalidInitData)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := ValidateInitData(valid, "", DefaultInitDataMaxAge, now)
		assert.ErrorIs(t, err, ErrInvalidInitData)
	})
}

func TestTelegramAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(TelegramAuth(botToken, DefaultInitDataMaxAge, slog.New(slog.NewTextHandler(io.Discard, nil))))
	router.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})

	initData := signedInitData(time.Now(), `{"id":42}`)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(HeaderInitData, initData)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "tma "+initData)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")
}
