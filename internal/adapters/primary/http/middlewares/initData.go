package middlewares

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	HeaderInitData = "X-Telegram-Init-Data"

	authorizationScheme = "tma "
	userIDKey           = "tg_user_id"

	// DefaultInitDataMaxAge Mini App initData действует сутки
	DefaultInitDataMaxAge = 24 * time.Hour
)

var ErrInvalidInitData = errors.New("invalid telegram init data")

// ValidateInitData проверяет подпись initData ключом HMAC("WebAppData", botToken) и возвращает id пользователя
func ValidateInitData(initData, botToken string, maxAge time.Duration, now time.Time) (int64, error) {
	trimmed := strings.TrimSpace(initData)
	if trimmed == "" || botToken == "" {
		return 0, ErrInvalidInitData
	}

	query, err := url.ParseQuery(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidInitData, err.Error())
	}

	hash := strings.ToLower(strings.TrimSpace(query.Get("hash")))
	if hash == "" {
		return 0, ErrInvalidInitData
	}
	query.Del("hash")

	expected := SignInitData(query, botToken)
	if !hmac.Equal([]byte(hash), []byte(expected)) {
		return 0, ErrInvalidInitData
	}

	authDate, err := strconv.ParseInt(query.Get("auth_date"), 10, 64)
	if err != nil || authDate <= 0 {
		return 0, ErrInvalidInitData
	}
	authTime := time.Unix(authDate, 0)
	if authTime.After(now.Add(2 * time.Minute)) {
		return 0, ErrInvalidInitData
	}
	if maxAge > 0 && now.Sub(authTime) > maxAge {
		return 0, fmt.Errorf("%w: auth_date is too old", ErrInvalidInitData)
	}

	var user struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal([]byte(query.Get("user")), &user); err != nil || user.ID <= 0 {
		return 0, fmt.Errorf("%w: no user", ErrInvalidInitData)
	}
	return user.ID, nil
}

// SignInitData hex подписи для набора полей без hash
func SignInitData(fields url.Values, botToken string) string {
	pairs := make([]string, 0, len(fields))
	for k, v := range fields {
		if k == "hash" {
			continue
		}
		value := ""
		if len(v) > 0 {
			value = v[0]
		}
		pairs = append(pairs, k+"="+value)
	}
	sort.Strings(pairs)

	secret := hmacSHA256([]byte("WebAppData"), []byte(botToken))
	return hex.EncodeToString(hmacSHA256(secret, []byte(strings.Join(pairs, "\n"))))
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// TelegramAuth пропускает только запросы с валидным initData (заголовок или Authorization: tma ...)
func TelegramAuth(botToken string, maxAge time.Duration, log *slog.Logger) gin.HandlerFunc {
	if botToken == "" {
		log.Warn("telegram bot token is not set, all mini app requests will be rejected")
	}

	return func(c *gin.Context) {
		initData := c.GetHeader(HeaderInitData)
		if initData == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, authorizationScheme) {
				initData = strings.TrimPrefix(auth, authorizationScheme)
			}
		}

		userID, err := ValidateInitData(initData, botToken, maxAge, time.Now())
		if err != nil {
			log.Debug("mini app request rejected",
				"path", c.Request.URL.Path,
				"error", err,
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "invalid or missing telegram init data",
			})
			return
		}

		SetUserID(c, strconv.FormatInt(userID, 10))
		c.Next()
	}
}

// UserID id пользователя Telegram, установленный TelegramAuth
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// SetUserID кладёт id пользователя в контекст запроса
func SetUserID(c *gin.Context, userID string) {
	c.Set(userIDKey, userID)
}
