package yookassa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

// truncateString обрезает строку до указанной длины
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// APIError ответ ЮKassa с кодом 4xx/5xx
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yookassa API error [status=%d, code=%s]: %s", e.StatusCode, e.Code, e.Description)
}

// Retryable 5xx и 429 повторяем, остальные 4xx - нет
func (e *APIError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// Client - клиент API ЮKassa
type Client struct {
	cfg        *Config
	HTTPClient *http.Client
	Log        *slog.Logger
}

// NewClient создаёт новый клиент для API ЮKassa
func NewClient(cfg *Config, log *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		cfg: cfg,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		Log: log,
	}
}

// CreatePayment создаёт платёж, повтор безопасен за счёт Idempotence-Key
func (c *Client) CreatePayment(ctx context.Context, req CreatePaymentRequest, idempotenceKey string) (*Payment, error) {
	var payment Payment
	if err := c.doWithRetry(ctx, http.MethodPost, "/payments", req, idempotenceKey, &payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	return &payment, nil
}

// GetPayment получает актуальное состояние платежа
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var payment Payment
	if err := c.doWithRetry(ctx, http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil, "", &payment); err != nil {
		return nil, fmt.Errorf("failed to get payment %s: %w", paymentID, err)
	}
	return &payment, nil
}

func (c *Client) doWithRetry(ctx context.Context, method, path string, body any, idempotenceKey string, out any) error {
	attempts := c.cfg.RetryAttempts
	if attempts == 0 {
		attempts = 1
	}

	return retry.Do(
		func() error {
			return c.do(ctx, method, path, body, idempotenceKey, out)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.cfg.RetryDelay),
		retry.MaxDelay(c.cfg.RetryMaxDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			c.Log.Debug("retrying yookassa request",
				"attempt", n+1,
				"method", method,
				"path", path,
				"error", err,
			)
		}),
	)
}

func isRetryable(err error) bool {
	if !retry.IsRecoverable(err) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	// отмена контекста не повторяем, сетевые ошибки - да
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) do(ctx context.Context, method, path string, body any, idempotenceKey string, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("yookassa marshal failed: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	endpoint := strings.TrimSuffix(c.cfg.APIURL, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("yookassa create request failed: %w", err)
	}

	httpReq.SetBasicAuth(c.cfg.ShopID, c.cfg.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if idempotenceKey != "" {
		httpReq.Header.Set("Idempotence-Key", idempotenceKey)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("yookassa request failed [%s %s]: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("yookassa read body failed [status=%d]: %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil {
			apiErr.Code = errResp.Code
			apiErr.Description = errResp.Description
		} else {
			apiErr.Description = truncateString(string(respBody), 200)
		}

		// ошибка внешнего API - Debug, решение принимает вызывающий
		c.Log.Debug("yookassa API returned non-200 status",
			"status_code", resp.StatusCode,
			"method", method,
			"path", path,
			"body_preview", truncateString(string(respBody), 200),
		)
		return apiErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		c.Log.Debug("failed to unmarshal yookassa response",
			"error", err,
			"body_preview", truncateString(string(respBody), 200),
		)
		return retry.Unrecoverable(fmt.Errorf("yookassa unmarshal failed [status=%d]: %w", resp.StatusCode, err))
	}
	return nil
}
