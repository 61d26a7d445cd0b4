package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/shopspring/decimal"
)

// USDT в TON и TRON - 6 знаков
const usdtDecimals = 6

// statusError не-200 от эксплорера
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("explorer returned status %d: %s", e.StatusCode, e.Body)
}

// httpGetter GET с повторами для публичных API эксплореров
type httpGetter struct {
	client *http.Client
	cfg    *Config
	log    *slog.Logger
}

func newHTTPGetter(cfg *Config, log *slog.Logger) *httpGetter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &httpGetter{
		client: &http.Client{Timeout: timeout},
		cfg:    cfg,
		log:    log,
	}
}

func (g *httpGetter) getJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	attempts := g.cfg.RetryAttempts
	if attempts == 0 {
		attempts = 1
	}

	return retry.Do(
		func() error {
			return g.get(ctx, url, headers, out)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(g.cfg.RetryDelay),
		retry.MaxDelay(g.cfg.RetryMaxDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			if !retry.IsRecoverable(err) {
				return false
			}
			var se *statusError
			if errors.As(err, &se) {
				// публичные эксплореры часто отвечают 429 без ключа
				return se.StatusCode >= http.StatusInternalServerError || se.StatusCode == http.StatusTooManyRequests
			}
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
	)
}

func (g *httpGetter) get(ctx context.Context, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("explorer request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read explorer response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		g.log.Debug("explorer returned non-200 status", "status_code", resp.StatusCode, "body_preview", preview)
		return &statusError{StatusCode: resp.StatusCode, Body: preview}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return retry.Unrecoverable(fmt.Errorf("failed to unmarshal explorer response: %w", err))
	}
	return nil
}

// fromUnits "1500000" -> 1.5
func fromUnits(raw string) (decimal.Decimal, error) {
	units, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid token amount %q: %w", raw, err)
	}
	return units.Shift(-usdtDecimals), nil
}
