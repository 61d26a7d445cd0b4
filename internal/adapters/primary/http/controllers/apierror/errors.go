package apierror

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
)

// Body тело ответа с ошибкой
type Body struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Status HTTP статус и код ошибки для доменной ошибки
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrProviderNotConfigured):
		return http.StatusServiceUnavailable, "provider_not_configured"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrUnknownMethod),
		errors.Is(err, domain.ErrUnknownNetwork):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrAccessDenied):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrBookNotFound),
		errors.Is(err, domain.ErrPurchaseNotFound),
		errors.Is(err, domain.ErrIntentNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, domain.ErrProviderUnavailable):
		return http.StatusBadGateway, "provider_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// Write отвечает ошибкой; 5xx без BusinessError логируются здесь
func Write(c *gin.Context, log *slog.Logger, err error) {
	status, code := Status(err)

	message := err.Error()
	switch status {
	case http.StatusBadGateway:
		message = "payment provider unavailable, try again"
	case http.StatusInternalServerError:
		message = "internal server error"
	case http.StatusServiceUnavailable:
		message = "payment method is not available"
	}

	var rateErr *domain.RateLimitError
	if errors.As(err, &rateErr) && rateErr.RetryAfter > 0 {
		c.Header("Retry-After", strconv.FormatInt(rateErr.RetryAfter, 10))
	}

	if status >= http.StatusInternalServerError && !domain.IsBusinessError(err) {
		log.Error("request failed",
			"path", c.Request.URL.Path,
			"status", status,
			"error", err,
		)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, Body{Error: code, Message: message})
}
