package middlewares

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/Sskutushev/Bookly-sub000/internal/adapters/primary/http/controllers/apierror"
)

// RecoveryLogger паника в обработчике уведомления даёт 500, провайдер пришлёт его ещё раз.
// Покупка пишется в транзакции, так что повтор безопасен
func RecoveryLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			log.Error("handler panicked",
				"route", c.FullPath(),
				"method", c.Request.Method,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.Body{Error: "internal", Message: "internal server error"})
		}()
		c.Next()
	}
}
