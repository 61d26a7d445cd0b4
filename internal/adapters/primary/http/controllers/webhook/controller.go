package webhookController

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/usecase"
)

// maxBodySize Telegram Update и уведомление ЮKassa укладываются с большим запасом
const maxBodySize = 1 << 20

// Controller единая точка приёма уведомлений от всех провайдеров
type Controller struct {
	Settlement usecase.ISettlementUseCase
	Log        *slog.Logger
}

func New(settlement usecase.ISettlementUseCase, log *slog.Logger) *Controller {
	return &Controller{
		Settlement: settlement,
		Log:        log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	router.POST("/payment/webhook", c.handleWebhook)
	router.POST("/api/payment/webhook", c.handleWebhook)
}

func (c *Controller) handleWebhook(ctx *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxBodySize))
	if err != nil {
		c.Log.Warn("failed to read webhook body", "error", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	result := c.Settlement.HandleNotification(ctx.Request.Context(), domain.Notification{
		Headers: ctx.Request.Header.Clone(),
		Body:    body,
	})

	resp := gin.H{"ok": result.AckStatus < http.StatusBadRequest}
	switch v := result.Verification; {
	case v.Rejection != nil:
		resp["error"] = string(v.Rejection.Reason)
	case v.Ignored != "":
		resp["ignored"] = v.Ignored
	}
	if result.Complete != nil {
		resp["duplicate"] = result.Complete.Duplicate
	}

	ctx.JSON(result.AckStatus, resp)
}
