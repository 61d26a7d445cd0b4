package paymentController

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Sskutushev/Bookly-sub000/internal/adapters/primary/http/controllers/apierror"
	"github.com/Sskutushev/Bookly-sub000/internal/adapters/primary/http/middlewares"
	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	"github.com/Sskutushev/Bookly-sub000/internal/ports/usecase"
)

// Controller создание платежей из Mini App и ручная проверка USDT
type Controller struct {
	Checkout   usecase.ICheckoutUseCase
	Settlement usecase.ISettlementUseCase
	Auth       gin.HandlerFunc
	Log        *slog.Logger
}

func New(checkout usecase.ICheckoutUseCase, settlement usecase.ISettlementUseCase, auth gin.HandlerFunc, log *slog.Logger) *Controller {
	return &Controller{
		Checkout:   checkout,
		Settlement: settlement,
		Auth:       auth,
		Log:        log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	for _, prefix := range []string{"/payment", "/api/payment"} {
		g := router.Group(prefix, c.Auth)
		g.POST("/create-invoice", c.createInvoice)
		g.POST("/create-gateway", c.createGateway)
		g.POST("/create-yookassa", c.createGateway)
		g.POST("/create-usdt-ton", c.createUSDT(domain.NetworkTON))
		g.POST("/create-usdt-trc20", c.createUSDT(domain.NetworkTRC20))
		g.POST("/verify-usdt", c.verifyUSDT)
	}
}

func (c *Controller) start(ctx *gin.Context, method domain.PaymentMethod) (*usecase.StartResult, bool) {
	var req createRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apierror.Write(ctx, c.Log, fmt.Errorf("%w: bookId is required", domain.ErrValidation))
		return nil, false
	}

	res, err := c.Checkout.StartPurchase(ctx.Request.Context(), middlewares.UserID(ctx), req.BookID, method)
	if err != nil {
		apierror.Write(ctx, c.Log, err)
		return nil, false
	}

	if res.AlreadyOwned {
		ctx.JSON(http.StatusOK, alreadyOwnedResponse{AlreadyOwned: true, BookID: res.BookID})
		return nil, false
	}
	return res, true
}

func (c *Controller) createInvoice(ctx *gin.Context) {
	res, ok := c.start(ctx, domain.PaymentMethodTelegramStars)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, invoiceResponse{
		InvoiceLink: res.Handle.InvoiceLink,
		BookID:      res.BookID,
		Amount:      res.Handle.Amount.InexactFloat64(),
	})
}

func (c *Controller) createGateway(ctx *gin.Context) {
	res, ok := c.start(ctx, domain.PaymentMethodYooKassa)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, gatewayResponse{
		PaymentID:       res.Handle.PaymentID,
		ConfirmationURL: res.Handle.ConfirmationURL,
		Status:          res.Handle.Status,
	})
}

func (c *Controller) createUSDT(network domain.Network) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		res, ok := c.start(ctx, network.Method())
		if !ok {
			return
		}

		resp := usdtResponse{
			Address:        res.Handle.Address,
			ExpectedAmount: res.Handle.Amount.StringFixed(2),
			Network:        string(network),
		}
		if !res.Handle.ExpiresAt.IsZero() {
			resp.ExpiresAt = res.Handle.ExpiresAt.UTC().Format(time.RFC3339)
		}
		ctx.JSON(http.StatusOK, resp)
	}
}

// verifyUSDT проверка по кнопке "Я оплатил", userId из тела должен совпасть с initData
func (c *Controller) verifyUSDT(ctx *gin.Context) {
	var req verifyUSDTRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apierror.Write(ctx, c.Log, fmt.Errorf("%w: address, network and bookId are required", domain.ErrValidation))
		return
	}

	userID := middlewares.UserID(ctx)
	if req.UserID != "" && req.UserID != userID {
		apierror.Write(ctx, c.Log, fmt.Errorf("%w: userId does not match init data", domain.ErrAccessDenied))
		return
	}

	network, err := domain.ParseNetwork(req.Network)
	if err != nil {
		apierror.Write(ctx, c.Log, err)
		return
	}

	verified, err := c.Settlement.VerifyUSDT(ctx.Request.Context(), userID, req.BookID, req.Address, network)
	if err != nil {
		apierror.Write(ctx, c.Log, err)
		return
	}
	ctx.JSON(http.StatusOK, verifyUSDTResponse{Verified: verified})
}
