package accessController

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

type Controller struct {
	Access usecase.IAccessUseCase
	Auth   gin.HandlerFunc
	Log    *slog.Logger
}

func New(access usecase.IAccessUseCase, auth gin.HandlerFunc, log *slog.Logger) *Controller {
	return &Controller{
		Access: access,
		Auth:   auth,
		Log:    log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	router.GET("/books/:bookId/access", c.Auth, c.hasAccess)
	router.GET("/api/books/:bookId/access", c.Auth, c.hasAccess)
	router.GET("/api/my-books/:bookId/read", c.Auth, c.read)
}

func (c *Controller) hasAccess(ctx *gin.Context) {
	ok, err := c.Access.HasAccess(ctx.Request.Context(), middlewares.UserID(ctx), ctx.Param("bookId"))
	if err != nil {
		apierror.Write(ctx, c.Log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"hasAccess": ok})
}

// read временная ссылка на файл книги, только для купивших
func (c *Controller) read(ctx *gin.Context) {
	bookID := ctx.Param("bookId")
	if bookID == "" {
		apierror.Write(ctx, c.Log, fmt.Errorf("%w: bookId is required", domain.ErrValidation))
		return
	}

	grant, err := c.Access.ResolveRead(ctx.Request.Context(), middlewares.UserID(ctx), bookID)
	if err != nil {
		apierror.Write(ctx, c.Log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"url":       grant.URL,
		"expiresAt": grant.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
