package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/Sskutushev/Bookly-sub000/internal/app"
)

// appName он же префикс переменных окружения: BOOKLY_PAY_*
const appName = "bookly_pay"

func main() {
	cfg, err := app.NewEnvConfig(appName)
	if err != nil {
		panic(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application := app.New(appName, cfg)

	if err := application.Run(ctx); err != nil {
		panic(err)
	}
}
