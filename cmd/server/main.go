package main

import (
	"context"
	"log"

	"github.com/Erikmmkarlsson/graphmaster/internal/server"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := server.NewApp(cfg)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
