package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/sailing_computer/internal/app"
	"github.com/relabs-tech/sailing_computer/internal/config"
)

func main() {
	log.Println("starting sailing-computer attitude producer (mock)")

	// Load configuration
	if err := config.InitGlobal(config.DefaultPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunAttitudeMock(ctx); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
