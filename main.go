package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/clinicware/prescriber-api/catalog"
	"github.com/clinicware/prescriber-api/clinicapi"
	"github.com/clinicware/prescriber-api/config"
	"github.com/clinicware/prescriber-api/handlers"
	"github.com/clinicware/prescriber-api/health"
	"github.com/clinicware/prescriber-api/logging"
	"github.com/clinicware/prescriber-api/prescribing"
	"github.com/clinicware/prescriber-api/printview"
	"github.com/clinicware/prescriber-api/scheduler"
	"github.com/clinicware/prescriber-api/server"
	"github.com/clinicware/prescriber-api/validation"
)

func main() {
	// A missing .env is fine, the environment itself may carry the config.
	if err := godotenv.Load(); err != nil {
		logging.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logging.InitLoggerWithLevel(cfg.LogDir, logging.ParseLevel(cfg.LogLevel))

	client := clinicapi.NewClient(cfg.ClinicAPIURL, cfg.ClinicAPITimeout)
	container := catalog.NewContainer()

	sched := scheduler.NewScheduler(container, client)
	if err := sched.Start(); err != nil {
		logging.Error("Failed to start the catalog scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	handler := handlers.New(
		container,
		client,
		client,
		validation.NewInputValidator(),
		prescribing.NewAssembler(client),
		printview.NewRenderer(client),
		health.NewHealthChecker(container),
	)

	srv := server.NewServer(cfg, handler)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Shutdown failed", "error", err)
		os.Exit(1)
	}
}
