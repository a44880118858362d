// cmd/flashdeck/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/trunghieu0211/flashdeck-journey/pkg/config"
	"github.com/trunghieu0211/flashdeck-journey/pkg/db"
	"github.com/trunghieu0211/flashdeck-journey/pkg/logger"
	"github.com/trunghieu0211/flashdeck-journey/pkg/study"
	"github.com/trunghieu0211/flashdeck-journey/pkg/web"
)

const shutdownGrace = 10 * time.Second

func main() {
	flags := pflag.NewFlagSet("flashdeck", pflag.ExitOnError)
	configPath := flags.String("config", "", "path to the YAML config file")
	flags.String("server.addr", "", "listen address, e.g. :8080")
	flags.String("logging.level", "", "log level: debug, info, warn or error")
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := logger.Configure(logger.Options{
		Level: cfg.Logging.Level,
		File:  cfg.Logging.File,
	}); err != nil {
		logger.Error("failed to configure logger", "error", err)
	}

	if err := db.InitDB(cfg.Database); err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	scheduler := study.NewScheduler(cfg.Study)
	manager := study.NewSessionManager(scheduler, cfg.Study, nil)
	aggregator := study.NewAggregator(cfg.Study)
	server := web.NewServer(manager, aggregator, nil)

	go manager.StartSweeper(ctx)
	go db.StartSessionCleanup(ctx, db.SessionCleanupInterval)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down server", "error", err)
		}
	}()

	logger.Info("starting server", "addr", cfg.Server.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
