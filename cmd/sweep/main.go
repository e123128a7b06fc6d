// Command sweep runs one round of the background maintenance work and exits:
// expired activity timers are alerted on, stale location history is purged and
// lapsed shared locations are closed. Meant for external schedulers (cron,
// systemd timers) on deployments that do not run the in-process scheduler.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Dasakami/alertme-backend/internal/config"
	"github.com/Dasakami/alertme-backend/internal/db"
	"github.com/Dasakami/alertme-backend/internal/geolocation"
	"github.com/Dasakami/alertme-backend/internal/logging"
	"github.com/Dasakami/alertme-backend/internal/notifications"
	"github.com/Dasakami/alertme-backend/internal/sos"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid config:", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := db.Connect(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var smsGateway notifications.SMSGateway
	if c := notifications.NewNikitaClient(cfg.SMS); c != nil {
		smsGateway = c
	}
	var chatDirectory notifications.ChatDirectory
	if c := notifications.NewTelegramClient(cfg.Telegram, db.DB); c != nil {
		chatDirectory = c
	}
	var mailSender notifications.MailSender
	if c := notifications.NewGomailSender(cfg.Mail); c != nil {
		mailSender = c
	}
	dispatcher := notifications.NewDispatcher(db.DB, logger, smsGateway, chatDirectory, mailSender)

	watchdog := sos.NewWatchdog(db.DB, logger, dispatcher)
	expired, err := watchdog.Sweep(ctx)
	if err != nil {
		logger.Error("timer sweep failed", zap.Error(err))
	}

	purged, err := geolocation.PurgeOldHistory(db.DB.WithContext(ctx), geolocation.HistoryRetention)
	if err != nil {
		logger.Error("history purge failed", zap.Error(err))
	}

	closed, err := geolocation.ExpireSharedLocations(db.DB.WithContext(ctx))
	if err != nil {
		logger.Error("shared location expiry failed", zap.Error(err))
	}

	logger.Info("sweep complete",
		zap.Int("timers_expired", expired),
		zap.Int64("samples_purged", purged),
		zap.Int64("shares_closed", closed))
}
