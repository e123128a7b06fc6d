package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Dasakami/alertme-backend/internal/accounts"
	"github.com/Dasakami/alertme-backend/internal/config"
	"github.com/Dasakami/alertme-backend/internal/contacts"
	"github.com/Dasakami/alertme-backend/internal/db"
	"github.com/Dasakami/alertme-backend/internal/geolocation"
	"github.com/Dasakami/alertme-backend/internal/logging"
	"github.com/Dasakami/alertme-backend/internal/middleware"
	"github.com/Dasakami/alertme-backend/internal/notifications"
	"github.com/Dasakami/alertme-backend/internal/scheduler"
	"github.com/Dasakami/alertme-backend/internal/sos"
	"github.com/Dasakami/alertme-backend/internal/subscriptions"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load("config.yaml")
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("invalid config: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	defer logger.Sync()

	if err := db.Connect(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Delivery channels degrade to nil when unconfigured; the dispatcher
	// skips nil channels. The typed-nil checks keep a nil pointer from
	// sneaking into a non-nil interface value.
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
	evaluator := geolocation.NewEvaluator(db.DB, logger, dispatcher)
	geocoder := geolocation.NewGeocoder(cfg.Geocode)
	watchdog := sos.NewWatchdog(db.DB, logger, dispatcher)

	notifications.Init()
	accounts.Init(smsGateway)
	contacts.Init()
	geolocation.Init(evaluator, geocoder)
	sos.Init(dispatcher)
	subscriptions.Init()

	sched := scheduler.New(logger)
	mustSchedule := func(spec, name string, job scheduler.Job) {
		if err := sched.Add(spec, name, job); err != nil {
			logger.Fatal("failed to schedule job",
				zap.String("job", name), zap.Error(err))
		}
	}
	mustSchedule("@every 1m", "activity-timer-sweep", func(ctx context.Context) error {
		_, err := watchdog.Sweep(ctx)
		return err
	})
	mustSchedule("30 3 * * *", "location-history-purge", func(ctx context.Context) error {
		n, err := geolocation.PurgeOldHistory(db.DB.WithContext(ctx), geolocation.HistoryRetention)
		if n > 0 {
			logger.Info("purged old location samples", zap.Int64("count", n))
		}
		return err
	})
	mustSchedule("@every 5m", "shared-location-expiry", func(ctx context.Context) error {
		_, err := geolocation.ExpireSharedLocations(db.DB.WithContext(ctx))
		return err
	})
	sched.Start()
	defer sched.Stop()

	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware)
	r.Get("/", RootHandler)

	r.Mount("/accounts", accounts.SetupRoutes())
	r.Mount("/contacts", contacts.SetupRoutes())
	r.Mount("/geo", geolocation.SetupRoutes())
	r.Mount("/sos", sos.SetupRoutes())
	r.Mount("/notifications", notifications.SetupRoutes())
	r.Mount("/subscriptions", subscriptions.SetupRoutes())

	logger.Info("server listening", zap.String("port", cfg.Port))
	if err := http.ListenAndServe("0.0.0.0:"+cfg.Port, r); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
