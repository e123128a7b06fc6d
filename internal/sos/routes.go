package sos

import (
	"net/http"

	"github.com/Dasakami/alertme-backend/internal/accounts"
	"github.com/Dasakami/alertme-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes() http.Handler {
	r := chi.NewRouter()
	sessionFetcher := accounts.SessionInfo{}

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(sessionFetcher))

		r.Post("/alerts", TriggerAlert)
		r.Get("/alerts/active", ActiveAlert)
		r.Get("/alerts/history", AlertHistory)
		r.Post("/alerts/{alert_id}/status", UpdateAlertStatus)
		r.Patch("/alerts/{alert_id}/media", UpdateAlertMedia)
		r.Get("/alerts/{alert_id}/notifications", AlertNotifications)

		r.Post("/timers", CreateTimer)
		r.Get("/timers/active", ActiveTimer)
		r.Post("/timers/{timer_id}/complete", CompleteTimer)
		r.Post("/timers/{timer_id}/cancel", CancelTimer)
	})

	return r
}
