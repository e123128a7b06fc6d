package subscriptions

import (
	"net/http"

	"github.com/Dasakami/alertme-backend/internal/accounts"
	"github.com/Dasakami/alertme-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes() http.Handler {
	r := chi.NewRouter()
	sessionFetcher := accounts.SessionInfo{}

	r.Get("/plans", ListPlans)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(sessionFetcher))

		r.Get("/current", CurrentSubscription)
		r.Post("/subscribe", Subscribe)
		r.Post("/cancel", CancelSubscription)
		r.Get("/payments", PaymentHistory)
		r.Post("/payments/{payment_id}/process", ProcessPayment)
	})

	return r
}
