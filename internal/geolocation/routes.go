package geolocation

import (
	"net/http"

	"github.com/Dasakami/alertme-backend/internal/accounts"
	"github.com/Dasakami/alertme-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

func SetupRoutes() http.Handler {
	r := chi.NewRouter()
	sessionFetcher := accounts.SessionInfo{}

	// Public: opened from share links in notification messages.
	r.Get("/share/{token}", SharedLocationHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(sessionFetcher))

		r.Group(func(r chi.Router) {
			// Mobile clients stream pings; cap the per-user rate.
			r.Use(middleware.RateLimitMiddleware(rate.Limit(2), 10))
			r.Post("/locations", RecordLocation)
		})
		r.Get("/locations", ListLocations)

		r.Get("/zones", ListZones)
		r.Post("/zones", CreateZone)
		r.Patch("/zones/{zone_id}", UpdateZone)
		r.Delete("/zones/{zone_id}", DeleteZone)
		r.Get("/zones/{zone_id}/events", ListZoneEvents)

		r.Post("/share", CreateShare)
		r.Post("/share/{share_id}/cancel", CancelShare)
	})

	return r
}
