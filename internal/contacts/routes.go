package contacts

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

		r.Get("/", ListContacts)
		r.Post("/", CreateContact)
		r.Patch("/{contact_id}", UpdateContact)
		r.Delete("/{contact_id}", DeleteContact)

		r.Get("/groups", ListGroups)
		r.Post("/groups", CreateGroup)
		r.Delete("/groups/{group_id}", DeleteGroup)
	})

	return r
}
