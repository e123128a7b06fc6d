package notifications

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes() http.Handler {
	r := chi.NewRouter()

	// Called by Telegram's servers, not by app users.
	r.Post("/telegram/webhook", TelegramWebhookHandler)

	return r
}
