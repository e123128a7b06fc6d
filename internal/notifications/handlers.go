package notifications

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Dasakami/alertme-backend/internal/db"
)

type telegramUpdate struct {
	Message struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From struct {
			Username  string `json:"username"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
		} `json:"from"`
		Contact *struct {
			PhoneNumber string `json:"phone_number"`
		} `json:"contact"`
	} `json:"message"`
}

// TelegramWebhookHandler receives bot updates. Every inbound message upserts
// the sender into the telegram_users directory, which is what makes the
// Telegram fallback channel able to reach them later.
func TelegramWebhookHandler(w http.ResponseWriter, r *http.Request) {
	var update telegramUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid update", http.StatusBadRequest)
		return
	}
	if update.Message.Chat.ID == 0 {
		w.WriteHeader(http.StatusOK)
		return
	}

	tgUser := TelegramUser{
		ChatID:    update.Message.Chat.ID,
		Username:  strings.ToLower(update.Message.From.Username),
		FirstName: update.Message.From.FirstName,
		LastName:  update.Message.From.LastName,
		IsActive:  true,
	}
	if update.Message.Contact != nil {
		tgUser.PhoneNumber = update.Message.Contact.PhoneNumber
	}

	var existing TelegramUser
	err := db.DB.First(&existing, "chat_id = ?", tgUser.ChatID).Error
	if err == nil {
		db.DB.Model(&existing).Updates(map[string]interface{}{
			"username":   tgUser.Username,
			"first_name": tgUser.FirstName,
			"last_name":  tgUser.LastName,
			"is_active":  true,
		})
	} else {
		if err := db.DB.Create(&tgUser).Error; err != nil {
			http.Error(w, "Failed to register telegram user", http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}
