package notifications

import (
	"log"

	"github.com/Dasakami/alertme-backend/internal/db"
)

func Init() {
	if err := db.DB.AutoMigrate(&SOSNotification{}, &TelegramUser{}); err != nil {
		log.Fatal("Failed to auto-migrate notification tables: ", err)
	}
}
