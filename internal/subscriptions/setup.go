package subscriptions

import (
	"log"

	"github.com/Dasakami/alertme-backend/internal/db"
)

func Init() {
	if err := db.DB.AutoMigrate(&Plan{}, &Subscription{}, &Payment{}); err != nil {
		log.Fatal("Failed to auto-migrate subscription tables: ", err)
	}
}
