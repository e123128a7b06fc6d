package contacts

import (
	"log"

	"github.com/Dasakami/alertme-backend/internal/db"
)

func Init() {
	if err := db.DB.AutoMigrate(&EmergencyContact{}, &ContactGroup{}); err != nil {
		log.Fatal("Failed to auto-migrate contact tables: ", err)
	}
}
