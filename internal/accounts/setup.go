package accounts

import (
	"log"

	"github.com/Dasakami/alertme-backend/internal/db"
	"github.com/Dasakami/alertme-backend/internal/notifications"
)

// Init migrates the account tables. gateway may be nil when SMS delivery is
// not configured.
func Init(gateway notifications.SMSGateway) {
	if err := db.DB.AutoMigrate(&User{}, &Session{}, &SMSVerification{}); err != nil {
		log.Fatal("Failed to auto-migrate account tables: ", err)
	}
	smsGateway = gateway
}
