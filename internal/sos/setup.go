package sos

import (
	"log"

	"github.com/Dasakami/alertme-backend/internal/db"
)

var dispatcher AlertDispatcher

// Init migrates the alert tables and wires the dispatcher the handlers
// notify through. A nil dispatcher disables notification fan-out.
func Init(d AlertDispatcher) {
	if err := db.DB.AutoMigrate(&SOSAlert{}, &ActivityTimer{}); err != nil {
		log.Fatal("Failed to auto-migrate sos tables: ", err)
	}
	dispatcher = d
}
