package geolocation

import (
	"log"

	"github.com/Dasakami/alertme-backend/internal/db"
)

var (
	evaluator *Evaluator
	geocoder  *Geocoder
)

// Init migrates the geolocation tables and wires the services the handlers
// call into. Either service may be nil (geocoding disabled, or evaluation
// handled elsewhere).
func Init(eval *Evaluator, geo *Geocoder) {
	if err := db.DB.AutoMigrate(
		&LocationHistory{},
		&Geozone{},
		&GeozoneEvent{},
		&SharedLocation{},
	); err != nil {
		log.Fatal("Failed to auto-migrate geolocation tables: ", err)
	}
	evaluator = eval
	geocoder = geo
}
