package geolocation

import (
	"time"

	"gorm.io/gorm"
)

// HistoryRetention is how long location samples are kept.
const HistoryRetention = 90 * 24 * time.Hour

// PurgeOldHistory deletes location samples older than the retention window
// and returns how many rows were removed.
func PurgeOldHistory(db *gorm.DB, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	result := db.Where("timestamp < ?", cutoff).Delete(&LocationHistory{})
	return result.RowsAffected, result.Error
}

// ExpireSharedLocations flips active shares past their end time to expired
// and returns how many were affected.
func ExpireSharedLocations(db *gorm.DB) (int64, error) {
	result := db.Model(&SharedLocation{}).
		Where("status = ? AND end_time < ?", ShareStatusActive, time.Now()).
		Update("status", ShareStatusExpired)
	return result.RowsAffected, result.Error
}
