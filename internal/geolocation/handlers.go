package geolocation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Dasakami/alertme-backend/internal/accounts"
	"github.com/Dasakami/alertme-backend/internal/contacts"
	"github.com/Dasakami/alertme-backend/internal/db"
	"github.com/Dasakami/alertme-backend/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// RecordLocation persists one sample and kicks off geozone evaluation. The
// evaluation runs detached: the mobile client should not wait on fan-out.
func RecordLocation(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var req struct {
		Latitude     float64    `json:"latitude"`
		Longitude    float64    `json:"longitude"`
		Accuracy     float64    `json:"accuracy"`
		Altitude     *float64   `json:"altitude"`
		Speed        *float64   `json:"speed"`
		Heading      *float64   `json:"heading"`
		ActivityType string     `json:"activity_type"`
		BatteryLevel *int       `json:"battery_level"`
		Timestamp    *time.Time `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		http.Error(w, "Invalid coordinates", http.StatusBadRequest)
		return
	}

	sample := LocationHistory{
		UserID:       userID,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Accuracy:     req.Accuracy,
		Altitude:     req.Altitude,
		Speed:        req.Speed,
		Heading:      req.Heading,
		ActivityType: req.ActivityType,
		BatteryLevel: req.BatteryLevel,
		Timestamp:    time.Now(),
	}
	if req.Timestamp != nil {
		sample.Timestamp = *req.Timestamp
	}

	if geocoder != nil {
		if addr, err := geocoder.ReverseGeocode(r.Context(), req.Latitude, req.Longitude); err == nil {
			sample.Address = addr
		}
	}

	if err := db.DB.Create(&sample).Error; err != nil {
		http.Error(w, "Failed to record location", http.StatusInternalServerError)
		return
	}

	var user accounts.User
	if err := db.DB.First(&user, "user_id = ?", userID).Error; err == nil && evaluator != nil {
		go func(u accounts.User, s LocationHistory) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_, _ = evaluator.Evaluate(ctx, u, &s)
		}(user, sample)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sample)
}

// ListLocations returns the caller's recent samples, newest first.
func ListLocations(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 1000 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	var samples []LocationHistory
	if err := db.DB.Where("user_id = ?", userID).
		Order("timestamp DESC").Limit(limit).Find(&samples).Error; err != nil {
		http.Error(w, "Failed to fetch locations: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(samples)
}

func ListZones(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var zones []Geozone
	if err := db.DB.Preload("Contacts").Where("user_id = ?", userID).
		Order("name").Find(&zones).Error; err != nil {
		http.Error(w, "Failed to fetch zones: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(zones)
}

type zoneRequest struct {
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	ZoneType           string          `json:"zone_type"`
	Latitude           float64         `json:"latitude"`
	Longitude          float64         `json:"longitude"`
	Radius             float64         `json:"radius"`
	PolygonCoordinates json.RawMessage `json:"polygon_coordinates"`
	NotifyOnEnter      *bool           `json:"notify_on_enter"`
	NotifyOnExit       *bool           `json:"notify_on_exit"`
	IsActive           *bool           `json:"is_active"`
	ContactIDs         []uuid.UUID     `json:"contact_ids"`
}

func CreateZone(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var req zoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Radius <= 0 {
		http.Error(w, "Name and a positive radius are required", http.StatusBadRequest)
		return
	}

	zone := Geozone{
		UserID:             userID,
		Name:               req.Name,
		Description:        req.Description,
		ZoneType:           req.ZoneType,
		Latitude:           req.Latitude,
		Longitude:          req.Longitude,
		Radius:             req.Radius,
		PolygonCoordinates: []byte(req.PolygonCoordinates),
		NotifyOnEnter:      true,
		NotifyOnExit:       true,
		IsActive:           true,
	}
	if zone.ZoneType == "" {
		zone.ZoneType = ZoneTypeSafe
	}
	if req.NotifyOnEnter != nil {
		zone.NotifyOnEnter = *req.NotifyOnEnter
	}
	if req.NotifyOnExit != nil {
		zone.NotifyOnExit = *req.NotifyOnExit
	}
	if len(req.ContactIDs) > 0 {
		if err := db.DB.Where("id IN ? AND user_id = ?", req.ContactIDs, userID).
			Find(&zone.Contacts).Error; err != nil {
			http.Error(w, "Failed to resolve contacts", http.StatusInternalServerError)
			return
		}
	}

	if err := db.DB.Create(&zone).Error; err != nil {
		http.Error(w, "Failed to create zone", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(zone)
}

func UpdateZone(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())
	zoneID := chi.URLParam(r, "zone_id")

	var zone Geozone
	if err := db.DB.First(&zone, "id = ? AND user_id = ?", zoneID, userID).Error; err != nil {
		http.Error(w, "Zone not found", http.StatusNotFound)
		return
	}

	var req zoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	if req.Name != "" {
		zone.Name = req.Name
	}
	if req.Description != "" {
		zone.Description = req.Description
	}
	if req.ZoneType != "" {
		zone.ZoneType = req.ZoneType
	}
	if req.Latitude != 0 || req.Longitude != 0 {
		zone.Latitude = req.Latitude
		zone.Longitude = req.Longitude
	}
	if req.Radius > 0 {
		zone.Radius = req.Radius
	}
	if req.PolygonCoordinates != nil {
		zone.PolygonCoordinates = []byte(req.PolygonCoordinates)
	}
	if req.NotifyOnEnter != nil {
		zone.NotifyOnEnter = *req.NotifyOnEnter
	}
	if req.NotifyOnExit != nil {
		zone.NotifyOnExit = *req.NotifyOnExit
	}
	if req.IsActive != nil {
		zone.IsActive = *req.IsActive
	}

	if err := db.DB.Save(&zone).Error; err != nil {
		http.Error(w, "Failed to update zone", http.StatusInternalServerError)
		return
	}

	if req.ContactIDs != nil {
		var assigned []contacts.EmergencyContact
		if len(req.ContactIDs) > 0 {
			if err := db.DB.Where("id IN ? AND user_id = ?", req.ContactIDs, userID).
				Find(&assigned).Error; err != nil {
				http.Error(w, "Failed to resolve contacts", http.StatusInternalServerError)
				return
			}
		}
		if err := db.DB.Model(&zone).Association("Contacts").Replace(assigned); err != nil {
			http.Error(w, "Failed to update zone contacts", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(zone)
}

func DeleteZone(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())
	zoneID := chi.URLParam(r, "zone_id")

	result := db.DB.Where("id = ? AND user_id = ?", zoneID, userID).Delete(&Geozone{})
	if result.Error != nil {
		http.Error(w, "Failed to delete zone", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "Zone not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListZoneEvents returns transition history for one zone.
func ListZoneEvents(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())
	zoneID := chi.URLParam(r, "zone_id")

	var zone Geozone
	if err := db.DB.First(&zone, "id = ? AND user_id = ?", zoneID, userID).Error; err != nil {
		http.Error(w, "Zone not found", http.StatusNotFound)
		return
	}

	var events []GeozoneEvent
	if err := db.DB.Where("geozone_id = ?", zone.ID).
		Order("timestamp DESC").Limit(200).Find(&events).Error; err != nil {
		http.Error(w, "Failed to fetch events: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}

// CreateShare starts sharing live location with one contact.
func CreateShare(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var req struct {
		ContactID       uuid.UUID `json:"contact_id"`
		DurationMinutes int       `json:"duration_minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	if req.DurationMinutes < 1 {
		http.Error(w, "Duration must be at least one minute", http.StatusBadRequest)
		return
	}

	var contact contacts.EmergencyContact
	if err := db.DB.First(&contact, "id = ? AND user_id = ?", req.ContactID, userID).Error; err != nil {
		http.Error(w, "Contact not found", http.StatusNotFound)
		return
	}

	token := make([]byte, 32)
	if _, err := rand.Read(token); err != nil {
		http.Error(w, "Failed to generate share token", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	share := SharedLocation{
		UserID:          userID,
		SharedWithID:    contact.ID,
		ShareToken:      hex.EncodeToString(token),
		DurationMinutes: req.DurationMinutes,
		StartTime:       now,
		EndTime:         now.Add(time.Duration(req.DurationMinutes) * time.Minute),
		Status:          ShareStatusActive,
	}
	if err := db.DB.Create(&share).Error; err != nil {
		http.Error(w, "Failed to create share", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(share)
}

func CancelShare(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())
	shareID := chi.URLParam(r, "share_id")

	result := db.DB.Model(&SharedLocation{}).
		Where("id = ? AND user_id = ? AND status = ?", shareID, userID, ShareStatusActive).
		Update("status", ShareStatusCancelled)
	if result.Error != nil {
		http.Error(w, "Failed to cancel share", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "Active share not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// SharedLocationHandler is the public token endpoint a contact opens from the
// message link. It returns the sharer's latest sample while the share lives.
func SharedLocationHandler(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var share SharedLocation
	if err := db.DB.First(&share, "share_token = ?", token).Error; err != nil {
		http.Error(w, "Share not found", http.StatusNotFound)
		return
	}
	if share.Status != ShareStatusActive || share.EndTime.Before(time.Now()) {
		http.Error(w, "Share expired", http.StatusGone)
		return
	}

	var latest LocationHistory
	if err := db.DB.Where("user_id = ?", share.UserID).
		Order("timestamp DESC").First(&latest).Error; err != nil {
		http.Error(w, "No location available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"latitude":  latest.Latitude,
		"longitude": latest.Longitude,
		"accuracy":  latest.Accuracy,
		"address":   latest.Address,
		"timestamp": latest.Timestamp,
		"ends_at":   share.EndTime,
	})
}
