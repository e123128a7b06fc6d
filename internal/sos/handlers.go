package sos

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Dasakami/alertme-backend/internal/accounts"
	"github.com/Dasakami/alertme-backend/internal/contacts"
	"github.com/Dasakami/alertme-backend/internal/db"
	"github.com/Dasakami/alertme-backend/internal/notifications"
	"github.com/Dasakami/alertme-backend/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// TriggerAlert creates an SOS alert and fans it out to the caller's active
// contacts. Having no active contacts is a client-visible error: an alert
// nobody hears is worse than a failed request.
func TriggerAlert(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var req struct {
		Latitude         *float64        `json:"latitude"`
		Longitude        *float64        `json:"longitude"`
		LocationAccuracy *float64        `json:"location_accuracy"`
		Address          string          `json:"address"`
		ActivationMethod string          `json:"activation_method"`
		Notes            string          `json:"notes"`
		DeviceInfo       json.RawMessage `json:"device_info"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	var user accounts.User
	if err := db.DB.First(&user, "user_id = ?", userID).Error; err != nil {
		http.Error(w, "Couldn't find user", http.StatusNotFound)
		return
	}

	activeContacts, err := contacts.ActiveForUser(db.DB, userID)
	if err != nil {
		http.Error(w, "Failed to fetch contacts", http.StatusInternalServerError)
		return
	}
	if len(activeContacts) == 0 {
		http.Error(w, "No active emergency contacts configured", http.StatusBadRequest)
		return
	}

	alert := SOSAlert{
		UserID:           userID,
		Status:           StatusActive,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		LocationAccuracy: req.LocationAccuracy,
		Address:          req.Address,
		ActivationMethod: req.ActivationMethod,
		Notes:            req.Notes,
		DeviceInfo:       datatypes.JSON(req.DeviceInfo),
	}
	if alert.ActivationMethod == "" {
		alert.ActivationMethod = MethodButton
	}
	if req.Latitude != nil && req.Longitude != nil {
		alert.MapLink = notifications.MapLink(*req.Latitude, *req.Longitude)
	}

	if err := db.DB.Create(&alert).Error; err != nil {
		http.Error(w, "Failed to create alert", http.StatusInternalServerError)
		return
	}

	if dispatcher != nil {
		go func(u accounts.User, a SOSAlert) {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()
			_, _ = DispatchAlert(ctx, db.DB.WithContext(ctx), dispatcher, u, &a)
		}(user, alert)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(alert)
}

// UpdateAlertStatus resolves, cancels, or marks the alert a false alarm.
func UpdateAlertStatus(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())
	alertID := chi.URLParam(r, "alert_id")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	switch req.Status {
	case StatusResolved, StatusCancelled, StatusFalseAlarm:
	default:
		http.Error(w, "Invalid status", http.StatusBadRequest)
		return
	}

	var alert SOSAlert
	if err := db.DB.First(&alert, "id = ? AND user_id = ?", alertID, userID).Error; err != nil {
		http.Error(w, "Alert not found", http.StatusNotFound)
		return
	}

	now := time.Now()
	alert.Status = req.Status
	alert.ResolvedAt = &now
	if err := db.DB.Save(&alert).Error; err != nil {
		http.Error(w, "Failed to update alert", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(alert)
}

// UpdateAlertMedia attaches audio/video references recorded by the client.
func UpdateAlertMedia(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())
	alertID := chi.URLParam(r, "alert_id")

	var req struct {
		AudioURL *string `json:"audio_url"`
		VideoURL *string `json:"video_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	var alert SOSAlert
	if err := db.DB.First(&alert, "id = ? AND user_id = ?", alertID, userID).Error; err != nil {
		http.Error(w, "Alert not found", http.StatusNotFound)
		return
	}

	updates := map[string]interface{}{}
	if req.AudioURL != nil {
		updates["audio_url"] = *req.AudioURL
	}
	if req.VideoURL != nil {
		updates["video_url"] = *req.VideoURL
	}
	if len(updates) == 0 {
		http.Error(w, "Nothing to update", http.StatusBadRequest)
		return
	}
	if err := db.DB.Model(&alert).Updates(updates).Error; err != nil {
		http.Error(w, "Failed to update alert", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(alert)
}

// ActiveAlert returns the caller's currently active alert, if any.
func ActiveAlert(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var alert SOSAlert
	err := db.DB.Where("user_id = ? AND status = ?", userID, StatusActive).
		Order("created_at DESC").First(&alert).Error
	if err != nil {
		http.Error(w, "No active SOS alert", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(alert)
}

// AlertHistory lists the caller's closed alerts.
func AlertHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	closed := pq.Array([]string{StatusResolved, StatusCancelled, StatusFalseAlarm})
	var alerts []SOSAlert
	if err := db.DB.Where("user_id = ? AND status = ANY(?)", userID, closed).
		Order("created_at DESC").Limit(100).Find(&alerts).Error; err != nil {
		http.Error(w, "Failed to fetch alerts: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(alerts)
}

// AlertNotifications lists delivery attempts for one of the caller's alerts.
func AlertNotifications(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())
	alertID := chi.URLParam(r, "alert_id")

	var alert SOSAlert
	if err := db.DB.First(&alert, "id = ? AND user_id = ?", alertID, userID).Error; err != nil {
		http.Error(w, "Alert not found", http.StatusNotFound)
		return
	}

	var rows []notifications.SOSNotification
	if err := db.DB.Where("sos_alert_id = ?", alert.ID).
		Order("created_at").Find(&rows).Error; err != nil {
		http.Error(w, "Failed to fetch notifications: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rows)
}

// CreateTimer starts a check-in timer, replacing any active one.
func CreateTimer(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var req struct {
		DurationMinutes int    `json:"duration_minutes"`
		CheckInMessage  string `json:"check_in_message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	timer, err := StartTimer(db.DB, userID, req.DurationMinutes, req.CheckInMessage)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(timer)
}

func closeTimer(w http.ResponseWriter, r *http.Request, newStatus string) {
	userID, _ := utils.GetUserIDFromContext(r.Context())
	timerID := chi.URLParam(r, "timer_id")

	result := db.DB.Model(&ActivityTimer{}).
		Where("id = ? AND user_id = ? AND status = ?", timerID, userID, TimerActive).
		Update("status", newStatus)
	if result.Error != nil {
		http.Error(w, "Failed to update timer", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "Active timer not found", http.StatusNotFound)
		return
	}

	var timer ActivityTimer
	db.DB.First(&timer, "id = ?", timerID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(timer)
}

// CompleteTimer is the user checking in before the deadline.
func CompleteTimer(w http.ResponseWriter, r *http.Request) {
	closeTimer(w, r, TimerCompleted)
}

func CancelTimer(w http.ResponseWriter, r *http.Request) {
	closeTimer(w, r, TimerCancelled)
}

func ActiveTimer(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var timer ActivityTimer
	err := db.DB.Where("user_id = ? AND status = ? AND end_time > ?",
		userID, TimerActive, time.Now()).First(&timer).Error
	if err != nil {
		http.Error(w, "No active timer", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(timer)
}
