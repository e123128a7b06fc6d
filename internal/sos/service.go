package sos

import (
	"context"
	"fmt"
	"time"

	"github.com/Dasakami/alertme-backend/internal/accounts"
	"github.com/Dasakami/alertme-backend/internal/contacts"
	"github.com/Dasakami/alertme-backend/internal/notifications"
	"gorm.io/gorm"
)

// AlertDispatcher is the slice of the notification dispatcher this package
// uses; tests substitute a recorder.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, alert notifications.Alert, recipients []notifications.Recipient) bool
}

// StartTimer creates a new check-in timer, cancelling whatever timer was
// active so at most one runs per user.
func StartTimer(tx *gorm.DB, userID string, durationMinutes int, message string) (*ActivityTimer, error) {
	if durationMinutes < 1 {
		return nil, fmt.Errorf("duration must be at least one minute")
	}

	if err := tx.Model(&ActivityTimer{}).
		Where("user_id = ? AND status = ?", userID, TimerActive).
		Update("status", TimerCancelled).Error; err != nil {
		return nil, fmt.Errorf("cancel previous timer: %w", err)
	}

	now := time.Now()
	timer := ActivityTimer{
		UserID:          userID,
		DurationMinutes: durationMinutes,
		StartTime:       now,
		EndTime:         now.Add(time.Duration(durationMinutes) * time.Minute),
		Status:          TimerActive,
		CheckInMessage:  message,
	}
	if err := tx.Create(&timer).Error; err != nil {
		return nil, fmt.Errorf("create timer: %w", err)
	}
	return &timer, nil
}

// alertPayload builds the dispatcher payload for an alert.
func alertPayload(user accounts.User, alert *SOSAlert) notifications.Alert {
	media := alert.AudioURL
	if media == "" {
		media = alert.VideoURL
	}
	return notifications.Alert{
		SOSAlertID: &alert.ID,
		Kind:       notifications.AlertSOS,
		UserName:   user.DisplayName(),
		Language:   user.Language,
		Latitude:   alert.Latitude,
		Longitude:  alert.Longitude,
		Address:    alert.Address,
		MediaURL:   media,
		OccurredAt: alert.CreatedAt,
	}
}

// DispatchAlert fans the alert out to the user's active contacts and reports
// whether anyone was reached.
func DispatchAlert(ctx context.Context, tx *gorm.DB, d AlertDispatcher, user accounts.User, alert *SOSAlert) (bool, error) {
	list, err := contacts.ActiveForUser(tx, user.UserID)
	if err != nil {
		return false, fmt.Errorf("fetch contacts: %w", err)
	}
	if len(list) == 0 {
		return false, nil
	}
	return d.Dispatch(ctx, alertPayload(user, alert), contacts.AsRecipients(list)), nil
}
