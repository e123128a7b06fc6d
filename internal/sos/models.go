package sos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusActive     = "active"
	StatusResolved   = "resolved"
	StatusCancelled  = "cancelled"
	StatusFalseAlarm = "false_alarm"

	MethodButton = "button"
	MethodSlider = "slider"
	MethodVoice  = "voice"
	MethodTimer  = "timer"
)

// SOSAlert is an emergency signal raised by a user, manually or by timer
// expiry. Users never delete alerts; they resolve or cancel them.
type SOSAlert struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID string    `gorm:"index:idx_alert_user_status;not null" json:"user_id"`

	Status           string   `gorm:"index:idx_alert_user_status;default:'active'" json:"status"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	LocationAccuracy *float64 `json:"location_accuracy,omitempty"`
	Address          string   `json:"address"`
	MapLink          string   `json:"map_link"`

	AudioURL string `json:"audio_url"`
	VideoURL string `json:"video_url"`

	ActivationMethod string         `gorm:"default:'button'" json:"activation_method"`
	Notes            string         `json:"notes"`
	DeviceInfo       datatypes.JSON `json:"device_info,omitempty"`

	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

func (SOSAlert) TableName() string { return "sos_alerts" }

func (a *SOSAlert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

const (
	TimerActive    = "active"
	TimerCompleted = "completed"
	TimerExpired   = "expired"
	TimerCancelled = "cancelled"
)

// ActivityTimer is a check-in deadline. Missing it synthesizes an SOS alert;
// at most one timer per user is active at a time.
type ActivityTimer struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID string    `gorm:"index;not null" json:"user_id"`

	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `gorm:"index" json:"end_time"`
	Status          string    `gorm:"default:'active'" json:"status"`

	CheckInMessage   string     `json:"check_in_message"`
	NotificationSent bool       `gorm:"default:false" json:"notification_sent"`
	SOSAlertID       *uuid.UUID `gorm:"type:uuid" json:"sos_alert_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ActivityTimer) TableName() string { return "activity_timers" }

func (t *ActivityTimer) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
