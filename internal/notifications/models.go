package notifications

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"

	ChannelSMS      = "sms"
	ChannelTelegram = "telegram"
	ChannelEmail    = "email"
)

// SOSNotification is one delivery attempt chain for one contact. Exactly one
// of SOSAlertID / GeozoneEventID is set depending on what triggered it. The
// row is created in pending state before any delivery is tried so an outage
// mid-dispatch still leaves a trace.
type SOSNotification struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SOSAlertID     *uuid.UUID `gorm:"type:uuid;index" json:"sos_alert_id,omitempty"`
	GeozoneEventID *uuid.UUID `gorm:"type:uuid;index" json:"geozone_event_id,omitempty"`
	ContactID      uuid.UUID  `gorm:"type:uuid;index;not null" json:"contact_id"`

	NotificationType string `gorm:"not null" json:"notification_type"`
	Status           string `gorm:"default:'pending'" json:"status"`
	Content          string `json:"content"`
	ErrorMessage     string `json:"error_message,omitempty"`

	SentAt    *time.Time `json:"sent_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (SOSNotification) TableName() string { return "sos_notifications" }

func (n *SOSNotification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// TelegramUser maps a Telegram handle to a chat id. Rows appear when someone
// sends /start to the bot; the dispatcher can only reach handles present here.
type TelegramUser struct {
	ID     uint    `gorm:"primaryKey" json:"id"`
	UserID *string `gorm:"uniqueIndex" json:"user_id,omitempty"`

	ChatID      int64  `gorm:"uniqueIndex;not null" json:"chat_id"`
	Username    string `gorm:"index" json:"username"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`

	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TelegramUser) TableName() string { return "telegram_users" }
