package contacts

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EmergencyContact is who gets notified when its owner raises an alert.
type EmergencyContact struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID string    `gorm:"index:idx_contact_user_phone,unique;not null" json:"user_id"`

	Name             string `gorm:"not null" json:"name"`
	PhoneNumber      string `gorm:"index:idx_contact_user_phone,unique;not null" json:"phone_number"`
	Email            string `json:"email"`
	TelegramUsername string `json:"telegram_username"`
	Relation         string `json:"relation"`

	IsPrimary bool `gorm:"default:false" json:"is_primary"`
	IsActive  bool `gorm:"default:true" json:"is_active"`

	NotificationPreferences datatypes.JSON `json:"notification_preferences,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (EmergencyContact) TableName() string { return "emergency_contacts" }

func (c *EmergencyContact) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// BeforeSave keeps at most one primary contact per user by clearing the flag
// on every other contact whenever a primary is written.
func (c *EmergencyContact) BeforeSave(tx *gorm.DB) error {
	if !c.IsPrimary {
		return nil
	}
	return tx.Model(&EmergencyContact{}).
		Where("user_id = ? AND id <> ? AND is_primary = ?", c.UserID, c.ID, true).
		Update("is_primary", false).Error
}

// ContactGroup is a named subset of a user's contacts.
type ContactGroup struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string    `gorm:"index;not null" json:"user_id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`

	Contacts []EmergencyContact `gorm:"many2many:contact_group_members" json:"contacts,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ContactGroup) TableName() string { return "contact_groups" }

func (g *ContactGroup) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// ActiveForUser returns all active contacts of a user, primary first. This is
// the fallback recipient set for alerts with no explicit contact list.
func ActiveForUser(tx *gorm.DB, userID string) ([]EmergencyContact, error) {
	var list []EmergencyContact
	err := tx.Where("user_id = ? AND is_active = ?", userID, true).
		Order("is_primary DESC, name").Find(&list).Error
	return list, err
}
