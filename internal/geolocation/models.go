package geolocation

import (
	"time"

	"github.com/Dasakami/alertme-backend/internal/contacts"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LocationHistory is an append-only stream of location samples; rows older
// than the retention window are purged nightly.
type LocationHistory struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID string    `gorm:"index:idx_location_user_ts;not null" json:"user_id"`

	Latitude  float64 `gorm:"not null" json:"latitude"`
	Longitude float64 `gorm:"not null" json:"longitude"`
	// Accuracy is the reported radius in meters.
	Accuracy float64  `json:"accuracy"`
	Altitude *float64 `json:"altitude,omitempty"`
	Speed    *float64 `json:"speed,omitempty"`
	Heading  *float64 `json:"heading,omitempty"`

	Address      string `json:"address"`
	ActivityType string `json:"activity_type"`
	BatteryLevel *int   `json:"battery_level,omitempty"`

	Timestamp time.Time `gorm:"index:idx_location_user_ts;index;not null" json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

func (LocationHistory) TableName() string { return "location_history" }

func (l *LocationHistory) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

const (
	ZoneTypeSafe      = "safe"
	ZoneTypeDangerous = "dangerous"
	ZoneTypeCustom    = "custom"
)

// Geozone is a named circular region. Polygon coordinates are stored for
// clients that draw them, but containment checks use the center + radius.
type Geozone struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID string    `gorm:"index;not null" json:"user_id"`

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	ZoneType    string `gorm:"default:'safe'" json:"zone_type"`

	Latitude  float64 `gorm:"not null" json:"latitude"`
	Longitude float64 `gorm:"not null" json:"longitude"`
	// Radius in meters.
	Radius             float64        `gorm:"not null" json:"radius"`
	PolygonCoordinates datatypes.JSON `json:"polygon_coordinates,omitempty"`

	NotifyOnEnter bool `gorm:"default:true" json:"notify_on_enter"`
	NotifyOnExit  bool `gorm:"default:true" json:"notify_on_exit"`
	IsActive      bool `gorm:"default:true" json:"is_active"`

	// Contacts to notify on transitions; empty means all active contacts.
	Contacts []contacts.EmergencyContact `gorm:"many2many:geozone_contacts" json:"contacts,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Geozone) TableName() string { return "geozones" }

func (z *Geozone) BeforeCreate(tx *gorm.DB) error {
	if z.ID == uuid.Nil {
		z.ID = uuid.New()
	}
	return nil
}

const (
	EventEnter = "enter"
	EventExit  = "exit"
)

// GeozoneEvent records one state transition. Created only by the evaluator
// and immutable afterwards except for the notification flag.
type GeozoneEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"index:idx_event_user_ts;not null" json:"user_id"`
	GeozoneID uuid.UUID `gorm:"type:uuid;index:idx_event_zone_ts;not null" json:"geozone_id"`

	EventType string  `gorm:"not null" json:"event_type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	NotificationSent bool      `gorm:"default:false" json:"notification_sent"`
	Timestamp        time.Time `gorm:"index:idx_event_user_ts;index:idx_event_zone_ts;not null" json:"timestamp"`
	CreatedAt        time.Time `json:"created_at"`
}

func (GeozoneEvent) TableName() string { return "geozone_events" }

func (e *GeozoneEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

const (
	ShareStatusActive    = "active"
	ShareStatusExpired   = "expired"
	ShareStatusCancelled = "cancelled"
)

// SharedLocation grants one contact read access to the user's live location
// for a bounded time through an unguessable token.
type SharedLocation struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       string    `gorm:"index;not null" json:"user_id"`
	SharedWithID uuid.UUID `gorm:"type:uuid;not null" json:"shared_with_id"`

	ShareToken      string `gorm:"uniqueIndex;size:64;not null" json:"share_token"`
	DurationMinutes int    `json:"duration_minutes"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `gorm:"default:'active'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SharedLocation) TableName() string { return "shared_locations" }

func (s *SharedLocation) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
