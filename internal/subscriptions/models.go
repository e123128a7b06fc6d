package subscriptions

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	PlanFree     = "free"
	PlanPremium  = "personal_premium"
	PlanBusiness = "business"
)

const (
	SubStatusActive    = "active"
	SubStatusExpired   = "expired"
	SubStatusCancelled = "cancelled"
	SubStatusPending   = "pending"
)

const (
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// Plan is one row of the subscription catalog.
type Plan struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	PlanType    string    `gorm:"uniqueIndex;not null" json:"plan_type"`
	Description string    `json:"description"`

	PriceMonthly float64 `gorm:"default:0" json:"price_monthly"`
	PriceYearly  float64 `gorm:"default:0" json:"price_yearly"`

	Features               datatypes.JSON `json:"features,omitempty"`
	MaxContacts            int            `gorm:"default:1" json:"max_contacts"`
	GeozonesEnabled        bool           `gorm:"default:false" json:"geozones_enabled"`
	LocationHistoryEnabled bool           `gorm:"default:false" json:"location_history_enabled"`

	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Plan) TableName() string { return "subscription_plans" }

func (p *Plan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Subscription holds one user's current plan. One row per user; subscribing
// again replaces the existing row's plan and dates.
type Subscription struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID string    `gorm:"uniqueIndex;not null" json:"user_id"`
	PlanID uuid.UUID `gorm:"type:uuid;not null" json:"plan_id"`
	Plan   Plan      `gorm:"foreignKey:PlanID" json:"plan"`

	Status        string    `gorm:"default:active" json:"status"`
	PaymentPeriod string    `gorm:"default:monthly" json:"payment_period"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	AutoRenew     bool      `gorm:"default:true" json:"auto_renew"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Subscription) TableName() string { return "user_subscriptions" }

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// IsPremium reports whether this subscription currently grants paid features.
func (s *Subscription) IsPremium() bool {
	return s.Status == SubStatusActive && s.Plan.PlanType != PlanFree
}

// Payment records one transaction against a subscription. The gateway side is
// stubbed: ProcessPayment flips the row to completed without charging.
type Payment struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         string    `gorm:"index;not null" json:"user_id"`
	SubscriptionID uuid.UUID `gorm:"type:uuid;not null" json:"subscription_id"`

	Amount   float64 `gorm:"not null" json:"amount"`
	Currency string  `gorm:"default:KGS" json:"currency"`

	PaymentMethod string `json:"payment_method"`
	TransactionID string `gorm:"uniqueIndex;not null" json:"transaction_id"`
	Status        string `gorm:"default:pending" json:"status"`

	ProviderResponse datatypes.JSON `json:"provider_response,omitempty"`
	ErrorMessage     string         `json:"error_message,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (Payment) TableName() string { return "payment_transactions" }

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
