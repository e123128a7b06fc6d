package accounts

import "time"

type Session struct {
	SessionID string    `gorm:"primaryKey" json:"-"`
	UserID    string    `gorm:"not null;unique" json:"-"`
	ExpiresAt time.Time `gorm:"not null"`
}

// User is keyed by phone number: that is the identity a safety app can rely
// on when everything else about the account is optional.
type User struct {
	UserID         string `gorm:"primaryKey" json:"user_id"`
	PhoneNumber    string `gorm:"uniqueIndex;not null" json:"phone_number"`
	Password       string `json:"password,omitempty" gorm:"-"`
	HashedPassword string `json:"-"`

	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Email            string `json:"email"`
	TelegramUsername string `json:"telegram_username"`
	Language         string `gorm:"default:'ru'" json:"language"`
	FCMToken         string `json:"fcm_token"`

	IsPremium       bool `gorm:"default:false" json:"is_premium"`
	IsPhoneVerified bool `gorm:"default:false" json:"is_phone_verified"`
	IsActive        bool `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Session Session `gorm:"foreignKey:UserID" json:"-"`
}

// DisplayName is what shows up in notification texts sent to contacts.
func (u User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.PhoneNumber
	}
	return name
}

// SMSVerification stores one-time codes sent during registration.
type SMSVerification struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	PhoneNumber string    `gorm:"index;not null" json:"phone_number"`
	Code        string    `gorm:"not null" json:"-"`
	IsVerified  bool      `gorm:"default:false" json:"is_verified"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Session) TableName() string         { return "sessions" }
func (User) TableName() string            { return "users" }
func (SMSVerification) TableName() string { return "sms_verifications" }
