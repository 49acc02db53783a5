package models

import (
	"time"

	"propdesk/internal/domain"

	"gorm.io/gorm"
)

type User struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Username        string     `gorm:"uniqueIndex;size:64;not null;default:''" json:"username"`
	Email           string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash    string     `gorm:"size:255" json:"-"`
	Role            string     `gorm:"size:20;not null;index" json:"role"` // MEMBER | ADMIN
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	GoogleID        *string    `gorm:"uniqueIndex;size:255" json:"-"` // nil for email signups (avoids duplicate '' on unique index)
	AvatarURL       string     `gorm:"size:512" json:"avatar_url"`

	// Premium entitlement as last derived from the billing provider. A nil
	// amount with IsPremium=true means premium was bought with account balance.
	IsPremium                bool   `gorm:"default:false;index" json:"is_premium"`
	SubscriptionAmountCents *int64 `json:"subscription_amount_cents"`

	FCMToken  string         `gorm:"size:512" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) IsAdmin() bool { return u.Role == domain.RoleAdmin }
