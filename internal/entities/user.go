package entities

import "time"

// User is an account that owns a book collection. The UID is the sole
// ownership key for books; repositories trust it without further checks.
type User struct {
	UID          string `gorm:"primaryKey;size:36" json:"uid"`
	Email        string `gorm:"uniqueIndex;size:255" json:"email"`
	DisplayName  string `gorm:"size:100" json:"displayName,omitempty"`
	PasswordHash string `gorm:"size:100" json:"-"`

	// Lockout bookkeeping for repeated failed logins.
	FailedLoginCount int        `gorm:"default:0" json:"-"`
	LockedUntil      *time.Time `json:"-"`
	LastLoginAt      *time.Time `json:"lastLoginAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
