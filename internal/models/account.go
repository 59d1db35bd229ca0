package models

import "time"

// Role values of an Account.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account is a registered user. Accounts are managed outside the Magic Code
// engine; the engine only reads IsActive before any write.
type Account struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	FullName  string    `gorm:"size:255" json:"full_name"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Role      string    `gorm:"size:16;not null;default:user" json:"role"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// AccountSummary is an account with the number of codes it owns.
type AccountSummary struct {
	Account
	RecordCount int64 `json:"record_count"`
}
