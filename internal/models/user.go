package models

import "time"

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

// Roles lists every valid role.
var Roles = []string{RoleAdmin, RoleManager, RoleStaff}

// User represents an authenticated account owning polls and venues.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"` // never exposed in JSON
	Name         string    `gorm:"size:255" json:"name"`
	BusinessName string    `gorm:"size:255" json:"businessName,omitempty"`
	Phone        string    `gorm:"size:50" json:"phone,omitempty"`
	Role         string    `gorm:"size:20;not null" json:"role"`
}

func (u *User) GetUserID() uint { return u.ID }

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
