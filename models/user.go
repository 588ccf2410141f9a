package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	UserRoleAdmin   = "admin"
	UserRoleManager = "manager"
	UserRoleMember  = "member"

	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// User is an account inside a tenant partition. The first one is created by
// provisioning with the admin role.
type User struct {
	gorm.Model

	Name         string `gorm:"not null" json:"name"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`

	Role   string `gorm:"default:'member'" json:"role"` // admin, manager, member
	Status string `gorm:"default:'active'" json:"status"`

	LastLoginAt *time.Time `json:"last_login_at"`
}
