package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleClient       UserRole = "Client"
	RoleEntrepreneur UserRole = "Entrepreneur"
	RoleAdmin        UserRole = "Admin"
)

// User is the local view of a marketplace account. Accounts are created by the
// auth service; this service only reads them and credits the coin balance.
type User struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	FullName  string    `json:"full_name"`
	Role      UserRole  `gorm:"type:varchar(16);not null;default:'Client'" json:"role"`
	Coins     int64     `gorm:"not null;default:0" json:"coins"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Soft delete (account removal keeps history)
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// EntrepreneurProfile owns services, offers and challenges.
type EntrepreneurProfile struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	BusinessName string `gorm:"not null" json:"business_name"`
	Timestamps
}

func (e *EntrepreneurProfile) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
