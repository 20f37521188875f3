package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClientStats tracks gamified progression for each client (denormalized for reads)
type ClientStats struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	// Core progression
	XP    int64 `json:"xp" gorm:"not null;default:0"`
	Level int   `json:"level" gorm:"not null;default:1"`

	// Activity counters
	TotalBookingsCreated   int64 `json:"total_bookings_created" gorm:"not null;default:0"`
	TotalBookingsCompleted int64 `json:"total_bookings_completed" gorm:"not null;default:0"`

	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

func (s *ClientStats) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Level < 1 {
		s.Level = 1
	}
	return nil
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
