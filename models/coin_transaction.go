package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CoinTransaction records every credit applied to a user's coin balance
type CoinTransaction struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"type:uuid;index;not null" json:"user_id"`
	Amount    int64     `gorm:"not null" json:"amount"`
	Reason    string    `gorm:"type:text" json:"reason"` // e.g., "Challenge completed: Summer Sprint"
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (t *CoinTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// AllModels lists every table this service migrates.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&EntrepreneurProfile{},
		&Service{},
		&Offer{},
		&Review{},
		&ClientStats{},
		&Achievement{},
		&UserAchievement{},
		&Challenge{},
		&ChallengeParticipation{},
		&CoinTransaction{},
	}
}
