package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChallengeType string

const (
	ChallengeTypeBookingMilestone    ChallengeType = "BookingMilestone"
	ChallengeTypeReviewChallenge     ChallengeType = "ReviewChallenge"
	ChallengeTypeSpeedChallenge      ChallengeType = "SpeedChallenge"
	ChallengeTypeLoyaltyChallenge    ChallengeType = "LoyaltyChallenge"
	ChallengeTypeReferralChallenge   ChallengeType = "ReferralChallenge"
	ChallengeTypeSeasonalChallenge   ChallengeType = "SeasonalChallenge"
	ChallengeTypeOfferClaimChallenge ChallengeType = "OfferClaimChallenge"
	ChallengeTypeProofChallenge      ChallengeType = "ProofChallenge"
)

// Challenge types that each domain event category advances
var (
	BookingChallengeTypes    = []ChallengeType{ChallengeTypeBookingMilestone, ChallengeTypeSpeedChallenge, ChallengeTypeLoyaltyChallenge}
	ReviewChallengeTypes     = []ChallengeType{ChallengeTypeReviewChallenge}
	OfferClaimChallengeTypes = []ChallengeType{ChallengeTypeOfferClaimChallenge}
)

type ChallengeStatus string

const (
	ChallengeStatusDraft     ChallengeStatus = "Draft"
	ChallengeStatusActive    ChallengeStatus = "Active"
	ChallengeStatusCompleted ChallengeStatus = "Completed"
	ChallengeStatusCancelled ChallengeStatus = "Cancelled"
)

type TrackingMode string

const (
	TrackingModeAutomatic          TrackingMode = "Automatic"
	TrackingModeManualVerification TrackingMode = "ManualVerification"
	TrackingModeEntrepreneurManual TrackingMode = "EntrepreneurManual"
)

// Challenge is an entrepreneur-authored campaign. Created and edited by the
// challenge admin surface; read here.
type Challenge struct {
	ID                    string          `gorm:"primaryKey;type:uuid" json:"id"`
	EntrepreneurProfileID string          `gorm:"type:uuid;index;not null" json:"entrepreneur_profile_id"`
	Title                 string          `gorm:"not null" json:"title"`
	Description           string          `gorm:"type:text" json:"description"`
	Type                  ChallengeType   `gorm:"type:varchar(32);not null;index" json:"type"`
	Status                ChallengeStatus `gorm:"type:varchar(16);not null;default:'Draft';index" json:"status"`
	TargetCount           *int            `json:"target_count,omitempty"`
	TimeLimitDays         *int            `json:"time_limit_days,omitempty"`
	TrackingMode          TrackingMode    `gorm:"type:varchar(32);not null;default:'Automatic'" json:"tracking_mode"`
	XPReward              int64           `gorm:"not null;default:0" json:"xp_reward"`
	CoinsReward           int64           `gorm:"not null;default:0" json:"coins_reward"`
	BadgeCode             *string         `json:"badge_code,omitempty"`
	ProofInstructions     *string         `gorm:"type:text" json:"proof_instructions,omitempty"`
	StartsAt              *time.Time      `json:"starts_at,omitempty"`
	EndsAt                *time.Time      `json:"ends_at,omitempty"`

	Timestamps
}

func (c *Challenge) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// HasTarget reports whether the challenge can auto-complete from progress.
func (c *Challenge) HasTarget() bool {
	return c.TargetCount != nil
}
