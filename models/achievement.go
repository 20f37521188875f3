package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Achievement: static catalog entry, seeded at startup
type Achievement struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	Code        string    `gorm:"uniqueIndex;not null" json:"code"` // e.g., "first_booking", "completed_50"
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	BadgeIcon   string    `gorm:"size:16" json:"badge_icon"`
	XPReward    int64     `gorm:"not null;default:0" json:"xp_reward"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (a *Achievement) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// UserAchievement: unlocked instance, at most one per (user, achievement)
type UserAchievement struct {
	ID            string      `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string      `gorm:"type:uuid;not null;uniqueIndex:idx_user_achievement" json:"user_id"`
	AchievementID string      `gorm:"type:uuid;not null;uniqueIndex:idx_user_achievement" json:"achievement_id"`
	Achievement   Achievement `gorm:"foreignKey:AchievementID" json:"achievement"`
	UnlockedAt    time.Time   `gorm:"not null" json:"unlocked_at"`
}

func (ua *UserAchievement) BeforeCreate(tx *gorm.DB) error {
	if ua.ID == "" {
		ua.ID = uuid.NewString()
	}
	if ua.UnlockedAt.IsZero() {
		ua.UnlockedAt = time.Now()
	}
	return nil
}

// Well-known achievement codes
const (
	AchievementFirstBooking          = "first_booking"
	AchievementFirstCompletedBooking = "first_completed_booking"
	AchievementFirstReview           = "first_review"
	AchievementReviews10             = "reviews_10"
	AchievementFirstChallenge        = "first_challenge"
	AchievementChallenges5           = "challenges_5"
	AchievementChallenges10          = "challenges_10"
	AchievementChallenges25          = "challenges_25"
)

// BookingMilestones are the completed-booking counts that unlock completed_{N}.
var BookingMilestones = []int64{5, 10, 25, 50, 100, 150, 200, 250, 300, 350, 400, 450, 500, 750, 1000}

// CompletedBookingsCode returns the milestone code for n completed bookings.
func CompletedBookingsCode(n int64) string {
	return fmt.Sprintf("completed_%d", n)
}

var bookingMilestoneXP = map[int64]int64{
	5: 50, 10: 75, 25: 150, 50: 250, 100: 500, 150: 600, 200: 700, 250: 800,
	300: 900, 350: 1000, 400: 1100, 450: 1200, 500: 1500, 750: 2000, 1000: 3000,
}

// AchievementCatalog is the seed data for the achievements table.
var AchievementCatalog = buildCatalog()

func buildCatalog() []Achievement {
	catalog := []Achievement{
		{Code: AchievementFirstBooking, Name: "First Steps", Description: "Created your first booking", BadgeIcon: "🎯", XPReward: 20},
		{Code: AchievementFirstCompletedBooking, Name: "Done Deal", Description: "Completed your first booking", BadgeIcon: "✅", XPReward: 30},
	}
	for _, n := range BookingMilestones {
		catalog = append(catalog, Achievement{
			Code:        CompletedBookingsCode(n),
			Name:        fmt.Sprintf("%d Bookings", n),
			Description: fmt.Sprintf("Completed %d bookings", n),
			BadgeIcon:   "🏅",
			XPReward:    bookingMilestoneXP[n],
		})
	}
	catalog = append(catalog,
		Achievement{Code: AchievementFirstReview, Name: "Critic", Description: "Your first review was approved", BadgeIcon: "✍️", XPReward: 15},
		Achievement{Code: AchievementReviews10, Name: "Trusted Voice", Description: "10 approved reviews", BadgeIcon: "📣", XPReward: 100},
		Achievement{Code: AchievementFirstChallenge, Name: "Challenger", Description: "Completed your first challenge", BadgeIcon: "⚔️", XPReward: 50},
		Achievement{Code: AchievementChallenges5, Name: "Quest Seeker", Description: "Completed 5 challenges", BadgeIcon: "🗺️", XPReward: 100},
		Achievement{Code: AchievementChallenges10, Name: "Quest Master", Description: "Completed 10 challenges", BadgeIcon: "🏆", XPReward: 200},
		Achievement{Code: AchievementChallenges25, Name: "Legend", Description: "Completed 25 challenges", BadgeIcon: "👑", XPReward: 500},

		// Badges challenges can hand out on completion
		Achievement{Code: "challenge_champion", Name: "Challenge Champion", Description: "Won an entrepreneur's challenge", BadgeIcon: "🥇"},
		Achievement{Code: "loyal_customer", Name: "Loyal Customer", Description: "Kept coming back", BadgeIcon: "💎"},
		Achievement{Code: "speed_demon", Name: "Speed Demon", Description: "Finished a speed challenge in time", BadgeIcon: "⚡"},
		Achievement{Code: "review_star", Name: "Review Star", Description: "Completed a review challenge", BadgeIcon: "⭐"},
		Achievement{Code: "deal_hunter", Name: "Deal Hunter", Description: "Claimed offers like a pro", BadgeIcon: "🏷️"},
		Achievement{Code: "proof_master", Name: "Proof Master", Description: "Proof accepted by an entrepreneur", BadgeIcon: "📸"},
	)
	return catalog
}
