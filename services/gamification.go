package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"bizquits/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// XPWeights define flat XP grants per domain event
type XPWeights struct {
	BookingCreated   int64
	BookingCompleted int64
	ReviewApproved   int64
}

var DefaultXPWeights = XPWeights{
	BookingCreated:   10,
	BookingCompleted: 25,
	ReviewApproved:   10,
}

// LevelThreshold returns the cumulative XP needed to reach level.
// Mirrored by the web client for display; both must stay numerically identical.
func LevelThreshold(level int) int64 {
	if level <= 1 {
		return 0
	}
	return int64(math.Floor(80 * math.Pow(float64(level-1), 1.7)))
}

// MaxLevel caps progression; its threshold is roughly 10M XP.
const MaxLevel = 1000

// LevelForXP walks up from level 1 while the next threshold is reached, up to MaxLevel.
func LevelForXP(xp int64) int {
	level := 1
	for level < MaxLevel && xp >= LevelThreshold(level+1) {
		level++
	}
	return level
}

type milestone struct {
	count int64
	code  string
}

// Milestones match on exact equality, never ">=". A count that skips a
// threshold (e.g. 4 -> 6) never unlocks it retroactively.
func matchMilestone(milestones []milestone, count int64) (string, bool) {
	for _, m := range milestones {
		if m.count == count {
			return m.code, true
		}
	}
	return "", false
}

var bookingMilestones = func() []milestone {
	out := make([]milestone, 0, len(models.BookingMilestones))
	for _, n := range models.BookingMilestones {
		out = append(out, milestone{count: n, code: models.CompletedBookingsCode(n)})
	}
	return out
}()

var challengeMilestones = []milestone{
	{1, models.AchievementFirstChallenge},
	{5, models.AchievementChallenges5},
	{10, models.AchievementChallenges10},
	{25, models.AchievementChallenges25},
}

const reviewsMilestone = 10

// GamificationService is the ledger for client XP, level, coins and achievements.
// Every mutation goes through here so the level formula and unlock idempotence hold.
type GamificationService struct {
	DB *gorm.DB
}

func NewGamificationService(db *gorm.DB) *GamificationService {
	return &GamificationService{DB: db}
}

// WithTx returns a ledger bound to an open transaction.
func (s *GamificationService) WithTx(tx *gorm.DB) *GamificationService {
	return &GamificationService{DB: tx}
}

// EnsureClientStats returns the stats row for userID, creating a zeroed one if needed (idempotent)
func (s *GamificationService) EnsureClientStats(ctx context.Context, userID string) (*models.ClientStats, error) {
	return ensureStats(s.DB.WithContext(ctx), userID)
}

func ensureStats(db *gorm.DB, userID string) (*models.ClientStats, error) {
	fresh := models.ClientStats{UserID: userID, Level: 1}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&fresh).Error; err != nil {
		return nil, fmt.Errorf("failed to create stats for %s: %w", userID, err)
	}

	var stats models.ClientStats
	if err := db.Where("user_id = ?", userID).First(&stats).Error; err != nil {
		return nil, fmt.Errorf("failed to load stats for %s: %w", userID, err)
	}
	return &stats, nil
}

// lockStats ensures the row exists and re-reads it FOR UPDATE inside tx.
func lockStats(tx *gorm.DB, userID string) (*models.ClientStats, error) {
	if _, err := ensureStats(tx, userID); err != nil {
		return nil, err
	}
	var stats models.ClientStats
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&stats).Error; err != nil {
		return nil, fmt.Errorf("failed to lock stats for %s: %w", userID, err)
	}
	return &stats, nil
}

// AddXp adds a non-negative amount of XP and recomputes the level.
// Negative amounts count as 0 so no path can reduce XP.
func (s *GamificationService) AddXp(ctx context.Context, userID string, amount int64) (*models.ClientStats, error) {
	var updated *models.ClientStats
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		updated, err = addXP(tx, userID, amount, "manual")
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func addXP(tx *gorm.DB, userID string, amount int64, reason string) (*models.ClientStats, error) {
	stats, err := lockStats(tx, userID)
	if err != nil {
		return nil, err
	}
	if err := applyXP(tx, stats, amount, reason); err != nil {
		return nil, err
	}
	return stats, nil
}

// applyXP mutates and saves an already locked stats row.
func applyXP(tx *gorm.DB, stats *models.ClientStats, amount int64, reason string) error {
	if amount < 0 {
		amount = 0
	}
	if stats.XP > math.MaxInt64-amount {
		stats.XP = math.MaxInt64
	} else {
		stats.XP += amount
	}

	newLevel := LevelForXP(stats.XP)
	if newLevel > stats.Level {
		now := time.Now()
		stats.LastLevelUpAt = &now
	}
	stats.Level = newLevel

	if err := tx.Save(stats).Error; err != nil {
		return fmt.Errorf("failed to save stats for %s: %w", stats.UserID, err)
	}

	log.Printf("🎮 [LEDGER] XP awarded: %s +%d → XP=%d, Lvl=%d (reason: %s)",
		stats.UserID, amount, stats.XP, stats.Level, reason)
	return nil
}

// AwardCoins credits the user's coin balance. Amounts <= 0 and unknown users are no-ops.
func (s *GamificationService) AwardCoins(ctx context.Context, userID string, amount int64, reason string) error {
	if amount <= 0 {
		return nil
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("coins", gorm.Expr("coins + ?", amount))
		if res.Error != nil {
			return fmt.Errorf("failed to credit coins for %s: %w", userID, res.Error)
		}
		if res.RowsAffected == 0 {
			// account deleted between the triggering event and the award
			log.Printf("⚠️ [LEDGER] Coin award skipped, user %s not found (%d coins, %s)", userID, amount, reason)
			return nil
		}

		if err := tx.Create(&models.CoinTransaction{
			UserID: userID,
			Amount: amount,
			Reason: reason,
		}).Error; err != nil {
			return fmt.Errorf("failed to record coin transaction: %w", err)
		}

		log.Printf("🪙 [LEDGER] Coins awarded: %s +%d (reason: %s)", userID, amount, reason)
		return nil
	})
}

// Unlock grants the achievement with the given code once per user.
// Unknown codes are ignored. Returns true only for a new unlock.
func (s *GamificationService) Unlock(ctx context.Context, userID, code string) (bool, error) {
	var unlocked bool
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		unlocked, err = unlock(tx, userID, code)
		return err
	})
	return unlocked, err
}

func unlock(tx *gorm.DB, userID, code string) (bool, error) {
	var achievement models.Achievement
	if err := tx.Where("code = ?", code).First(&achievement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up achievement %s: %w", code, err)
	}

	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
		DoNothing: true,
	}).Create(&models.UserAchievement{
		UserID:        userID,
		AchievementID: achievement.ID,
		UnlockedAt:    time.Now(),
	})
	if res.Error != nil {
		return false, fmt.Errorf("failed to unlock %s for %s: %w", code, userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	log.Printf("🎖️ [LEDGER] Achievement unlocked: %s → %s", achievement.Name, userID)

	// Bonus XP may cross a level boundary but never unlocks anything further.
	if achievement.XPReward > 0 {
		if _, err := addXP(tx, userID, achievement.XPReward, "achievement_"+code); err != nil {
			return true, err
		}
	}
	return true, nil
}

// AwardFirstBooking runs on every booking creation: counter, flat XP, first_booking.
func (s *GamificationService) AwardFirstBooking(ctx context.Context, userID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stats, err := lockStats(tx, userID)
		if err != nil {
			return err
		}
		stats.TotalBookingsCreated++
		if err := applyXP(tx, stats, DefaultXPWeights.BookingCreated, "booking_created"); err != nil {
			return err
		}
		_, err = unlock(tx, userID, models.AchievementFirstBooking)
		return err
	})
}

// AwardBookingCompleted grants completion XP and the exact-count milestone, if any.
func (s *GamificationService) AwardBookingCompleted(ctx context.Context, userID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stats, err := lockStats(tx, userID)
		if err != nil {
			return err
		}
		stats.TotalBookingsCompleted++
		completed := stats.TotalBookingsCompleted
		if err := applyXP(tx, stats, DefaultXPWeights.BookingCompleted, "booking_completed"); err != nil {
			return err
		}

		if _, err := unlock(tx, userID, models.AchievementFirstCompletedBooking); err != nil {
			return err
		}
		if code, ok := matchMilestone(bookingMilestones, completed); ok {
			if _, err := unlock(tx, userID, code); err != nil {
				return err
			}
		}
		return nil
	})
}

// AwardReviewApproved grants review XP; reviews_10 unlocks at exactly 10 approved reviews.
func (s *GamificationService) AwardReviewApproved(ctx context.Context, userID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := addXP(tx, userID, DefaultXPWeights.ReviewApproved, "review_approved"); err != nil {
			return err
		}
		if _, err := unlock(tx, userID, models.AchievementFirstReview); err != nil {
			return err
		}

		var approved int64
		if err := tx.Model(&models.Review{}).
			Where("client_id = ? AND status = ?", userID, models.ReviewApproved).
			Count(&approved).Error; err != nil {
			return fmt.Errorf("failed to count approved reviews: %w", err)
		}
		if approved == reviewsMilestone {
			if _, err := unlock(tx, userID, models.AchievementReviews10); err != nil {
				return err
			}
		}
		return nil
	})
}

// AwardChallengeCompleted grants the challenge XP, its badge, and at most one
// challenge-count milestone. The completed participation must already be saved.
func (s *GamificationService) AwardChallengeCompleted(ctx context.Context, userID string, xpAmount int64, badgeCode *string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := addXP(tx, userID, xpAmount, "challenge_completed"); err != nil {
			return err
		}
		if badgeCode != nil && *badgeCode != "" {
			if _, err := unlock(tx, userID, *badgeCode); err != nil {
				return err
			}
		}

		var completed int64
		if err := tx.Model(&models.ChallengeParticipation{}).
			Where("user_id = ? AND status = ?", userID, models.ParticipationCompleted).
			Count(&completed).Error; err != nil {
			return fmt.Errorf("failed to count completed challenges: %w", err)
		}
		if code, ok := matchMilestone(challengeMilestones, completed); ok {
			if _, err := unlock(tx, userID, code); err != nil {
				return err
			}
		}
		return nil
	})
}

// EnsureSeedAchievements inserts catalog entries missing by code. Existing rows are never touched.
func (s *GamificationService) EnsureSeedAchievements(ctx context.Context) (int, error) {
	inserted := 0
	for _, entry := range models.AchievementCatalog {
		a := entry
		res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&a)
		if res.Error != nil {
			return inserted, fmt.Errorf("failed to seed achievement %s: %w", entry.Code, res.Error)
		}
		inserted += int(res.RowsAffected)
	}
	if inserted > 0 {
		log.Printf("🌱 [LEDGER] Seeded %d achievement(s)", inserted)
	}
	return inserted, nil
}

// StatsView is the client-facing projection of a user's progression.
type StatsView struct {
	UserID                 string     `json:"user_id"`
	XP                     int64      `json:"xp"`
	Level                  int        `json:"level"`
	Coins                  int64      `json:"coins"`
	CurrentLevelXP         int64      `json:"current_level_xp"`
	NextLevelXP            int64      `json:"next_level_xp"`
	ProgressToNextLevel    int        `json:"progress_to_next_level"`
	TotalBookingsCreated   int64      `json:"total_bookings_created"`
	TotalBookingsCompleted int64      `json:"total_bookings_completed"`
	AchievementsUnlocked   int64      `json:"achievements_unlocked"`
	LastLevelUpAt          *time.Time `json:"last_level_up_at,omitempty"`
}

// GetStats builds the display view. It never creates a stats row: users
// without one (entrepreneurs, admins, clients with no activity yet) get the
// zeroed level 1 view.
func (s *GamificationService) GetStats(ctx context.Context, userID string) (*StatsView, error) {
	db := s.DB.WithContext(ctx)
	stats := &models.ClientStats{UserID: userID, Level: 1}
	if err := db.Where("user_id = ?", userID).First(stats).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load stats for %s: %w", userID, err)
	}

	var user models.User
	var coins int64
	if err := db.Select("coins").Where("id = ?", userID).First(&user).Error; err == nil {
		coins = user.Coins
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var unlocked int64
	if err := db.Model(&models.UserAchievement{}).Where("user_id = ?", userID).Count(&unlocked).Error; err != nil {
		return nil, err
	}

	current := LevelThreshold(stats.Level)
	next := LevelThreshold(stats.Level + 1)
	progress := 0
	if stats.Level >= MaxLevel {
		next = current
		progress = 100
	} else if span := next - current; span > 0 {
		progress = int((stats.XP - current) * 100 / span)
	}

	return &StatsView{
		UserID:                 userID,
		XP:                     stats.XP,
		Level:                  stats.Level,
		Coins:                  coins,
		CurrentLevelXP:         current,
		NextLevelXP:            next,
		ProgressToNextLevel:    progress,
		TotalBookingsCreated:   stats.TotalBookingsCreated,
		TotalBookingsCompleted: stats.TotalBookingsCompleted,
		AchievementsUnlocked:   unlocked,
		LastLevelUpAt:          stats.LastLevelUpAt,
	}, nil
}

// ListAchievements returns the full catalog ordered by XP reward.
func (s *GamificationService) ListAchievements(ctx context.Context) ([]models.Achievement, error) {
	var achievements []models.Achievement
	err := s.DB.WithContext(ctx).Order("xp_reward ASC, code ASC").Find(&achievements).Error
	return achievements, err
}

// ListUserAchievements returns a user's unlocks, newest first.
func (s *GamificationService) ListUserAchievements(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	var unlocks []models.UserAchievement
	err := s.DB.WithContext(ctx).
		Preload("Achievement").
		Where("user_id = ?", userID).
		Order("unlocked_at DESC").
		Find(&unlocks).Error
	return unlocks, err
}
