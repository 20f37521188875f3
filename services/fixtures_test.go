package services

import (
	"context"
	"testing"
	"time"

	"bizquits/models"
	"bizquits/testutil"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db             *gorm.DB
	ledger         *GamificationService
	engine         *ChallengeService
	entrepreneurID string
	serviceID      string
	offerID        string
	clientID       string
}

func setupFixture(t *testing.T) (*fixture, func()) {
	t.Helper()
	db, cleanup := testutil.NewDB(t)

	ledger := NewGamificationService(db)
	engine := NewChallengeService(db, ledger)
	engine.Now = func() time.Time { return baseTime }

	if _, err := ledger.EnsureSeedAchievements(context.Background()); err != nil {
		t.Fatalf("Failed to seed achievements: %v", err)
	}

	owner := createUser(t, db, models.RoleEntrepreneur)
	profile := models.EntrepreneurProfile{UserID: owner.ID, BusinessName: "Glow Studio"}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("Failed to create profile: %v", err)
	}
	service := models.Service{EntrepreneurProfileID: profile.ID, Title: "Haircut"}
	if err := db.Create(&service).Error; err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	offer := models.Offer{EntrepreneurProfileID: profile.ID, Title: "Summer 20% off"}
	if err := db.Create(&offer).Error; err != nil {
		t.Fatalf("Failed to create offer: %v", err)
	}
	client := createUser(t, db, models.RoleClient)

	return &fixture{
		db:             db,
		ledger:         ledger,
		engine:         engine,
		entrepreneurID: profile.ID,
		serviceID:      service.ID,
		offerID:        offer.ID,
		clientID:       client.ID,
	}, cleanup
}

func createUser(t *testing.T, db *gorm.DB, role models.UserRole) models.User {
	t.Helper()
	u := models.User{Email: uuid.NewString() + "@example.com", FullName: "Test User", Role: role}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return u
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

// createChallenge defaults to an active automatic booking challenge:
// target 3, 100 XP, 20 coins.
func (f *fixture) createChallenge(t *testing.T, opts ...func(*models.Challenge)) models.Challenge {
	t.Helper()
	ch := models.Challenge{
		EntrepreneurProfileID: f.entrepreneurID,
		Title:                 "Book 3 times",
		Type:                  models.ChallengeTypeBookingMilestone,
		Status:                models.ChallengeStatusActive,
		TargetCount:           intPtr(3),
		TrackingMode:          models.TrackingModeAutomatic,
		XPReward:              100,
		CoinsReward:           20,
	}
	for _, opt := range opts {
		opt(&ch)
	}
	if err := f.db.Create(&ch).Error; err != nil {
		t.Fatalf("Failed to create challenge: %v", err)
	}
	return ch
}

// joinAndAccept enrolls the fixture client and accepts the request.
func (f *fixture) joinAndAccept(t *testing.T, challengeID string) models.ChallengeParticipation {
	t.Helper()
	ctx := context.Background()
	p, err := f.engine.Join(ctx, challengeID, f.clientID)
	if err != nil {
		t.Fatalf("Failed to join: %v", err)
	}
	ok, err := f.engine.Accept(ctx, p.ID, f.entrepreneurID, nil)
	if err != nil || !ok {
		t.Fatalf("Failed to accept: ok=%v err=%v", ok, err)
	}
	return f.participation(t, p.ID)
}

func (f *fixture) participation(t *testing.T, id string) models.ChallengeParticipation {
	t.Helper()
	var p models.ChallengeParticipation
	if err := f.db.Preload("Challenge").Where("id = ?", id).First(&p).Error; err != nil {
		t.Fatalf("Failed to load participation: %v", err)
	}
	return p
}

func (f *fixture) stats(t *testing.T, userID string) models.ClientStats {
	t.Helper()
	var s models.ClientStats
	if err := f.db.Where("user_id = ?", userID).First(&s).Error; err != nil {
		t.Fatalf("Failed to load stats: %v", err)
	}
	return s
}

func (f *fixture) hasAchievement(t *testing.T, userID, code string) bool {
	t.Helper()
	var n int64
	err := f.db.Model(&models.UserAchievement{}).
		Joins("JOIN achievements ON achievements.id = user_achievements.achievement_id").
		Where("user_achievements.user_id = ? AND achievements.code = ?", userID, code).
		Count(&n).Error
	if err != nil {
		t.Fatalf("Failed to count achievements: %v", err)
	}
	return n > 0
}

func (f *fixture) achievementCount(t *testing.T, userID string) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&models.UserAchievement{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		t.Fatalf("Failed to count achievements: %v", err)
	}
	return n
}

func (f *fixture) coins(t *testing.T, userID string) int64 {
	t.Helper()
	var u models.User
	if err := f.db.Where("id = ?", userID).First(&u).Error; err != nil {
		t.Fatalf("Failed to load user: %v", err)
	}
	return u.Coins
}
