package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"bizquits/models"
)

func TestConcurrentBookingEvents_NoLostUpdates(t *testing.T) {
	f, cleanup := setupFixture(t)
	defer cleanup()
	ctx := context.Background()

	ch := f.createChallenge(t, func(c *models.Challenge) { c.TargetCount = nil })
	p := f.joinAndAccept(t, ch.ID)

	const events = 20
	var wg sync.WaitGroup
	for i := 0; i < events; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.engine.OnBookingCompleted(ctx, f.clientID, f.serviceID); err != nil {
				t.Errorf("Failed to advance: %v", err)
			}
		}()
	}
	wg.Wait()

	got := f.participation(t, p.ID)
	if got.CurrentProgress != events {
		t.Errorf("Expected progress %d, got %d", events, got.CurrentProgress)
	}
	if got.Status != models.ParticipationInProgress {
		t.Errorf("Expected InProgress, got %s", got.Status)
	}
}

func TestConcurrentBookingEvents_SinglePayout(t *testing.T) {
	f, cleanup := setupFixture(t)
	defer cleanup()
	ctx := context.Background()

	ch := f.createChallenge(t, func(c *models.Challenge) { c.TargetCount = intPtr(5) })
	p := f.joinAndAccept(t, ch.ID)

	const events = 12
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		advanced int
	)
	for i := 0; i < events; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := f.engine.OnBookingCompleted(ctx, f.clientID, f.serviceID)
			if err != nil {
				t.Errorf("Failed to advance: %v", err)
				return
			}
			mu.Lock()
			advanced += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	got := f.participation(t, p.ID)
	if got.Status != models.ParticipationCompleted || got.CurrentProgress != 5 {
		t.Errorf("Expected Completed at 5, got %s at %d", got.Status, got.CurrentProgress)
	}
	if advanced != 5 {
		t.Errorf("Expected 5 advances, got %d", advanced)
	}
	if coins := f.coins(t, f.clientID); coins != 20 {
		t.Errorf("Expected 20 coins, got %d", coins)
	}
	var txs int64
	f.db.Model(&models.CoinTransaction{}).Where("user_id = ?", f.clientID).Count(&txs)
	if txs != 1 {
		t.Errorf("Expected 1 coin transaction, got %d", txs)
	}
	if !f.hasAchievement(t, f.clientID, models.AchievementFirstChallenge) {
		t.Error("Expected first challenge achievement")
	}
}

func TestConcurrentCompleteChallenge_SinglePayout(t *testing.T) {
	f, cleanup := setupFixture(t)
	defer cleanup()
	ctx := context.Background()

	ch := f.createChallenge(t)
	p := f.joinAndAccept(t, ch.ID)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.engine.CompleteChallenge(ctx, p.ID); err != nil {
				t.Errorf("Failed to complete: %v", err)
			}
		}()
	}
	wg.Wait()

	if coins := f.coins(t, f.clientID); coins != 20 {
		t.Errorf("Expected 20 coins, got %d", coins)
	}
	var completed int64
	f.db.Model(&models.ChallengeParticipation{}).
		Where("user_id = ? AND status = ?", f.clientID, models.ParticipationCompleted).
		Count(&completed)
	if completed != 1 {
		t.Errorf("Expected 1 completed participation, got %d", completed)
	}
}

func TestConcurrentJoin_SingleOpenParticipation(t *testing.T) {
	f, cleanup := setupFixture(t)
	defer cleanup()
	ctx := context.Background()

	ch := f.createChallenge(t)

	const joins = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		refused   int
	)
	for i := 0; i < joins; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Join(ctx, ch.ID, f.clientID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrAlreadyParticipating):
				refused++
			default:
				t.Errorf("Unexpected join error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || refused != joins-1 {
		t.Errorf("Expected 1 join and %d refusals, got %d and %d", joins-1, succeeded, refused)
	}
	var open int64
	f.db.Model(&models.ChallengeParticipation{}).
		Where("user_id = ? AND challenge_id = ?", f.clientID, ch.ID).
		Where("status NOT IN ?", terminalStatuses).
		Count(&open)
	if open != 1 {
		t.Errorf("Expected 1 open participation, got %d", open)
	}
}
