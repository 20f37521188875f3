package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"bizquits/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrChallengeNotFound     = errors.New("challenge not found")
	ErrChallengeNotActive    = errors.New("challenge is not active")
	ErrAlreadyParticipating  = errors.New("user already has an open participation in this challenge")
	ErrParticipationNotFound = errors.New("participation not found")
)

// ChallengeService drives participations through their lifecycle and pays out
// rewards through the ledger exactly once per participation.
type ChallengeService struct {
	DB     *gorm.DB
	Ledger *GamificationService
	Now    func() time.Time
}

func NewChallengeService(db *gorm.DB, ledger *GamificationService) *ChallengeService {
	return &ChallengeService{DB: db, Ledger: ledger, Now: time.Now}
}

// WithTx returns an engine (and ledger) bound to an open transaction.
func (s *ChallengeService) WithTx(tx *gorm.DB) *ChallengeService {
	return &ChallengeService{DB: tx, Ledger: s.Ledger.WithTx(tx), Now: s.Now}
}

// Join creates a Pending participation for an Active challenge.
func (s *ChallengeService) Join(ctx context.Context, challengeID, userID string) (*models.ChallengeParticipation, error) {
	var p *models.ChallengeParticipation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ch models.Challenge
		if err := tx.Where("id = ?", challengeID).First(&ch).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChallengeNotFound
			}
			return err
		}
		if ch.Status != models.ChallengeStatusActive {
			return ErrChallengeNotActive
		}

		var open int64
		if err := tx.Model(&models.ChallengeParticipation{}).
			Where("user_id = ? AND challenge_id = ?", userID, challengeID).
			Where("status NOT IN ?", terminalStatuses).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return ErrAlreadyParticipating
		}

		if _, err := ensureStats(tx, userID); err != nil {
			return err
		}

		p = &models.ChallengeParticipation{
			ChallengeID: challengeID,
			UserID:      userID,
			Status:      models.ParticipationPending,
		}
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			// the partial unique index catches a concurrent join
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyParticipating
			}
			return fmt.Errorf("failed to create participation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("🙋 [CHALLENGE] %s joined challenge %s (participation %s)", userID, challengeID, p.ID)
	return p, nil
}

var terminalStatuses = []models.ParticipationStatus{
	models.ParticipationRejected,
	models.ParticipationCompleted,
	models.ParticipationWithdrawn,
	models.ParticipationFailed,
}

// lockParticipation re-reads the participation FOR UPDATE along with its challenge.
// Returns ErrParticipationNotFound when either row is missing.
func lockParticipation(tx *gorm.DB, participationID string) (*models.ChallengeParticipation, *models.Challenge, error) {
	var p models.ChallengeParticipation
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", participationID).
		First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrParticipationNotFound
		}
		return nil, nil, err
	}
	var ch models.Challenge
	if err := tx.Where("id = ?", p.ChallengeID).First(&ch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrParticipationNotFound
		}
		return nil, nil, err
	}
	return &p, &ch, nil
}

// mutate runs fn against a locked participation. fn reports whether the
// transition was allowed; validation failures return (false, nil).
func (s *ChallengeService) mutate(ctx context.Context, participationID string,
	fn func(tx *gorm.DB, p *models.ChallengeParticipation, ch *models.Challenge) (bool, error)) (bool, error) {
	var ok bool
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, ch, err := lockParticipation(tx, participationID)
		if errors.Is(err, ErrParticipationNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		ok, err = fn(tx, p, ch)
		return err
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

func saveParticipation(tx *gorm.DB, p *models.ChallengeParticipation) error {
	if err := tx.Omit(clause.Associations).Save(p).Error; err != nil {
		return fmt.Errorf("failed to save participation %s: %w", p.ID, err)
	}
	return nil
}

// Accept is the entrepreneur's approval of a join request. It snapshots the
// target and starts the deadline clock.
func (s *ChallengeService) Accept(ctx context.Context, participationID, entrepreneurProfileID string, response *string) (bool, error) {
	return s.mutate(ctx, participationID, func(tx *gorm.DB, p *models.ChallengeParticipation, ch *models.Challenge) (bool, error) {
		if ch.EntrepreneurProfileID != entrepreneurProfileID || !p.Status.CanTransitionTo(models.ParticipationAccepted) {
			return false, nil
		}
		now := s.Now()
		p.Status = models.ParticipationAccepted
		p.AcceptedAt = &now
		p.TargetProgress = 0
		if ch.TargetCount != nil {
			p.TargetProgress = *ch.TargetCount
		}
		if ch.TimeLimitDays != nil && *ch.TimeLimitDays > 0 {
			deadline := now.AddDate(0, 0, *ch.TimeLimitDays)
			p.Deadline = &deadline
		}
		p.EntrepreneurResponse = response
		if err := saveParticipation(tx, p); err != nil {
			return false, err
		}
		log.Printf("✅ [CHALLENGE] Participation %s accepted (target=%d)", p.ID, p.TargetProgress)
		return true, nil
	})
}

// Reject declines a join request. Rejected is terminal.
func (s *ChallengeService) Reject(ctx context.Context, participationID, entrepreneurProfileID string, response *string) (bool, error) {
	return s.mutate(ctx, participationID, func(tx *gorm.DB, p *models.ChallengeParticipation, ch *models.Challenge) (bool, error) {
		if ch.EntrepreneurProfileID != entrepreneurProfileID || !p.Status.CanTransitionTo(models.ParticipationRejected) {
			return false, nil
		}
		p.Status = models.ParticipationRejected
		p.EntrepreneurResponse = response
		if err := saveParticipation(tx, p); err != nil {
			return false, err
		}
		log.Printf("🚫 [CHALLENGE] Participation %s rejected", p.ID)
		return true, nil
	})
}

// OnBookingCompleted advances booking-type challenges of the service's entrepreneur.
func (s *ChallengeService) OnBookingCompleted(ctx context.Context, clientID, serviceID string) (int, error) {
	var svc models.Service
	if err := s.DB.WithContext(ctx).Where("id = ?", serviceID).First(&svc).Error; err != nil {
		return 0, s.ownerLookupError("service", serviceID, err)
	}
	return s.advanceMatching(ctx, clientID, svc.EntrepreneurProfileID, models.BookingChallengeTypes)
}

// OnReviewApproved advances review challenges of the reviewed service's entrepreneur.
func (s *ChallengeService) OnReviewApproved(ctx context.Context, clientID, serviceID string) (int, error) {
	var svc models.Service
	if err := s.DB.WithContext(ctx).Where("id = ?", serviceID).First(&svc).Error; err != nil {
		return 0, s.ownerLookupError("service", serviceID, err)
	}
	return s.advanceMatching(ctx, clientID, svc.EntrepreneurProfileID, models.ReviewChallengeTypes)
}

// OnOfferClaimed advances offer-claim challenges of the offer's entrepreneur.
func (s *ChallengeService) OnOfferClaimed(ctx context.Context, clientID, offerID string) (int, error) {
	var offer models.Offer
	if err := s.DB.WithContext(ctx).Where("id = ?", offerID).First(&offer).Error; err != nil {
		return 0, s.ownerLookupError("offer", offerID, err)
	}
	return s.advanceMatching(ctx, clientID, offer.EntrepreneurProfileID, models.OfferClaimChallengeTypes)
}

func (s *ChallengeService) ownerLookupError(kind, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s not found", kind, id)
	}
	return fmt.Errorf("failed to resolve %s %s: %w", kind, id, err)
}

// advanceMatching applies exactly +1 to every open, automatic participation of
// clientID in an Active challenge of the entrepreneur whose type is in types.
// Each participation is advanced in its own transaction; one failure does not
// stop the others.
func (s *ChallengeService) advanceMatching(ctx context.Context, clientID, entrepreneurProfileID string, types []models.ChallengeType) (int, error) {
	db := s.DB.WithContext(ctx)

	challengeIDs := db.Model(&models.Challenge{}).
		Select("id").
		Where("entrepreneur_profile_id = ? AND status = ? AND tracking_mode = ? AND type IN ?",
			entrepreneurProfileID, models.ChallengeStatusActive, models.TrackingModeAutomatic, types)

	var ids []string
	if err := db.Model(&models.ChallengeParticipation{}).
		Where("user_id = ? AND status IN ?", clientID, models.ActiveParticipationStatuses).
		Where("challenge_id IN (?)", challengeIDs).
		Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("failed to find matching participations: %w", err)
	}

	advanced := 0
	var errs []error
	for _, id := range ids {
		ok, err := s.IncrementProgressAndCheckCompletion(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("participation %s: %w", id, err))
			continue
		}
		if ok {
			advanced++
		}
	}
	return advanced, errors.Join(errs...)
}

// IncrementProgressAndCheckCompletion adds one unit of progress to the locked
// participation, marks it started, and completes it once the challenge target
// is reached. Returns false when the participation is missing or not Accepted/InProgress.
// A challenge without a target never auto-completes.
func (s *ChallengeService) IncrementProgressAndCheckCompletion(ctx context.Context, participationID string) (bool, error) {
	return s.mutate(ctx, participationID, func(tx *gorm.DB, p *models.ChallengeParticipation, ch *models.Challenge) (bool, error) {
		// status may have moved since the caller looked
		if !p.Status.IsActive() {
			return false, nil
		}
		return true, s.WithTx(tx).incrementProgress(tx, p, ch)
	})
}

func (s *ChallengeService) incrementProgress(tx *gorm.DB, p *models.ChallengeParticipation, ch *models.Challenge) error {
	now := s.Now()
	p.CurrentProgress++
	p.UpdatedAt = now
	if p.Status == models.ParticipationAccepted {
		p.Status = models.ParticipationInProgress
		p.StartedAt = &now
	}

	log.Printf("📈 [CHALLENGE] Participation %s progress %d/%s", p.ID, p.CurrentProgress, targetString(ch))

	if ch.HasTarget() && p.CurrentProgress >= *ch.TargetCount {
		return s.completeChallenge(tx, p, ch)
	}
	return saveParticipation(tx, p)
}

func targetString(ch *models.Challenge) string {
	if ch.TargetCount == nil {
		return "∞"
	}
	return fmt.Sprint(*ch.TargetCount)
}

// CompleteChallenge marks the locked participation Completed and pays out the
// reward unless it was already paid. Calling it on a Completed participation is
// a no-op that reports true; terminal or Pending participations report false.
func (s *ChallengeService) CompleteChallenge(ctx context.Context, participationID string) (bool, error) {
	return s.mutate(ctx, participationID, func(tx *gorm.DB, p *models.ChallengeParticipation, ch *models.Challenge) (bool, error) {
		if p.Status == models.ParticipationCompleted {
			return true, nil
		}
		if !p.Status.CanTransitionTo(models.ParticipationCompleted) {
			return false, nil
		}
		return true, s.WithTx(tx).completeChallenge(tx, p, ch)
	})
}

func (s *ChallengeService) completeChallenge(tx *gorm.DB, p *models.ChallengeParticipation, ch *models.Challenge) error {
	now := s.Now()
	p.Status = models.ParticipationCompleted
	if p.CompletedAt == nil {
		p.CompletedAt = &now
	}
	p.UpdatedAt = now

	payout := !p.RewardAwarded
	if payout {
		p.RewardAwarded = true
		p.XPAwarded = ch.XPReward
		p.CoinsAwarded = ch.CoinsReward
	}

	// saved first so the ledger's completed-challenge count includes this one
	if err := saveParticipation(tx, p); err != nil {
		return err
	}
	if !payout {
		log.Printf("ℹ️ [CHALLENGE] Participation %s already rewarded, skipping payout", p.ID)
		return nil
	}

	ctx := tx.Statement.Context
	ledger := s.Ledger.WithTx(tx)
	if err := ledger.AwardChallengeCompleted(ctx, p.UserID, ch.XPReward, ch.BadgeCode); err != nil {
		return err
	}
	if ch.CoinsReward > 0 {
		if err := ledger.AwardCoins(ctx, p.UserID, ch.CoinsReward, fmt.Sprintf("Challenge completed: %s", ch.Title)); err != nil {
			return err
		}
	}

	log.Printf("🏁 [CHALLENGE] %s completed %q (+%d XP, +%d coins)", p.UserID, ch.Title, ch.XPReward, ch.CoinsReward)
	return nil
}

// SubmitProof stores proof for a ManualVerification challenge and hands it to the entrepreneur.
// Returns false when the participation is not the user's, the mode is wrong, or the status is not open.
func (s *ChallengeService) SubmitProof(ctx context.Context, participationID, userID string, proofText, proofImageURL *string) (bool, error) {
	return s.mutate(ctx, participationID, func(tx *gorm.DB, p *models.ChallengeParticipation, ch *models.Challenge) (bool, error) {
		if p.UserID != userID ||
			ch.TrackingMode != models.TrackingModeManualVerification ||
			!p.Status.CanTransitionTo(models.ParticipationProofSubmitted) {
			return false, nil
		}
		now := s.Now()
		p.ProofText = proofText
		p.ProofImageURL = proofImageURL
		p.ProofSubmittedAt = &now
		p.Status = models.ParticipationProofSubmitted
		if err := saveParticipation(tx, p); err != nil {
			return false, err
		}
		log.Printf("📸 [CHALLENGE] Proof submitted for participation %s", p.ID)
		return true, nil
	})
}

// VerifyProof approves (force-completes) or rejects (reopens for resubmission) a submitted proof.
func (s *ChallengeService) VerifyProof(ctx context.Context, participationID, entrepreneurProfileID string, approved bool, response *string) (bool, error) {
	return s.mutate(ctx, participationID, func(tx *gorm.DB, p *models.ChallengeParticipation, ch *models.Challenge) (bool, error) {
		if ch.EntrepreneurProfileID != entrepreneurProfileID || p.Status != models.ParticipationProofSubmitted {
			return false, nil
		}
		p.EntrepreneurResponse = response

		if approved {
			p.CurrentProgress = p.TargetProgress
			if err := s.WithTx(tx).completeChallenge(tx, p, ch); err != nil {
				return false, err
			}
			return true, nil
		}

		p.Status = models.ParticipationInProgress
		p.ClearProof()
		if err := saveParticipation(tx, p); err != nil {
			return false, err
		}
		log.Printf("↩️ [CHALLENGE] Proof rejected for participation %s, resubmission allowed", p.ID)
		return true, nil
	})
}

// Withdraw lets the participant leave an open challenge.
func (s *ChallengeService) Withdraw(ctx context.Context, participationID, userID string) (bool, error) {
	return s.mutate(ctx, participationID, func(tx *gorm.DB, p *models.ChallengeParticipation, ch *models.Challenge) (bool, error) {
		if p.UserID != userID || !p.Status.CanTransitionTo(models.ParticipationWithdrawn) {
			return false, nil
		}
		p.Status = models.ParticipationWithdrawn
		if err := saveParticipation(tx, p); err != nil {
			return false, err
		}
		log.Printf("👋 [CHALLENGE] Participation %s withdrawn", p.ID)
		return true, nil
	})
}

// MarkFailed closes an open participation as Failed.
func (s *ChallengeService) MarkFailed(ctx context.Context, participationID string, reason *string) (bool, error) {
	return s.mutate(ctx, participationID, func(tx *gorm.DB, p *models.ChallengeParticipation, ch *models.Challenge) (bool, error) {
		if !p.Status.CanTransitionTo(models.ParticipationFailed) {
			return false, nil
		}
		p.Status = models.ParticipationFailed
		if reason != nil {
			p.EntrepreneurResponse = reason
		}
		if err := saveParticipation(tx, p); err != nil {
			return false, err
		}
		log.Printf("❌ [CHALLENGE] Participation %s failed", p.ID)
		return true, nil
	})
}

// UpdateManualProgress sets progress directly for EntrepreneurManual challenges.
func (s *ChallengeService) UpdateManualProgress(ctx context.Context, participationID, entrepreneurProfileID string, progress int) (bool, error) {
	if progress < 0 {
		return false, nil
	}
	return s.mutate(ctx, participationID, func(tx *gorm.DB, p *models.ChallengeParticipation, ch *models.Challenge) (bool, error) {
		if ch.EntrepreneurProfileID != entrepreneurProfileID ||
			ch.TrackingMode != models.TrackingModeEntrepreneurManual ||
			!p.Status.IsActive() {
			return false, nil
		}
		now := s.Now()
		p.CurrentProgress = progress
		if p.Status == models.ParticipationAccepted {
			p.Status = models.ParticipationInProgress
			p.StartedAt = &now
		}
		if p.TargetProgress > 0 && p.CurrentProgress >= p.TargetProgress {
			return true, s.WithTx(tx).completeChallenge(tx, p, ch)
		}
		return true, saveParticipation(tx, p)
	})
}

const deadlinePassedResponse = "Deadline passed"

// FailOverdue fails every open participation whose deadline is before now.
func (s *ChallengeService) FailOverdue(ctx context.Context, now time.Time) (int, error) {
	var ids []string
	if err := s.DB.WithContext(ctx).Model(&models.ChallengeParticipation{}).
		Where("status IN ? AND deadline IS NOT NULL AND deadline < ?", models.ActiveParticipationStatuses, now).
		Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("failed to find overdue participations: %w", err)
	}

	reason := deadlinePassedResponse
	failed := 0
	for _, id := range ids {
		ok, err := s.MarkFailed(ctx, id, &reason)
		if err != nil {
			log.Printf("[Scheduler] Failed to expire participation %s: %v", id, err)
			continue
		}
		if ok {
			failed++
		}
	}
	return failed, nil
}

// ProgressInfo is the read-only view of a participation and its challenge.
type ProgressInfo struct {
	ParticipationID       string                     `json:"participation_id"`
	ChallengeID           string                     `json:"challenge_id"`
	EntrepreneurProfileID string                     `json:"entrepreneur_profile_id"`
	UserID                string                     `json:"user_id"`
	ChallengeTitle        string                     `json:"challenge_title"`
	ChallengeType         models.ChallengeType       `json:"challenge_type"`
	TrackingMode          models.TrackingMode        `json:"tracking_mode"`
	Status                models.ParticipationStatus `json:"status"`
	CurrentProgress       int                        `json:"current_progress"`
	TargetProgress        int                        `json:"target_progress"`
	ProgressPercentage    int                        `json:"progress_percentage"`
	XPReward              int64                      `json:"xp_reward"`
	CoinsReward           int64                      `json:"coins_reward"`
	BadgeCode             *string                    `json:"badge_code,omitempty"`
	RewardAwarded         bool                       `json:"reward_awarded"`
	XPAwarded             int64                      `json:"xp_awarded"`
	CoinsAwarded          int64                      `json:"coins_awarded"`
	ProofInstructions     *string                    `json:"proof_instructions,omitempty"`
	ProofText             *string                    `json:"proof_text,omitempty"`
	ProofImageURL         *string                    `json:"proof_image_url,omitempty"`
	ProofSubmittedAt      *time.Time                 `json:"proof_submitted_at,omitempty"`
	EntrepreneurResponse  *string                    `json:"entrepreneur_response,omitempty"`
	Deadline              *time.Time                 `json:"deadline,omitempty"`
	DaysRemaining         *int                       `json:"days_remaining,omitempty"`
	CompletedAt           *time.Time                 `json:"completed_at,omitempty"`
}

// ProgressPercentage = min(100, current*100/target); 0 when target is 0.
func ProgressPercentage(current, target int) int {
	if target <= 0 {
		return 0
	}
	pct := current * 100 / target
	if pct > 100 {
		return 100
	}
	return pct
}

// GetProgressInfo returns ErrParticipationNotFound for unknown ids.
func (s *ChallengeService) GetProgressInfo(ctx context.Context, participationID string) (*ProgressInfo, error) {
	var p models.ChallengeParticipation
	if err := s.DB.WithContext(ctx).Preload("Challenge").Where("id = ?", participationID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipationNotFound
		}
		return nil, err
	}
	info := s.progressInfo(&p)
	return &info, nil
}

// ListUserParticipations returns every participation of a user, newest first.
func (s *ChallengeService) ListUserParticipations(ctx context.Context, userID string) ([]ProgressInfo, error) {
	var parts []models.ChallengeParticipation
	if err := s.DB.WithContext(ctx).
		Preload("Challenge").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&parts).Error; err != nil {
		return nil, err
	}
	out := make([]ProgressInfo, len(parts))
	for i := range parts {
		out[i] = s.progressInfo(&parts[i])
	}
	return out, nil
}

func (s *ChallengeService) progressInfo(p *models.ChallengeParticipation) ProgressInfo {
	ch := p.Challenge
	info := ProgressInfo{
		ParticipationID:       p.ID,
		ChallengeID:           p.ChallengeID,
		EntrepreneurProfileID: ch.EntrepreneurProfileID,
		UserID:                p.UserID,
		ChallengeTitle:        ch.Title,
		ChallengeType:         ch.Type,
		TrackingMode:          ch.TrackingMode,
		Status:                p.Status,
		CurrentProgress:       p.CurrentProgress,
		TargetProgress:        p.TargetProgress,
		ProgressPercentage:    ProgressPercentage(p.CurrentProgress, p.TargetProgress),
		XPReward:              ch.XPReward,
		CoinsReward:           ch.CoinsReward,
		BadgeCode:             ch.BadgeCode,
		RewardAwarded:         p.RewardAwarded,
		XPAwarded:             p.XPAwarded,
		CoinsAwarded:          p.CoinsAwarded,
		ProofInstructions:     ch.ProofInstructions,
		ProofText:             p.ProofText,
		ProofImageURL:         p.ProofImageURL,
		ProofSubmittedAt:      p.ProofSubmittedAt,
		EntrepreneurResponse:  p.EntrepreneurResponse,
		Deadline:              p.Deadline,
		CompletedAt:           p.CompletedAt,
	}
	if p.Deadline != nil && p.Status.IsActive() {
		days := int(p.Deadline.Sub(s.Now()).Hours() / 24)
		if days < 0 {
			days = 0
		}
		info.DaysRemaining = &days
	}
	return info
}
