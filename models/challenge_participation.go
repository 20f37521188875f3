package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ParticipationStatus string

const (
	ParticipationPending        ParticipationStatus = "Pending"
	ParticipationAccepted       ParticipationStatus = "Accepted"
	ParticipationInProgress     ParticipationStatus = "InProgress"
	ParticipationProofSubmitted ParticipationStatus = "ProofSubmitted"
	ParticipationCompleted      ParticipationStatus = "Completed"
	ParticipationRejected       ParticipationStatus = "Rejected"
	ParticipationWithdrawn      ParticipationStatus = "Withdrawn"
	ParticipationFailed         ParticipationStatus = "Failed"
)

// ActiveParticipationStatuses are the statuses that receive progress.
var ActiveParticipationStatuses = []ParticipationStatus{ParticipationAccepted, ParticipationInProgress}

var participationTransitions = map[ParticipationStatus][]ParticipationStatus{
	ParticipationPending:        {ParticipationAccepted, ParticipationRejected},
	ParticipationAccepted:       {ParticipationInProgress, ParticipationCompleted, ParticipationProofSubmitted, ParticipationWithdrawn, ParticipationFailed},
	ParticipationInProgress:     {ParticipationCompleted, ParticipationProofSubmitted, ParticipationWithdrawn, ParticipationFailed},
	ParticipationProofSubmitted: {ParticipationCompleted, ParticipationInProgress},
}

// CanTransitionTo reports whether the participation state machine allows s -> next.
// Terminal states have no outgoing edges.
func (s ParticipationStatus) CanTransitionTo(next ParticipationStatus) bool {
	for _, allowed := range participationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal: Rejected, Completed, Withdrawn, Failed
func (s ParticipationStatus) IsTerminal() bool {
	switch s {
	case ParticipationRejected, ParticipationCompleted, ParticipationWithdrawn, ParticipationFailed:
		return true
	}
	return false
}

// IsActive reports whether progress may be applied in this status.
func (s ParticipationStatus) IsActive() bool {
	return s == ParticipationAccepted || s == ParticipationInProgress
}

// ChallengeParticipation = one user's enrollment + progress against a challenge.
// The partial unique index allows re-joining once a previous participation is terminal.
type ChallengeParticipation struct {
	ID          string              `gorm:"primaryKey;type:uuid" json:"id"`
	ChallengeID string              `gorm:"type:uuid;not null;index;uniqueIndex:idx_participation_active,where:status <> 'Rejected' AND status <> 'Completed' AND status <> 'Withdrawn' AND status <> 'Failed'" json:"challenge_id"`
	UserID      string              `gorm:"type:uuid;not null;index;uniqueIndex:idx_participation_active,where:status <> 'Rejected' AND status <> 'Completed' AND status <> 'Withdrawn' AND status <> 'Failed'" json:"user_id"`
	Challenge   Challenge           `gorm:"foreignKey:ChallengeID" json:"challenge,omitempty"`
	Status      ParticipationStatus `gorm:"type:varchar(16);not null;default:'Pending';index" json:"status"`

	CurrentProgress int `gorm:"not null;default:0" json:"current_progress"`
	TargetProgress  int `gorm:"not null;default:0" json:"target_progress"`

	// Manual verification
	ProofText        *string    `gorm:"type:text" json:"proof_text,omitempty"`
	ProofImageURL    *string    `gorm:"type:text" json:"proof_image_url,omitempty"`
	ProofSubmittedAt *time.Time `json:"proof_submitted_at,omitempty"`

	// Rewards, frozen at award time
	RewardAwarded bool  `gorm:"not null;default:false" json:"reward_awarded"`
	XPAwarded     int64 `gorm:"not null;default:0" json:"xp_awarded"`
	CoinsAwarded  int64 `gorm:"not null;default:0" json:"coins_awarded"`

	EntrepreneurResponse *string `gorm:"type:text" json:"entrepreneur_response,omitempty"`

	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Deadline    *time.Time `gorm:"index" json:"deadline,omitempty"`

	Timestamps
}

func (p *ChallengeParticipation) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// ClearProof removes a submitted proof so the user can resubmit.
func (p *ChallengeParticipation) ClearProof() {
	p.ProofText = nil
	p.ProofImageURL = nil
	p.ProofSubmittedAt = nil
}
