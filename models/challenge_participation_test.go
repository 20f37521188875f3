package models

import "testing"

func TestParticipationTransitions(t *testing.T) {
	all := []ParticipationStatus{
		ParticipationPending, ParticipationAccepted, ParticipationInProgress, ParticipationProofSubmitted,
		ParticipationCompleted, ParticipationRejected, ParticipationWithdrawn, ParticipationFailed,
	}
	allowed := map[[2]ParticipationStatus]bool{
		{ParticipationPending, ParticipationAccepted}:          true,
		{ParticipationPending, ParticipationRejected}:          true,
		{ParticipationAccepted, ParticipationInProgress}:       true,
		{ParticipationAccepted, ParticipationCompleted}:        true,
		{ParticipationAccepted, ParticipationProofSubmitted}:   true,
		{ParticipationAccepted, ParticipationWithdrawn}:        true,
		{ParticipationAccepted, ParticipationFailed}:           true,
		{ParticipationInProgress, ParticipationCompleted}:      true,
		{ParticipationInProgress, ParticipationProofSubmitted}: true,
		{ParticipationInProgress, ParticipationWithdrawn}:      true,
		{ParticipationInProgress, ParticipationFailed}:         true,
		{ParticipationProofSubmitted, ParticipationCompleted}:  true,
		{ParticipationProofSubmitted, ParticipationInProgress}: true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]ParticipationStatus{from, to}]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: expected %v, got %v", from, to, want, got)
			}
		}
	}
}

func TestParticipationStatusPredicates(t *testing.T) {
	for _, s := range []ParticipationStatus{ParticipationCompleted, ParticipationRejected, ParticipationWithdrawn, ParticipationFailed} {
		if !s.IsTerminal() || s.IsActive() {
			t.Errorf("Expected %s to be terminal and inactive", s)
		}
	}
	for _, s := range ActiveParticipationStatuses {
		if !s.IsActive() || s.IsTerminal() {
			t.Errorf("Expected %s to be active", s)
		}
	}
	if ParticipationPending.IsActive() || ParticipationProofSubmitted.IsActive() {
		t.Error("Expected Pending and ProofSubmitted not to receive progress")
	}
}

func TestAchievementCatalog_UniqueCodes(t *testing.T) {
	seen := map[string]bool{}
	for _, a := range AchievementCatalog {
		if seen[a.Code] {
			t.Errorf("Duplicate achievement code %s", a.Code)
		}
		seen[a.Code] = true
	}
	for _, n := range BookingMilestones {
		if !seen[CompletedBookingsCode(n)] {
			t.Errorf("Missing milestone achievement for %d", n)
		}
	}
}
