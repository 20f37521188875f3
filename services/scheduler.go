// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartDeadlineScheduler fails overdue participations every interval.
// Caller owns the returned scheduler and must Shutdown it.
func (s *ChallengeService) StartDeadlineScheduler(interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.sweepDeadlines),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to schedule deadline sweep: %w", err)
	}

	sched.Start()
	return sched, nil
}

func (s *ChallengeService) sweepDeadlines() {
	failed, err := s.FailOverdue(context.Background(), s.Now())
	if err != nil {
		log.Printf("[Scheduler] DB error: %v", err)
		return
	}
	if failed > 0 {
		log.Printf("⏰ [Scheduler] Marked %d overdue participation(s) as failed", failed)
	}
}
