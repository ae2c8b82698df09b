// Package jobs runs the service's periodic background work on a gocron
// scheduler.
package jobs

import (
	"fmt"
	"log"
	"time"

	"allchat/internal/services"

	"github.com/go-co-op/gocron/v2"
)

// Runner owns the background scheduler.
type Runner struct {
	scheduler gocron.Scheduler
}

// NewRunner creates a stopped runner.
func NewRunner() (*Runner, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Runner{scheduler: scheduler}, nil
}

// RegisterSessionEviction periodically drops idle assistant sessions.
func (r *Runner) RegisterSessionEviction(sessions *services.SessionRegistry, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	_, err := r.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if evicted := sessions.EvictIdle(); evicted > 0 {
				log.Printf("🧹 [JOBS] evicted %d idle assistant sessions (%d live)", evicted, sessions.Count())
			}
		}),
		gocron.WithName("assistant_session_eviction"),
	)
	if err != nil {
		return fmt.Errorf("failed to register session eviction job: %w", err)
	}
	return nil
}

// Start begins running registered jobs.
func (r *Runner) Start() {
	r.scheduler.Start()
	log.Printf("🚀 [JOBS] scheduler started with %d jobs", len(r.scheduler.Jobs()))
}

// Stop shuts the scheduler down, waiting for in-flight jobs.
func (r *Runner) Stop() {
	if err := r.scheduler.Shutdown(); err != nil {
		log.Printf("⚠️ [JOBS] scheduler shutdown error: %v", err)
	}
}
