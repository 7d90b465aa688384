package infra

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"nextvault/internal/domain"
	"nextvault/internal/service"
)

// Scheduler manages the auto-compound sweep schedule
type Scheduler struct {
	cron            *cron.Cron
	compoundService *service.CompoundService
	spec            string
}

// NewScheduler creates a new scheduler
// spec defaults to hourly if empty
func NewScheduler(compoundService *service.CompoundService, spec string) *Scheduler {
	if spec == "" {
		spec = "0 * * * *"
	}
	return &Scheduler{
		cron:            cron.New(),
		compoundService: compoundService,
		spec:            spec,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	log.Printf("Starting scheduler... [Spec: %s]", s.spec)

	_, err := s.cron.AddFunc(s.spec, func() {
		log.Println("[CRON] Compound sweep triggered")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		report, err := s.compoundService.RunSweep(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				log.Println("[CRON] Sweep skipped, a previous run still holds the lock")
				return
			}
			log.Printf("ERROR: Scheduled compound sweep failed: %v", err)
			return
		}

		log.Printf("[CRON] Sweep done: %d eligible, %d compounded, %d skipped, %d failed",
			report.Eligible, report.Compounded, report.Skipped, report.Failed)
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	log.Println("[OK] Scheduler started successfully")

	return nil
}

// Stop stops the scheduler gracefully
func (s *Scheduler) Stop() {
	log.Println("Stopping scheduler...")
	s.cron.Stop()
	log.Println("[OK] Scheduler stopped")
}
