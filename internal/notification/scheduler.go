package notification

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the notification jobs on cron specs in UTC.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers fn under spec. Failures are logged with the job name.
func (s *Scheduler) Add(spec, name string, fn func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		log.Printf("scheduler: running %s", name)
		if err := fn(s.ctx); err != nil {
			log.Printf("scheduler: %s failed: %v", name, err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	return nil
}

// Register schedules every notification job.
func (s *Scheduler) Register(j *Jobs) error {
	jobs := []struct {
		spec string
		name string
		fn   func(context.Context) error
	}{
		{"0 8 * * *", "daily reminders", j.DailyReminders},
		{"0 9 * * *", "period tracking", j.PeriodTracking},
		{"0 10 * * *", "pregnancy reminders", j.PregnancyReminders},
		{"0 12 * * *", "health alerts", j.HealthAlerts},
		{"0 9 1 * *", "monthly summary", j.MonthlySummary},
	}
	for _, job := range jobs {
		if err := s.Add(job.spec, job.name, job.fn); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("scheduler started with %d jobs", len(s.cron.Entries()))
}

// Stop cancels the context of running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	log.Println("scheduler stopped")
}
