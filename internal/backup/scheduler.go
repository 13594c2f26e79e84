package backup

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers backups on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler parses spec (standard five-field cron or descriptors such as
// "@daily") and registers trigger to run on it.
func NewScheduler(spec string, trigger func(), logger *slog.Logger) (*Scheduler, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		logger.Info("scheduled backup triggered", slog.String("schedule", spec))
		trigger()
	}); err != nil {
		return nil, fmt.Errorf("invalid backup schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c, logger: logger}, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for a trigger already in progress to
// return. No trigger fires after Stop returns.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
