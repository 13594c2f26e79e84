package backup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leadbox/leadbox/internal/model"
)

// LeadSource loads the leads to back up.
type LeadSource interface {
	ListLeads(ctx context.Context, filter model.LeadFilter) ([]model.Lead, error)
}

// Service ties the lead source, dispatcher and runner together.
type Service struct {
	source     LeadSource
	dispatcher *Dispatcher
	runner     *Runner
	logger     *slog.Logger
}

// NewService creates a backup service.
func NewService(source LeadSource, dispatcher *Dispatcher, runner *Runner, logger *slog.Logger) *Service {
	return &Service{source: source, dispatcher: dispatcher, runner: runner, logger: logger}
}

// TriggerBackup starts a backup in the background and returns at once.
// Failures are logged and never reported to the caller.
func (s *Service) TriggerBackup() {
	s.runner.Go("leads_backup", func(ctx context.Context) error {
		outcome, err := s.Run(ctx)
		if err != nil {
			return err
		}
		s.logger.Info("leads backup completed", slog.String("outcome", outcome.String()))
		return nil
	})
}

// Run performs a backup synchronously.
func (s *Service) Run(ctx context.Context) (Outcome, error) {
	leads, err := s.source.ListLeads(ctx, model.LeadFilter{})
	if err != nil {
		return 0, fmt.Errorf("load leads: %w", err)
	}
	return s.dispatcher.Dispatch(ctx, leads)
}
