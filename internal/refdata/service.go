package refdata

import "context"

// Service exposes reference data lookups to the workflow engine.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Lookup resolves the numbering codes for an owning unit.
func (s *Service) Lookup(ctx context.Context, owningUnit string) (Unit, error) {
	return s.repo.GetUnit(ctx, owningUnit)
}

// ActiveSchedules lists the schedules currently open for submission.
func (s *Service) ActiveSchedules(ctx context.Context) ([]Schedule, error) {
	return s.repo.ListActiveSchedules(ctx)
}

// Schedule resolves a single schedule by code regardless of active flag.
func (s *Service) Schedule(ctx context.Context, code string) (Schedule, error) {
	return s.repo.GetSchedule(ctx, code)
}
