// Package lifecycle moves leads through the pipeline stage machine.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"builderportal_backend/internal/events"
	"builderportal_backend/internal/leads/domain"
	"builderportal_backend/internal/leads/repository"
	"builderportal_backend/platform/apperr"
	"builderportal_backend/platform/logger"

	"github.com/google/uuid"
)

type Service struct {
	store repository.LeadStore
	bus   events.Bus
	log   *logger.Logger

	now func() time.Time
}

func NewService(store repository.LeadStore, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store: store,
		bus:   bus,
		log:   log,
		now:   time.Now,
	}
}

// Advance moves a lead to the target stage. Manual transitions may target
// any stage and pin it against later automatic movement; automatic
// transitions may only take the next step in the sequence or mark the lead
// Lost. A transition to the current stage is a no-op that records nothing.
func (s *Service) Advance(ctx context.Context, leadID uuid.UUID, target string, manual bool, actor string) (repository.Lead, error) {
	lead, err := s.store.GetByID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lead{}, err
	}

	if err := domain.ValidateTransition(lead.Stage, target, manual, lead.StageManuallySet); err != nil {
		return repository.Lead{}, err
	}

	if target == lead.Stage {
		return lead, nil
	}

	var completedAt *time.Time
	if target == domain.StageCompleted && lead.CompletedAt == nil {
		now := s.now()
		completedAt = &now
	}

	description := fmt.Sprintf("Stage moved from %s to %s by %s", lead.Stage, target, actor)
	if manual {
		description += " (manual override)"
	}

	updated, err := s.store.UpdateStage(ctx, leadID, repository.UpdateStageParams{
		Stage:            target,
		StageManuallySet: lead.StageManuallySet || manual,
		CompletedAt:      completedAt,
		Activity: repository.Activity{
			Type:        repository.ActivityStageChange,
			Title:       "Stage Changed",
			Description: description,
		},
	})
	if err != nil {
		return repository.Lead{}, err
	}

	s.log.Info("lead stage changed",
		"lead_id", leadID,
		"old_stage", lead.Stage,
		"new_stage", target,
		"manual", manual,
		"actor", actor,
	)

	s.bus.Publish(ctx, events.LeadStageChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		OldStage:  lead.Stage,
		NewStage:  target,
		Manual:    manual,
		Actor:     actor,
	})

	return updated, nil
}

// AdvanceAutomatic takes the single next step on the happy path for the
// lead's current stage.
func (s *Service) AdvanceAutomatic(ctx context.Context, leadID uuid.UUID, actor string) (repository.Lead, error) {
	lead, err := s.store.GetByID(ctx, leadID)
	if err != nil {
		return repository.Lead{}, err
	}
	next, ok := domain.NextStage(lead.Stage)
	if !ok {
		return repository.Lead{}, apperr.InvalidTransition(fmt.Sprintf("stage %q has no next step", lead.Stage))
	}
	return s.Advance(ctx, leadID, next, false, actor)
}
