// Package scoring computes the 0-100 conversion score from weighted factor
// strategies. Factors with no signal contribute the neutral base, so a
// freshly ingested lead always starts at the base score.
package scoring

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"builderportal_backend/internal/events"
	"builderportal_backend/internal/leads/repository"
	"builderportal_backend/platform/logger"

	"github.com/google/uuid"
)

// InitialScore is the score every lead carries at creation, before any
// factor has a signal to work with.
const InitialScore = 50

// Result is one scoring pass over a lead.
type Result struct {
	Score     int
	Factors   map[string]float64
	UpdatedAt time.Time
}

type Service struct {
	store  repository.LeadStore
	policy Policy
	bus    events.Bus
	log    *logger.Logger

	// now is swappable for tests.
	now func() time.Time
}

func NewService(store repository.LeadStore, policy Policy, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		policy: policy,
		bus:    bus,
		log:    log,
		now:    time.Now,
	}
}

// Compute evaluates all factors for a lead without persisting anything.
func (s *Service) Compute(lead repository.Lead, activities []repository.Activity) Result {
	in := factorInput{lead: lead, activities: activities}

	factors := map[string]float64{
		"budget":         budgetFactor(in, s.policy),
		"responsiveness": responsivenessFactor(in),
		"projectType":    projectTypeFactor(in),
		"location":       locationFactor(in, s.policy),
		"interactions":   interactionsFactor(in),
	}

	weighted := s.policy.Weights.Budget*factors["budget"] +
		s.policy.Weights.Responsiveness*factors["responsiveness"] +
		s.policy.Weights.ProjectType*factors["projectType"] +
		s.policy.Weights.Location*factors["location"] +
		s.policy.Weights.Interactions*factors["interactions"]

	return Result{
		Score:     clampScore(weighted),
		Factors:   factors,
		UpdatedAt: s.now(),
	}
}

// Recalculate loads the lead, recomputes its score and persists the result.
// A score change is announced on the bus; an unchanged score is still
// persisted so score_updated_at reflects the last evaluation.
func (s *Service) Recalculate(ctx context.Context, leadID uuid.UUID) (Result, error) {
	lead, err := s.store.GetByID(ctx, leadID)
	if err != nil {
		return Result{}, err
	}
	activities, err := s.store.ListActivities(ctx, leadID)
	if err != nil {
		return Result{}, err
	}

	result := s.Compute(lead, activities)

	factorsJSON, err := json.Marshal(result.Factors)
	if err != nil {
		return Result{}, err
	}
	if err := s.store.UpdateScore(ctx, leadID, result.Score, factorsJSON, result.UpdatedAt); err != nil {
		return Result{}, err
	}

	if result.Score != lead.ConversionScore {
		s.log.Info("conversion score updated",
			"lead_id", leadID,
			"old_score", lead.ConversionScore,
			"new_score", result.Score,
		)
		s.bus.Publish(ctx, events.LeadScoreUpdated{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    leadID,
			OldScore:  lead.ConversionScore,
			NewScore:  result.Score,
		})
	}

	return result, nil
}

// SubscribeRecalculationTriggers registers the bus subscriptions that keep
// scores current: stage movement, fresh activity and budget edits. Edits to
// unrelated fields deliberately do not trigger a recomputation.
func (s *Service) SubscribeRecalculationTriggers(bus events.Bus) {
	recalc := func(ctx context.Context, leadID uuid.UUID) error {
		_, err := s.Recalculate(ctx, leadID)
		return err
	}

	bus.Subscribe(events.LeadStageChanged{}.EventName(), events.HandlerFunc(
		func(ctx context.Context, event events.Event) error {
			e, ok := event.(events.LeadStageChanged)
			if !ok {
				return nil
			}
			return recalc(ctx, e.LeadID)
		}))

	bus.Subscribe(events.LeadActivityAdded{}.EventName(), events.HandlerFunc(
		func(ctx context.Context, event events.Event) error {
			e, ok := event.(events.LeadActivityAdded)
			if !ok {
				return nil
			}
			return recalc(ctx, e.LeadID)
		}))

	bus.Subscribe(events.LeadDetailsUpdated{}.EventName(), events.HandlerFunc(
		func(ctx context.Context, event events.Event) error {
			e, ok := event.(events.LeadDetailsUpdated)
			if !ok || !e.BudgetChanged {
				return nil
			}
			return recalc(ctx, e.LeadID)
		}))
}

func clampScore(v float64) int {
	return int(math.Round(math.Max(0, math.Min(100, v))))
}
