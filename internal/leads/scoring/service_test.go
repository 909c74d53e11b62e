package scoring

import (
	"context"
	"testing"
	"time"

	"builderportal_backend/internal/events"
	"builderportal_backend/internal/leads/repository"
	"builderportal_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	repository.LeadStore

	lead       repository.Lead
	activities []repository.Activity

	storedScore   int
	storedFactors []byte
}

func (f *fakeStore) GetByID(_ context.Context, _ uuid.UUID) (repository.Lead, error) {
	return f.lead, nil
}

func (f *fakeStore) ListActivities(_ context.Context, _ uuid.UUID) ([]repository.Activity, error) {
	return f.activities, nil
}

func (f *fakeStore) UpdateScore(_ context.Context, _ uuid.UUID, score int, factors []byte, _ time.Time) error {
	f.storedScore = score
	f.storedFactors = factors
	return nil
}

type captureBus struct {
	events.Bus
	published []events.Event
}

func (b *captureBus) Publish(_ context.Context, e events.Event) {
	b.published = append(b.published, e)
}

func (b *captureBus) Subscribe(string, events.Handler) {}

func newTestService(store *fakeStore, bus events.Bus) *Service {
	s := NewService(store, DefaultPolicy(), bus, logger.New("test"))
	s.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestComputeNoSignalsIsBase(t *testing.T) {
	svc := newTestService(&fakeStore{}, &captureBus{})

	got := svc.Compute(repository.Lead{}, nil)

	if got.Score != InitialScore {
		t.Fatalf("score = %d, want %d", got.Score, InitialScore)
	}
	for name, v := range got.Factors {
		if v != neutralScore {
			t.Errorf("factor %s = %v, want neutral", name, v)
		}
	}
}

func TestComputeBudgetBands(t *testing.T) {
	svc := newTestService(&fakeStore{}, &captureBus{})

	tests := []struct {
		budget string
		want   float64
	}{
		{"£60,000", 90},
		{"25000", 75},
		{"£7,500", 60},
		{"500", 45},
		{"N/A", neutralScore},
		{"call me", neutralScore},
	}
	for _, tc := range tests {
		r := svc.Compute(repository.Lead{Budget: tc.budget}, nil)
		if got := r.Factors["budget"]; got != tc.want {
			t.Errorf("budget %q: factor = %v, want %v", tc.budget, got, tc.want)
		}
	}
}

func TestComputeResponsivenessFromFirstFollowUp(t *testing.T) {
	svc := newTestService(&fakeStore{}, &captureBus{})

	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	lead := repository.Lead{CreatedAt: created}
	creationEntry := repository.Activity{CreatedAt: created}

	tests := []struct {
		name       string
		activities []repository.Activity
		want       float64
	}{
		{"no follow-up yet", []repository.Activity{creationEntry}, neutralScore},
		{"same-day first contact", []repository.Activity{
			creationEntry,
			{CreatedAt: created.Add(3 * time.Hour)},
		}, 80},
		{"first contact within a week", []repository.Activity{
			creationEntry,
			{CreatedAt: created.Add(5 * 24 * time.Hour)},
		}, 65},
		{"first contact after a month", []repository.Activity{
			creationEntry,
			{CreatedAt: created.Add(45 * 24 * time.Hour)},
		}, 30},
		{"fast first contact beats a stale log", []repository.Activity{
			creationEntry,
			{CreatedAt: created.Add(time.Hour)},
			{CreatedAt: created.Add(60 * 24 * time.Hour)},
		}, 80},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := svc.Compute(lead, tc.activities)
			if got := r.Factors["responsiveness"]; got != tc.want {
				t.Errorf("responsiveness = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestComputeBoundedWithStrongSignals(t *testing.T) {
	svc := newTestService(&fakeStore{}, &captureBus{})

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	activities := make([]repository.Activity, 0, 10)
	for i := 0; i < 10; i++ {
		activities = append(activities, repository.Activity{CreatedAt: now.Add(-time.Hour)})
	}

	lead := repository.Lead{
		Budget:       "£100,000",
		WorkRequired: "Two storey extension",
		City:         "Leeds",
	}

	r := svc.Compute(lead, activities)
	if r.Score < 0 || r.Score > 100 {
		t.Fatalf("score %d out of range", r.Score)
	}
	if r.Score <= InitialScore {
		t.Errorf("score = %d, want above base for strong signals", r.Score)
	}
}

func TestRecalculatePersistsAndPublishes(t *testing.T) {
	store := &fakeStore{
		lead: repository.Lead{
			ID:              uuid.New(),
			Budget:          "£60,000",
			City:            "Leeds",
			ConversionScore: InitialScore,
		},
	}
	bus := &captureBus{}
	svc := newTestService(store, bus)

	result, err := svc.Recalculate(context.Background(), store.lead.ID)
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}

	if store.storedScore != result.Score {
		t.Errorf("stored score = %d, want %d", store.storedScore, result.Score)
	}
	if len(store.storedFactors) == 0 {
		t.Error("factor breakdown not persisted")
	}
	if len(bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.published))
	}
	e, ok := bus.published[0].(events.LeadScoreUpdated)
	if !ok {
		t.Fatalf("published %T, want LeadScoreUpdated", bus.published[0])
	}
	if e.OldScore != InitialScore || e.NewScore != result.Score {
		t.Errorf("event scores = %d -> %d, want %d -> %d", e.OldScore, e.NewScore, InitialScore, result.Score)
	}
}

func TestRecalculateUnchangedScoreStaysQuiet(t *testing.T) {
	store := &fakeStore{
		lead: repository.Lead{ID: uuid.New(), ConversionScore: InitialScore},
	}
	bus := &captureBus{}
	svc := newTestService(store, bus)

	if _, err := svc.Recalculate(context.Background(), store.lead.ID); err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if len(bus.published) != 0 {
		t.Errorf("published %d events for unchanged score, want 0", len(bus.published))
	}
	if store.storedFactors == nil {
		t.Error("evaluation should still be persisted")
	}
}
