package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"builderportal_backend/internal/events"
	"builderportal_backend/internal/leads/domain"
	"builderportal_backend/internal/leads/lifecycle"
	"builderportal_backend/internal/leads/repository"
	"builderportal_backend/internal/leads/scoring"
	"builderportal_backend/platform/apperr"
	"builderportal_backend/platform/logger"

	"github.com/google/uuid"
)

// memStore is an in-memory LeadStore sufficient for orchestrator tests.
type memStore struct {
	mu         sync.Mutex
	leads      map[uuid.UUID]*repository.Lead
	activities map[uuid.UUID][]repository.Activity
}

func newMemStore() *memStore {
	return &memStore{
		leads:      make(map[uuid.UUID]*repository.Lead),
		activities: make(map[uuid.UUID][]repository.Activity),
	}
}

func (m *memStore) Create(_ context.Context, p repository.CreateLeadParams) (repository.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lead := repository.Lead{
		ID:                   uuid.New(),
		FullName:             p.FullName,
		PhoneNumber:          p.PhoneNumber,
		Email:                p.Email,
		Address:              p.Address,
		City:                 p.City,
		WorkRequired:         p.WorkRequired,
		Details:              p.Details,
		Budget:               p.Budget,
		StartDate:            p.StartDate,
		ContactPreference:    p.ContactPreference,
		Builder:              p.Builder,
		Stage:                p.Stage,
		ConversionScore:      p.ConversionScore,
		GoogleFormSubmission: p.GoogleFormSubmission,
		GoogleSheetRowID:     p.GoogleSheetRowID,
		Synced:               p.Synced,
		Extra:                p.Extra,
		CreatedAt:            time.Now(),
	}
	m.leads[lead.ID] = &lead
	if p.InitialActivity != nil {
		a := *p.InitialActivity
		a.ID = uuid.New()
		a.LeadID = lead.ID
		a.CreatedAt = time.Now()
		m.activities[lead.ID] = append(m.activities[lead.ID], a)
	}
	return lead, nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lead, ok := m.leads[id]; ok {
		return *lead, nil
	}
	return repository.Lead{}, repository.ErrNotFound
}

func (m *memStore) FindBySheetRow(_ context.Context, row int) (*repository.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lead := range m.leads {
		if lead.GoogleSheetRowID != nil && *lead.GoogleSheetRowID == row {
			copy := *lead
			return &copy, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListSheetLeads(_ context.Context) ([]repository.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repository.Lead, 0)
	for _, lead := range m.leads {
		if lead.GoogleSheetRowID != nil {
			out = append(out, *lead)
		}
	}
	return out, nil
}

func (m *memStore) List(_ context.Context) ([]repository.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repository.Lead, 0, len(m.leads))
	for _, lead := range m.leads {
		out = append(out, *lead)
	}
	return out, nil
}

func (m *memStore) ListByBuilder(_ context.Context, builder string) ([]repository.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repository.Lead, 0)
	for _, lead := range m.leads {
		if lead.Builder == builder {
			out = append(out, *lead)
		}
	}
	return out, nil
}

func (m *memStore) Update(_ context.Context, id uuid.UUID, p repository.UpdateLeadParams) (repository.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lead, ok := m.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&lead.FullName, p.FullName)
	set(&lead.PhoneNumber, p.PhoneNumber)
	set(&lead.Email, p.Email)
	set(&lead.Address, p.Address)
	set(&lead.City, p.City)
	set(&lead.WorkRequired, p.WorkRequired)
	set(&lead.Details, p.Details)
	set(&lead.Budget, p.Budget)
	set(&lead.StartDate, p.StartDate)
	set(&lead.ContactPreference, p.ContactPreference)
	if p.Synced != nil {
		lead.Synced = *p.Synced
	}
	return *lead, nil
}

func (m *memStore) UpdateStage(_ context.Context, id uuid.UUID, p repository.UpdateStageParams) (repository.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lead, ok := m.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	lead.Stage = p.Stage
	lead.StageManuallySet = p.StageManuallySet
	if lead.CompletedAt == nil {
		lead.CompletedAt = p.CompletedAt
	}
	a := p.Activity
	a.ID = uuid.New()
	a.LeadID = id
	a.CreatedAt = time.Now()
	m.activities[id] = append(m.activities[id], a)
	return *lead, nil
}

func (m *memStore) SetBuilder(_ context.Context, id uuid.UUID, builder string, activity repository.Activity) (repository.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lead, ok := m.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	lead.Builder = builder
	activity.ID = uuid.New()
	activity.LeadID = id
	activity.CreatedAt = time.Now()
	m.activities[id] = append(m.activities[id], activity)
	return *lead, nil
}

func (m *memStore) UpdateScore(_ context.Context, id uuid.UUID, score int, factors []byte, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lead, ok := m.leads[id]
	if !ok {
		return repository.ErrNotFound
	}
	lead.ConversionScore = score
	lead.ScoreFactors = factors
	lead.ScoreUpdatedAt = &updatedAt
	return nil
}

func (m *memStore) AddActivity(_ context.Context, leadID uuid.UUID, a repository.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	a.LeadID = leadID
	a.CreatedAt = time.Now()
	m.activities[leadID] = append(m.activities[leadID], a)
	return nil
}

func (m *memStore) ListActivities(_ context.Context, leadID uuid.UUID) ([]repository.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]repository.Activity(nil), m.activities[leadID]...), nil
}

var _ repository.LeadStore = (*memStore)(nil)

type fakeSheet struct {
	mu         sync.Mutex
	rows       [][]string
	readErr    error
	cellWrites []string
}

func (f *fakeSheet) ReadRows(_ context.Context) ([][]string, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.rows, nil
}

func (f *fakeSheet) WriteBuilderCell(_ context.Context, sheetRow int, builder string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cellWrites = append(f.cellWrites, fmt.Sprintf("B%d=%s", sheetRow, builder))
	return nil
}

type nopBus struct{}

func (nopBus) Publish(context.Context, events.Event)           {}
func (nopBus) PublishSync(context.Context, events.Event) error { return nil }
func (nopBus) Subscribe(string, events.Handler)                {}

type captureBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *captureBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, e)
}
func (b *captureBus) PublishSync(context.Context, events.Event) error { return nil }
func (b *captureBus) Subscribe(string, events.Handler)                {}

func newTestService(store repository.LeadStore, sheet *fakeSheet) *Service {
	log := logger.New("test")
	lc := lifecycle.NewService(store, nopBus{}, log)
	return NewService(store, sheet, sheet, lc, nil, nopBus{}, log, 2, 2)
}

func TestRunFullSyncCreatesAndIsIdempotent(t *testing.T) {
	store := newMemStore()
	sheet := &fakeSheet{rows: [][]string{
		{"2025-03-01", "N/A", "Jane Doe", "07911123456", "12 Oak Lane", "Kitchen", "", "£25,000", "Leeds", "", "jane@example.com", "Email"},
		{"2025-03-02", "Smith & Sons", "Bob Martin", "07911000111", "", "Extension", "", "", "York", "", "", "Phone"},
	}}
	svc := newTestService(store, sheet)

	summary, err := svc.RunFullSync(context.Background())
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if summary.Synced != 2 || summary.Skipped != 0 || summary.Errored != 0 {
		t.Fatalf("first sync summary = %+v", summary)
	}

	lead, err := store.FindBySheetRow(context.Background(), 2)
	if err != nil || lead == nil {
		t.Fatalf("lead for row 2 missing: %v", err)
	}
	if !lead.Synced {
		t.Error("sheet-created lead must be marked synced")
	}
	if lead.ConversionScore != scoring.InitialScore {
		t.Errorf("fresh lead score = %d, want %d", lead.ConversionScore, scoring.InitialScore)
	}
	if lead.Stage != domain.StageInitialContact {
		t.Errorf("fresh lead stage = %q", lead.Stage)
	}

	// A second pass over identical data must not create or update anything.
	summary, err = svc.RunFullSync(context.Background())
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if summary.Synced != 0 || summary.Skipped != 2 || summary.Errored != 0 {
		t.Fatalf("second sync summary = %+v", summary)
	}
	all, _ := store.List(context.Background())
	if len(all) != 2 {
		t.Fatalf("lead count after re-sync = %d, want 2", len(all))
	}
}

func TestRunFullSyncIsolatesBadRows(t *testing.T) {
	store := newMemStore()
	sheet := &fakeSheet{rows: [][]string{
		{"2025-03-01", "", "Jane Doe", "07911123456"},
		{"2025-03-02", "", "", "07911000111"}, // no name
		{"2025-03-03", "", "Carol King", "07911222333"},
	}}
	svc := newTestService(store, sheet)

	summary, err := svc.RunFullSync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if summary.Synced != 2 || summary.Errored != 1 {
		t.Fatalf("summary = %+v, want 2 synced / 1 errored", summary)
	}
}

func TestRunFullSyncSucceedsOnLiveContext(t *testing.T) {
	store := newMemStore()
	sheet := &fakeSheet{rows: [][]string{
		{"2025-03-01", "", "Jane Doe", "07911123456"},
	}}
	bus := &captureBus{}
	log := logger.New("test")
	lc := lifecycle.NewService(store, bus, log)
	svc := NewService(store, sheet, sheet, lc, nil, bus, log, 2, 2)

	summary, err := svc.RunFullSync(context.Background())
	if err != nil {
		t.Fatalf("sync on a live context must not fail: %v", err)
	}
	if summary.Synced != 1 || summary.Skipped != 0 || summary.Errored != 0 {
		t.Fatalf("summary = %+v, want 1 synced", summary)
	}

	var completed bool
	bus.mu.Lock()
	for _, e := range bus.published {
		if _, ok := e.(events.SheetSyncCompleted); ok {
			completed = true
		}
	}
	bus.mu.Unlock()
	if !completed {
		t.Error("sync completion event not published")
	}
}

func TestRunFullSyncCancelledContext(t *testing.T) {
	store := newMemStore()
	sheet := &fakeSheet{rows: [][]string{
		{"2025-03-01", "", "Jane Doe", "07911123456"},
	}}
	svc := newTestService(store, sheet)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.RunFullSync(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRunFullSyncUpstreamFailure(t *testing.T) {
	store := newMemStore()
	sheet := &fakeSheet{readErr: fmt.Errorf("googleapi: quota exceeded")}
	svc := newTestService(store, sheet)

	_, err := svc.RunFullSync(context.Background())
	if apperr.GetKind(err) != apperr.KindUpstream {
		t.Fatalf("err = %v, want upstream kind", err)
	}
}

func TestIngestSubmissionValidation(t *testing.T) {
	svc := newTestService(newMemStore(), &fakeSheet{})

	for _, payload := range []map[string]string{
		{"phoneNumber": "07911123456"},
		{"fullName": "Jane Doe"},
		{},
	} {
		_, err := svc.IngestSubmission(context.Background(), payload)
		if apperr.GetKind(err) != apperr.KindValidation {
			t.Errorf("payload %v: err = %v, want validation", payload, err)
		}
	}
}

func TestIngestSubmissionWithoutRowIDAlwaysCreates(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeSheet{})

	payload := map[string]string{"fullName": "Jane Doe", "phoneNumber": "07911123456"}
	first, err := svc.IngestSubmission(context.Background(), payload)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	second, err := svc.IngestSubmission(context.Background(), payload)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if first == second {
		t.Error("identical payloads without rowId must create distinct leads")
	}
}

func TestIngestSubmissionHonorsStartingStage(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeSheet{})

	id, err := svc.IngestSubmission(context.Background(), map[string]string{
		"fullName":    "Jane Doe",
		"phoneNumber": "07911123456",
		"stage":       domain.StageSiteVisit,
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	lead, _ := svc.Get(context.Background(), id)
	if lead.Stage != domain.StageSiteVisit {
		t.Errorf("stage = %q, want %q", lead.Stage, domain.StageSiteVisit)
	}

	// An unrecognized stage falls back to the lifecycle default.
	id, err = svc.IngestSubmission(context.Background(), map[string]string{
		"fullName":    "Bob Martin",
		"phoneNumber": "07911000111",
		"stage":       "On The Moon",
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	lead, _ = svc.Get(context.Background(), id)
	if lead.Stage != domain.StageInitialContact {
		t.Errorf("stage = %q, want default", lead.Stage)
	}
}

func TestIngestSubmissionRowIDDeduplicates(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeSheet{})

	payload := map[string]string{
		"fullName":    "Jane Doe",
		"phoneNumber": "07911123456",
		"budget":      "£25,000",
		"rowId":       "6",
	}
	first, err := svc.IngestSubmission(context.Background(), payload)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	// Same row id again: reconciles to the same lead.
	second, err := svc.IngestSubmission(context.Background(), payload)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if first != second {
		t.Errorf("row id dedupe failed: %s vs %s", first, second)
	}

	// Changed data on the same row id updates in place.
	payload["budget"] = "£40,000"
	third, err := svc.IngestSubmission(context.Background(), payload)
	if err != nil {
		t.Fatalf("third ingest: %v", err)
	}
	if third != first {
		t.Errorf("update created new lead: %s vs %s", third, first)
	}
	lead, _ := svc.Get(context.Background(), first)
	if lead.Budget != "£40,000" {
		t.Errorf("budget = %q, want updated", lead.Budget)
	}
}

func TestReassignBuilderWritesBackOnce(t *testing.T) {
	store := newMemStore()
	sheet := &fakeSheet{rows: [][]string{
		{"2025-03-01", "N/A", "Jane Doe", "07911123456"},
	}}
	svc := newTestService(store, sheet)

	if _, err := svc.RunFullSync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	lead, _ := store.FindBySheetRow(context.Background(), 2)

	updated, err := svc.ReassignBuilder(context.Background(), lead.ID, "Smith & Sons", "alice")
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if updated.Builder != "Smith & Sons" {
		t.Errorf("builder = %q", updated.Builder)
	}
	if len(sheet.cellWrites) != 1 || sheet.cellWrites[0] != "B2=Smith & Sons" {
		t.Errorf("cell writes = %v, want exactly [B2=Smith & Sons]", sheet.cellWrites)
	}

	activities, _ := store.ListActivities(context.Background(), lead.ID)
	var found bool
	for _, a := range activities {
		if a.Type == repository.ActivityAssignment {
			found = true
		}
	}
	if !found {
		t.Error("assignment activity missing")
	}
}

func TestReassignBuilderWebhookLeadSkipsSheet(t *testing.T) {
	store := newMemStore()
	sheet := &fakeSheet{}
	svc := newTestService(store, sheet)

	id, err := svc.IngestSubmission(context.Background(), map[string]string{
		"fullName": "Bob Martin", "phoneNumber": "07911000111",
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if _, err := svc.ReassignBuilder(context.Background(), id, "Smith & Sons", "alice"); err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if len(sheet.cellWrites) != 0 {
		t.Errorf("cell writes = %v, want none for webhook-origin lead", sheet.cellWrites)
	}
}
