// Package sync orchestrates lead ingestion: full spreadsheet reconciliation,
// direct form submissions, builder assignment and stage movement.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"builderportal_backend/internal/events"
	"builderportal_backend/internal/leads/domain"
	"builderportal_backend/internal/leads/lifecycle"
	"builderportal_backend/internal/leads/mapper"
	"builderportal_backend/internal/leads/repository"
	"builderportal_backend/internal/leads/resolver"
	"builderportal_backend/internal/leads/scoring"
	"builderportal_backend/platform/apperr"
	"builderportal_backend/platform/logger"
	"builderportal_backend/platform/sanitize"

	"github.com/google/uuid"
)

// RowSource reads the response sheet. Implemented by the Sheets client;
// tests substitute a fake.
type RowSource interface {
	ReadRows(ctx context.Context) ([][]string, error)
}

// CellWriter writes a single builder cell back to the sheet.
type CellWriter interface {
	WriteBuilderCell(ctx context.Context, sheetRow int, builder string) error
}

// Notifier announces builder assignments. Delivery is best effort and never
// blocks or fails the assignment itself.
type Notifier interface {
	LeadAssigned(ctx context.Context, lead repository.Lead, builder string)
}

// Summary reports the outcome of one full reconciliation pass.
type Summary struct {
	Synced  int `json:"syncedCount"`
	Skipped int `json:"skippedCount"`
	Errored int `json:"errorCount"`
}

type Service struct {
	store     repository.LeadStore
	rows      RowSource
	writer    CellWriter
	lifecycle *lifecycle.Service
	notifier  Notifier
	bus       events.Bus
	log       *logger.Logger

	// headerOffset is the 1-based sheet row number of the first data row.
	headerOffset int
	concurrency  int
}

func NewService(
	store repository.LeadStore,
	rows RowSource,
	writer CellWriter,
	lc *lifecycle.Service,
	notifier Notifier,
	bus events.Bus,
	log *logger.Logger,
	headerOffset int,
	concurrency int,
) *Service {
	if headerOffset < 1 {
		headerOffset = 2
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		store:        store,
		rows:         rows,
		writer:       writer,
		lifecycle:    lc,
		notifier:     notifier,
		bus:          bus,
		log:          log,
		headerOffset: headerOffset,
		concurrency:  concurrency,
	}
}

// RunFullSync reads every data row from the sheet and reconciles each one
// against the store. Row failures are isolated: a bad row increments the
// error count and the pass continues. Cancellation stops the pass between
// rows; rows already reconciled stay reconciled.
func (s *Service) RunFullSync(ctx context.Context) (Summary, error) {
	started := time.Now()

	rows, err := s.rows.ReadRows(ctx)
	if err != nil {
		return Summary{}, apperr.Upstream("failed to read response sheet", err)
	}

	var (
		mu      sync.Mutex
		summary Summary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, cells := range rows {
		if ctx.Err() != nil {
			break
		}

		sheetRow := i + s.headerOffset
		cells := cells
		g.Go(func() error {
			outcome := s.reconcileRow(gctx, cells, sheetRow)
			mu.Lock()
			switch outcome {
			case rowSynced:
				summary.Synced++
			case rowSkipped:
				summary.Skipped++
			case rowErrored:
				summary.Errored++
			}
			mu.Unlock()
			return nil
		})
	}

	// Row errors are absorbed into the summary, so Wait only surfaces
	// context cancellation. The derived group context is cancelled once
	// Wait returns, so only the parent context decides whether the pass
	// was cut short.
	if err := g.Wait(); err != nil {
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	s.log.SyncSummary(summary.Synced, summary.Skipped, summary.Errored,
		float64(time.Since(started).Milliseconds()))

	s.bus.Publish(ctx, events.SheetSyncCompleted{
		BaseEvent: events.NewBaseEvent(),
		Synced:    summary.Synced,
		Skipped:   summary.Skipped,
		Errored:   summary.Errored,
	})

	return summary, nil
}

type rowOutcome int

const (
	rowSynced rowOutcome = iota
	rowSkipped
	rowErrored
)

func (s *Service) reconcileRow(ctx context.Context, cells []string, sheetRow int) rowOutcome {
	draft := mapper.MapRow(cells, sheetRow)

	if !draft.FieldSet(draft.FullName) || !draft.FieldSet(draft.PhoneNumber) {
		s.log.Warn("skipping row with missing mandatory fields", "sheet_row", sheetRow)
		return rowErrored
	}

	existing, err := s.store.FindBySheetRow(ctx, sheetRow)
	if err != nil {
		s.log.DatabaseError("find lead by sheet row", err)
		return rowErrored
	}

	decision := resolver.Resolve(draft, existing)
	switch decision.Action {
	case resolver.ActionCreate:
		if _, err := s.createLead(ctx, draft); err != nil {
			s.log.DatabaseError("create lead from sheet row", err)
			return rowErrored
		}
		return rowSynced
	case resolver.ActionUpdate:
		if err := s.updateLead(ctx, existing.ID, draft); err != nil {
			s.log.DatabaseError("update lead from sheet row", err)
			return rowErrored
		}
		return rowSynced
	default:
		return rowSkipped
	}
}

// IngestSubmission persists one form submission delivered over the webhook.
// fullName and phoneNumber are mandatory; everything else is optional. A
// submission carrying a correlation row id reconciles against the lead
// already occupying that row instead of creating a duplicate.
func (s *Service) IngestSubmission(ctx context.Context, payload map[string]string) (uuid.UUID, error) {
	draft := mapper.MapSubmission(payload)

	if draft.FullName == "" || draft.PhoneNumber == "" {
		return uuid.Nil, apperr.Validation("fullName and phoneNumber are required")
	}

	var existing *repository.Lead
	if draft.SheetRow != nil {
		var err error
		existing, err = s.store.FindBySheetRow(ctx, *draft.SheetRow)
		if err != nil {
			return uuid.Nil, err
		}
	}

	decision := resolver.Resolve(draft, existing)
	switch decision.Action {
	case resolver.ActionUpdate:
		if err := s.updateLead(ctx, existing.ID, draft); err != nil {
			return uuid.Nil, err
		}
		return existing.ID, nil
	case resolver.ActionSkip:
		return existing.ID, nil
	default:
		lead, err := s.createLead(ctx, draft)
		if err != nil {
			return uuid.Nil, err
		}
		return lead.ID, nil
	}
}

func (s *Service) createLead(ctx context.Context, draft domain.Draft) (repository.Lead, error) {
	var extra []byte
	if len(draft.Extra) > 0 {
		var err error
		extra, err = json.Marshal(draft.Extra)
		if err != nil {
			return repository.Lead{}, err
		}
	}

	stage := draft.Stage
	if !domain.IsKnownStage(stage) {
		stage = domain.StageInitialContact
	}

	lead, err := s.store.Create(ctx, repository.CreateLeadParams{
		FullName:             draft.FullName,
		PhoneNumber:          draft.PhoneNumber,
		Email:                draft.Email,
		Address:              draft.Address,
		City:                 draft.City,
		WorkRequired:         draft.WorkRequired,
		Details:              draft.Details,
		Budget:               draft.Budget,
		StartDate:            draft.StartDate,
		ContactPreference:    draft.ContactPreference,
		Builder:              draft.Builder,
		Stage:                stage,
		ConversionScore:      scoring.InitialScore,
		GoogleFormSubmission: true,
		GoogleSheetRowID:     draft.SheetRow,
		Synced:               draft.SheetRow != nil,
		Extra:                extra,
		InitialActivity: &repository.Activity{
			Type:        repository.ActivityNote,
			Title:       "New Lead Created",
			Description: fmt.Sprintf("Lead ingested via %s", draft.Source),
		},
	})
	if err != nil {
		return repository.Lead{}, err
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		FullName:  lead.FullName,
		Phone:     lead.PhoneNumber,
		Source:    string(draft.Source),
		SheetRow:  draft.SheetRow,
	})

	return lead, nil
}

func (s *Service) updateLead(ctx context.Context, id uuid.UUID, draft domain.Draft) error {
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	synced := true
	var extra []byte
	if len(draft.Extra) > 0 {
		extra, err = json.Marshal(draft.Extra)
		if err != nil {
			return err
		}
	}

	updated, err := s.store.Update(ctx, id, repository.UpdateLeadParams{
		FullName:          &draft.FullName,
		PhoneNumber:       &draft.PhoneNumber,
		Email:             &draft.Email,
		Address:           &draft.Address,
		City:              &draft.City,
		WorkRequired:      &draft.WorkRequired,
		Details:           &draft.Details,
		Budget:            &draft.Budget,
		StartDate:         &draft.StartDate,
		ContactPreference: &draft.ContactPreference,
		Synced:            &synced,
		Extra:             extra,
	})
	if err != nil {
		return err
	}

	s.bus.Publish(ctx, events.LeadDetailsUpdated{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        updated.ID,
		BudgetChanged: current.Budget != updated.Budget,
	})

	return nil
}

// ReassignBuilder assigns the lead to a builder, records the assignment and,
// for sheet-origin leads, writes the builder name back to exactly one cell
// of the sheet. A write-back failure is logged but never undoes the store
// update; the sheet catches up on the next assignment.
func (s *Service) ReassignBuilder(ctx context.Context, leadID uuid.UUID, builder, actor string) (repository.Lead, error) {
	if builder == "" {
		return repository.Lead{}, apperr.Validation("builder name is required")
	}

	lead, err := s.store.GetByID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lead{}, err
	}

	updated, err := s.store.SetBuilder(ctx, leadID, builder, repository.Activity{
		Type:        repository.ActivityAssignment,
		Title:       "Builder Assigned",
		Description: fmt.Sprintf("Assigned to %s by %s", builder, actor),
	})
	if err != nil {
		return repository.Lead{}, err
	}

	if lead.GoogleSheetRowID != nil && s.writer != nil {
		if err := s.writer.WriteBuilderCell(ctx, *lead.GoogleSheetRowID, builder); err != nil {
			s.log.SheetError("write builder cell", fmt.Sprintf("row %d", *lead.GoogleSheetRowID), err)
		}
	}

	s.bus.Publish(ctx, events.BuilderAssigned{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      leadID,
		BuilderName: builder,
		Actor:       actor,
		SheetRow:    lead.GoogleSheetRowID,
	})
	s.bus.Publish(ctx, events.LeadActivityAdded{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       leadID,
		ActivityType: repository.ActivityAssignment,
	})

	if s.notifier != nil {
		s.notifier.LeadAssigned(ctx, updated, builder)
	}

	return updated, nil
}

// AdvanceStage delegates to the lifecycle service.
func (s *Service) AdvanceStage(ctx context.Context, leadID uuid.UUID, target string, manual bool, actor string) (repository.Lead, error) {
	return s.lifecycle.Advance(ctx, leadID, target, manual, actor)
}

// Get returns one lead by id.
func (s *Service) Get(ctx context.Context, leadID uuid.UUID) (repository.Lead, error) {
	lead, err := s.store.GetByID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lead{}, err
	}
	return lead, nil
}

// List returns all leads, newest first.
func (s *Service) List(ctx context.Context) ([]repository.Lead, error) {
	return s.store.List(ctx)
}

// ListForBuilder returns the leads assigned to one builder.
func (s *Service) ListForBuilder(ctx context.Context, builder string) ([]repository.Lead, error) {
	if builder == "" {
		return nil, apperr.Validation("builder name is required")
	}
	return s.store.ListByBuilder(ctx, builder)
}

// Activities returns a lead's activity log.
func (s *Service) Activities(ctx context.Context, leadID uuid.UUID) ([]repository.Activity, error) {
	return s.store.ListActivities(ctx, leadID)
}

// AddNote appends a free-form note to the activity log and announces it so
// the score picks up the engagement. Note text is stored sanitized.
func (s *Service) AddNote(ctx context.Context, leadID uuid.UUID, title, description string) error {
	title = sanitize.Text(title)
	description = sanitize.Text(description)
	if title == "" {
		return apperr.Validation("note title is required")
	}
	if _, err := s.store.GetByID(ctx, leadID); errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("lead not found")
	} else if err != nil {
		return err
	}
	if err := s.store.AddActivity(ctx, leadID, repository.Activity{
		Type:        repository.ActivityNote,
		Title:       title,
		Description: description,
	}); err != nil {
		return err
	}
	s.bus.Publish(ctx, events.LeadActivityAdded{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       leadID,
		ActivityType: repository.ActivityNote,
	})
	return nil
}
