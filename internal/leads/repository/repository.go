package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Lead is the authoritative per-lead record. Contact and project fields use
// empty string as the unset sentinel to match spreadsheet semantics.
type Lead struct {
	ID                   uuid.UUID
	FullName             string
	PhoneNumber          string
	Email                string
	Address              string
	City                 string
	WorkRequired         string
	Details              string
	Budget               string
	StartDate            string
	ContactPreference    string
	Builder              string
	Stage                string
	StageManuallySet     bool
	CompletedAt          *time.Time
	ConversionScore      int
	ScoreFactors         []byte
	ScoreUpdatedAt       *time.Time
	GoogleFormSubmission bool
	GoogleSheetRowID     *int
	Synced               bool
	Extra                []byte
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Activity is one entry of the append-only per-lead event log.
type Activity struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	Type        string
	Title       string
	Description string
	CreatedAt   time.Time
}

// Well-known activity types.
const (
	ActivityStageChange = "stage_change"
	ActivityAssignment  = "assignment"
	ActivityDetails     = "details_updated"
	ActivityNote        = "note"
)

type CreateLeadParams struct {
	FullName             string
	PhoneNumber          string
	Email                string
	Address              string
	City                 string
	WorkRequired         string
	Details              string
	Budget               string
	StartDate            string
	ContactPreference    string
	Builder              string
	Stage                string
	ConversionScore      int
	GoogleFormSubmission bool
	GoogleSheetRowID     *int
	Synced               bool
	Extra                []byte

	// InitialActivity is recorded in the same transaction as the insert so
	// a created lead is never observable without its creation entry.
	InitialActivity *Activity
}

// UpdateLeadParams patches contact and project fields. Nil pointers leave
// the stored value untouched.
type UpdateLeadParams struct {
	FullName          *string
	PhoneNumber       *string
	Email             *string
	Address           *string
	City              *string
	WorkRequired      *string
	Details           *string
	Budget            *string
	StartDate         *string
	ContactPreference *string
	Synced            *bool
	Extra             []byte
}

// UpdateStageParams applies an accepted lifecycle transition.
type UpdateStageParams struct {
	Stage            string
	StageManuallySet bool
	// CompletedAt is set only on the first entry into the terminal stage;
	// nil leaves the stored value untouched.
	CompletedAt *time.Time
	Activity    Activity
}

const leadColumns = `
	id, full_name, phone_number, email, address, city,
	work_required, details, budget, start_date, contact_preference,
	builder, stage, stage_manually_set, completed_at,
	conversion_score, score_factors, score_updated_at,
	google_form_submission, google_sheet_row_id, synced, extra,
	created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.FullName, &l.PhoneNumber, &l.Email, &l.Address, &l.City,
		&l.WorkRequired, &l.Details, &l.Budget, &l.StartDate, &l.ContactPreference,
		&l.Builder, &l.Stage, &l.StageManuallySet, &l.CompletedAt,
		&l.ConversionScore, &l.ScoreFactors, &l.ScoreUpdatedAt,
		&l.GoogleFormSubmission, &l.GoogleSheetRowID, &l.Synced, &l.Extra,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return l, err
}

// Create inserts a new lead and its initial activity in one transaction.
func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO leads (
			full_name, phone_number, email, address, city,
			work_required, details, budget, start_date, contact_preference,
			builder, stage, conversion_score,
			google_form_submission, google_sheet_row_id, synced, extra
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13,
			$14, $15, $16, COALESCE($17, '{}'::jsonb)
		)
		RETURNING `+leadColumns,
		params.FullName, params.PhoneNumber, params.Email, params.Address, params.City,
		params.WorkRequired, params.Details, params.Budget, params.StartDate, params.ContactPreference,
		params.Builder, params.Stage, params.ConversionScore,
		params.GoogleFormSubmission, params.GoogleSheetRowID, params.Synced, params.Extra,
	)

	lead, err := scanLead(row)
	if err != nil {
		return Lead{}, err
	}

	if params.InitialActivity != nil {
		a := params.InitialActivity
		if _, err := tx.Exec(ctx, `
			INSERT INTO lead_activities (lead_id, type, title, description)
			VALUES ($1, $2, $3, $4)
		`, lead.ID, a.Type, a.Title, a.Description); err != nil {
			return Lead{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Lead{}, err
	}

	return lead, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	return scanLead(row)
}

// FindBySheetRow returns the lead linked to a spreadsheet origin row,
// or nil when the row has never been persisted.
func (r *Repository) FindBySheetRow(ctx context.Context, sheetRow int) (*Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE google_sheet_row_id = $1`, sheetRow)
	lead, err := scanLead(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// ListSheetLeads returns all leads that originate from spreadsheet rows.
// The sync orchestrator uses this snapshot to decide per-row actions.
func (r *Repository) ListSheetLeads(ctx context.Context) ([]Lead, error) {
	return r.list(ctx, `SELECT `+leadColumns+` FROM leads WHERE google_sheet_row_id IS NOT NULL ORDER BY google_sheet_row_id`)
}

// List returns all leads, newest first.
func (r *Repository) List(ctx context.Context) ([]Lead, error) {
	return r.list(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY created_at DESC`)
}

// ListByBuilder returns leads assigned to the named builder,
// matched case-insensitively.
func (r *Repository) ListByBuilder(ctx context.Context, builder string) ([]Lead, error) {
	return r.list(ctx, `SELECT `+leadColumns+` FROM leads WHERE LOWER(TRIM(builder)) = LOWER(TRIM($1)) ORDER BY created_at DESC`, builder)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// Update patches contact/project fields and bumps updated_at.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			full_name          = COALESCE($2, full_name),
			phone_number       = COALESCE($3, phone_number),
			email              = COALESCE($4, email),
			address            = COALESCE($5, address),
			city               = COALESCE($6, city),
			work_required      = COALESCE($7, work_required),
			details            = COALESCE($8, details),
			budget             = COALESCE($9, budget),
			start_date         = COALESCE($10, start_date),
			contact_preference = COALESCE($11, contact_preference),
			synced             = COALESCE($12, synced),
			extra              = COALESCE($13, extra),
			updated_at         = NOW()
		WHERE id = $1
		RETURNING `+leadColumns,
		id,
		params.FullName, params.PhoneNumber, params.Email, params.Address, params.City,
		params.WorkRequired, params.Details, params.Budget, params.StartDate, params.ContactPreference,
		params.Synced, params.Extra,
	)
	return scanLead(row)
}

// UpdateStage applies a lifecycle transition and records its activity entry
// in one transaction. completed_at is only ever written once; a nil
// CompletedAt leaves any existing value in place.
func (r *Repository) UpdateStage(ctx context.Context, id uuid.UUID, params UpdateStageParams) (Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE leads SET
			stage              = $2,
			stage_manually_set = $3,
			completed_at       = COALESCE(completed_at, $4),
			updated_at         = NOW()
		WHERE id = $1
		RETURNING `+leadColumns,
		id, params.Stage, params.StageManuallySet, params.CompletedAt,
	)

	lead, err := scanLead(row)
	if err != nil {
		return Lead{}, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO lead_activities (lead_id, type, title, description)
		VALUES ($1, $2, $3, $4)
	`, id, params.Activity.Type, params.Activity.Title, params.Activity.Description); err != nil {
		return Lead{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Lead{}, err
	}

	return lead, nil
}

// SetBuilder assigns the lead to a builder and records the assignment in the
// activity log.
func (r *Repository) SetBuilder(ctx context.Context, id uuid.UUID, builder string, activity Activity) (Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE leads SET builder = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+leadColumns,
		id, builder,
	)

	lead, err := scanLead(row)
	if err != nil {
		return Lead{}, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO lead_activities (lead_id, type, title, description)
		VALUES ($1, $2, $3, $4)
	`, id, activity.Type, activity.Title, activity.Description); err != nil {
		return Lead{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Lead{}, err
	}

	return lead, nil
}

// UpdateScore stores a recomputed conversion score and its factor breakdown.
func (r *Repository) UpdateScore(ctx context.Context, id uuid.UUID, score int, factors []byte, updatedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			conversion_score = $2,
			score_factors    = COALESCE($3, score_factors),
			score_updated_at = $4,
			updated_at       = NOW()
		WHERE id = $1
	`, id, score, factors, updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddActivity appends one entry to the lead's activity log. The log is
// append-only; there is deliberately no update or delete counterpart.
func (r *Repository) AddActivity(ctx context.Context, leadID uuid.UUID, activity Activity) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_activities (lead_id, type, title, description)
		VALUES ($1, $2, $3, $4)
	`, leadID, activity.Type, activity.Title, activity.Description)
	return err
}

// ListActivities returns the lead's activity log in insertion order.
func (r *Repository) ListActivities(ctx context.Context, leadID uuid.UUID) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, type, title, description, created_at
		FROM lead_activities
		WHERE lead_id = $1
		ORDER BY created_at ASC, id ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]Activity, 0)
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.LeadID, &a.Type, &a.Title, &a.Description, &a.CreatedAt); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}
