package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LeadStore is the persistence surface consumed by the service layer.
// *Repository is the pgx-backed implementation; tests substitute fakes.
type LeadStore interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	FindBySheetRow(ctx context.Context, sheetRow int) (*Lead, error)
	ListSheetLeads(ctx context.Context) ([]Lead, error)
	List(ctx context.Context) ([]Lead, error)
	ListByBuilder(ctx context.Context, builder string) ([]Lead, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (Lead, error)
	UpdateStage(ctx context.Context, id uuid.UUID, params UpdateStageParams) (Lead, error)
	SetBuilder(ctx context.Context, id uuid.UUID, builder string, activity Activity) (Lead, error)
	UpdateScore(ctx context.Context, id uuid.UUID, score int, factors []byte, updatedAt time.Time) error
	AddActivity(ctx context.Context, leadID uuid.UUID, activity Activity) error
	ListActivities(ctx context.Context, leadID uuid.UUID) ([]Activity, error)
}

var _ LeadStore = (*Repository)(nil)
