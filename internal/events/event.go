// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"builderportal_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead is persisted for the first time.
type LeadCreated struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	FullName string    `json:"fullName"`
	Phone    string    `json:"phone"`
	Source   string    `json:"source"`
	SheetRow *int      `json:"sheetRow,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadStageChanged is published when a lead moves through the lifecycle.
type LeadStageChanged struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	OldStage string    `json:"oldStage"`
	NewStage string    `json:"newStage"`
	Manual   bool      `json:"manual"`
	Actor    string    `json:"actor"`
}

func (e LeadStageChanged) EventName() string { return "leads.lead.stage_changed" }

// BuilderAssigned is published when a lead is (re)assigned to a builder.
type BuilderAssigned struct {
	BaseEvent
	LeadID      uuid.UUID `json:"leadId"`
	BuilderName string    `json:"builderName"`
	Actor       string    `json:"actor"`
	SheetRow    *int      `json:"sheetRow,omitempty"`
}

func (e BuilderAssigned) EventName() string { return "leads.lead.builder_assigned" }

// LeadActivityAdded is published when a new entry lands in a lead's
// activity log.
type LeadActivityAdded struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	ActivityType string    `json:"activityType"`
}

func (e LeadActivityAdded) EventName() string { return "leads.lead.activity_added" }

// LeadDetailsUpdated is published when contact or project fields change.
// BudgetChanged flags edits that affect the scoring budget factor.
type LeadDetailsUpdated struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	BudgetChanged bool      `json:"budgetChanged"`
}

func (e LeadDetailsUpdated) EventName() string { return "leads.lead.details_updated" }

// LeadScoreUpdated is published after a conversion score recomputation.
type LeadScoreUpdated struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	OldScore int       `json:"oldScore"`
	NewScore int       `json:"newScore"`
}

func (e LeadScoreUpdated) EventName() string { return "leads.lead.score_updated" }

// SheetSyncCompleted is published after a full reconciliation pass.
type SheetSyncCompleted struct {
	BaseEvent
	Synced  int `json:"synced"`
	Skipped int `json:"skipped"`
	Errored int `json:"errored"`
}

func (e SheetSyncCompleted) EventName() string { return "leads.sheet.sync_completed" }
