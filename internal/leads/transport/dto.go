package transport

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"builderportal_backend/internal/leads/repository"
	leadsync "builderportal_backend/internal/leads/sync"
)

// FormSubmissionRequest is the webhook payload posted by the forms add-on.
// Known fields land in their lead slots; everything else is preserved as-is,
// so additional form questions never require a deploy.
type FormSubmissionRequest map[string]string

// AssignBuilderRequest assigns a lead to a builder.
type AssignBuilderRequest struct {
	Builder string `json:"builder" validate:"required,min=1,max=200"`
}

// ChangeStageRequest moves a lead through the lifecycle. Manual marks the
// change as a human decision, which pins the stage against automatic
// movement afterwards.
type ChangeStageRequest struct {
	Stage  string `json:"stage" validate:"required,min=1,max=50"`
	Manual bool   `json:"manual"`
}

// AddNoteRequest appends a note to a lead's activity log.
type AddNoteRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// LeadResponse is the API representation of a lead.
type LeadResponse struct {
	ID                   uuid.UUID          `json:"id"`
	FullName             string             `json:"fullName"`
	PhoneNumber          string             `json:"phoneNumber"`
	Email                string             `json:"email,omitempty"`
	Address              string             `json:"address,omitempty"`
	City                 string             `json:"city,omitempty"`
	WorkRequired         string             `json:"workRequired,omitempty"`
	Details              string             `json:"details,omitempty"`
	Budget               string             `json:"budget,omitempty"`
	StartDate            string             `json:"startDate,omitempty"`
	ContactPreference    string             `json:"contactPreference,omitempty"`
	Builder              string             `json:"builder,omitempty"`
	Stage                string             `json:"stage"`
	StageManuallySet     bool               `json:"stageManuallySet"`
	CompletedAt          *time.Time         `json:"completedAt,omitempty"`
	ConversionScore      int                `json:"conversionScore"`
	ScoreFactors         map[string]float64 `json:"scoreFactors,omitempty"`
	GoogleFormSubmission bool               `json:"googleFormSubmission"`
	GoogleSheetRowID     *int               `json:"googleSheetRowId,omitempty"`
	Synced               bool               `json:"synced"`
	Extra                map[string]string  `json:"extra,omitempty"`
	CreatedAt            time.Time          `json:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt"`
}

// ActivityResponse is one activity log entry.
type ActivityResponse struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// LeadListResponse wraps a list of leads.
type LeadListResponse struct {
	Items []LeadResponse `json:"items"`
	Total int            `json:"total"`
}

// SubmissionResponse acknowledges an ingested form submission.
type SubmissionResponse struct {
	LeadID uuid.UUID `json:"leadId"`
}

// SyncResponse reports a completed sync pass.
type SyncResponse struct {
	Summary leadsync.Summary `json:"summary"`
}

// ToLeadResponse converts a stored lead to its API shape.
func ToLeadResponse(lead repository.Lead) LeadResponse {
	resp := LeadResponse{
		ID:                   lead.ID,
		FullName:             lead.FullName,
		PhoneNumber:          lead.PhoneNumber,
		Email:                lead.Email,
		Address:              lead.Address,
		City:                 lead.City,
		WorkRequired:         lead.WorkRequired,
		Details:              lead.Details,
		Budget:               lead.Budget,
		StartDate:            lead.StartDate,
		ContactPreference:    lead.ContactPreference,
		Builder:              lead.Builder,
		Stage:                lead.Stage,
		StageManuallySet:     lead.StageManuallySet,
		CompletedAt:          lead.CompletedAt,
		ConversionScore:      lead.ConversionScore,
		GoogleFormSubmission: lead.GoogleFormSubmission,
		GoogleSheetRowID:     lead.GoogleSheetRowID,
		Synced:               lead.Synced,
		CreatedAt:            lead.CreatedAt,
		UpdatedAt:            lead.UpdatedAt,
	}
	if len(lead.ScoreFactors) > 0 {
		_ = json.Unmarshal(lead.ScoreFactors, &resp.ScoreFactors)
	}
	if len(lead.Extra) > 0 {
		_ = json.Unmarshal(lead.Extra, &resp.Extra)
	}
	return resp
}

// ToLeadListResponse converts stored leads to the list API shape.
func ToLeadListResponse(leads []repository.Lead) LeadListResponse {
	items := make([]LeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, ToLeadResponse(lead))
	}
	return LeadListResponse{Items: items, Total: len(items)}
}

// ToActivityResponses converts activity log entries to their API shape.
func ToActivityResponses(activities []repository.Activity) []ActivityResponse {
	items := make([]ActivityResponse, 0, len(activities))
	for _, a := range activities {
		items = append(items, ActivityResponse{
			ID:          a.ID,
			Type:        a.Type,
			Title:       a.Title,
			Description: a.Description,
			CreatedAt:   a.CreatedAt,
		})
	}
	return items
}
