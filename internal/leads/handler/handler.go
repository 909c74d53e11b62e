package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	leadsync "builderportal_backend/internal/leads/sync"
	"builderportal_backend/internal/leads/transport"
	"builderportal_backend/platform/httpkit"
	"builderportal_backend/platform/validator"
)

// Handler handles HTTP requests for lead ingestion and management.
type Handler struct {
	svc *leadsync.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid lead ID"
)

func New(svc *leadsync.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// IngestSubmission accepts one form submission from the forms add-on.
// POST /api/v1/form-submissions
func (h *Handler) IngestSubmission(c *gin.Context) {
	var req transport.FormSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	leadID, err := h.svc.IngestSubmission(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, transport.SubmissionResponse{LeadID: leadID})
}

// RunSync triggers a full reconciliation pass and waits for its summary.
// POST /api/v1/form-submissions/sync
func (h *Handler) RunSync(c *gin.Context) {
	summary, err := h.svc.RunFullSync(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.SyncResponse{Summary: summary})
}

// List returns all leads, newest first.
// GET /api/v1/leads
func (h *Handler) List(c *gin.Context) {
	leads, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadListResponse(leads))
}

// Get returns one lead.
// GET /api/v1/leads/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// Activities returns a lead's activity log.
// GET /api/v1/leads/:id/activities
func (h *Handler) Activities(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	activities, err := h.svc.Activities(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToActivityResponses(activities))
}

// AddNote appends a note to the activity log.
// POST /api/v1/leads/:id/notes
func (h *Handler) AddNote(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, h.val.FormatErrors(err))
		return
	}

	if err := h.svc.AddNote(c.Request.Context(), id, req.Title, req.Description); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// AssignBuilder assigns a lead to a builder.
// PUT /api/v1/leads/:id/builder
func (h *Handler) AssignBuilder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.AssignBuilderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, h.val.FormatErrors(err))
		return
	}

	identity := httpkit.GetIdentity(c)
	lead, err := h.svc.ReassignBuilder(c.Request.Context(), id, req.Builder, identity.Subject())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// ChangeStage moves a lead to another lifecycle stage.
// PUT /api/v1/leads/:id/stage
func (h *Handler) ChangeStage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.ChangeStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, h.val.FormatErrors(err))
		return
	}

	identity := httpkit.GetIdentity(c)
	lead, err := h.svc.AdvanceStage(c.Request.Context(), id, req.Stage, req.Manual, identity.Subject())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// MyLeads returns the leads assigned to the calling builder.
// GET /api/v1/builders/my-leads
func (h *Handler) MyLeads(c *gin.Context) {
	identity := httpkit.GetIdentity(c)

	// Only admins may inspect another builder's leads.
	builder := identity.Subject()
	if q := c.Query("builder"); q != "" && identity.HasRole("admin") {
		builder = q
	}

	leads, err := h.svc.ListForBuilder(c.Request.Context(), builder)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadListResponse(leads))
}
