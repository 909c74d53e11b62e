// Package leads provides the lead ingestion and lifecycle bounded context:
// spreadsheet reconciliation, form submission ingestion, builder assignment,
// stage movement and conversion scoring.
package leads

import (
	"builderportal_backend/internal/events"
	apphttp "builderportal_backend/internal/http"
	"builderportal_backend/internal/leads/handler"
	"builderportal_backend/internal/leads/lifecycle"
	"builderportal_backend/internal/leads/repository"
	"builderportal_backend/internal/leads/scoring"
	leadsync "builderportal_backend/internal/leads/sync"
	"builderportal_backend/platform/config"
	"builderportal_backend/platform/httpkit"
	"builderportal_backend/platform/logger"
	"builderportal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context implementing http.Module.
type Module struct {
	handler   *handler.Handler
	sync      *leadsync.Service
	lifecycle *lifecycle.Service
	scoring   *scoring.Service
	repo      *repository.Repository
	formCfg   config.WebhookConfig
}

// NewModule wires the leads context. rows and writer are the sheet access
// points (nil writer disables write-back); notifier announces assignments.
func NewModule(
	pool *pgxpool.Pool,
	bus events.Bus,
	rows leadsync.RowSource,
	writer leadsync.CellWriter,
	notifier leadsync.Notifier,
	cfg interface {
		config.WebhookConfig
		config.SheetsConfig
		config.SyncConfig
	},
	val *validator.Validator,
	log *logger.Logger,
) (*Module, error) {
	repo := repository.New(pool)

	policy, err := scoring.LoadPolicy(cfg.GetScoringPolicyPath())
	if err != nil {
		return nil, err
	}
	scoringSvc := scoring.NewService(repo, policy, bus, log)
	scoringSvc.SubscribeRecalculationTriggers(bus)

	lifecycleSvc := lifecycle.NewService(repo, bus, log)

	syncSvc := leadsync.NewService(
		repo, rows, writer, lifecycleSvc, notifier, bus, log,
		cfg.GetSheetHeaderOffset(), cfg.GetSyncConcurrency(),
	)

	return &Module{
		handler:   handler.New(syncSvc, val),
		sync:      syncSvc,
		lifecycle: lifecycleSvc,
		scoring:   scoringSvc,
		repo:      repo,
		formCfg:   cfg,
	}, nil
}

func (m *Module) Name() string {
	return "leads"
}

// SyncService returns the orchestrator for the scheduler worker and CLI.
func (m *Module) SyncService() *leadsync.Service {
	return m.sync
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts the lead routes.
//
// Form submission ingestion accepts either the shared-secret API key used by
// the forms add-on or a normal user token; everything else requires a user.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	submissions := ctx.V1.Group("/form-submissions")
	submissions.Use(httpkit.APIKeyOrAuth(m.formCfg))
	submissions.POST("", m.handler.IngestSubmission)
	submissions.POST("/sync", m.handler.RunSync)

	leads := ctx.Protected.Group("/leads")
	leads.GET("", httpkit.RequireRole("admin"), m.handler.List)
	leads.GET("/:id", m.handler.Get)
	leads.GET("/:id/activities", m.handler.Activities)
	leads.POST("/:id/notes", m.handler.AddNote)
	leads.PUT("/:id/builder", m.handler.AssignBuilder)
	leads.PUT("/:id/stage", m.handler.ChangeStage)

	ctx.Protected.GET("/builders/my-leads", m.handler.MyLeads)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
