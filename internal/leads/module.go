package leads

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"prospector_backend/internal/events"
	apphttp "prospector_backend/internal/http"
	"prospector_backend/internal/leads/handler"
	"prospector_backend/internal/leads/management"
	"prospector_backend/internal/leads/ports"
	"prospector_backend/internal/leads/repository"
	"prospector_backend/internal/leads/transport"
	"prospector_backend/internal/scheduler"
	"prospector_backend/platform/logger"
	"prospector_backend/platform/validator"
)

// ModuleDeps are the collaborators built by the composition root.
type ModuleDeps struct {
	Pool      *pgxpool.Pool
	Bus       events.Bus
	Validator *validator.Validator
	Composer  ports.ContentComposer
	Dispatch  ports.ChannelDispatcher
	Scheduler scheduler.Scheduler
	Settings  ports.SettingsSource
	Messages  interface {
		ports.MessageStore
		management.MessageReader
	}
	Replies  management.ReplyReader
	Activity management.ActivityStore
	Log      *logger.Logger
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	repo         *repository.Repository
	orchestrator *Orchestrator
	handler      *handler.Handler
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(deps ModuleDeps) *Module {
	repo := repository.New(deps.Pool)

	orch := NewOrchestrator(OrchestratorDeps{
		Leads:     repo,
		Messages:  deps.Messages,
		Composer:  deps.Composer,
		Dispatch:  deps.Dispatch,
		Scheduler: deps.Scheduler,
		Settings:  deps.Settings,
		Audit:     deps.Activity,
		Bus:       deps.Bus,
		Log:       deps.Log,
	})

	mgmtSvc := management.New(repo, deps.Messages, deps.Replies, deps.Activity)
	h := handler.New(mgmtSvc, operatorActions{orch}, deps.Validator)

	return &Module{
		repo:         repo,
		orchestrator: orch,
		handler:      h,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Orchestrator returns the lifecycle state machine for the worker and reply routing.
func (m *Module) Orchestrator() *Orchestrator {
	return m.orchestrator
}

// Repository returns the lead store for discovery and reply matching.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}


// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leadsGroup := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(leadsGroup)
}

// operatorActions adapts the orchestrator to the handler's transport-level interface.
type operatorActions struct {
	*Orchestrator
}

func (a operatorActions) PitchLead(ctx context.Context, leadID uuid.UUID) (transport.PitchResponse, error) {
	result, err := a.Orchestrator.PitchLead(ctx, leadID)
	if err != nil {
		return transport.PitchResponse{}, err
	}
	resp := transport.PitchResponse{
		Outcome:            string(result.Outcome),
		Status:             string(result.Lead.Status),
		FollowupsScheduled: result.FollowupsScheduled,
	}
	if result.Email != nil {
		resp.EmailStatus = string(result.Email.Status)
	}
	if result.Messaging != nil {
		resp.MessagingStatus = string(result.Messaging.Status)
		resp.MessagingChannel = string(result.Messaging.Channel)
	}
	return resp, nil
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
