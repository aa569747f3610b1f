package services

import (
	portsrepo "github.com/SscSPs/oversight/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/oversight/internal/core/ports/services"
	"github.com/SscSPs/oversight/internal/core/workflow"
	"github.com/SscSPs/oversight/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, notifier portssvc.Notifier) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	engine := workflow.NewEngine(workflow.Options{RequireHODFirst: cfg.WorkflowRequireHODFirst})
	// Shared so list and export reuse compiled filter expressions.
	filter := workflow.NewRecordFilter()

	container.Requisition = NewRequisitionService(
		repos.RequisitionRepo,
		engine,
		WithNotifier(notifier),
		WithDefaultCurrency(cfg.DefaultCurrency),
		WithRecordFilter(filter),
	)
	container.Export = NewExportService(repos.RequisitionRepo, filter)

	container.User = NewUserService(repos.UserRepo)
	container.TokenService = NewTokenService(cfg, container.User)
	container.GoogleOAuthHandler = NewGoogleOAuthHandlerService(cfg)

	return container
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.RequisitionSvcFacade        = (*requisitionService)(nil)
	_ portssvc.UserSvcFacade               = (*userService)(nil)
	_ portssvc.TokenSvcFacade              = (*tokenService)(nil)
	_ portssvc.GoogleOAuthHandlerSvcFacade = (*googleOAuthHandlerService)(nil)
)
