package services

import (
	"context"
	"io"

	"github.com/SscSPs/oversight/internal/core/domain"
	"github.com/SscSPs/oversight/internal/core/workflow"
	"github.com/SscSPs/oversight/internal/dto"
)

// RequisitionWriterSvc defines the state-changing requisition operations.
// Each one reads the record, runs the workflow engine, and writes it back
// guarded by the caller's version.
type RequisitionWriterSvc interface {
	// SubmitRequisition creates a requisition on behalf of actor.
	SubmitRequisition(ctx context.Context, actor domain.Identity, req dto.CreateRequisitionRequest) (*domain.Requisition, error)

	// DecideRequisition records an approve or decline by actor acting as req.Role.
	DecideRequisition(ctx context.Context, actor domain.Identity, id string, req dto.DecisionRequest) (*domain.Requisition, error)

	// SplitRequisition carves child requisitions of given amounts out of the record.
	SplitRequisition(ctx context.Context, actor domain.Identity, id string, req dto.SplitRequisitionRequest) (*workflow.SplitResult, error)

	// SplitRequisitionByItems moves selected line items into their own requisitions.
	SplitRequisitionByItems(ctx context.Context, actor domain.Identity, id string, req dto.SplitByItemsRequest) (*workflow.SplitResult, error)
}

// RequisitionReaderSvc defines the role-scoped read operations.
type RequisitionReaderSvc interface {
	// GetRequisition returns a single record the actor may see.
	GetRequisition(ctx context.Context, actor domain.Identity, id string) (*domain.Requisition, error)

	// ListOwnRequisitions returns the actor's own submissions.
	ListOwnRequisitions(ctx context.Context, actor domain.Identity) ([]domain.Requisition, error)

	// ListDepartmentPending returns the department's records awaiting HOD decision.
	// An empty department means the actor's own.
	ListDepartmentPending(ctx context.Context, actor domain.Identity, department string) ([]domain.Requisition, error)

	// ListFinancePending returns records awaiting Finance decision.
	ListFinancePending(ctx context.Context, actor domain.Identity) ([]domain.Requisition, error)

	// ListRequisitions pages through all records, optionally narrowed by a filter expression.
	ListRequisitions(ctx context.Context, actor domain.Identity, params dto.ListRequisitionsParams) (*dto.ListRequisitionsResponse, error)
}

// RequisitionSvcFacade combines all requisition service interfaces
type RequisitionSvcFacade interface {
	RequisitionWriterSvc
	RequisitionReaderSvc
}

// ExportSvc renders requisitions into downloadable reports.
type ExportSvc interface {
	// ExportRequisitionsXLSX writes a workbook of the records matching filter (all when empty) to w.
	ExportRequisitionsXLSX(ctx context.Context, actor domain.Identity, filter string, w io.Writer) error
}

// Notifier publishes requisition transitions. Implementations must not block the caller for long;
// the requisition service logs and discards their errors.
type Notifier interface {
	NotifyTransition(ctx context.Context, event domain.TransitionEvent) error
}
