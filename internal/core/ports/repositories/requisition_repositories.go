package repositories

import (
	"context"

	"github.com/SscSPs/oversight/internal/core/domain"
)

// RequisitionQuery narrows a requisition scan. Zero values mean "any".
type RequisitionQuery struct {
	RequestedBy   string
	Department    string
	HODStatus     domain.ApprovalStatus
	FinanceStatus domain.ApprovalStatus
}

// RequisitionReader defines read operations for requisitions
type RequisitionReader interface {
	// FindRequisitionByID retrieves a requisition by ID, or apperrors.ErrNotFound.
	FindRequisitionByID(ctx context.Context, id string) (*domain.Requisition, error)

	// FindRequisitions returns every requisition matching q, newest first.
	FindRequisitions(ctx context.Context, q RequisitionQuery) ([]domain.Requisition, error)

	// ListRequisitions returns one page of requisitions matching q, newest first,
	// plus the token for the next page (nil on the last page).
	ListRequisitions(ctx context.Context, q RequisitionQuery, limit int, nextToken *string) ([]domain.Requisition, *string, error)
}

// RequisitionWriter defines write operations for requisitions.
// Every write is a whole-record replace guarded by the record version.
type RequisitionWriter interface {
	// SaveRequisition inserts a new requisition at version 1.
	SaveRequisition(ctx context.Context, rec *domain.Requisition) error

	// UpdateRequisition replaces rec if the stored version still equals
	// expectedVersion, bumping rec.Version. A stale version yields *apperrors.ConflictError.
	UpdateRequisition(ctx context.Context, rec *domain.Requisition, expectedVersion int64) error

	// SaveSplit updates parent (guarded by expectedVersion) and inserts children atomically.
	SaveSplit(ctx context.Context, parent *domain.Requisition, expectedVersion int64, children []*domain.Requisition) error
}

// RequisitionRepositoryFacade combines all requisition repository interfaces
type RequisitionRepositoryFacade interface {
	RequisitionReader
	RequisitionWriter
}
