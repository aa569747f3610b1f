package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/oversight/internal/apperrors"
	"github.com/SscSPs/oversight/internal/core/domain"
	portsrepo "github.com/SscSPs/oversight/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/oversight/internal/core/ports/services"
	"github.com/SscSPs/oversight/internal/core/workflow"
	"github.com/SscSPs/oversight/internal/dto"
	"github.com/SscSPs/oversight/internal/utils/pagination"
)

const actionSubmitted = "Submitted"

// requisitionService implements the RequisitionSvcFacade interface
type requisitionService struct {
	BaseService
	repo            portsrepo.RequisitionRepositoryFacade
	engine          *workflow.Engine
	filter          *workflow.RecordFilter
	notifier        portssvc.Notifier
	defaultCurrency string
}

// RequisitionServiceOption is a functional option for configuring the requisition service
type RequisitionServiceOption func(*requisitionService)

// WithNotifier sets where transitions are published.
func WithNotifier(n portssvc.Notifier) RequisitionServiceOption {
	return func(s *requisitionService) {
		s.notifier = n
	}
}

// WithDefaultCurrency sets the currency used when a submission names none.
func WithDefaultCurrency(code string) RequisitionServiceOption {
	return func(s *requisitionService) {
		if code != "" {
			s.defaultCurrency = strings.ToUpper(code)
		}
	}
}

// WithRecordFilter shares a filter (and its compiled-expression cache) with other services.
func WithRecordFilter(f *workflow.RecordFilter) RequisitionServiceOption {
	return func(s *requisitionService) {
		s.filter = f
	}
}

// NewRequisitionService creates a new requisition service with the provided options
func NewRequisitionService(repo portsrepo.RequisitionRepositoryFacade, engine *workflow.Engine, options ...RequisitionServiceOption) portssvc.RequisitionSvcFacade {
	svc := &requisitionService{
		repo:            repo,
		engine:          engine,
		filter:          workflow.NewRecordFilter(),
		defaultCurrency: domain.DefaultCurrency,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

func (s *requisitionService) SubmitRequisition(ctx context.Context, actor domain.Identity, req dto.CreateRequisitionRequest) (*domain.Requisition, error) {
	currency := req.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}
	rec, err := domain.NewRequisition(domain.NewRequisitionParams{
		Title:                 req.Title,
		Justification:         req.Justification,
		Currency:              currency,
		Items:                 dto.ToLineItemInputs(req.Items),
		RequestedBy:           actor.UserID,
		RequestedByDepartment: actor.Department,
		RequesterName:         actor.Name,
		RequesterEmail:        actor.Email,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveRequisition(ctx, rec); err != nil {
		s.LogError(ctx, err, "Failed to save requisition", slog.String("transaction_id", rec.TransactionID))
		return nil, err
	}

	s.LogInfo(ctx, "Requisition submitted",
		slog.String("requisition_id", rec.ID),
		slog.String("transaction_id", rec.TransactionID),
		slog.String("total_amount", rec.TotalAmount.StringFixed(2)))
	s.notify(ctx, domain.NewTransitionEvent(domain.EventSubmitted, rec, actionSubmitted, actorLabel(actor), ""))
	return rec, nil
}

func (s *requisitionService) DecideRequisition(ctx context.Context, actor domain.Identity, id string, req dto.DecisionRequest) (*domain.Requisition, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeDecision(actor, req.Role, rec); err != nil {
		s.LogWarn(ctx, "Decision not permitted",
			slog.String("transaction_id", rec.TransactionID),
			slog.String("acting_role", string(req.Role)),
			slog.String("user_role", string(actor.Role)))
		return nil, err
	}
	if err := checkVersion(rec, req.Version); err != nil {
		return nil, err
	}

	updated, err := s.engine.ApplyDecision(rec, req.Role, req.Decision, actorLabel(actor), req.Comments)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRequisition(ctx, updated, req.Version); err != nil {
		s.LogError(ctx, err, "Failed to persist decision", slog.String("transaction_id", rec.TransactionID))
		return nil, err
	}

	last := updated.History[len(updated.History)-1]
	s.LogInfo(ctx, "Requisition decided",
		slog.String("transaction_id", updated.TransactionID),
		slog.String("action", last.Action),
		slog.String("status", string(updated.Status)))

	event := domain.EventApproved
	if req.Decision == domain.DecisionDecline {
		event = domain.EventDeclined
	}
	s.notify(ctx, domain.NewTransitionEvent(event, updated, last.Action, last.By, req.Role))
	return updated, nil
}

func (s *requisitionService) SplitRequisition(ctx context.Context, actor domain.Identity, id string, req dto.SplitRequisitionRequest) (*workflow.SplitResult, error) {
	return s.split(ctx, actor, id, req.Version, func(rec *domain.Requisition, role domain.ApproverRole) (*workflow.SplitResult, error) {
		return s.engine.Split(rec, req.ToChildSpecs(), req.Reason, actorLabel(actor), role)
	})
}

func (s *requisitionService) SplitRequisitionByItems(ctx context.Context, actor domain.Identity, id string, req dto.SplitByItemsRequest) (*workflow.SplitResult, error) {
	return s.split(ctx, actor, id, req.Version, func(rec *domain.Requisition, role domain.ApproverRole) (*workflow.SplitResult, error) {
		return s.engine.SplitByItems(rec, req.Indices, actorLabel(actor), role)
	})
}

func (s *requisitionService) split(ctx context.Context, actor domain.Identity, id string, version int64, run func(*domain.Requisition, domain.ApproverRole) (*workflow.SplitResult, error)) (*workflow.SplitResult, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	role, err := splitRole(actor, rec)
	if err != nil {
		s.LogWarn(ctx, "Split not permitted",
			slog.String("transaction_id", rec.TransactionID),
			slog.String("user_role", string(actor.Role)))
		return nil, err
	}
	if err := checkVersion(rec, version); err != nil {
		return nil, err
	}

	res, err := run(rec, role)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveSplit(ctx, res.Parent, version, res.Children); err != nil {
		s.LogError(ctx, err, "Failed to persist split", slog.String("transaction_id", rec.TransactionID))
		return nil, err
	}

	s.LogInfo(ctx, "Requisition split",
		slog.String("transaction_id", rec.TransactionID),
		slog.Int("children", len(res.Children)),
		slog.String("remainder", res.Parent.TotalAmount.StringFixed(2)))

	by := actorLabel(actor)
	s.notify(ctx, domain.NewTransitionEvent(domain.EventSplit, res.Parent, workflow.ActionSplitProcessed, by, role))
	for _, child := range res.Children {
		s.notify(ctx, domain.NewTransitionEvent(domain.EventSplit, child, workflow.ActionSplitCreated, by, role))
	}
	return res, nil
}

func (s *requisitionService) GetRequisition(ctx context.Context, actor domain.Identity, id string) (*domain.Requisition, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, rec) {
		return nil, fmt.Errorf("user %s may not view requisition %s: %w", actor.UserID, rec.TransactionID, apperrors.ErrForbidden)
	}
	return rec, nil
}

func (s *requisitionService) ListOwnRequisitions(ctx context.Context, actor domain.Identity) ([]domain.Requisition, error) {
	all, err := s.repo.FindRequisitions(ctx, portsrepo.RequisitionQuery{RequestedBy: actor.UserID})
	if err != nil {
		s.LogError(ctx, err, "Failed to list own requisitions", slog.String("user_id", actor.UserID))
		return nil, err
	}
	return workflow.OwnRecords(all, actor.UserID), nil
}

func (s *requisitionService) ListDepartmentPending(ctx context.Context, actor domain.Identity, department string) ([]domain.Requisition, error) {
	switch actor.Role {
	case domain.RoleHOD:
		if department != "" && department != actor.Department {
			return nil, fmt.Errorf("HOD of %q may not list department %q: %w", actor.Department, department, apperrors.ErrForbidden)
		}
		department = actor.Department
	case domain.RoleAdmin, domain.RoleSuperUser:
		if department == "" {
			department = actor.Department
		}
	default:
		return nil, fmt.Errorf("role %s may not list department approvals: %w", actor.Role, apperrors.ErrForbidden)
	}
	if department == "" {
		return nil, apperrors.NewValidationError("department", "must not be empty")
	}

	all, err := s.repo.FindRequisitions(ctx, portsrepo.RequisitionQuery{Department: department, HODStatus: domain.StatusPending})
	if err != nil {
		s.LogError(ctx, err, "Failed to list department requisitions", slog.String("department", department))
		return nil, err
	}
	return workflow.DepartmentPending(all, department), nil
}

func (s *requisitionService) ListFinancePending(ctx context.Context, actor domain.Identity) ([]domain.Requisition, error) {
	if !actor.Role.SeesAllRecords() {
		return nil, fmt.Errorf("role %s may not list finance approvals: %w", actor.Role, apperrors.ErrForbidden)
	}
	all, err := s.repo.FindRequisitions(ctx, portsrepo.RequisitionQuery{FinanceStatus: domain.StatusPending})
	if err != nil {
		s.LogError(ctx, err, "Failed to list finance requisitions")
		return nil, err
	}
	return workflow.FinancePending(all), nil
}

func (s *requisitionService) ListRequisitions(ctx context.Context, actor domain.Identity, params dto.ListRequisitionsParams) (*dto.ListRequisitionsResponse, error) {
	if !actor.Role.SeesAllRecords() {
		return nil, fmt.Errorf("role %s may not list all requisitions: %w", actor.Role, apperrors.ErrForbidden)
	}
	var cursor *pagination.Cursor
	if params.NextToken != nil && *params.NextToken != "" {
		c, err := pagination.DecodeToken(*params.NextToken)
		if err != nil {
			return nil, apperrors.NewValidationError("nextToken", "%v", err)
		}
		cursor = &c
	}
	q := portsrepo.RequisitionQuery{Department: params.Department, RequestedBy: params.RequestedBy}

	if strings.TrimSpace(params.Filter) == "" {
		records, next, err := s.repo.ListRequisitions(ctx, q, params.Limit, params.NextToken)
		if err != nil {
			s.LogError(ctx, err, "Failed to list requisitions")
			return nil, err
		}
		return &dto.ListRequisitionsResponse{Requisitions: workflow.AllRecords(records), NextToken: next}, nil
	}

	all, err := s.repo.FindRequisitions(ctx, q)
	if err != nil {
		s.LogError(ctx, err, "Failed to load requisitions for filtering")
		return nil, err
	}
	matched, err := s.filter.Filter(all, params.Filter)
	if err != nil {
		return nil, err
	}
	page, next := pageRecords(matched, params.Limit, cursor)
	return &dto.ListRequisitionsResponse{Requisitions: page, NextToken: next}, nil
}

func (s *requisitionService) load(ctx context.Context, id string) (*domain.Requisition, error) {
	rec, err := s.repo.FindRequisitionByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load requisition %s: %w", id, err)
	}
	return rec, nil
}

func (s *requisitionService) notify(ctx context.Context, event domain.TransitionEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyTransition(ctx, event); err != nil {
		s.LogWarn(ctx, "Failed to send transition notification",
			slog.String("error", err.Error()),
			slog.String("event", event.Event),
			slog.String("transaction_id", event.TransactionID))
	}
}

// pageRecords cuts one page out of records ordered newest first, starting after cursor.
func pageRecords(records []domain.Requisition, limit int, cursor *pagination.Cursor) ([]domain.Requisition, *string) {
	start := 0
	if cursor != nil {
		start = len(records)
		for i, r := range records {
			if r.CreatedAt.Before(cursor.CreatedAt) || (r.CreatedAt.Equal(cursor.CreatedAt) && r.ID < cursor.ID) {
				start = i
				break
			}
		}
	}
	end := start + limit
	if limit <= 0 || end > len(records) {
		end = len(records)
	}
	page := records[start:end]
	if len(page) == 0 {
		return page, nil
	}
	last := page[len(page)-1]
	if end == len(records) {
		return page, nil
	}
	return page, pagination.NextToken(len(page), limit, pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
}

func checkVersion(rec *domain.Requisition, expected int64) error {
	if rec.Version != expected {
		return &apperrors.ConflictError{TransactionID: rec.TransactionID, ExpectedVersion: expected}
	}
	return nil
}

// actorLabel is how the actor appears in history entries.
func actorLabel(actor domain.Identity) string {
	switch {
	case actor.Name != "":
		return actor.Name
	case actor.Email != "":
		return actor.Email
	}
	return actor.UserID
}

func authorizeDecision(actor domain.Identity, role domain.ApproverRole, rec *domain.Requisition) error {
	if actor.Role == domain.RoleSuperUser {
		return nil
	}
	switch role {
	case domain.ApproverHOD:
		if actor.Role == domain.RoleHOD && actor.Department == rec.RequestedByDepartment {
			return nil
		}
	case domain.ApproverFinance:
		if actor.Role == domain.RoleFinance {
			return nil
		}
	default:
		return apperrors.NewValidationError("role", "must be one of HOD, Finance")
	}
	return fmt.Errorf("user %s (%s) may not act as %s on %s: %w", actor.UserID, actor.Role, role, rec.TransactionID, apperrors.ErrForbidden)
}

// splitRole returns the approver role the actor splits under.
func splitRole(actor domain.Identity, rec *domain.Requisition) (domain.ApproverRole, error) {
	switch actor.Role {
	case domain.RoleHOD:
		if actor.Department == rec.RequestedByDepartment {
			return domain.ApproverHOD, nil
		}
	case domain.RoleFinance, domain.RoleSuperUser:
		return domain.ApproverFinance, nil
	}
	return "", fmt.Errorf("user %s (%s) may not split %s: %w", actor.UserID, actor.Role, rec.TransactionID, apperrors.ErrForbidden)
}

func canView(actor domain.Identity, rec *domain.Requisition) bool {
	switch {
	case actor.Role.SeesAllRecords():
		return true
	case rec.RequestedBy == actor.UserID:
		return true
	case actor.Role == domain.RoleHOD && actor.Department == rec.RequestedByDepartment:
		return true
	}
	return false
}
