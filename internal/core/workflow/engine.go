package workflow

import (
	"fmt"
	"strings"

	"github.com/SscSPs/oversight/internal/apperrors"
	"github.com/SscSPs/oversight/internal/core/domain"
)

// DeriveStatus maps the (hodStatus, financeStatus) pair to the overall status.
// A decline by either role wins; otherwise the record waits on HOD until HOD
// approves, then on Finance.
func DeriveStatus(hod, finance domain.ApprovalStatus) domain.RequisitionStatus {
	switch {
	case hod == domain.StatusDeclined || finance == domain.StatusDeclined:
		return domain.Declined
	case hod == domain.StatusApproved && finance == domain.StatusApproved:
		return domain.Approved
	case hod == domain.StatusApproved:
		return domain.PendingFinanceApproval
	default:
		return domain.PendingHODApproval
	}
}

// Options configures an Engine.
type Options struct {
	// RequireHODFirst rejects Finance decisions until HOD has approved.
	RequireHODFirst bool
	// Now is the ledger clock; nil means time.Now in UTC.
	Now Clock
}

// Engine applies approval decisions and splits to requisitions.
type Engine struct {
	ledger          *Ledger
	now             Clock
	requireHODFirst bool
}

// NewEngine creates an Engine.
func NewEngine(opts Options) *Engine {
	ledger := NewLedger(opts.Now)
	return &Engine{
		ledger:          ledger,
		now:             ledger.now,
		requireHODFirst: opts.RequireHODFirst,
	}
}

// Ledger returns the engine's history ledger.
func (e *Engine) Ledger() *Ledger {
	return e.ledger
}

// ApplyDecision records an approve or decline by role and returns the updated
// record. rec is not modified.
func (e *Engine) ApplyDecision(rec *domain.Requisition, role domain.ApproverRole, decision domain.Decision, actor, comments string) (*domain.Requisition, error) {
	if !role.IsValid() {
		return nil, apperrors.NewValidationError("role", "must be %s or %s", domain.ApproverHOD, domain.ApproverFinance)
	}
	if !decision.IsValid() {
		return nil, apperrors.NewValidationError("decision", "must be %s or %s", domain.DecisionApprove, domain.DecisionDecline)
	}
	if strings.TrimSpace(actor) == "" {
		return nil, apperrors.NewValidationError("actor", "must not be empty")
	}
	comments = strings.TrimSpace(comments)
	if comments == "" {
		return nil, apperrors.NewValidationError("comments", "are required")
	}
	if rec.IsTerminal() {
		return nil, apperrors.NewInvalidStateError(rec.TransactionID, "requisition has been declined and can no longer change")
	}
	if rec.StatusFor(role) != domain.StatusPending {
		return nil, apperrors.NewInvalidStateError(rec.TransactionID, fmt.Sprintf("already decided by %s", role))
	}
	if e.requireHODFirst && role == domain.ApproverFinance && rec.HODStatus != domain.StatusApproved {
		return nil, apperrors.NewInvalidStateError(rec.TransactionID, "awaiting HOD approval before Finance can decide")
	}

	next := domain.StatusApproved
	verb := "Approved"
	if decision == domain.DecisionDecline {
		next = domain.StatusDeclined
		verb = "Declined"
	}

	out := e.ledger.Append(rec, domain.HistoryEntry{
		Action:   fmt.Sprintf("%s %s", role, verb),
		By:       actor,
		Role:     role,
		Comments: &comments,
	})
	if role == domain.ApproverHOD {
		out.HODStatus = next
	} else {
		out.FinanceStatus = next
	}
	out.Status = DeriveStatus(out.HODStatus, out.FinanceStatus)
	return out, nil
}
