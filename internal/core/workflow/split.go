package workflow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/SscSPs/oversight/internal/apperrors"
	"github.com/SscSPs/oversight/internal/core/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ActionSplitCreated   = "Split Created"
	ActionSplitProcessed = "Split Processed"

	remainingItemDescription = "Remaining amount after split"
	splitByItemsReason       = "Split by item selection"
)

// ChildSpec describes one child requisition produced by a dollar-amount split.
type ChildSpec struct {
	Title       string
	TotalAmount decimal.Decimal
	// Items is optional. When set, the derived item totals must add up to TotalAmount.
	Items []domain.LineItemInput
}

// SplitResult is the outcome of a split: the new child records and the reduced parent.
type SplitResult struct {
	Children []*domain.Requisition
	Parent   *domain.Requisition
}

// Split carves the given child totals out of rec. The children must sum to
// strictly less than rec.TotalAmount; the parent keeps the remainder as a
// single synthetic line item.
func (e *Engine) Split(rec *domain.Requisition, specs []ChildSpec, reason, actor string, role domain.ApproverRole) (*SplitResult, error) {
	reason = strings.TrimSpace(reason)
	if err := e.checkSplittable(rec, reason, actor, role); err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, apperrors.NewValidationError("children", "at least one child is required")
	}

	childItems := make([][]domain.LineItem, len(specs))
	sum := decimal.Zero
	for i, spec := range specs {
		field := fmt.Sprintf("children[%d]", i)
		if !spec.TotalAmount.IsPositive() {
			return nil, apperrors.NewValidationError(field+".totalAmount", "must be greater than zero")
		}
		if !spec.TotalAmount.Equal(spec.TotalAmount.Round(2)) {
			return nil, apperrors.NewValidationError(field+".totalAmount", "must have at most 2 decimal places")
		}
		if len(spec.Items) > 0 {
			items, err := domain.BuildLineItems(spec.Items, field+".items")
			if err != nil {
				return nil, err
			}
			if !domain.SumItems(items).Equal(spec.TotalAmount) {
				return nil, apperrors.NewValidationError(field+".items", "item totals add up to %s, not %s", domain.SumItems(items).StringFixed(2), spec.TotalAmount.StringFixed(2))
			}
			childItems[i] = items
		} else {
			childItems[i] = []domain.LineItem{syntheticItem(fmt.Sprintf("Split from %s", rec.TransactionID), spec.TotalAmount)}
		}
		sum = sum.Add(spec.TotalAmount)
	}
	if sum.GreaterThanOrEqual(rec.TotalAmount) {
		return nil, apperrors.NewValidationError("children", "split total %s must be less than the requisition total %s", sum.StringFixed(2), rec.TotalAmount.StringFixed(2))
	}

	children := make([]*domain.Requisition, 0, len(specs))
	for i, spec := range specs {
		child, err := e.newChild(rec, spec.Title, childItems[i], reason, actor, role)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	remainder := rec.TotalAmount.Sub(sum)
	parent := e.reduceParent(rec, []domain.LineItem{syntheticItem(remainingItemDescription, remainder)}, reason, actor, role)
	return &SplitResult{Children: children, Parent: parent}, nil
}

// SplitByItems moves each selected item (by index) into its own child record.
// The parent keeps the unselected items verbatim.
func (e *Engine) SplitByItems(rec *domain.Requisition, indices []int, actor string, role domain.ApproverRole) (*SplitResult, error) {
	if err := e.checkSplittable(rec, splitByItemsReason, actor, role); err != nil {
		return nil, err
	}
	if len(indices) == 0 {
		return nil, apperrors.NewValidationError("indices", "select at least one item")
	}
	selected := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(rec.Items) {
			return nil, apperrors.NewValidationError("indices", "item %d does not exist", idx)
		}
		if selected[idx] {
			return nil, apperrors.NewValidationError("indices", "item %d selected more than once", idx)
		}
		selected[idx] = true
	}
	if len(selected) == len(rec.Items) {
		return nil, apperrors.NewValidationError("indices", "at least one item must remain on the original requisition")
	}

	ordered := append([]int(nil), indices...)
	sort.Ints(ordered)

	children := make([]*domain.Requisition, 0, len(ordered))
	for _, idx := range ordered {
		item := rec.Items[idx]
		if !item.TotalPrice.IsPositive() {
			return nil, apperrors.NewValidationError(fmt.Sprintf("items[%d]", idx), "a zero-value item cannot be split off")
		}
		child, err := e.newChild(rec, item.Description, []domain.LineItem{item}, splitByItemsReason, actor, role)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	kept := make([]domain.LineItem, 0, len(rec.Items)-len(selected))
	for i, item := range rec.Items {
		if !selected[i] {
			kept = append(kept, item)
		}
	}
	if !domain.SumItems(kept).IsPositive() {
		return nil, apperrors.NewValidationError("indices", "the remaining items must keep a positive total")
	}

	parent := e.reduceParent(rec, kept, splitByItemsReason, actor, role)
	return &SplitResult{Children: children, Parent: parent}, nil
}

func (e *Engine) checkSplittable(rec *domain.Requisition, reason, actor string, role domain.ApproverRole) error {
	if !role.IsValid() {
		return apperrors.NewValidationError("role", "must be %s or %s", domain.ApproverHOD, domain.ApproverFinance)
	}
	if strings.TrimSpace(actor) == "" {
		return apperrors.NewValidationError("actor", "must not be empty")
	}
	if reason == "" {
		return apperrors.NewValidationError("reason", "is required")
	}
	if rec.IsTerminal() {
		return apperrors.NewInvalidStateError(rec.TransactionID, "a declined requisition cannot be split")
	}
	if rec.Status == domain.Approved {
		return apperrors.NewInvalidStateError(rec.TransactionID, "a fully approved requisition cannot be split")
	}
	return nil
}

func (e *Engine) newChild(parent *domain.Requisition, title string, items []domain.LineItem, reason, actor string, role domain.ApproverRole) (*domain.Requisition, error) {
	now := e.now()
	txnID, err := domain.NewTransactionID(now)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		title = parent.Title
	}
	origin := parent.TransactionID
	splitReason := reason
	child := &domain.Requisition{
		ID:                    uuid.NewString(),
		TransactionID:         txnID,
		Title:                 strings.TrimSpace(title),
		Justification:         parent.Justification,
		Currency:              parent.Currency,
		Items:                 append([]domain.LineItem(nil), items...),
		TotalAmount:           domain.SumItems(items),
		HODStatus:             domain.StatusPending,
		FinanceStatus:         domain.StatusPending,
		Status:                domain.PendingHODApproval,
		History:               []domain.HistoryEntry{},
		IsSplit:               true,
		OriginalTransactionID: &origin,
		SplitReason:           &splitReason,
		RequestedBy:           parent.RequestedBy,
		RequestedByDepartment: parent.RequestedByDepartment,
		RequesterName:         parent.RequesterName,
		RequesterEmail:        parent.RequesterEmail,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	return e.ledger.Append(child, domain.HistoryEntry{
		Action:   ActionSplitCreated,
		By:       actor,
		Role:     role,
		Comments: &splitReason,
	}), nil
}

func (e *Engine) reduceParent(rec *domain.Requisition, items []domain.LineItem, reason, actor string, role domain.ApproverRole) *domain.Requisition {
	out := e.ledger.Append(rec, domain.HistoryEntry{
		Action:   ActionSplitProcessed,
		By:       actor,
		Role:     role,
		Comments: &reason,
	})
	out.Items = items
	out.TotalAmount = domain.SumItems(items)
	out.IsSplit = true
	out.SplitReason = &reason
	out.Status = DeriveStatus(out.HODStatus, out.FinanceStatus)
	return out
}

func syntheticItem(description string, amount decimal.Decimal) domain.LineItem {
	return domain.LineItem{
		Description: description,
		Quantity:    1,
		UnitPrice:   amount,
		VAT:         domain.NoVAT,
		TotalPrice:  amount,
	}
}
