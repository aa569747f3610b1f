package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// VATClass classifies a line item for tax purposes.
type VATClass string

const (
	VATApplicable VATClass = "VAT_APPLICABLE"
	NoVAT         VATClass = "NO_VAT"
)

// VATRate is the fixed VAT rate applied to VAT_APPLICABLE items.
var VATRate = decimal.NewFromFloat(0.15)

// IsValid reports whether c is a known VAT classification.
func (c VATClass) IsValid() bool {
	return c == VATApplicable || c == NoVAT
}

// ApprovalStatus is the per-role decision state.
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "Pending"
	StatusApproved ApprovalStatus = "Approved"
	StatusDeclined ApprovalStatus = "Declined"
)

// RequisitionStatus is the overall, derived status label of a requisition.
type RequisitionStatus string

const (
	PendingHODApproval     RequisitionStatus = "PENDING_HOD_APPROVAL"
	PendingFinanceApproval RequisitionStatus = "PENDING_FINANCE_APPROVAL"
	Approved               RequisitionStatus = "APPROVED"
	Declined               RequisitionStatus = "DECLINED"
	Split                  RequisitionStatus = "Split"
)

// ApproverRole is the role an approver acts under when deciding on a requisition.
type ApproverRole string

const (
	ApproverHOD     ApproverRole = "HOD"
	ApproverFinance ApproverRole = "Finance"
)

// IsValid reports whether r is a known approver role.
func (r ApproverRole) IsValid() bool {
	return r == ApproverHOD || r == ApproverFinance
}

// Decision is the verdict of an approver.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDecline Decision = "decline"
)

// IsValid reports whether d is a known decision.
func (d Decision) IsValid() bool {
	return d == DecisionApprove || d == DecisionDecline
}

// LineItem is one line of a purchase requisition.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	VAT         VATClass        `json:"vatClass"`
	TotalPrice  decimal.Decimal `json:"totalPrice"` // Derived, see ItemTotal
}

// HistoryEntry is one immutable entry of a requisition's audit trail.
type HistoryEntry struct {
	Action    string       `json:"action"`
	By        string       `json:"by"`
	Role      ApproverRole `json:"role"`
	Timestamp time.Time    `json:"timestamp"`
	Comments  *string      `json:"comments,omitempty"`
}

// Requisition is a purchase requisition and its approval state.
type Requisition struct {
	ID                    string            `json:"id"`
	TransactionID         string            `json:"transactionId"`
	Title                 string            `json:"title"`
	Justification         string            `json:"justification"`
	Currency              string            `json:"currency"`
	Items                 []LineItem        `json:"items"`
	TotalAmount           decimal.Decimal   `json:"totalAmount"`
	HODStatus             ApprovalStatus    `json:"hodStatus"`
	FinanceStatus         ApprovalStatus    `json:"financeStatus"`
	Status                RequisitionStatus `json:"status"`
	History               []HistoryEntry    `json:"history"`
	IsSplit               bool              `json:"isSplit"`
	OriginalTransactionID *string           `json:"originalTransactionId,omitempty"`
	SplitReason           *string           `json:"splitReason,omitempty"`
	RequestedBy           string            `json:"requestedBy"`
	RequestedByDepartment string            `json:"requestedByDepartment"`
	RequesterName         string            `json:"requesterName"`
	RequesterEmail        string            `json:"requesterEmail"`
	Version               int64             `json:"version"`
	CreatedAt             time.Time         `json:"createdAt"`
	UpdatedAt             time.Time         `json:"updatedAt"`
}

// Clone returns a deep copy of r. Slices and pointer fields are not shared.
func (r *Requisition) Clone() *Requisition {
	c := *r
	c.Items = append([]LineItem(nil), r.Items...)
	c.History = make([]HistoryEntry, len(r.History))
	for i, h := range r.History {
		c.History[i] = h
		if h.Comments != nil {
			comments := *h.Comments
			c.History[i].Comments = &comments
		}
	}
	if r.OriginalTransactionID != nil {
		v := *r.OriginalTransactionID
		c.OriginalTransactionID = &v
	}
	if r.SplitReason != nil {
		v := *r.SplitReason
		c.SplitReason = &v
	}
	return &c
}

// IsTerminal reports whether no further decision may be taken on r.
func (r *Requisition) IsTerminal() bool {
	return r.Status == Declined
}

// StatusFor returns the decision status owned by role.
func (r *Requisition) StatusFor(role ApproverRole) ApprovalStatus {
	if role == ApproverHOD {
		return r.HODStatus
	}
	return r.FinanceStatus
}
