package dto

import (
	"github.com/SscSPs/oversight/internal/core/domain"
	"github.com/SscSPs/oversight/internal/core/workflow"
	"github.com/shopspring/decimal"
)

// LineItemRequest is one submitted line item.
type LineItemRequest struct {
	Description string          `json:"description" binding:"required"`
	Quantity    int             `json:"quantity" binding:"required,min=1"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	VATClass    domain.VATClass `json:"vatClass" binding:"omitempty,vatclass"`
}

// CreateRequisitionRequest defines the data needed to submit a requisition.
type CreateRequisitionRequest struct {
	Title         string            `json:"title" binding:"required,max=200"`
	Justification string            `json:"justification" binding:"max=2000"`
	Currency      string            `json:"currency" binding:"omitempty,len=3"`
	Items         []LineItemRequest `json:"items" binding:"required,min=1,dive"`
}

// DecisionRequest records an approve/decline by the caller acting under Role.
type DecisionRequest struct {
	Role     domain.ApproverRole `json:"role" binding:"required,oneof=HOD Finance"`
	Decision domain.Decision     `json:"decision" binding:"required,oneof=approve decline"`
	Comments string              `json:"comments" binding:"required"`
	Version  int64               `json:"version" binding:"required,min=1"`
}

// SplitChildRequest describes one child of a dollar-amount split.
type SplitChildRequest struct {
	Title       string            `json:"title" binding:"max=200"`
	TotalAmount decimal.Decimal   `json:"totalAmount"`
	Items       []LineItemRequest `json:"items" binding:"omitempty,dive"`
}

// SplitRequisitionRequest carves child requisitions out of an existing one.
type SplitRequisitionRequest struct {
	Children []SplitChildRequest `json:"children" binding:"required,min=1,dive"`
	Reason   string              `json:"reason" binding:"required"`
	Version  int64               `json:"version" binding:"required,min=1"`
}

// SplitByItemsRequest moves the selected items (by index) into their own requisitions.
type SplitByItemsRequest struct {
	Indices []int `json:"indices" binding:"required,min=1"`
	Version int64 `json:"version" binding:"required,min=1"`
}

// ListRequisitionsParams defines query parameters for the finance/admin record list.
type ListRequisitionsParams struct {
	Limit       int     `form:"limit,default=20" binding:"min=1,max=100"`
	NextToken   *string `form:"nextToken"`
	Department  string  `form:"department"`
	RequestedBy string  `form:"requestedBy"`
	// Filter is an expression such as: totalAmount > 5000 && hodStatus == "Approved"
	Filter string `form:"filter"`
}

// ListRequisitionsResponse wraps one page of requisitions.
type ListRequisitionsResponse struct {
	Requisitions []domain.Requisition `json:"requisitions"`
	NextToken    *string              `json:"nextToken,omitempty"`
}

// SplitResponse returns the reduced parent together with the new children.
type SplitResponse struct {
	Parent   domain.Requisition   `json:"parent"`
	Children []domain.Requisition `json:"children"`
}

// ToLineItemInputs converts the request items into domain inputs.
func ToLineItemInputs(items []LineItemRequest) []domain.LineItemInput {
	inputs := make([]domain.LineItemInput, len(items))
	for i, it := range items {
		inputs[i] = domain.LineItemInput{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.String(),
			VAT:         it.VATClass,
		}
	}
	return inputs
}

// ToChildSpecs converts split children into workflow specs.
func (r SplitRequisitionRequest) ToChildSpecs() []workflow.ChildSpec {
	specs := make([]workflow.ChildSpec, len(r.Children))
	for i, c := range r.Children {
		specs[i] = workflow.ChildSpec{
			Title:       c.Title,
			TotalAmount: c.TotalAmount,
			Items:       ToLineItemInputs(c.Items),
		}
	}
	return specs
}

// ToSplitResponse converts a workflow split result.
func ToSplitResponse(res *workflow.SplitResult) SplitResponse {
	children := make([]domain.Requisition, len(res.Children))
	for i, c := range res.Children {
		children[i] = *c
	}
	return SplitResponse{Parent: *res.Parent, Children: children}
}
