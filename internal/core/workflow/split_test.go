package workflow_test

import (
	"errors"
	"testing"

	"github.com/SscSPs/oversight/internal/apperrors"
	"github.com/SscSPs/oversight/internal/core/domain"
	"github.com/SscSPs/oversight/internal/core/workflow"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amounts(values ...string) []workflow.ChildSpec {
	specs := make([]workflow.ChildSpec, len(values))
	for i, v := range values {
		specs[i] = workflow.ChildSpec{TotalAmount: decimal.RequireFromString(v)}
	}
	return specs
}

func TestSplit_TwoChildren(t *testing.T) {
	engine := workflow.NewEngine(workflow.Options{Now: steppingClock()})
	rec := recordWithTotal(t, "1000")

	res, err := engine.Split(rec, amounts("400", "400"), "two suppliers", "carol", domain.ApproverFinance)
	require.NoError(t, err)

	require.Len(t, res.Children, 2)
	for _, child := range res.Children {
		assert.True(t, decimal.NewFromInt(400).Equal(child.TotalAmount))
		assert.Equal(t, domain.PendingHODApproval, child.Status)
		assert.Equal(t, domain.StatusPending, child.HODStatus)
		assert.Equal(t, domain.StatusPending, child.FinanceStatus)
		assert.True(t, child.IsSplit)
		require.NotNil(t, child.OriginalTransactionID)
		assert.Equal(t, rec.TransactionID, *child.OriginalTransactionID)
		assert.NotEqual(t, rec.ID, child.ID)
		assert.NotEqual(t, rec.TransactionID, child.TransactionID)
		assert.Equal(t, rec.RequestedBy, child.RequestedBy)
		assert.Equal(t, rec.RequestedByDepartment, child.RequestedByDepartment)
		require.Len(t, child.History, 1)
		assert.Equal(t, workflow.ActionSplitCreated, child.History[0].Action)
		assert.Equal(t, "two suppliers", *child.History[0].Comments)
		assert.True(t, child.TotalsConsistent())
	}
	assert.NotEqual(t, res.Children[0].TransactionID, res.Children[1].TransactionID)

	parent := res.Parent
	assert.True(t, decimal.NewFromInt(200).Equal(parent.TotalAmount))
	assert.True(t, parent.IsSplit)
	require.NotNil(t, parent.SplitReason)
	assert.Equal(t, "two suppliers", *parent.SplitReason)
	require.Len(t, parent.Items, 1)
	assert.True(t, decimal.NewFromInt(200).Equal(parent.Items[0].TotalPrice))
	assert.True(t, parent.TotalsConsistent())
	require.Len(t, parent.History, 1)
	assert.Equal(t, workflow.ActionSplitProcessed, parent.History[0].Action)
	assert.Equal(t, domain.PendingHODApproval, parent.Status)

	// input untouched
	assert.True(t, decimal.NewFromInt(1000).Equal(rec.TotalAmount))
	assert.False(t, rec.IsSplit)
}

func TestSplit_RemainderInvariant(t *testing.T) {
	engine := workflow.NewEngine(workflow.Options{})

	tests := []struct {
		name     string
		children []string
		wantErr  bool
		wantLeft string
	}{
		{"equal to total", []string{"1000"}, true, ""},
		{"sums to total", []string{"600", "400"}, true, ""},
		{"over total", []string{"999", "2"}, true, ""},
		{"one cent left", []string{"999.99"}, false, "0.01"},
		{"three children", []string{"100", "200.50", "300"}, false, "399.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := recordWithTotal(t, "1000")
			res, err := engine.Split(rec, amounts(tt.children...), "reason", "carol", domain.ApproverHOD)
			if tt.wantErr {
				assert.Nil(t, res)
				assert.True(t, errors.Is(err, apperrors.ErrValidation))
				return
			}
			require.NoError(t, err)
			left := res.Parent.TotalAmount
			assert.True(t, decimal.RequireFromString(tt.wantLeft).Equal(left), "got %s", left)
			assert.True(t, left.IsPositive())

			sum := decimal.Zero
			for _, c := range res.Children {
				sum = sum.Add(c.TotalAmount)
			}
			assert.True(t, rec.TotalAmount.Sub(sum).Equal(left))
		})
	}
}

func TestSplit_Validation(t *testing.T) {
	engine := workflow.NewEngine(workflow.Options{})
	rec := recordWithTotal(t, "1000")

	tests := []struct {
		name      string
		specs     []workflow.ChildSpec
		reason    string
		wantField string
	}{
		{"no children", nil, "r", "children"},
		{"blank reason", amounts("10"), "  ", "reason"},
		{"zero child", amounts("0"), "r", "children[0].totalAmount"},
		{"negative child", amounts("100", "-5"), "r", "children[1].totalAmount"},
		{"sub-cent child", amounts("10.001"), "r", "children[0].totalAmount"},
		{
			"items not matching total",
			[]workflow.ChildSpec{{
				TotalAmount: decimal.NewFromInt(100),
				Items:       []domain.LineItemInput{{Description: "Cable", Quantity: 1, UnitPrice: "90"}},
			}},
			"r",
			"children[0].items",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := engine.Split(rec, tt.specs, tt.reason, "carol", domain.ApproverHOD)
			assert.Nil(t, res)
			var ve *apperrors.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestSplit_ChildWithItems(t *testing.T) {
	engine := workflow.NewEngine(workflow.Options{})
	rec := recordWithTotal(t, "1000")

	res, err := engine.Split(rec, []workflow.ChildSpec{{
		Title:       "Cables",
		TotalAmount: decimal.RequireFromString("115"),
		Items:       []domain.LineItemInput{{Description: "Cable", Quantity: 1, UnitPrice: "100", VAT: domain.VATApplicable}},
	}}, "separate supplier", "carol", domain.ApproverHOD)
	require.NoError(t, err)

	child := res.Children[0]
	assert.Equal(t, "Cables", child.Title)
	require.Len(t, child.Items, 1)
	assert.Equal(t, "Cable", child.Items[0].Description)
	assert.True(t, decimal.RequireFromString("885").Equal(res.Parent.TotalAmount))
}

func TestSplit_DeclinedRecordRejected(t *testing.T) {
	engine := workflow.NewEngine(workflow.Options{})
	rec, err := engine.ApplyDecision(recordWithTotal(t, "1000"), domain.ApproverHOD, domain.DecisionDecline, "alice", "no")
	require.NoError(t, err)

	_, err = engine.Split(rec, amounts("100"), "r", "carol", domain.ApproverFinance)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))

	_, err = engine.SplitByItems(rec, []int{0}, "carol", domain.ApproverFinance)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
}

func TestSplit_ParentKeepsDecisionState(t *testing.T) {
	engine := workflow.NewEngine(workflow.Options{})
	rec, err := engine.ApplyDecision(recordWithTotal(t, "1000"), domain.ApproverHOD, domain.DecisionApprove, "alice", "ok")
	require.NoError(t, err)

	res, err := engine.Split(rec, amounts("250"), "r", "carol", domain.ApproverFinance)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, res.Parent.HODStatus)
	assert.Equal(t, domain.PendingFinanceApproval, res.Parent.Status)
	require.Len(t, res.Parent.History, 2)

	approved, err := engine.ApplyDecision(res.Parent, domain.ApproverFinance, domain.DecisionApprove, "bob", "ok")
	require.NoError(t, err)
	assert.Equal(t, domain.Approved, approved.Status)
	assert.True(t, decimal.NewFromInt(750).Equal(approved.TotalAmount))
}

func TestSplitByItems(t *testing.T) {
	engine := workflow.NewEngine(workflow.Options{Now: steppingClock()})
	rec := newRecord(t,
		domain.LineItemInput{Description: "Laptop", Quantity: 1, UnitPrice: "1000", VAT: domain.VATApplicable},
		domain.LineItemInput{Description: "Mouse", Quantity: 2, UnitPrice: "10", VAT: domain.NoVAT},
		domain.LineItemInput{Description: "Desk", Quantity: 1, UnitPrice: "500", VAT: domain.NoVAT},
	)

	res, err := engine.SplitByItems(rec, []int{2, 0}, "carol", domain.ApproverHOD)
	require.NoError(t, err)

	require.Len(t, res.Children, 2)
	assert.Equal(t, "Laptop", res.Children[0].Items[0].Description)
	assert.True(t, decimal.RequireFromString("1150").Equal(res.Children[0].TotalAmount))
	assert.Equal(t, "Desk", res.Children[1].Items[0].Description)
	assert.True(t, decimal.RequireFromString("500").Equal(res.Children[1].TotalAmount))
	for _, c := range res.Children {
		assert.Equal(t, domain.PendingHODApproval, c.Status)
		assert.Equal(t, rec.TransactionID, *c.OriginalTransactionID)
		assert.Equal(t, workflow.ActionSplitCreated, c.History[0].Action)
	}

	parent := res.Parent
	require.Len(t, parent.Items, 1)
	assert.Equal(t, rec.Items[1], parent.Items[0], "unselected items are kept verbatim")
	assert.True(t, decimal.RequireFromString("20").Equal(parent.TotalAmount))
	assert.True(t, parent.IsSplit)
	assert.Equal(t, workflow.ActionSplitProcessed, parent.History[0].Action)
}

func TestSplitByItems_Validation(t *testing.T) {
	engine := workflow.NewEngine(workflow.Options{})
	rec := newRecord(t,
		domain.LineItemInput{Description: "A", Quantity: 1, UnitPrice: "10"},
		domain.LineItemInput{Description: "B", Quantity: 1, UnitPrice: "0"},
		domain.LineItemInput{Description: "C", Quantity: 1, UnitPrice: "5"},
	)

	tests := []struct {
		name    string
		indices []int
	}{
		{"empty selection", nil},
		{"out of range", []int{3}},
		{"negative index", []int{-1}},
		{"duplicate index", []int{0, 0}},
		{"every item selected", []int{0, 1, 2}},
		{"zero value item", []int{1}},
		{"remainder would be zero", []int{0, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := engine.SplitByItems(rec, tt.indices, "carol", domain.ApproverHOD)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, apperrors.ErrValidation), "got %v", err)
		})
	}
}
