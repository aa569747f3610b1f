package workflow_test

import (
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/oversight/internal/apperrors"
	"github.com/SscSPs/oversight/internal/core/domain"
	"github.com/SscSPs/oversight/internal/core/workflow"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steppingClock returns a clock that advances one minute per call.
func steppingClock() workflow.Clock {
	t := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func newRecord(t *testing.T, items ...domain.LineItemInput) *domain.Requisition {
	t.Helper()
	if len(items) == 0 {
		items = []domain.LineItemInput{{Description: "Monitor", Quantity: 2, UnitPrice: "100", VAT: domain.VATApplicable}}
	}
	rec, err := domain.NewRequisition(domain.NewRequisitionParams{
		Title:                 "Office equipment",
		Items:                 items,
		RequestedBy:           "emp-1",
		RequestedByDepartment: "IT",
		RequesterEmail:        "emp@example.com",
	})
	require.NoError(t, err)
	return rec
}

func recordWithTotal(t *testing.T, total string) *domain.Requisition {
	t.Helper()
	return newRecord(t, domain.LineItemInput{Description: "Bulk order", Quantity: 1, UnitPrice: total, VAT: domain.NoVAT})
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		hod, finance domain.ApprovalStatus
		want         domain.RequisitionStatus
	}{
		{domain.StatusPending, domain.StatusPending, domain.PendingHODApproval},
		{domain.StatusPending, domain.StatusApproved, domain.PendingHODApproval},
		{domain.StatusPending, domain.StatusDeclined, domain.Declined},
		{domain.StatusApproved, domain.StatusPending, domain.PendingFinanceApproval},
		{domain.StatusApproved, domain.StatusApproved, domain.Approved},
		{domain.StatusApproved, domain.StatusDeclined, domain.Declined},
		{domain.StatusDeclined, domain.StatusPending, domain.Declined},
		{domain.StatusDeclined, domain.StatusApproved, domain.Declined},
		{domain.StatusDeclined, domain.StatusDeclined, domain.Declined},
	}

	for _, tt := range tests {
		t.Run(string(tt.hod)+"/"+string(tt.finance), func(t *testing.T) {
			got := workflow.DeriveStatus(tt.hod, tt.finance)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, workflow.DeriveStatus(tt.hod, tt.finance), "must be deterministic")
		})
	}
}

func TestApplyDecision_HODApprove(t *testing.T) {
	engine := workflow.NewEngine(workflow.Options{Now: steppingClock()})
	rec := newRecord(t)

	out, err := engine.ApplyDecision(rec, domain.ApproverHOD, domain.DecisionApprove, "alice", "ok")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusApproved, out.HODStatus)
	assert.Equal(t, domain.StatusPending, out.FinanceStatus)
	assert.Equal(t, domain.PendingFinanceApproval, out.Status)
	require.Len(t, out.History, 1)
	assert.Equal(t, "HOD Approved", out.History[0].Action)
	assert.Equal(t, "alice", out.History[0].By)
	assert.Equal(t, domain.ApproverHOD, out.History[0].Role)
	assert.Equal(t, "ok", *out.History[0].Comments)

	// input untouched
	assert.Equal(t, domain.PendingHODApproval, rec.Status)
	assert.Empty(t, rec.History)
}

func TestApplyDecision_FinanceDeclineIsTerminal(t *testing.T) {
	engine := workflow.NewEngine(workflow.Options{Now: steppingClock()})
	rec := newRecord(t)

	rec, err := engine.ApplyDecision(rec, domain.ApproverHOD, domain.DecisionApprove, "alice", "ok")
	require.NoError(t, err)
	rec, err = engine.ApplyDecision(rec, domain.ApproverFinance, domain.DecisionDecline, "bob", "over budget")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusDeclined, rec.FinanceStatus)
	assert.Equal(t, domain.Declined, rec.Status)
	require.Len(t, rec.History, 2)
	assert.Equal(t, "Finance Declined", rec.History[1].Action)

	_, err = engine.ApplyDecision(rec, domain.ApproverFinance, domain.DecisionApprove, "bob", "changed my mind")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
	assert.Contains(t, err.Error(), rec.TransactionID)

	_, err = engine.ApplyDecision(rec, domain.ApproverHOD, domain.DecisionApprove, "alice", "again")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
}

func TestApplyDecision_HODDecline(t *testing.T) {
	engine := workflow.NewEngine(workflow.Options{})
	out, err := engine.ApplyDecision(newRecord(t), domain.ApproverHOD, domain.DecisionDecline, "alice", "not needed")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeclined, out.HODStatus)
	assert.Equal(t, domain.StatusPending, out.FinanceStatus)
	assert.Equal(t, domain.Declined, out.Status)
	assert.Equal(t, "HOD Declined", out.History[0].Action)
}

func TestApplyDecision_FullApproval(t *testing.T) {
	engine := workflow.NewEngine(workflow.Options{})
	rec, err := engine.ApplyDecision(newRecord(t), domain.ApproverHOD, domain.DecisionApprove, "alice", "ok")
	require.NoError(t, err)
	rec, err = engine.ApplyDecision(rec, domain.ApproverFinance, domain.DecisionApprove, "bob", "funded")
	require.NoError(t, err)
	assert.Equal(t, domain.Approved, rec.Status)

	_, err = engine.ApplyDecision(rec, domain.ApproverFinance, domain.DecisionApprove, "bob", "twice")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
}

func TestApplyDecision_FinanceAheadOfHOD(t *testing.T) {
	t.Run("permitted by default", func(t *testing.T) {
		engine := workflow.NewEngine(workflow.Options{})
		rec, err := engine.ApplyDecision(newRecord(t), domain.ApproverFinance, domain.DecisionApprove, "bob", "pre-approved")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusApproved, rec.FinanceStatus)
		assert.Equal(t, domain.PendingHODApproval, rec.Status)

		rec, err = engine.ApplyDecision(rec, domain.ApproverHOD, domain.DecisionApprove, "alice", "ok")
		require.NoError(t, err)
		assert.Equal(t, domain.Approved, rec.Status)
	})

	t.Run("rejected when HOD must go first", func(t *testing.T) {
		engine := workflow.NewEngine(workflow.Options{RequireHODFirst: true})
		_, err := engine.ApplyDecision(newRecord(t), domain.ApproverFinance, domain.DecisionApprove, "bob", "pre-approved")
		assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
	})
}

func TestApplyDecision_Validation(t *testing.T) {
	engine := workflow.NewEngine(workflow.Options{})
	rec := newRecord(t)

	tests := []struct {
		name      string
		role      domain.ApproverRole
		decision  domain.Decision
		actor     string
		comments  string
		wantField string
	}{
		{"blank comments", domain.ApproverHOD, domain.DecisionApprove, "alice", "   ", "comments"},
		{"unknown role", domain.ApproverRole("CEO"), domain.DecisionApprove, "alice", "ok", "role"},
		{"unknown decision", domain.ApproverHOD, domain.Decision("maybe"), "alice", "ok", "decision"},
		{"missing actor", domain.ApproverHOD, domain.DecisionApprove, "", "ok", "actor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := engine.ApplyDecision(rec, tt.role, tt.decision, tt.actor, tt.comments)
			assert.Nil(t, out)
			var ve *apperrors.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestApplyDecision_HistoryIsAppendOnly(t *testing.T) {
	engine := workflow.NewEngine(workflow.Options{Now: steppingClock()})
	steps := []struct {
		role     domain.ApproverRole
		decision domain.Decision
	}{
		{domain.ApproverFinance, domain.DecisionApprove},
		{domain.ApproverHOD, domain.DecisionApprove},
	}

	rec := newRecord(t)
	snapshots := []*domain.Requisition{rec}
	for _, s := range steps {
		next, err := engine.ApplyDecision(rec, s.role, s.decision, "actor", "note")
		require.NoError(t, err)
		snapshots = append(snapshots, next)
		rec = next
	}

	final := snapshots[len(snapshots)-1]
	require.Len(t, final.History, len(steps))
	for k, snap := range snapshots {
		require.Len(t, snap.History, k)
		assert.Equal(t, snap.History, final.History[:k], "history after %d decisions must prefix the final history", k)
	}
	for i := 1; i < len(final.History); i++ {
		assert.False(t, final.History[i].Timestamp.Before(final.History[i-1].Timestamp))
	}
}

func TestApplyDecision_PreservesTotals(t *testing.T) {
	engine := workflow.NewEngine(workflow.Options{})
	rec := newRecord(t)
	out, err := engine.ApplyDecision(rec, domain.ApproverHOD, domain.DecisionApprove, "alice", "ok")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("230").Equal(out.TotalAmount))
	assert.True(t, out.TotalsConsistent())
}
