package workflow_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/SscSPs/oversight/internal/apperrors"
	"github.com/SscSPs/oversight/internal/core/domain"
	"github.com/SscSPs/oversight/internal/core/workflow"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() []domain.Requisition {
	mk := func(id, by, dept string, hod, fin domain.ApprovalStatus, total int64) domain.Requisition {
		return domain.Requisition{
			ID:                    id,
			TransactionID:         "PR-" + id,
			RequestedBy:           by,
			RequestedByDepartment: dept,
			HODStatus:             hod,
			FinanceStatus:         fin,
			Status:                workflow.DeriveStatus(hod, fin),
			TotalAmount:           decimal.NewFromInt(total),
			Currency:              "ZAR",
			History:               []domain.HistoryEntry{},
		}
	}
	return []domain.Requisition{
		mk("1", "emp-1", "IT", domain.StatusPending, domain.StatusPending, 100),
		mk("2", "emp-2", "IT", domain.StatusApproved, domain.StatusPending, 6000),
		mk("3", "emp-1", "HR", domain.StatusPending, domain.StatusPending, 7000),
		mk("4", "emp-3", "IT", domain.StatusDeclined, domain.StatusPending, 9000),
		mk("5", "emp-3", "HR", domain.StatusApproved, domain.StatusApproved, 50),
		mk("6", "emp-2", "IT", domain.StatusPending, domain.StatusDeclined, 300),
	}
}

func ids(records []domain.Requisition) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestViews(t *testing.T) {
	all := fixture()

	assert.Equal(t, []string{"1", "3"}, ids(workflow.OwnRecords(all, "emp-1")))
	assert.Empty(t, workflow.OwnRecords(all, "nobody"))
	assert.Equal(t, []string{"1", "6"}, ids(workflow.DepartmentPending(all, "IT")))
	assert.Equal(t, []string{"3"}, ids(workflow.DepartmentPending(all, "HR")))
	assert.Equal(t, []string{"1", "2", "3"}, ids(workflow.FinancePending(all)))
	assert.Len(t, workflow.AllRecords(all), len(all))
}

func TestViews_ReturnCopies(t *testing.T) {
	all := fixture()
	own := workflow.OwnRecords(all, "emp-1")
	require.NotEmpty(t, own)

	own[0].Title = "changed"
	own[0].History = append(own[0].History, domain.HistoryEntry{Action: "x"})

	assert.Empty(t, all[0].Title)
	assert.Empty(t, all[0].History)
}

func TestRecordFilter(t *testing.T) {
	all := fixture()
	f := workflow.NewRecordFilter()

	tests := []struct {
		expression string
		want       []string
	}{
		{`totalAmount > 5000 && hodStatus == "Approved" && department == "IT"`, []string{"2"}},
		{`status == "DECLINED"`, []string{"4", "6"}},
		{`requestedBy == "emp-1" || totalAmount < 60`, []string{"1", "3", "5"}},
		{`totalAmountFixed == "300.00"`, []string{"6"}},
		{`department in ["HR"]`, []string{"3", "5"}},
		{`isSplit`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			got, err := f.Filter(all, tt.expression)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestRecordFilter_Invalid(t *testing.T) {
	f := workflow.NewRecordFilter()

	for _, expression := range []string{"", "   ", "totalAmount >", "unknownField == 1", "totalAmount + 1"} {
		t.Run(expression, func(t *testing.T) {
			_, err := f.Filter(fixture(), expression)
			var ve *apperrors.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, "filter", ve.Field)
		})
	}
}

func TestRecordFilter_ReusesCompiledProgram(t *testing.T) {
	f := workflow.NewRecordFilter()
	all := fixture()

	first, err := f.Filter(all, `currency == "ZAR"`)
	require.NoError(t, err)
	second, err := f.Filter(all, `  currency == "ZAR"  `)
	require.NoError(t, err)
	assert.Equal(t, ids(first), ids(second))
	assert.Len(t, first, len(all))
	assert.Equal(t, 1, f.CachedPrograms())
}

func TestDepartmentPending_KeepsFinanceDeclined(t *testing.T) {
	engine := workflow.NewEngine(workflow.Options{})
	rec := newRecord(t, domain.LineItemInput{Description: "Desk", Quantity: 1, UnitPrice: "500"})
	rec.RequestedByDepartment = "IT"

	declined, err := engine.ApplyDecision(rec, domain.ApproverFinance, domain.DecisionDecline, "Femi", "over budget")
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, declined.HODStatus)
	require.Equal(t, domain.Declined, declined.Status)

	got := workflow.DepartmentPending([]domain.Requisition{*declined}, "IT")
	require.Len(t, got, 1)
	assert.Equal(t, declined.ID, got[0].ID)
	assert.Empty(t, workflow.FinancePending([]domain.Requisition{*declined}))
}

func TestRecordFilter_CacheIsBounded(t *testing.T) {
	f := workflow.NewRecordFilterWithSize(8)
	all := fixture()

	for i := 0; i < 500; i++ {
		_, err := f.Filter(all, fmt.Sprintf("totalAmount > %d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 8, f.CachedPrograms())

	got, err := f.Filter(all, "totalAmount > 6500")
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "4"}, ids(got))
	assert.Equal(t, 8, f.CachedPrograms())

	fallback := workflow.NewRecordFilterWithSize(0)
	for i := 0; i < workflow.DefaultFilterCacheSize+20; i++ {
		_, err := fallback.Filter(all, fmt.Sprintf("itemCount != %d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, workflow.DefaultFilterCacheSize, fallback.CachedPrograms())
}

func TestLedger_TimestampsNeverGoBackwards(t *testing.T) {
	times := []time.Time{
		time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 1, 11, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC),
	}
	i := 0
	ledger := workflow.NewLedger(func() time.Time {
		ts := times[i]
		i++
		return ts
	})

	rec := &domain.Requisition{History: []domain.HistoryEntry{}}
	comment := "note"
	for range times {
		rec = ledger.Append(rec, domain.HistoryEntry{Action: "step", Comments: &comment})
	}

	require.Len(t, rec.History, 3)
	assert.Equal(t, times[0], rec.History[0].Timestamp)
	assert.Equal(t, times[0], rec.History[1].Timestamp)
	assert.Equal(t, times[2], rec.History[2].Timestamp)
	assert.Equal(t, times[2], rec.UpdatedAt)

	comment = "mutated"
	assert.Equal(t, "note", *rec.History[0].Comments)
}
