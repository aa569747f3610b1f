package workflow

import "github.com/SscSPs/oversight/internal/core/domain"

// OwnRecords returns the requisitions submitted by userID.
func OwnRecords(all []domain.Requisition, userID string) []domain.Requisition {
	return selectRecords(all, func(r *domain.Requisition) bool {
		return r.RequestedBy == userID
	})
}

// DepartmentPending returns the requisitions of department still awaiting an HOD decision.
// A record Finance has already declined stays listed while its HOD status is Pending.
func DepartmentPending(all []domain.Requisition, department string) []domain.Requisition {
	return selectRecords(all, func(r *domain.Requisition) bool {
		return r.RequestedByDepartment == department && r.HODStatus == domain.StatusPending
	})
}

// FinancePending returns the requisitions awaiting a Finance decision that are not declined.
// HOD approval is not required here; see Options.RequireHODFirst.
func FinancePending(all []domain.Requisition) []domain.Requisition {
	return selectRecords(all, func(r *domain.Requisition) bool {
		return r.FinanceStatus == domain.StatusPending && r.Status != domain.Declined
	})
}

// AllRecords returns every requisition, for Finance, Admin and SuperUser views.
func AllRecords(all []domain.Requisition) []domain.Requisition {
	return selectRecords(all, func(*domain.Requisition) bool { return true })
}

func selectRecords(all []domain.Requisition, keep func(*domain.Requisition) bool) []domain.Requisition {
	out := make([]domain.Requisition, 0, len(all))
	for i := range all {
		if keep(&all[i]) {
			out = append(out, *all[i].Clone())
		}
	}
	return out
}
