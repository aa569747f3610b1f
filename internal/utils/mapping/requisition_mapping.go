package mapping

import (
	"encoding/json"
	"fmt"

	"github.com/SscSPs/oversight/internal/core/domain"
	"github.com/SscSPs/oversight/internal/core/workflow"
	"github.com/SscSPs/oversight/internal/models"
)

// ToModelRequisition converts a domain Requisition to its row form, encoding items and history as JSON.
func ToModelRequisition(d *domain.Requisition) (models.Requisition, error) {
	items := d.Items
	if items == nil {
		items = []domain.LineItem{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return models.Requisition{}, fmt.Errorf("failed to encode items of %s: %w", d.TransactionID, err)
	}
	history := d.History
	if history == nil {
		history = []domain.HistoryEntry{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return models.Requisition{}, fmt.Errorf("failed to encode history of %s: %w", d.TransactionID, err)
	}
	return models.Requisition{
		ID:                    d.ID,
		TransactionID:         d.TransactionID,
		Title:                 d.Title,
		Justification:         d.Justification,
		Currency:              d.Currency,
		Items:                 itemsJSON,
		TotalAmount:           d.TotalAmount,
		HODStatus:             string(d.HODStatus),
		FinanceStatus:         string(d.FinanceStatus),
		Status:                string(d.Status),
		History:               historyJSON,
		IsSplit:               d.IsSplit,
		OriginalTransactionID: d.OriginalTransactionID,
		SplitReason:           d.SplitReason,
		RequestedBy:           d.RequestedBy,
		RequestedByDepartment: d.RequestedByDepartment,
		RequesterName:         d.RequesterName,
		RequesterEmail:        d.RequesterEmail,
		Version:               d.Version,
		CreatedAt:             d.CreatedAt,
		UpdatedAt:             d.UpdatedAt,
	}, nil
}

// ToDomainRequisition converts a row into a domain Requisition. Rows stored
// with the legacy "Split" status get their status re-derived from the
// approval pair.
func ToDomainRequisition(m models.Requisition) (domain.Requisition, error) {
	d := domain.Requisition{
		ID:                    m.ID,
		TransactionID:         m.TransactionID,
		Title:                 m.Title,
		Justification:         m.Justification,
		Currency:              m.Currency,
		Items:                 []domain.LineItem{},
		TotalAmount:           m.TotalAmount,
		HODStatus:             domain.ApprovalStatus(m.HODStatus),
		FinanceStatus:         domain.ApprovalStatus(m.FinanceStatus),
		Status:                domain.RequisitionStatus(m.Status),
		History:               []domain.HistoryEntry{},
		IsSplit:               m.IsSplit,
		OriginalTransactionID: m.OriginalTransactionID,
		SplitReason:           m.SplitReason,
		RequestedBy:           m.RequestedBy,
		RequestedByDepartment: m.RequestedByDepartment,
		RequesterName:         m.RequesterName,
		RequesterEmail:        m.RequesterEmail,
		Version:               m.Version,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
	if len(m.Items) > 0 {
		if err := json.Unmarshal(m.Items, &d.Items); err != nil {
			return domain.Requisition{}, fmt.Errorf("failed to decode items of %s: %w", m.TransactionID, err)
		}
	}
	if len(m.History) > 0 {
		if err := json.Unmarshal(m.History, &d.History); err != nil {
			return domain.Requisition{}, fmt.Errorf("failed to decode history of %s: %w", m.TransactionID, err)
		}
	}
	if d.Status == domain.Split {
		d.Status = workflow.DeriveStatus(d.HODStatus, d.FinanceStatus)
	}
	return d, nil
}

// ToDomainRequisitionSlice converts rows into domain requisitions.
func ToDomainRequisitionSlice(ms []models.Requisition) ([]domain.Requisition, error) {
	ds := make([]domain.Requisition, 0, len(ms))
	for _, m := range ms {
		d, err := ToDomainRequisition(m)
		if err != nil {
			return nil, err
		}
		ds = append(ds, d)
	}
	return ds, nil
}
