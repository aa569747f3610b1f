package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Requisition is the persisted form of a purchase_requisitions row.
// Items and History hold JSON documents (JSONB in PostgreSQL, TEXT in SQLite).
type Requisition struct {
	ID                    string          `db:"id"`
	TransactionID         string          `db:"transaction_id"`
	Title                 string          `db:"title"`
	Justification         string          `db:"justification"`
	Currency              string          `db:"currency"`
	Items                 []byte          `db:"items"`
	TotalAmount           decimal.Decimal `db:"total_amount"`
	HODStatus             string          `db:"hod_status"`
	FinanceStatus         string          `db:"finance_status"`
	Status                string          `db:"status"`
	History               []byte          `db:"history"`
	IsSplit               bool            `db:"is_split"`
	OriginalTransactionID *string         `db:"original_transaction_id"`
	SplitReason           *string         `db:"split_reason"`
	RequestedBy           string          `db:"requested_by"`
	RequestedByDepartment string          `db:"requested_by_department"`
	RequesterName         string          `db:"requester_name"`
	RequesterEmail        string          `db:"requester_email"`
	Version               int64           `db:"version"`
	CreatedAt             time.Time       `db:"created_at"`
	UpdatedAt             time.Time       `db:"updated_at"`
}
