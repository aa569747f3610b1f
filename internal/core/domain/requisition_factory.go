package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/SscSPs/oversight/internal/apperrors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a submission names no currency.
const DefaultCurrency = "ZAR"

// totalsEpsilon is the tolerance used when comparing a total against the sum of its items.
var totalsEpsilon = decimal.NewFromFloat(0.005)

const (
	transactionIDPrefix   = "PR"
	transactionIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	transactionIDSuffix   = 6
)

// LineItemInput is the raw, unvalidated form of a line item.
type LineItemInput struct {
	Description string   `json:"description"`
	Quantity    int      `json:"quantity"`
	UnitPrice   string   `json:"unitPrice"`
	VAT         VATClass `json:"vatClass"`
}

// NewRequisitionParams carries everything needed to submit a requisition.
type NewRequisitionParams struct {
	Title                 string
	Justification         string
	Currency              string
	Items                 []LineItemInput
	RequestedBy           string
	RequestedByDepartment string
	RequesterName         string
	RequesterEmail        string
	Now                   time.Time
}

// ItemTotal returns quantity × unitPrice, with VAT applied when applicable, rounded to 2 decimals.
func ItemTotal(quantity int, unitPrice decimal.Decimal, vat VATClass) decimal.Decimal {
	total := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	if vat == VATApplicable {
		total = total.Mul(decimal.NewFromInt(1).Add(VATRate))
	}
	return total.Round(2)
}

// SumItems returns the sum of the items' total prices.
func SumItems(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.TotalPrice)
	}
	return sum
}

// TotalsConsistent reports whether r.TotalAmount equals the sum of its items within half a cent.
func (r *Requisition) TotalsConsistent() bool {
	return r.TotalAmount.Sub(SumItems(r.Items)).Abs().LessThan(totalsEpsilon)
}

// BuildLineItems validates inputs and derives their totals. It fails on the
// first offending field and returns no items in that case.
func BuildLineItems(inputs []LineItemInput, fieldPrefix string) ([]LineItem, error) {
	if len(inputs) == 0 {
		return nil, apperrors.NewValidationError(fieldPrefix, "at least one item is required")
	}
	items := make([]LineItem, 0, len(inputs))
	for i, in := range inputs {
		item, err := BuildLineItem(in, fmt.Sprintf("%s[%d]", fieldPrefix, i))
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// BuildLineItem validates a single input line.
func BuildLineItem(in LineItemInput, field string) (LineItem, error) {
	if strings.TrimSpace(in.Description) == "" {
		return LineItem{}, apperrors.NewValidationError(field+".description", "must not be empty")
	}
	if in.Quantity < 1 {
		return LineItem{}, apperrors.NewValidationError(field+".quantity", "must be at least 1")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(in.UnitPrice))
	if err != nil {
		return LineItem{}, apperrors.NewValidationError(field+".unitPrice", "must be a number")
	}
	if price.IsNegative() {
		return LineItem{}, apperrors.NewValidationError(field+".unitPrice", "must not be negative")
	}
	vat := in.VAT
	if vat == "" {
		vat = NoVAT
	}
	if !vat.IsValid() {
		return LineItem{}, apperrors.NewValidationError(field+".vatClass", "must be %s or %s", VATApplicable, NoVAT)
	}
	return LineItem{
		Description: strings.TrimSpace(in.Description),
		Quantity:    in.Quantity,
		UnitPrice:   price,
		VAT:         vat,
		TotalPrice:  ItemTotal(in.Quantity, price, vat),
	}, nil
}

// NewRequisition validates p and builds a fresh requisition awaiting HOD approval.
func NewRequisition(p NewRequisitionParams) (*Requisition, error) {
	if strings.TrimSpace(p.RequestedBy) == "" {
		return nil, apperrors.NewValidationError("requestedBy", "must not be empty")
	}
	items, err := BuildLineItems(p.Items, "items")
	if err != nil {
		return nil, err
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	txnID, err := NewTransactionID(now)
	if err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Requisition{
		ID:                    uuid.NewString(),
		TransactionID:         txnID,
		Title:                 strings.TrimSpace(p.Title),
		Justification:         strings.TrimSpace(p.Justification),
		Currency:              currency,
		Items:                 items,
		TotalAmount:           SumItems(items),
		HODStatus:             StatusPending,
		FinanceStatus:         StatusPending,
		Status:                PendingHODApproval,
		History:               []HistoryEntry{},
		RequestedBy:           p.RequestedBy,
		RequestedByDepartment: p.RequestedByDepartment,
		RequesterName:         p.RequesterName,
		RequesterEmail:        p.RequesterEmail,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

// NewTransactionID returns a human-readable reference: PR-<yyyymmddHHMMSS>-<6 random chars>.
func NewTransactionID(now time.Time) (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(transactionIDAlphabet)))
	for i := 0; i < transactionIDSuffix; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate transaction id: %w", err)
		}
		sb.WriteByte(transactionIDAlphabet[n.Int64()])
	}
	return fmt.Sprintf("%s-%s-%s", transactionIDPrefix, now.UTC().Format("20060102150405"), sb.String()), nil
}
