// Package workflow holds the purchase-requisition approval rules: status
// derivation, approve/decline transitions, splits, the history ledger and the
// role-scoped read views. Everything here is pure; persistence and
// notification belong to the callers.
package workflow

import (
	"time"

	"github.com/SscSPs/oversight/internal/core/domain"
)

// Clock returns the current time.
type Clock func() time.Time

// Ledger appends history entries. It owns the timestamp of every entry it appends.
type Ledger struct {
	now Clock
}

// NewLedger creates a Ledger using now as its clock; nil means time.Now in UTC.
func NewLedger(now Clock) *Ledger {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Ledger{now: now}
}

// Append returns a copy of rec with entry appended. The entry timestamp is
// assigned here and never precedes the previous entry's timestamp.
func (l *Ledger) Append(rec *domain.Requisition, entry domain.HistoryEntry) *domain.Requisition {
	out := rec.Clone()
	ts := l.now()
	if n := len(out.History); n > 0 && ts.Before(out.History[n-1].Timestamp) {
		ts = out.History[n-1].Timestamp
	}
	entry.Timestamp = ts
	if entry.Comments != nil {
		c := *entry.Comments
		entry.Comments = &c
	}
	out.History = append(out.History, entry)
	out.UpdatedAt = ts
	return out
}
