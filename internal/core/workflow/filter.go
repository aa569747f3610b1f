package workflow

import (
	"strings"

	"github.com/SscSPs/oversight/internal/apperrors"
	"github.com/SscSPs/oversight/internal/core/domain"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultFilterCacheSize bounds the number of compiled expressions kept by NewRecordFilter.
const DefaultFilterCacheSize = 256

// RecordFilter evaluates boolean expressions such as
//
//	totalAmount > 5000 && hodStatus == "Approved" && department == "IT"
//
// against requisitions. Compiled programs are kept in an LRU cache, so callers
// sending many distinct expressions only evict older ones.
type RecordFilter struct {
	cache *lru.Cache[string, *vm.Program]
}

// NewRecordFilter creates a RecordFilter holding up to DefaultFilterCacheSize programs.
func NewRecordFilter() *RecordFilter {
	return NewRecordFilterWithSize(DefaultFilterCacheSize)
}

// NewRecordFilterWithSize creates a RecordFilter holding up to size programs.
// A size below one falls back to DefaultFilterCacheSize.
func NewRecordFilterWithSize(size int) *RecordFilter {
	if size < 1 {
		size = DefaultFilterCacheSize
	}
	cache, err := lru.New[string, *vm.Program](size)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	return &RecordFilter{cache: cache}
}

// CachedPrograms reports how many compiled expressions are currently cached.
func (f *RecordFilter) CachedPrograms() int {
	return f.cache.Len()
}

// FilterEnv is the flat view of a requisition exposed to filter expressions.
func FilterEnv(r *domain.Requisition) map[string]any {
	// totalAmount is a float64 approximation; totalAmountFixed is exact to the cent.
	total := r.TotalAmount.InexactFloat64()
	return map[string]any{
		"id":                    r.ID,
		"transactionId":         r.TransactionID,
		"title":                 r.Title,
		"totalAmount":           total,
		"totalAmountFixed":      r.TotalAmount.StringFixed(2),
		"hodStatus":             string(r.HODStatus),
		"financeStatus":         string(r.FinanceStatus),
		"status":                string(r.Status),
		"requestedBy":           r.RequestedBy,
		"department":            r.RequestedByDepartment,
		"isSplit":               r.IsSplit,
		"itemCount":             len(r.Items),
		"historyCount":          len(r.History),
		"currency":              r.Currency,
		"originalTransactionId": derefString(r.OriginalTransactionID),
	}
}

// Filter returns the records for which expression evaluates to true.
func (f *RecordFilter) Filter(all []domain.Requisition, expression string) ([]domain.Requisition, error) {
	program, err := f.compile(expression)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Requisition, 0)
	for i := range all {
		result, err := expr.Run(program, FilterEnv(&all[i]))
		if err != nil {
			return nil, apperrors.NewValidationError("filter", "could not be evaluated: %v", err)
		}
		if keep, _ := result.(bool); keep {
			out = append(out, *all[i].Clone())
		}
	}
	return out, nil
}

func (f *RecordFilter) compile(expression string) (*vm.Program, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, apperrors.NewValidationError("filter", "must not be empty")
	}

	if program, ok := f.cache.Get(expression); ok {
		return program, nil
	}
	program, err := expr.Compile(expression, expr.Env(FilterEnv(&domain.Requisition{})), expr.AsBool())
	if err != nil {
		return nil, apperrors.NewValidationError("filter", "is not a valid expression: %v", err)
	}
	f.cache.Add(expression, program)
	return program, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
