package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/SscSPs/oversight/internal/apperrors"
	"github.com/SscSPs/oversight/internal/core/domain"
	portsrepo "github.com/SscSPs/oversight/internal/core/ports/repositories"
	"github.com/SscSPs/oversight/internal/models"
	"github.com/SscSPs/oversight/internal/utils/mapping"
	"github.com/SscSPs/oversight/internal/utils/pagination"
)

const requisitionColumns = `id, transaction_id, title, justification, currency, items, total_amount,
	hod_status, finance_status, status, history, is_split, original_transaction_id, split_reason,
	requested_by, requested_by_department, requester_name, requester_email, version, created_at, updated_at`

// RequisitionRepository stores requisitions in SQLite with items and history as JSON text.
type RequisitionRepository struct {
	BaseRepository
}

func NewRequisitionRepository(db *sql.DB) *RequisitionRepository {
	return &RequisitionRepository{BaseRepository{DB: db}}
}

var _ portsrepo.RequisitionRepositoryFacade = (*RequisitionRepository)(nil)

func scanRequisition(row rowScanner) (domain.Requisition, error) {
	var m models.Requisition
	err := row.Scan(
		&m.ID,
		&m.TransactionID,
		&m.Title,
		&m.Justification,
		&m.Currency,
		&m.Items,
		&m.TotalAmount,
		&m.HODStatus,
		&m.FinanceStatus,
		&m.Status,
		&m.History,
		&m.IsSplit,
		&m.OriginalTransactionID,
		&m.SplitReason,
		&m.RequestedBy,
		&m.RequestedByDepartment,
		&m.RequesterName,
		&m.RequesterEmail,
		&m.Version,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return domain.Requisition{}, err
	}
	return mapping.ToDomainRequisition(m)
}

func insertRequisition(ctx context.Context, db querier, rec *domain.Requisition) error {
	rec.Version = 1
	m, err := mapping.ToModelRequisition(rec)
	if err != nil {
		return err
	}
	query := `INSERT INTO purchase_requisitions (` + requisitionColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
	_, err = db.ExecContext(ctx, query,
		m.ID,
		m.TransactionID,
		m.Title,
		m.Justification,
		m.Currency,
		string(m.Items),
		m.TotalAmount.StringFixed(2),
		m.HODStatus,
		m.FinanceStatus,
		m.Status,
		string(m.History),
		m.IsSplit,
		m.OriginalTransactionID,
		m.SplitReason,
		m.RequestedBy,
		m.RequestedByDepartment,
		m.RequesterName,
		m.RequesterEmail,
		m.Version,
		utc(m.CreatedAt),
		utc(m.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("requisition %s already exists: %w", m.TransactionID, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert requisition %s: %w", m.TransactionID, err)
	}
	return nil
}

func updateRequisition(ctx context.Context, db querier, rec *domain.Requisition, expectedVersion int64) error {
	m, err := mapping.ToModelRequisition(rec)
	if err != nil {
		return err
	}
	query := `
        UPDATE purchase_requisitions
        SET title = ?, justification = ?, currency = ?, items = ?, total_amount = ?,
            hod_status = ?, finance_status = ?, status = ?, history = ?, is_split = ?,
            original_transaction_id = ?, split_reason = ?, updated_at = ?, version = version + 1
        WHERE id = ? AND version = ?;
    `
	res, err := db.ExecContext(ctx, query,
		m.Title,
		m.Justification,
		m.Currency,
		string(m.Items),
		m.TotalAmount.StringFixed(2),
		m.HODStatus,
		m.FinanceStatus,
		m.Status,
		string(m.History),
		m.IsSplit,
		m.OriginalTransactionID,
		m.SplitReason,
		utc(m.UpdatedAt),
		m.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update requisition %s: %w", m.TransactionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		var exists bool
		err := db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM purchase_requisitions WHERE id = ?)`, m.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check requisition %s: %w", m.TransactionID, err)
		}
		if !exists {
			return apperrors.ErrNotFound
		}
		return &apperrors.ConflictError{TransactionID: m.TransactionID, ExpectedVersion: expectedVersion}
	}
	rec.Version = expectedVersion + 1
	return nil
}

func (r *RequisitionRepository) SaveRequisition(ctx context.Context, rec *domain.Requisition) error {
	return insertRequisition(ctx, r.DB, rec)
}

func (r *RequisitionRepository) UpdateRequisition(ctx context.Context, rec *domain.Requisition, expectedVersion int64) error {
	return updateRequisition(ctx, r.DB, rec, expectedVersion)
}

func (r *RequisitionRepository) SaveSplit(ctx context.Context, parent *domain.Requisition, expectedVersion int64, children []*domain.Requisition) (err error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = r.Rollback(tx)
		}
	}()

	if err = updateRequisition(ctx, tx, parent, expectedVersion); err != nil {
		return err
	}
	for _, child := range children {
		if err = insertRequisition(ctx, tx, child); err != nil {
			return err
		}
	}
	return r.Commit(tx)
}

func (r *RequisitionRepository) FindRequisitionByID(ctx context.Context, id string) (*domain.Requisition, error) {
	query := `SELECT ` + requisitionColumns + ` FROM purchase_requisitions WHERE id = ?;`
	rec, err := scanRequisition(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find requisition %s: %w", id, err)
	}
	return &rec, nil
}

func whereClause(q portsrepo.RequisitionQuery) ([]string, []any) {
	var conds []string
	var args []any
	add := func(col string, val any) {
		conds = append(conds, col+" = ?")
		args = append(args, val)
	}
	if q.RequestedBy != "" {
		add("requested_by", q.RequestedBy)
	}
	if q.Department != "" {
		add("requested_by_department", q.Department)
	}
	if q.HODStatus != "" {
		add("hod_status", string(q.HODStatus))
	}
	if q.FinanceStatus != "" {
		add("finance_status", string(q.FinanceStatus))
	}
	return conds, args
}

func (r *RequisitionRepository) queryRequisitions(ctx context.Context, query string, args ...any) ([]domain.Requisition, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requisitions: %w", err)
	}
	defer rows.Close()

	recs := []domain.Requisition{}
	for rows.Next() {
		rec, err := scanRequisition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan requisition row: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating requisition rows: %w", err)
	}
	return recs, nil
}

func (r *RequisitionRepository) FindRequisitions(ctx context.Context, q portsrepo.RequisitionQuery) ([]domain.Requisition, error) {
	conds, args := whereClause(q)
	var sb strings.Builder
	sb.WriteString(`SELECT ` + requisitionColumns + ` FROM purchase_requisitions`)
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC;")
	return r.queryRequisitions(ctx, sb.String(), args...)
}

func (r *RequisitionRepository) ListRequisitions(ctx context.Context, q portsrepo.RequisitionQuery, limit int, nextToken *string) ([]domain.Requisition, *string, error) {
	if limit <= 0 {
		limit = 20
	}

	conds, args := whereClause(q)
	if nextToken != nil && *nextToken != "" {
		cursor, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewValidationError("nextToken", "invalid pagination token")
		}
		conds = append(conds, "(created_at, id) < (?, ?)")
		args = append(args, utc(cursor.CreatedAt), cursor.ID)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + requisitionColumns + ` FROM purchase_requisitions`)
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC LIMIT ?;")
	args = append(args, limit+1)

	recs, err := r.queryRequisitions(ctx, sb.String(), args...)
	if err != nil {
		return nil, nil, err
	}

	var newNextToken *string
	if len(recs) > limit {
		recs = recs[:limit]
		last := recs[limit-1]
		token := pagination.EncodeToken(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		newNextToken = &token
	}
	return recs, newNextToken, nil
}
