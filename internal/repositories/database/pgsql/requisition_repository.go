package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/SscSPs/oversight/internal/apperrors"
	"github.com/SscSPs/oversight/internal/core/domain"
	portsrepo "github.com/SscSPs/oversight/internal/core/ports/repositories"
	"github.com/SscSPs/oversight/internal/models"
	"github.com/SscSPs/oversight/internal/utils/mapping"
	"github.com/SscSPs/oversight/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const requisitionColumns = `id, transaction_id, title, justification, currency, items, total_amount,
	hod_status, finance_status, status, history, is_split, original_transaction_id, split_reason,
	requested_by, requested_by_department, requester_name, requester_email, version, created_at, updated_at`

// PgxRequisitionRepository stores requisitions in the purchase_requisitions table.
type PgxRequisitionRepository struct {
	BaseRepository
}

func newPgxRequisitionRepository(db *pgxpool.Pool) portsrepo.RequisitionRepositoryFacade {
	return &PgxRequisitionRepository{BaseRepository{Pool: db}}
}

var _ portsrepo.RequisitionRepositoryFacade = (*PgxRequisitionRepository)(nil)

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func scanRequisition(row pgx.Row) (domain.Requisition, error) {
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

func insertRequisition(ctx context.Context, db execer, rec *domain.Requisition) error {
	rec.Version = 1
	m, err := mapping.ToModelRequisition(rec)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO purchase_requisitions (` + requisitionColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21);
    `
	_, err = db.Exec(ctx, query,
		m.ID,
		m.TransactionID,
		m.Title,
		m.Justification,
		m.Currency,
		m.Items,
		m.TotalAmount,
		m.HODStatus,
		m.FinanceStatus,
		m.Status,
		m.History,
		m.IsSplit,
		m.OriginalTransactionID,
		m.SplitReason,
		m.RequestedBy,
		m.RequestedByDepartment,
		m.RequesterName,
		m.RequesterEmail,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("requisition %s already exists: %w", m.TransactionID, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert requisition %s: %w", m.TransactionID, err)
	}
	return nil
}

// updateRequisition replaces the mutable columns of rec when the stored version
// matches expectedVersion. On success rec.Version is bumped.
func (r *PgxRequisitionRepository) updateRequisition(ctx context.Context, db execer, rec *domain.Requisition, expectedVersion int64) error {
	m, err := mapping.ToModelRequisition(rec)
	if err != nil {
		return err
	}
	query := `
        UPDATE purchase_requisitions
        SET title = $1, justification = $2, currency = $3, items = $4, total_amount = $5,
            hod_status = $6, finance_status = $7, status = $8, history = $9, is_split = $10,
            original_transaction_id = $11, split_reason = $12, updated_at = $13, version = version + 1
        WHERE id = $14 AND version = $15;
    `
	cmdTag, err := db.Exec(ctx, query,
		m.Title,
		m.Justification,
		m.Currency,
		m.Items,
		m.TotalAmount,
		m.HODStatus,
		m.FinanceStatus,
		m.Status,
		m.History,
		m.IsSplit,
		m.OriginalTransactionID,
		m.SplitReason,
		m.UpdatedAt,
		m.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update requisition %s: %w", m.TransactionID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		var exists bool
		if err := r.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM purchase_requisitions WHERE id = $1)`, m.ID).Scan(&exists); err != nil {
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

func (r *PgxRequisitionRepository) SaveRequisition(ctx context.Context, rec *domain.Requisition) error {
	return insertRequisition(ctx, r.Pool, rec)
}

func (r *PgxRequisitionRepository) UpdateRequisition(ctx context.Context, rec *domain.Requisition, expectedVersion int64) error {
	return r.updateRequisition(ctx, r.Pool, rec, expectedVersion)
}

func (r *PgxRequisitionRepository) SaveSplit(ctx context.Context, parent *domain.Requisition, expectedVersion int64, children []*domain.Requisition) (err error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = r.Rollback(ctx, tx)
		}
	}()

	if err = r.updateRequisition(ctx, tx, parent, expectedVersion); err != nil {
		return err
	}
	for _, child := range children {
		if err = insertRequisition(ctx, tx, child); err != nil {
			return err
		}
	}
	return r.Commit(ctx, tx)
}

func (r *PgxRequisitionRepository) FindRequisitionByID(ctx context.Context, id string) (*domain.Requisition, error) {
	query := `SELECT ` + requisitionColumns + ` FROM purchase_requisitions WHERE id = $1;`
	rec, err := scanRequisition(r.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find requisition %s: %w", id, err)
	}
	return &rec, nil
}

// whereClause renders q as SQL conditions starting at placeholder $start.
func whereClause(q portsrepo.RequisitionQuery, start int) ([]string, []any) {
	var conds []string
	var args []any
	add := func(col string, val any) {
		conds = append(conds, col+" = $"+strconv.Itoa(start+len(args)))
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

func (r *PgxRequisitionRepository) queryRequisitions(ctx context.Context, query string, args ...any) ([]domain.Requisition, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
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
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating requisition rows: %w", rows.Err())
	}
	return recs, nil
}

func (r *PgxRequisitionRepository) FindRequisitions(ctx context.Context, q portsrepo.RequisitionQuery) ([]domain.Requisition, error) {
	conds, args := whereClause(q, 1)
	var sb strings.Builder
	sb.WriteString(`SELECT ` + requisitionColumns + ` FROM purchase_requisitions`)
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC;")
	return r.queryRequisitions(ctx, sb.String(), args...)
}

func (r *PgxRequisitionRepository) ListRequisitions(ctx context.Context, q portsrepo.RequisitionQuery, limit int, nextToken *string) ([]domain.Requisition, *string, error) {
	if limit <= 0 {
		limit = 20
	}

	conds, args := whereClause(q, 1)
	if nextToken != nil && *nextToken != "" {
		cursor, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewValidationError("nextToken", "invalid pagination token")
		}
		n := len(args)
		conds = append(conds, "(created_at, id) < ($"+strconv.Itoa(n+1)+", $"+strconv.Itoa(n+2)+")")
		args = append(args, cursor.CreatedAt, cursor.ID)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + requisitionColumns + ` FROM purchase_requisitions`)
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	// Fetch one extra row to know whether another page exists.
	sb.WriteString(" ORDER BY created_at DESC, id DESC LIMIT $" + strconv.Itoa(len(args)+1) + ";")
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
