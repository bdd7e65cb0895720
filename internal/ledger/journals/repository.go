package journals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tavola-erp/tavola-erp/internal/ledger/shared"
	"github.com/tavola-erp/tavola-erp/internal/platform/db"
)

// Repository encapsulates DB operations for journal entries.
type Repository interface {
	Get(ctx context.Context, tenantID, entryID int64) (JournalEntry, error)
	List(ctx context.Context, filter ListFilter) ([]JournalEntry, int, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction. Entry-number
// allocation and the header/line inserts must share one transaction so
// concurrent postings cannot observe or produce duplicate numbers.
type TxRepository interface {
	NextEntryNumber(ctx context.Context, tenantID int64, fiscalYear int) (int, error)
	InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error)
	InsertLines(ctx context.Context, entryID int64, lines []LineInput) ([]JournalLine, error)
	GetEntryForUpdate(ctx context.Context, tenantID, entryID int64) (JournalEntry, error)
	UpdateDraft(ctx context.Context, entry JournalEntry) error
	DeleteLines(ctx context.Context, entryID int64) error
	DeleteEntry(ctx context.Context, tenantID, entryID int64) error
	MarkPosted(ctx context.Context, entryID, approver int64, at time.Time) error
	MarkReversed(ctx context.Context, entryID, reverser int64, at time.Time, reason string) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entryColumns = `id, tenant_id, number, entry_date, description, reference, total_debit, total_credit, status, source_kind, source_id, created_by, approved_by, approved_at, reversed_by, reversed_at, reversal_reason, reversal_of_id, created_at, updated_at`

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.TenantID, &e.Number, &e.EntryDate, &e.Description, &e.Reference,
		&e.TotalDebit, &e.TotalCredit, &e.Status, &e.SourceKind, &e.SourceID, &e.CreatedBy,
		&e.ApprovedBy, &e.ApprovedAt, &e.ReversedBy, &e.ReversedAt, &e.ReversalReason,
		&e.ReversalOfID, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *repository) Get(ctx context.Context, tenantID, entryID int64) (JournalEntry, error) {
	entry, err := scanEntry(r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE tenant_id=$1 AND id=$2`, tenantID, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrEntryNotFound
		}
		return JournalEntry{}, err
	}
	lines, err := fetchLines(ctx, r.db, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func fetchLines(ctx context.Context, q querier, entryID int64) ([]JournalLine, error) {
	rows, err := q.Query(ctx, `SELECT id, entry_id, line_no, account_id, description, debit, credit, cost_center_id, project_code, created_at
FROM journal_lines WHERE entry_id=$1 ORDER BY line_no ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []JournalLine
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.LineNo, &line.AccountID, &line.Description,
			&line.Debit, &line.Credit, &line.CostCenterID, &line.ProjectCode, &line.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]JournalEntry, int, error) {
	where := []string{"je.tenant_id=$1"}
	args := []any{filter.TenantID}
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.DateFrom != nil {
		add("je.entry_date >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add("je.entry_date <= $%d", *filter.DateTo)
	}
	if filter.Status != nil {
		add("je.status = $%d", *filter.Status)
	}
	if filter.SourceKind != nil {
		add("je.source_kind = $%d", *filter.SourceKind)
	}
	if filter.AccountID != nil {
		add("EXISTS (SELECT 1 FROM journal_lines jl WHERE jl.entry_id = je.id AND jl.account_id = $%d)", *filter.AccountID)
	}
	if filter.CostCenterID != nil {
		add("EXISTS (SELECT 1 FROM journal_lines jl WHERE jl.entry_id = je.id AND jl.cost_center_id = $%d)", *filter.CostCenterID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		add("(je.number ILIKE $%[1]d OR je.description ILIKE $%[1]d OR COALESCE(je.reference,'') ILIKE $%[1]d)", "%"+search+"%")
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries je WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, perPage, (page-1)*perPage)
	query := fmt.Sprintf(`SELECT %s FROM journal_entries je WHERE %s ORDER BY je.entry_date DESC, je.number DESC LIMIT $%d OFFSET $%d`,
		entryColumns, clause, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

// NextEntryNumber increments the tenant+year counter row and returns the new
// sequence. The upsert takes a row lock, serialising concurrent allocations
// for the same namespace within their transactions.
func (r *txRepository) NextEntryNumber(ctx context.Context, tenantID int64, fiscalYear int) (int, error) {
	var seq int
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_counters (tenant_id, fiscal_year, last_seq)
VALUES ($1, $2, 1)
ON CONFLICT (tenant_id, fiscal_year) DO UPDATE SET last_seq = journal_counters.last_seq + 1
RETURNING last_seq`, tenantID, fiscalYear).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("ledger: allocate entry number: %w", err)
	}
	return seq, nil
}

func (r *txRepository) InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries
(tenant_id, number, entry_date, description, reference, total_debit, total_credit, status, source_kind, source_id, created_by, approved_by, approved_at, reversal_of_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
RETURNING `+entryColumns,
		entry.TenantID, entry.Number, entry.EntryDate, entry.Description, entry.Reference,
		entry.TotalDebit, entry.TotalCredit, entry.Status, entry.SourceKind, entry.SourceID,
		entry.CreatedBy, entry.ApprovedBy, entry.ApprovedAt, entry.ReversalOfID)
	return scanEntry(row)
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []LineInput) ([]JournalLine, error) {
	out := make([]JournalLine, 0, len(lines))
	for idx, line := range lines {
		var inserted JournalLine
		err := r.tx.QueryRow(ctx, `INSERT INTO journal_lines (entry_id, line_no, account_id, description, debit, credit, cost_center_id, project_code)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id, entry_id, line_no, account_id, description, debit, credit, cost_center_id, project_code, created_at`,
			entryID, idx+1, line.AccountID, line.Description, line.Debit, line.Credit, line.CostCenterID, line.ProjectCode).
			Scan(&inserted.ID, &inserted.EntryID, &inserted.LineNo, &inserted.AccountID, &inserted.Description,
				&inserted.Debit, &inserted.Credit, &inserted.CostCenterID, &inserted.ProjectCode, &inserted.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, inserted)
	}
	return out, nil
}

func (r *txRepository) GetEntryForUpdate(ctx context.Context, tenantID, entryID int64) (JournalEntry, error) {
	entry, err := scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE tenant_id=$1 AND id=$2 FOR UPDATE`, tenantID, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrEntryNotFound
		}
		return JournalEntry{}, err
	}
	lines, err := fetchLines(ctx, r.tx, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

func (r *txRepository) UpdateDraft(ctx context.Context, entry JournalEntry) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries
SET entry_date=$3, description=$4, reference=$5, total_debit=$6, total_credit=$7, updated_at=NOW()
WHERE tenant_id=$1 AND id=$2 AND status='DRAFT'`,
		entry.TenantID, entry.ID, entry.EntryDate, entry.Description, entry.Reference, entry.TotalDebit, entry.TotalCredit)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrEntryNotFound
	}
	return nil
}

func (r *txRepository) DeleteLines(ctx context.Context, entryID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM journal_lines WHERE entry_id=$1`, entryID)
	return err
}

func (r *txRepository) DeleteEntry(ctx context.Context, tenantID, entryID int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM journal_entries WHERE tenant_id=$1 AND id=$2 AND status='DRAFT'`, tenantID, entryID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrEntryNotFound
	}
	return nil
}

func (r *txRepository) MarkPosted(ctx context.Context, entryID, approver int64, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status='POSTED', approved_by=$2, approved_at=$3, updated_at=NOW() WHERE id=$1`, entryID, approver, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrEntryNotFound
	}
	return nil
}

func (r *txRepository) MarkReversed(ctx context.Context, entryID, reverser int64, at time.Time, reason string) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status='REVERSED', reversed_by=$2, reversed_at=$3, reversal_reason=$4, updated_at=NOW() WHERE id=$1`, entryID, reverser, at, reason)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrEntryNotFound
	}
	return nil
}
