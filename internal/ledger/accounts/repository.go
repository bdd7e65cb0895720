package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tavola-erp/tavola-erp/internal/ledger/shared"
)

// Repository encapsulates DB operations for the chart of accounts.
type Repository interface {
	Create(ctx context.Context, a Account) (Account, error)
	Get(ctx context.Context, tenantID, id int64) (Account, error)
	List(ctx context.Context, tenantID int64, class *AccountClass) ([]Account, error)
	UpdateDetails(ctx context.Context, tenantID, id int64, name string, nameAlt, description *string) error
	SetParent(ctx context.Context, tenantID, id int64, parentID *int64, level int) error
	SetLevel(ctx context.Context, tenantID, id int64, level int) error
	Deactivate(ctx context.Context, tenantID, id int64) error
	HasTransactions(ctx context.Context, tenantID, id int64) (bool, error)
	Activity(ctx context.Context, tenantID int64, asOf *time.Time) ([]ActivityRow, error)
	AccountActivity(ctx context.Context, tenantID, id int64, asOf *time.Time) (ActivityRow, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, tenant_id, code, name, name_alt, description, class, normal_balance, parent_id, level, is_active, is_system, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.NameAlt, &a.Description, &a.Class, &a.NormalBalance, &a.ParentID, &a.Level, &a.IsActive, &a.IsSystem, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *repository) Create(ctx context.Context, a Account) (Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO accounts (tenant_id, code, name, name_alt, description, class, normal_balance, parent_id, level, is_active, is_system)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,TRUE,$10)
RETURNING `+accountColumns,
		a.TenantID, a.Code, a.Name, a.NameAlt, a.Description, a.Class, a.NormalBalance, a.ParentID, a.Level, a.IsSystem)
	created, err := scanAccount(row)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return Account{}, shared.ErrDuplicateCode
		}
		return Account{}, err
	}
	return created, nil
}

func (r *repository) Get(ctx context.Context, tenantID, id int64) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) List(ctx context.Context, tenantID int64, class *AccountClass) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE tenant_id=$1`
	args := []any{tenantID}
	if class != nil {
		query += ` AND class=$2`
		args = append(args, *class)
	}
	query += ` ORDER BY code`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) UpdateDetails(ctx context.Context, tenantID, id int64, name string, nameAlt, description *string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET name=$3, name_alt=$4, description=$5, updated_at=NOW() WHERE tenant_id=$1 AND id=$2`,
		tenantID, id, name, nameAlt, description)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func (r *repository) SetParent(ctx context.Context, tenantID, id int64, parentID *int64, level int) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET parent_id=$3, level=$4, updated_at=NOW() WHERE tenant_id=$1 AND id=$2`,
		tenantID, id, parentID, level)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func (r *repository) SetLevel(ctx context.Context, tenantID, id int64, level int) error {
	_, err := r.db.Exec(ctx, `UPDATE accounts SET level=$3, updated_at=NOW() WHERE tenant_id=$1 AND id=$2`, tenantID, id, level)
	return err
}

func (r *repository) Deactivate(ctx context.Context, tenantID, id int64) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET is_active=FALSE, updated_at=NOW() WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func (r *repository) HasTransactions(ctx context.Context, tenantID, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM journal_lines jl
JOIN journal_entries je ON je.id = jl.entry_id
WHERE je.tenant_id=$1 AND jl.account_id=$2)`, tenantID, id).Scan(&exists)
	return exists, err
}

// Activity aggregates posted debit/credit turnover per account. DRAFT and
// REVERSED entries never contribute.
func (r *repository) Activity(ctx context.Context, tenantID int64, asOf *time.Time) ([]ActivityRow, error) {
	query := `SELECT jl.account_id, COALESCE(SUM(jl.debit),0), COALESCE(SUM(jl.credit),0)
FROM journal_lines jl
JOIN journal_entries je ON je.id = jl.entry_id
WHERE je.tenant_id=$1 AND je.status='POSTED'`
	args := []any{tenantID}
	if asOf != nil {
		query += ` AND je.entry_date <= $2`
		args = append(args, *asOf)
	}
	query += ` GROUP BY jl.account_id`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ActivityRow
	for rows.Next() {
		var row ActivityRow
		if err := rows.Scan(&row.AccountID, &row.Debit, &row.Credit); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repository) AccountActivity(ctx context.Context, tenantID, id int64, asOf *time.Time) (ActivityRow, error) {
	query := `SELECT COALESCE(SUM(jl.debit),0), COALESCE(SUM(jl.credit),0)
FROM journal_lines jl
JOIN journal_entries je ON je.id = jl.entry_id
WHERE je.tenant_id=$1 AND jl.account_id=$2 AND je.status='POSTED'`
	args := []any{tenantID, id}
	if asOf != nil {
		query += ` AND je.entry_date <= $3`
		args = append(args, *asOf)
	}
	row := ActivityRow{AccountID: id, Debit: decimal.Zero, Credit: decimal.Zero}
	if err := r.db.QueryRow(ctx, query, args...).Scan(&row.Debit, &row.Credit); err != nil {
		return ActivityRow{}, err
	}
	return row, nil
}
