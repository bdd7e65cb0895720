package statements

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tavola-erp/tavola-erp/internal/shared"
)

// Repository reads report inputs and persists snapshots. The activity queries
// are the raw-aggregation escape hatch: one round trip per report instead of
// one balance query per account.
type Repository interface {
	ActivityAsOf(ctx context.Context, tenantID int64, asOf time.Time) ([]AccountActivity, error)
	ActivityBetween(ctx context.Context, tenantID int64, from, to time.Time) ([]AccountActivity, error)
	UpsertSnapshot(ctx context.Context, snap Snapshot) (Snapshot, error)
	GetSnapshot(ctx context.Context, tenantID int64, kind StatementKind, fiscalYear int, periodKey string) (Snapshot, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) activity(ctx context.Context, query string, args ...any) ([]AccountActivity, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountActivity
	for rows.Next() {
		var row AccountActivity
		a := &row.Account
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.NameAlt, &a.Description, &a.Class, &a.NormalBalance,
			&a.ParentID, &a.Level, &a.IsActive, &a.IsSystem, &a.CreatedAt, &a.UpdatedAt,
			&row.Debit, &row.Credit); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repository) ActivityAsOf(ctx context.Context, tenantID int64, asOf time.Time) ([]AccountActivity, error) {
	query := `SELECT a.id, a.tenant_id, a.code, a.name, a.name_alt, a.description, a.class, a.normal_balance, a.parent_id, a.level, a.is_active, a.is_system, a.created_at, a.updated_at,
COALESCE(SUM(jl.debit) FILTER (WHERE je.status='POSTED' AND je.entry_date <= $2),0),
COALESCE(SUM(jl.credit) FILTER (WHERE je.status='POSTED' AND je.entry_date <= $2),0)
FROM accounts a
LEFT JOIN journal_lines jl ON jl.account_id = a.id
LEFT JOIN journal_entries je ON je.id = jl.entry_id
WHERE a.tenant_id=$1 AND a.is_active
GROUP BY a.id
ORDER BY a.code`
	return r.activity(ctx, query, tenantID, asOf)
}

func (r *repository) ActivityBetween(ctx context.Context, tenantID int64, from, to time.Time) ([]AccountActivity, error) {
	query := `SELECT a.id, a.tenant_id, a.code, a.name, a.name_alt, a.description, a.class, a.normal_balance, a.parent_id, a.level, a.is_active, a.is_system, a.created_at, a.updated_at,
COALESCE(SUM(jl.debit) FILTER (WHERE je.status='POSTED' AND je.entry_date >= $2 AND je.entry_date <= $3),0),
COALESCE(SUM(jl.credit) FILTER (WHERE je.status='POSTED' AND je.entry_date >= $2 AND je.entry_date <= $3),0)
FROM accounts a
LEFT JOIN journal_lines jl ON jl.account_id = a.id
LEFT JOIN journal_entries je ON je.id = jl.entry_id
WHERE a.tenant_id=$1 AND a.is_active
GROUP BY a.id
ORDER BY a.code`
	return r.activity(ctx, query, tenantID, from, to)
}

func (r *repository) UpsertSnapshot(ctx context.Context, snap Snapshot) (Snapshot, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO statement_snapshots (tenant_id, kind, fiscal_year, period_key, generated_at, payload)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (tenant_id, kind, fiscal_year, period_key)
DO UPDATE SET generated_at=EXCLUDED.generated_at, payload=EXCLUDED.payload
RETURNING id, tenant_id, kind, fiscal_year, period_key, generated_at, payload`,
		snap.TenantID, snap.Kind, snap.FiscalYear, snap.PeriodKey, snap.GeneratedAt, snap.Payload)
	var out Snapshot
	if err := row.Scan(&out.ID, &out.TenantID, &out.Kind, &out.FiscalYear, &out.PeriodKey, &out.GeneratedAt, &out.Payload); err != nil {
		return Snapshot{}, err
	}
	return out, nil
}

func (r *repository) GetSnapshot(ctx context.Context, tenantID int64, kind StatementKind, fiscalYear int, periodKey string) (Snapshot, error) {
	row := r.db.QueryRow(ctx, `SELECT id, tenant_id, kind, fiscal_year, period_key, generated_at, payload
FROM statement_snapshots WHERE tenant_id=$1 AND kind=$2 AND fiscal_year=$3 AND period_key=$4`,
		tenantID, kind, fiscalYear, periodKey)
	var out Snapshot
	if err := row.Scan(&out.ID, &out.TenantID, &out.Kind, &out.FiscalYear, &out.PeriodKey, &out.GeneratedAt, &out.Payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, shared.ErrNotFound
		}
		return Snapshot{}, err
	}
	return out, nil
}
