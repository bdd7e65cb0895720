package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// RunLedgerIntegrityCheck verifies that every posted entry's stored totals
// match the sum of its lines, and that each tenant's posted ledger balances
// overall. Violations are logged, not repaired; a corrupted ledger needs a
// human.
func RunLedgerIntegrityCheck(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	if pool == nil {
		return nil
	}

	const entryQuery = `
SELECT je.id, je.tenant_id, je.number, je.total_debit, je.total_credit,
       COALESCE(SUM(jl.debit), 0), COALESCE(SUM(jl.credit), 0)
FROM journal_entries je
JOIN journal_lines jl ON jl.entry_id = je.id
WHERE je.status = 'POSTED'
GROUP BY je.id
HAVING je.total_debit <> COALESCE(SUM(jl.debit), 0)
    OR je.total_credit <> COALESCE(SUM(jl.credit), 0)
    OR COALESCE(SUM(jl.debit), 0) <> COALESCE(SUM(jl.credit), 0)`
	rows, err := pool.Query(ctx, entryQuery)
	if err != nil {
		return fmt.Errorf("entry integrity query: %w", err)
	}
	defer rows.Close()

	violations := 0
	for rows.Next() {
		var (
			id, tenantID            int64
			number                  string
			totalDebit, totalCredit decimal.Decimal
			lineDebit, lineCredit   decimal.Decimal
		)
		if err := rows.Scan(&id, &tenantID, &number, &totalDebit, &totalCredit, &lineDebit, &lineCredit); err != nil {
			return err
		}
		violations++
		logger.Error("unbalanced posted entry",
			slog.Int64("tenant_id", tenantID),
			slog.String("number", number),
			slog.String("total_debit", totalDebit.String()),
			slog.String("total_credit", totalCredit.String()),
			slog.String("line_debit", lineDebit.String()),
			slog.String("line_credit", lineCredit.String()))
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if violations == 0 {
		logger.Info("ledger integrity check passed", slog.String("job", "ledger_integrity"))
	} else {
		logger.Error("ledger integrity check failed", slog.Int("violations", violations))
	}
	return nil
}
