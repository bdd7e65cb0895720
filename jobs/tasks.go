package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tavola-erp/tavola-erp/internal/ledger/statements"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStatementRefresh rebuilds a tenant's statement snapshots.
	TaskStatementRefresh = "statements:refresh"
	// TaskLedgerIntegrity verifies ledger-wide double-entry balance.
	TaskLedgerIntegrity = "ledger:integrity"
)

// StatementRefreshPayload scopes a snapshot refresh to one tenant. A zero
// TenantID means every tenant with posted entries.
type StatementRefreshPayload struct {
	TenantID int64 `json:"tenant_id"`
}

// NewStatementRefreshTask constructs the refresh task.
func NewStatementRefreshTask(payload StatementRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStatementRefresh, data), nil
}

// NewLedgerIntegrityTask constructs the integrity-check task.
func NewLedgerIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskLedgerIntegrity, nil)
}

// NewStatementRefreshHandler regenerates the balance sheet, income statement,
// and cash flow snapshots for the targeted tenants. Regeneration goes through
// the statement service, so the Redis cache and the snapshot table end up
// consistent.
func NewStatementRefreshHandler(svc *statements.Service, pool *pgxpool.Pool, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload StatementRefreshPayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return asynq.SkipRetry
			}
		}
		tenants, err := resolveTenants(ctx, pool, payload.TenantID)
		if err != nil {
			return err
		}
		asOf := time.Now().UTC()
		yearStart := time.Date(asOf.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		for _, tenantID := range tenants {
			if _, err := svc.GenerateBalanceSheet(ctx, tenantID, asOf); err != nil {
				logger.Error("refresh balance sheet", slog.Int64("tenant_id", tenantID), slog.Any("error", err))
				continue
			}
			if _, err := svc.GenerateIncomeStatement(ctx, tenantID, yearStart, asOf); err != nil {
				logger.Error("refresh income statement", slog.Int64("tenant_id", tenantID), slog.Any("error", err))
				continue
			}
			if _, err := svc.GenerateCashFlowStatement(ctx, tenantID, yearStart, asOf); err != nil {
				logger.Error("refresh cash flow", slog.Int64("tenant_id", tenantID), slog.Any("error", err))
				continue
			}
			logger.Info("statement snapshots refreshed", slog.Int64("tenant_id", tenantID))
		}
		return nil
	}
}

// NewLedgerIntegrityHandler runs the ledger-wide balance check.
func NewLedgerIntegrityHandler(pool *pgxpool.Pool, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		return RunLedgerIntegrityCheck(ctx, pool, logger)
	}
}

func resolveTenants(ctx context.Context, pool *pgxpool.Pool, tenantID int64) ([]int64, error) {
	if tenantID > 0 {
		return []int64{tenantID}, nil
	}
	rows, err := pool.Query(ctx, `SELECT DISTINCT tenant_id FROM journal_entries WHERE status = 'POSTED'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		tenants = append(tenants, id)
	}
	return tenants, rows.Err()
}
