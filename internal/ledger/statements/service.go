package statements

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// Service generates derived statements. Generation is the expensive path, so
// identical concurrent requests collapse through singleflight and results are
// cached in Redis and persisted as snapshots.
type Service struct {
	repo  Repository
	cache *Cache
	group singleflight.Group
	now   func() time.Time
}

func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

const dateKey = "2006-01-02"

func rangeKey(start, end time.Time) string {
	return start.Format(dateKey) + ":" + end.Format(dateKey)
}

// GenerateBalanceSheet derives the statement of financial position as of a
// date and overwrites its snapshot.
func (s *Service) GenerateBalanceSheet(ctx context.Context, tenantID int64, asOf time.Time) (BalanceSheet, error) {
	var bs BalanceSheet
	err := s.generate(ctx, tenantID, KindBalanceSheet, asOf.Year(), asOf.Format(dateKey), &bs,
		func(ctx context.Context) (interface{}, error) {
			rows, err := s.repo.ActivityAsOf(ctx, tenantID, asOf)
			if err != nil {
				return nil, err
			}
			return BuildBalanceSheet(asOf, rows), nil
		})
	return bs, err
}

// GenerateIncomeStatement derives period revenue and expense activity and
// overwrites its snapshot.
func (s *Service) GenerateIncomeStatement(ctx context.Context, tenantID int64, start, end time.Time) (IncomeStatement, error) {
	var is IncomeStatement
	err := s.generate(ctx, tenantID, KindIncomeStatement, end.Year(), rangeKey(start, end), &is,
		func(ctx context.Context) (interface{}, error) {
			rows, err := s.repo.ActivityBetween(ctx, tenantID, start, end)
			if err != nil {
				return nil, err
			}
			return BuildIncomeStatement(start, end, rows), nil
		})
	return is, err
}

// GenerateCashFlowStatement derives the indirect-method cash flow and
// overwrites its snapshot. Beginning and ending cash are recomputed from the
// cash accounts independently of the derived flow as a cross-check.
func (s *Service) GenerateCashFlowStatement(ctx context.Context, tenantID int64, start, end time.Time) (CashFlowStatement, error) {
	var cf CashFlowStatement
	err := s.generate(ctx, tenantID, KindCashFlow, end.Year(), rangeKey(start, end), &cf,
		func(ctx context.Context) (interface{}, error) {
			period, err := s.repo.ActivityBetween(ctx, tenantID, start, end)
			if err != nil {
				return nil, err
			}
			before, err := s.repo.ActivityAsOf(ctx, tenantID, start.AddDate(0, 0, -1))
			if err != nil {
				return nil, err
			}
			through, err := s.repo.ActivityAsOf(ctx, tenantID, end)
			if err != nil {
				return nil, err
			}
			return BuildCashFlowStatement(start, end, CashFlowInputs{
				PeriodActivity: period,
				BeginningCash:  CashBalance(before),
				EndingCash:     CashBalance(through),
			}), nil
		})
	return cf, err
}

// FinancialRatios derives the ratio card from the as-of balance sheet and the
// year-to-date income statement. It is cached but not snapshotted; it is
// recomputable from the two underlying statements.
func (s *Service) FinancialRatios(ctx context.Context, tenantID int64, asOf time.Time) (FinancialRatios, error) {
	yearStart := time.Date(asOf.Year(), time.January, 1, 0, 0, 0, 0, asOf.Location())
	key, err := s.cache.BuildKey(ctx, "statements", "ratios", fmt.Sprint(tenantID), asOf.Format(dateKey))
	if err != nil {
		return FinancialRatios{}, err
	}
	var ratios FinancialRatios
	err = s.fetchShared(ctx, key, &ratios, func(ctx context.Context) (interface{}, error) {
		bs, err := s.GenerateBalanceSheet(ctx, tenantID, asOf)
		if err != nil {
			return nil, err
		}
		is, err := s.GenerateIncomeStatement(ctx, tenantID, yearStart, asOf)
		if err != nil {
			return nil, err
		}
		return BuildFinancialRatios(asOf, bs, is), nil
	})
	return ratios, err
}

// Invalidate drops every cached statement. Callers invoke it after ledger
// mutations; snapshots stay until the next regeneration overwrites them.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// generate runs the loader through cache and singleflight, then overwrites
// the statement snapshot with the freshly built payload on cache miss.
func (s *Service) generate(ctx context.Context, tenantID int64, kind StatementKind, fiscalYear int, periodKey string, dest interface{}, build func(context.Context) (interface{}, error)) error {
	key, err := s.cache.BuildKey(ctx, "statements", string(kind), fmt.Sprint(tenantID), periodKey)
	if err != nil {
		return err
	}
	return s.fetchShared(ctx, key, dest, func(ctx context.Context) (interface{}, error) {
		statement, err := build(ctx)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(statement)
		if err != nil {
			return nil, err
		}
		if _, err := s.repo.UpsertSnapshot(ctx, Snapshot{
			TenantID:    tenantID,
			Kind:        kind,
			FiscalYear:  fiscalYear,
			PeriodKey:   periodKey,
			GeneratedAt: s.now(),
			Payload:     payload,
		}); err != nil {
			return nil, err
		}
		return statement, nil
	})
}

// fetchShared collapses concurrent identical loads; every caller gets the
// shared payload decoded into its own destination.
func (s *Service) fetchShared(ctx context.Context, key string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	value, err, _ := s.group.Do(key, func() (interface{}, error) {
		var raw json.RawMessage
		if err := s.cache.FetchJSON(ctx, key, &raw, loader); err != nil {
			return nil, err
		}
		return raw, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(value.(json.RawMessage), dest)
}
