package statements

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tavola-erp/tavola-erp/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockStatementsRepo struct {
	rows       []AccountActivity
	upserts    []Snapshot
	upsertErr  error
	activities int
}

func (m *mockStatementsRepo) ActivityAsOf(ctx context.Context, tenantID int64, asOf time.Time) ([]AccountActivity, error) {
	m.activities++
	return m.rows, nil
}

func (m *mockStatementsRepo) ActivityBetween(ctx context.Context, tenantID int64, from, to time.Time) ([]AccountActivity, error) {
	m.activities++
	return m.rows, nil
}

func (m *mockStatementsRepo) UpsertSnapshot(ctx context.Context, snap Snapshot) (Snapshot, error) {
	if m.upsertErr != nil {
		return Snapshot{}, m.upsertErr
	}
	snap.ID = int64(len(m.upserts) + 1)
	m.upserts = append(m.upserts, snap)
	return snap, nil
}

func (m *mockStatementsRepo) GetSnapshot(ctx context.Context, tenantID int64, kind StatementKind, fiscalYear int, periodKey string) (Snapshot, error) {
	for i := len(m.upserts) - 1; i >= 0; i-- {
		snap := m.upserts[i]
		if snap.TenantID == tenantID && snap.Kind == kind && snap.FiscalYear == fiscalYear && snap.PeriodKey == periodKey {
			return snap, nil
		}
	}
	return Snapshot{}, shared.ErrNotFound
}

// ============================================================================
// FIXTURES
// ============================================================================

const statementsTenant = int64(7)

var generatedAt = time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)

// newStatementsService wires the service against the in-memory repository.
// A nil Redis client disables caching, so every call walks the build path.
func newStatementsService() (*Service, *mockStatementsRepo) {
	repo := &mockStatementsRepo{rows: closedLedger()}
	svc := NewService(repo, NewCache(nil, time.Minute))
	svc.WithNow(func() time.Time { return generatedAt })
	return svc, repo
}

// ============================================================================
// TESTS
// ============================================================================

func TestGenerateBalanceSheetSnapshotIdempotent(t *testing.T) {
	svc, repo := newStatementsService()

	first, err := svc.GenerateBalanceSheet(context.Background(), statementsTenant, asOf)
	require.NoError(t, err)
	second, err := svc.GenerateBalanceSheet(context.Background(), statementsTenant, asOf)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, repo.upserts, 2)
	for _, snap := range repo.upserts {
		assert.Equal(t, statementsTenant, snap.TenantID)
		assert.Equal(t, KindBalanceSheet, snap.Kind)
		assert.Equal(t, 2026, snap.FiscalYear)
		assert.Equal(t, "2026-06-30", snap.PeriodKey)
		assert.Equal(t, generatedAt, snap.GeneratedAt)
	}
	// An unchanged ledger must regenerate to the exact same stored bytes.
	assert.Equal(t, repo.upserts[0].Payload, repo.upserts[1].Payload)
}

func TestGenerateIncomeStatementSnapshotKeysPeriod(t *testing.T) {
	svc, repo := newStatementsService()

	_, err := svc.GenerateIncomeStatement(context.Background(), statementsTenant, periodStart, asOf)
	require.NoError(t, err)

	require.Len(t, repo.upserts, 1)
	snap := repo.upserts[0]
	assert.Equal(t, KindIncomeStatement, snap.Kind)
	assert.Equal(t, 2026, snap.FiscalYear)
	assert.Equal(t, "2026-06-01:2026-06-30", snap.PeriodKey)

	stored, err := repo.GetSnapshot(context.Background(), statementsTenant, KindIncomeStatement, 2026, "2026-06-01:2026-06-30")
	require.NoError(t, err)
	assert.Equal(t, snap.Payload, stored.Payload)
}

func TestGenerateCachedSkipsRebuild(t *testing.T) {
	cache, _ := newTestCache(t)
	repo := &mockStatementsRepo{rows: closedLedger()}
	svc := NewService(repo, cache)
	svc.WithNow(func() time.Time { return generatedAt })

	first, err := svc.GenerateBalanceSheet(context.Background(), statementsTenant, asOf)
	require.NoError(t, err)
	second, err := svc.GenerateBalanceSheet(context.Background(), statementsTenant, asOf)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, repo.upserts, 1, "cache hit must not rewrite the snapshot")
}

func TestInvalidateForcesRegeneration(t *testing.T) {
	cache, _ := newTestCache(t)
	repo := &mockStatementsRepo{rows: closedLedger()}
	svc := NewService(repo, cache)
	svc.WithNow(func() time.Time { return generatedAt })

	_, err := svc.GenerateBalanceSheet(context.Background(), statementsTenant, asOf)
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(context.Background()))
	_, err = svc.GenerateBalanceSheet(context.Background(), statementsTenant, asOf)
	require.NoError(t, err)

	require.Len(t, repo.upserts, 2)
	assert.Equal(t, repo.upserts[0].Payload, repo.upserts[1].Payload)
}

func TestGenerateSurfacesSnapshotFailure(t *testing.T) {
	svc, repo := newStatementsService()
	repo.upsertErr = errors.New("snapshot write refused")

	_, err := svc.GenerateBalanceSheet(context.Background(), statementsTenant, asOf)
	assert.ErrorContains(t, err, "snapshot write refused")
}
