package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tavola-erp/tavola-erp/internal/ledger/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	accounts     map[int64]*Account
	byCode       map[string]int64
	activity     map[int64]ActivityRow
	transactions map[int64]bool
	nextID       int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		accounts:     make(map[int64]*Account),
		byCode:       make(map[string]int64),
		activity:     make(map[int64]ActivityRow),
		transactions: make(map[int64]bool),
		nextID:       1,
	}
}

func (m *mockRepository) Create(ctx context.Context, a Account) (Account, error) {
	if _, exists := m.byCode[a.Code]; exists {
		return Account{}, shared.ErrDuplicateCode
	}
	a.ID = m.nextID
	m.nextID++
	a.IsActive = true
	stored := a
	m.accounts[a.ID] = &stored
	m.byCode[a.Code] = a.ID
	return a, nil
}

func (m *mockRepository) Get(ctx context.Context, tenantID, id int64) (Account, error) {
	a, ok := m.accounts[id]
	if !ok || a.TenantID != tenantID {
		return Account{}, shared.ErrAccountNotFound
	}
	return *a, nil
}

func (m *mockRepository) List(ctx context.Context, tenantID int64, class *AccountClass) ([]Account, error) {
	var out []Account
	for id := int64(1); id < m.nextID; id++ {
		a, ok := m.accounts[id]
		if !ok || a.TenantID != tenantID {
			continue
		}
		if class != nil && a.Class != *class {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockRepository) UpdateDetails(ctx context.Context, tenantID, id int64, name string, nameAlt, description *string) error {
	a, ok := m.accounts[id]
	if !ok {
		return shared.ErrAccountNotFound
	}
	a.Name = name
	a.NameAlt = nameAlt
	a.Description = description
	return nil
}

func (m *mockRepository) SetParent(ctx context.Context, tenantID, id int64, parentID *int64, level int) error {
	a, ok := m.accounts[id]
	if !ok {
		return shared.ErrAccountNotFound
	}
	a.ParentID = parentID
	a.Level = level
	return nil
}

func (m *mockRepository) SetLevel(ctx context.Context, tenantID, id int64, level int) error {
	a, ok := m.accounts[id]
	if !ok {
		return shared.ErrAccountNotFound
	}
	a.Level = level
	return nil
}

func (m *mockRepository) Deactivate(ctx context.Context, tenantID, id int64) error {
	a, ok := m.accounts[id]
	if !ok {
		return shared.ErrAccountNotFound
	}
	a.IsActive = false
	return nil
}

func (m *mockRepository) HasTransactions(ctx context.Context, tenantID, id int64) (bool, error) {
	return m.transactions[id], nil
}

func (m *mockRepository) Activity(ctx context.Context, tenantID int64, asOf *time.Time) ([]ActivityRow, error) {
	var out []ActivityRow
	for _, row := range m.activity {
		out = append(out, row)
	}
	return out, nil
}

func (m *mockRepository) AccountActivity(ctx context.Context, tenantID, id int64, asOf *time.Time) (ActivityRow, error) {
	return m.activity[id], nil
}

// ============================================================================
// TESTS
// ============================================================================

const tenant = int64(3)

func seedAccount(t *testing.T, svc *Service, code, name string, class AccountClass, parentID *int64) Account {
	t.Helper()
	a, err := svc.Create(context.Background(), CreateAccountInput{
		TenantID: tenant,
		Code:     code,
		Name:     name,
		Class:    class,
		ParentID: parentID,
	})
	require.NoError(t, err)
	return a
}

func TestCreateDerivesNormalBalanceAndLevel(t *testing.T) {
	svc := NewService(newMockRepository())

	assets := seedAccount(t, svc, "1", "Assets", ClassAsset, nil)
	assert.Equal(t, NormalDebit, assets.NormalBalance)
	assert.Equal(t, 1, assets.Level)

	cash := seedAccount(t, svc, "1101", "Cash on Hand", ClassAsset, &assets.ID)
	assert.Equal(t, 2, cash.Level)

	revenue := seedAccount(t, svc, "4", "Revenue", ClassRevenue, nil)
	assert.Equal(t, NormalCredit, revenue.NormalBalance)
}

func TestCreateRejectsContradictingNormalBalance(t *testing.T) {
	svc := NewService(newMockRepository())

	_, err := svc.Create(context.Background(), CreateAccountInput{
		TenantID:      tenant,
		Code:          "1101",
		Name:          "Cash",
		Class:         ClassAsset,
		NormalBalance: NormalCredit,
	})
	assert.Error(t, err)
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	svc := NewService(newMockRepository())
	seedAccount(t, svc, "1101", "Cash", ClassAsset, nil)

	_, err := svc.Create(context.Background(), CreateAccountInput{
		TenantID: tenant,
		Code:     "1101",
		Name:     "Cash Again",
		Class:    ClassAsset,
	})
	assert.ErrorIs(t, err, shared.ErrDuplicateCode)
}

func TestCreateRejectsMissingParent(t *testing.T) {
	svc := NewService(newMockRepository())

	missing := int64(404)
	_, err := svc.Create(context.Background(), CreateAccountInput{
		TenantID: tenant,
		Code:     "1101",
		Name:     "Cash",
		Class:    ClassAsset,
		ParentID: &missing,
	})
	assert.ErrorIs(t, err, shared.ErrParentNotFound)
}

func TestBalanceIsSignedByNormalBalance(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	cash := seedAccount(t, svc, "1101", "Cash", ClassAsset, nil)
	revenue := seedAccount(t, svc, "4101", "Food Sales", ClassRevenue, nil)
	repo.activity[cash.ID] = ActivityRow{AccountID: cash.ID, Debit: decimal.NewFromInt(500), Credit: decimal.NewFromInt(120)}
	repo.activity[revenue.ID] = ActivityRow{AccountID: revenue.ID, Debit: decimal.NewFromInt(20), Credit: decimal.NewFromInt(900)}

	cashBalance, err := svc.Balance(context.Background(), tenant, cash.ID, nil)
	require.NoError(t, err)
	assert.True(t, cashBalance.Equal(decimal.NewFromInt(380)))

	revenueBalance, err := svc.Balance(context.Background(), tenant, revenue.ID, nil)
	require.NoError(t, err)
	assert.True(t, revenueBalance.Equal(decimal.NewFromInt(880)))
}

func TestHierarchyRollsBalancesUp(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	assets := seedAccount(t, svc, "1", "Assets", ClassAsset, nil)
	cashGroup := seedAccount(t, svc, "1100", "Cash & Bank", ClassAsset, &assets.ID)
	cash := seedAccount(t, svc, "1101", "Cash on Hand", ClassAsset, &cashGroup.ID)
	bank := seedAccount(t, svc, "1102", "Bank Account", ClassAsset, &cashGroup.ID)
	repo.activity[cash.ID] = ActivityRow{AccountID: cash.ID, Debit: decimal.NewFromInt(300)}
	repo.activity[bank.ID] = ActivityRow{AccountID: bank.ID, Debit: decimal.NewFromInt(700)}

	tree, err := svc.Hierarchy(context.Background(), tenant, nil, nil)
	require.NoError(t, err)

	require.Len(t, tree, 1)
	root := tree[0]
	assert.Equal(t, "1", root.Account.Code)
	assert.True(t, root.Balance.Equal(decimal.NewFromInt(1000)))
	require.Len(t, root.Children, 1)
	group := root.Children[0]
	assert.True(t, group.Balance.Equal(decimal.NewFromInt(1000)))
	require.Len(t, group.Children, 2)
	assert.Equal(t, "1101", group.Children[0].Account.Code)
	assert.True(t, group.Children[0].Balance.Equal(decimal.NewFromInt(300)))
}

func TestReparentRejectsCycle(t *testing.T) {
	svc := NewService(newMockRepository())

	parent := seedAccount(t, svc, "1", "Assets", ClassAsset, nil)
	child := seedAccount(t, svc, "1100", "Cash & Bank", ClassAsset, &parent.ID)
	grandchild := seedAccount(t, svc, "1101", "Cash", ClassAsset, &child.ID)

	_, err := svc.Reparent(context.Background(), tenant, parent.ID, &grandchild.ID)
	assert.ErrorIs(t, err, shared.ErrHierarchyCycle)

	_, err = svc.Reparent(context.Background(), tenant, parent.ID, &parent.ID)
	assert.ErrorIs(t, err, shared.ErrHierarchyCycle)
}

func TestReparentCascadesLevels(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	assets := seedAccount(t, svc, "1", "Assets", ClassAsset, nil)
	group := seedAccount(t, svc, "1100", "Cash & Bank", ClassAsset, &assets.ID)
	leaf := seedAccount(t, svc, "1101", "Cash", ClassAsset, &group.ID)
	require.Equal(t, 3, leaf.Level)

	moved, err := svc.Reparent(context.Background(), tenant, group.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, moved.Level)
	assert.Nil(t, moved.ParentID)

	refreshed, err := svc.Get(context.Background(), tenant, leaf.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, refreshed.Level)
}

func TestReparentRefusesSystemAccount(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	a, err := svc.Create(context.Background(), CreateAccountInput{
		TenantID: tenant,
		Code:     "3201",
		Name:     "Retained Earnings",
		Class:    ClassEquity,
		IsSystem: true,
	})
	require.NoError(t, err)

	_, err = svc.Reparent(context.Background(), tenant, a.ID, nil)
	assert.ErrorIs(t, err, shared.ErrSystemAccount)
}

func TestDeactivateRefusesAccountWithTransactions(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	cash := seedAccount(t, svc, "1101", "Cash", ClassAsset, nil)
	repo.transactions[cash.ID] = true

	err := svc.Deactivate(context.Background(), tenant, cash.ID)
	assert.ErrorIs(t, err, shared.ErrAccountHasTransactions)

	unused := seedAccount(t, svc, "1102", "Bank", ClassAsset, nil)
	require.NoError(t, svc.Deactivate(context.Background(), tenant, unused.ID))
	refreshed, err := svc.Get(context.Background(), tenant, unused.ID)
	require.NoError(t, err)
	assert.False(t, refreshed.IsActive)
}

func TestUpdateDetailsKeepsStructuralFields(t *testing.T) {
	svc := NewService(newMockRepository())

	cash := seedAccount(t, svc, "1101", "Cash", ClassAsset, nil)
	alt := "Kasse"
	updated, err := svc.UpdateDetails(context.Background(), UpdateDetailsInput{
		TenantID:  tenant,
		AccountID: cash.ID,
		Name:      "Till Cash",
		NameAlt:   &alt,
	})
	require.NoError(t, err)
	assert.Equal(t, "Till Cash", updated.Name)
	assert.Equal(t, "1101", updated.Code)
	assert.Equal(t, ClassAsset, updated.Class)
}
