package accounts

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acct(id int64, code string, class AccountClass, parentID *int64, level int) Account {
	return Account{
		ID:            id,
		TenantID:      tenant,
		Code:          code,
		Class:         class,
		NormalBalance: ConventionalNormalBalance(class),
		ParentID:      parentID,
		Level:         level,
		IsActive:      true,
	}
}

func TestBuildTreePromotesOrphansToRoots(t *testing.T) {
	missing := int64(999)
	list := []Account{
		acct(1, "1", ClassAsset, nil, 1),
		acct(2, "1101", ClassAsset, &missing, 2),
	}

	tree := BuildTree(list, nil)
	require.Len(t, tree, 2)
	assert.Equal(t, "1", tree[0].Account.Code)
	assert.Equal(t, "1101", tree[1].Account.Code)
}

func TestBuildTreeRollsUpDeepHierarchy(t *testing.T) {
	one, two, three := int64(1), int64(2), int64(3)
	list := []Account{
		acct(one, "1", ClassAsset, nil, 1),
		acct(two, "1100", ClassAsset, &one, 2),
		acct(three, "1101", ClassAsset, &two, 3),
		acct(4, "1102", ClassAsset, &two, 3),
	}
	activity := []ActivityRow{
		{AccountID: three, Debit: decimal.NewFromInt(250)},
		{AccountID: 4, Debit: decimal.NewFromInt(750)},
		{AccountID: two, Debit: decimal.NewFromInt(5)},
	}

	tree := BuildTree(list, activity)
	require.Len(t, tree, 1)
	// Parent's own activity plus both leaves.
	assert.True(t, tree[0].Balance.Equal(decimal.NewFromInt(1005)))
	assert.True(t, tree[0].Children[0].Balance.Equal(decimal.NewFromInt(1005)))
}

func TestBuildTreeSortsSiblingsByCode(t *testing.T) {
	list := []Account{
		acct(1, "4", ClassRevenue, nil, 1),
		acct(2, "1", ClassAsset, nil, 1),
		acct(3, "2", ClassLiability, nil, 1),
	}

	tree := BuildTree(list, nil)
	require.Len(t, tree, 3)
	assert.Equal(t, "1", tree[0].Account.Code)
	assert.Equal(t, "2", tree[1].Account.Code)
	assert.Equal(t, "4", tree[2].Account.Code)
}

func TestWouldCycleDetectsSelfAndDescendants(t *testing.T) {
	one, two := int64(1), int64(2)
	byID := map[int64]Account{
		one: acct(one, "1", ClassAsset, nil, 1),
		two: acct(two, "1100", ClassAsset, &one, 2),
		3:   acct(3, "1101", ClassAsset, &two, 3),
	}

	assert.True(t, wouldCycle(byID, 1, 1))
	assert.True(t, wouldCycle(byID, 1, 3))
	assert.False(t, wouldCycle(byID, 3, 1))
}

func TestWouldCycleBoundedOnCorruptChain(t *testing.T) {
	// Two accounts pointing at each other must not loop forever.
	one, two := int64(1), int64(2)
	byID := map[int64]Account{
		one: acct(one, "1", ClassAsset, &two, 1),
		two: acct(two, "2", ClassAsset, &one, 1),
	}
	assert.True(t, wouldCycle(byID, 3, 1))
}
