package accounts

import (
	"sort"

	"github.com/shopspring/decimal"
)

// BuildTree assembles the balance-annotated account tree from the flat
// parent-pointer rows in a single map pass. Orphaned parent references are
// treated as roots so one bad row cannot hide a subtree. Parent balances are
// the sum of all descendant balances, computed bottom-up without recursion.
func BuildTree(list []Account, activity []ActivityRow) []*TreeNode {
	byAccount := make(map[int64]ActivityRow, len(activity))
	for _, row := range activity {
		byAccount[row.AccountID] = row
	}

	nodes := make(map[int64]*TreeNode, len(list))
	for _, a := range list {
		own := decimal.Zero
		if row, ok := byAccount[a.ID]; ok {
			own = SignedBalance(a.NormalBalance, row.Debit, row.Credit)
		}
		nodes[a.ID] = &TreeNode{Account: a, Balance: own}
	}

	var roots []*TreeNode
	for _, a := range list {
		node := nodes[a.ID]
		if a.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*a.ParentID]
		if !ok {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	// Roll balances upward: deepest levels first, so every child is already
	// final when its parent is visited.
	ordered := make([]*TreeNode, 0, len(nodes))
	for _, node := range nodes {
		ordered = append(ordered, node)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Account.Level > ordered[j].Account.Level
	})
	for _, node := range ordered {
		for _, child := range node.Children {
			node.Balance = node.Balance.Add(child.Balance)
		}
	}

	sortTree(roots)
	return roots
}

func sortTree(nodes []*TreeNode) {
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Account.Code < nodes[j].Account.Code
	})
	for _, node := range nodes {
		sortTree(node.Children)
	}
}

// wouldCycle reports whether attaching account id under newParentID would make
// the account its own ancestor. The walk is bounded by the account count so a
// corrupted parent chain cannot loop forever.
func wouldCycle(byID map[int64]Account, id, newParentID int64) bool {
	steps := len(byID) + 1
	current := newParentID
	for i := 0; i < steps; i++ {
		if current == id {
			return true
		}
		acc, ok := byID[current]
		if !ok || acc.ParentID == nil {
			return false
		}
		current = *acc.ParentID
	}
	return true
}
