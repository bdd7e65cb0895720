package accounts

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountClass enumerates chart-of-accounts categories.
type AccountClass string

const (
	ClassAsset     AccountClass = "ASSET"
	ClassLiability AccountClass = "LIABILITY"
	ClassEquity    AccountClass = "EQUITY"
	ClassRevenue   AccountClass = "REVENUE"
	ClassExpense   AccountClass = "EXPENSE"
)

// NormalBalance is the side on which an account's balance increases.
type NormalBalance string

const (
	NormalDebit  NormalBalance = "DEBIT"
	NormalCredit NormalBalance = "CREDIT"
)

// ConventionalNormalBalance returns the normal balance accounting convention
// assigns to a class.
func ConventionalNormalBalance(class AccountClass) NormalBalance {
	switch class {
	case ClassAsset, ClassExpense:
		return NormalDebit
	default:
		return NormalCredit
	}
}

// Account models a chart of accounts node. Code and normal balance are fixed
// at creation; the hierarchy is stored flat via ParentID.
type Account struct {
	ID            int64         `json:"id"`
	TenantID      int64         `json:"tenant_id"`
	Code          string        `json:"code"`
	Name          string        `json:"name"`
	NameAlt       *string       `json:"name_alt,omitempty"`
	Description   *string       `json:"description,omitempty"`
	Class         AccountClass  `json:"class"`
	NormalBalance NormalBalance `json:"normal_balance"`
	ParentID      *int64        `json:"parent_id,omitempty"`
	Level         int           `json:"level"`
	IsActive      bool          `json:"is_active"`
	IsSystem      bool          `json:"is_system"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// ActivityRow carries the aggregated posted debit/credit turnover of one
// account, as read from the journal.
type ActivityRow struct {
	AccountID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// SignedBalance converts raw turnover into the account's conventional signed
// balance: debits minus credits for debit-normal accounts, the opposite for
// credit-normal ones.
func SignedBalance(normal NormalBalance, debit, credit decimal.Decimal) decimal.Decimal {
	if normal == NormalDebit {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// TreeNode is one node of the balance-annotated hierarchy. Balance includes
// the node's own posted activity plus every descendant's.
type TreeNode struct {
	Account  Account         `json:"account"`
	Balance  decimal.Decimal `json:"balance"`
	Children []*TreeNode     `json:"children,omitempty"`
}
