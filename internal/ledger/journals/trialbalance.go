package journals

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/tavola-erp/tavola-erp/internal/ledger/accounts"
	internalshared "github.com/tavola-erp/tavola-erp/internal/shared"
)

// TrialBalanceRow is one account's column figure. Exactly one of Debit/Credit
// is nonzero: the account's signed balance lands in its normal-balance column,
// or in the opposite column when the signed balance runs negative.
type TrialBalanceRow struct {
	AccountID int64                 `json:"account_id"`
	Code      string                `json:"code"`
	Name      string                `json:"name"`
	Class     accounts.AccountClass `json:"class"`
	Debit     decimal.Decimal       `json:"debit"`
	Credit    decimal.Decimal       `json:"credit"`
}

// TrialBalance lists all nonzero account balances with proof totals.
type TrialBalance struct {
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
	IsBalanced  bool              `json:"is_balanced"`
}

// BuildTrialBalance projects account activity into a trial balance. It is a
// pure function of its inputs: the same accounts and activity produce the
// same totals regardless of slice order.
func BuildTrialBalance(list []accounts.Account, activity []accounts.ActivityRow) TrialBalance {
	byAccount := make(map[int64]accounts.ActivityRow, len(activity))
	for _, row := range activity {
		byAccount[row.AccountID] = row
	}

	tb := TrialBalance{TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, a := range list {
		if !a.IsActive {
			continue
		}
		act, ok := byAccount[a.ID]
		if !ok {
			continue
		}
		signed := accounts.SignedBalance(a.NormalBalance, act.Debit, act.Credit)
		if signed.IsZero() {
			continue
		}
		row := TrialBalanceRow{AccountID: a.ID, Code: a.Code, Name: a.Name, Class: a.Class,
			Debit: decimal.Zero, Credit: decimal.Zero}

		// A negative signed balance flips to the opposite column.
		side := a.NormalBalance
		amount := signed
		if signed.IsNegative() {
			amount = signed.Neg()
			if side == accounts.NormalDebit {
				side = accounts.NormalCredit
			} else {
				side = accounts.NormalDebit
			}
		}
		if side == accounts.NormalDebit {
			row.Debit = amount
		} else {
			row.Credit = amount
		}
		tb.Rows = append(tb.Rows, row)
		tb.TotalDebit = tb.TotalDebit.Add(row.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(row.Credit)
	}

	sort.Slice(tb.Rows, func(i, j int) bool {
		return tb.Rows[i].Code < tb.Rows[j].Code
	})
	tb.IsBalanced = internalshared.WithinEpsilon(tb.TotalDebit, tb.TotalCredit)
	return tb
}
