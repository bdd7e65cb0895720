package statements

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tavola-erp/tavola-erp/internal/ledger/accounts"
	internalshared "github.com/tavola-erp/tavola-erp/internal/shared"
)

// CashFlowInputs carries the three independent views the builder needs: the
// period's income statement activity, and the cash-account balances at the
// period boundaries.
type CashFlowInputs struct {
	PeriodActivity []AccountActivity
	BeginningCash  decimal.Decimal
	EndingCash     decimal.Decimal
}

// BuildCashFlowStatement derives the indirect-method cash flow: net income
// plus the depreciation add-back for operating, fixed-asset movement for
// investing, long-term debt and equity movement for financing. Beginning and
// ending cash are recomputed independently from the cash accounts; any
// difference between the derived net flow and the observed cash movement is
// surfaced as Discrepancy rather than absorbed.
func BuildCashFlowStatement(start, end time.Time, in CashFlowInputs) CashFlowStatement {
	is := BuildIncomeStatement(start, end, in.PeriodActivity)

	cf := CashFlowStatement{
		StartDate:     start,
		EndDate:       end,
		NetIncome:     is.NetIncome,
		BeginningCash: in.BeginningCash,
		EndingCash:    in.EndingCash,
	}

	investing := decimal.Zero
	financing := decimal.Zero
	for _, row := range in.PeriodActivity {
		code := row.Account.Code
		switch row.Account.Class {
		case accounts.ClassExpense:
			if hasPrefix(code, prefixDepreciation) {
				cf.DepreciationAddback = cf.DepreciationAddback.Add(row.Debit.Sub(row.Credit))
			}
		case accounts.ClassAsset:
			if hasPrefix(code, prefixFixedAsset) {
				// Fixed-asset growth consumes cash.
				investing = investing.Sub(row.Debit.Sub(row.Credit))
			}
		case accounts.ClassLiability:
			if hasPrefix(code, prefixLongTermLiab) {
				financing = financing.Add(row.Credit.Sub(row.Debit))
			}
		case accounts.ClassEquity:
			financing = financing.Add(row.Credit.Sub(row.Debit))
		}
	}

	cf.OperatingCashFlow = cf.NetIncome.Add(cf.DepreciationAddback)
	cf.InvestingCashFlow = investing
	cf.FinancingCashFlow = financing
	cf.NetCashFlow = cf.OperatingCashFlow.Add(cf.InvestingCashFlow).Add(cf.FinancingCashFlow)

	observed := cf.EndingCash.Sub(cf.BeginningCash)
	cf.Discrepancy = cf.NetCashFlow.Sub(observed)
	cf.IsConsistent = internalshared.WithinEpsilon(cf.NetCashFlow, observed)
	return cf
}

// CashBalance sums the signed balances of explicit cash accounts.
func CashBalance(rows []AccountActivity) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		if row.Account.Class == accounts.ClassAsset && hasPrefix(row.Account.Code, prefixCash) {
			total = total.Add(row.SignedBalance())
		}
	}
	return total
}
