package statements

import (
	"sort"
	"time"

	"github.com/tavola-erp/tavola-erp/internal/ledger/accounts"
)

// BuildIncomeStatement sums revenue and expense activity within the period.
// Activity is turnover inside the window, not a point-in-time balance, so a
// mid-year statement reflects only that span. Expenses split into COGS and
// operating by code prefix.
func BuildIncomeStatement(start, end time.Time, rows []AccountActivity) IncomeStatement {
	is := IncomeStatement{
		StartDate:         start,
		EndDate:           end,
		Revenue:           StatementSection{Label: "Revenue"},
		CostOfGoodsSold:   StatementSection{Label: "Cost of Goods Sold"},
		OperatingExpenses: StatementSection{Label: "Operating Expenses"},
	}

	for _, row := range rows {
		amount := row.SignedBalance()
		if amount.IsZero() {
			continue
		}
		line := StatementLine{
			AccountID: row.Account.ID,
			Code:      row.Account.Code,
			Name:      row.Account.Name,
			Amount:    amount,
		}
		switch row.Account.Class {
		case accounts.ClassRevenue:
			appendLine(&is.Revenue, line)
		case accounts.ClassExpense:
			if hasPrefix(row.Account.Code, prefixCOGS) {
				appendLine(&is.CostOfGoodsSold, line)
			} else {
				appendLine(&is.OperatingExpenses, line)
			}
		}
	}

	for _, section := range []*StatementSection{&is.Revenue, &is.CostOfGoodsSold, &is.OperatingExpenses} {
		sort.Slice(section.Lines, func(i, j int) bool { return section.Lines[i].Code < section.Lines[j].Code })
	}

	is.GrossProfit = is.Revenue.Total.Sub(is.CostOfGoodsSold.Total)
	is.TotalExpenses = is.CostOfGoodsSold.Total.Add(is.OperatingExpenses.Total)
	is.NetIncome = is.Revenue.Total.Sub(is.TotalExpenses)
	return is
}
