package statements

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tavola-erp/tavola-erp/internal/ledger/accounts"
	internalshared "github.com/tavola-erp/tavola-erp/internal/shared"
)

// BuildBalanceSheet partitions as-of balances into the five balance sheet
// buckets. Assets split current vs fixed on the fixed-asset code prefix;
// liabilities split current vs long-term on the long-term prefix, so an
// unconventional code lands in the current bucket instead of vanishing.
func BuildBalanceSheet(asOf time.Time, rows []AccountActivity) BalanceSheet {
	bs := BalanceSheet{
		AsOf:                asOf,
		CurrentAssets:       StatementSection{Label: "Current Assets"},
		FixedAssets:         StatementSection{Label: "Fixed Assets"},
		CurrentLiabilities:  StatementSection{Label: "Current Liabilities"},
		LongTermLiabilities: StatementSection{Label: "Long-Term Liabilities"},
		Equity:              StatementSection{Label: "Equity"},
	}

	for _, row := range rows {
		balance := row.SignedBalance()
		if balance.IsZero() {
			continue
		}
		line := StatementLine{
			AccountID: row.Account.ID,
			Code:      row.Account.Code,
			Name:      row.Account.Name,
			Amount:    balance,
		}
		switch row.Account.Class {
		case accounts.ClassAsset:
			if hasPrefix(row.Account.Code, prefixFixedAsset) {
				appendLine(&bs.FixedAssets, line)
			} else {
				appendLine(&bs.CurrentAssets, line)
			}
		case accounts.ClassLiability:
			if hasPrefix(row.Account.Code, prefixLongTermLiab) {
				appendLine(&bs.LongTermLiabilities, line)
			} else {
				appendLine(&bs.CurrentLiabilities, line)
			}
		case accounts.ClassEquity:
			appendLine(&bs.Equity, line)
		}
	}

	bs.TotalAssets = bs.CurrentAssets.Total.Add(bs.FixedAssets.Total)
	bs.TotalLiabilities = bs.CurrentLiabilities.Total.Add(bs.LongTermLiabilities.Total)
	bs.TotalEquity = bs.Equity.Total
	bs.AccountingIdentityGap = bs.TotalAssets.Sub(bs.TotalLiabilities.Add(bs.TotalEquity))

	hundred := decimal.NewFromInt(100)
	for _, section := range []*StatementSection{&bs.CurrentAssets, &bs.FixedAssets, &bs.CurrentLiabilities, &bs.LongTermLiabilities, &bs.Equity} {
		sort.Slice(section.Lines, func(i, j int) bool { return section.Lines[i].Code < section.Lines[j].Code })
		for i := range section.Lines {
			section.Lines[i].PercentOfTotal = internalshared.SafeDiv(section.Lines[i].Amount, bs.TotalAssets).Mul(hundred).Round(2)
		}
	}
	return bs
}

func appendLine(section *StatementSection, line StatementLine) {
	section.Lines = append(section.Lines, line)
	section.Total = section.Total.Add(line.Amount)
}
