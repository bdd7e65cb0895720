package statements

import (
	"time"

	"github.com/shopspring/decimal"

	internalshared "github.com/tavola-erp/tavola-erp/internal/shared"
)

// BuildFinancialRatios derives the ratio card from a balance sheet and the
// year-to-date income statement. Zero denominators resolve to zero.
func BuildFinancialRatios(asOf time.Time, bs BalanceSheet, is IncomeStatement) FinancialRatios {
	cash := sectionPrefixTotal(bs.CurrentAssets, prefixCash)
	inventory := sectionPrefixTotal(bs.CurrentAssets, prefixInventory)
	receivables := sectionPrefixTotal(bs.CurrentAssets, prefixReceivables)

	currentAssets := bs.CurrentAssets.Total
	currentLiabilities := bs.CurrentLiabilities.Total
	revenue := is.Revenue.Total
	cogs := is.CostOfGoodsSold.Total

	return FinancialRatios{
		AsOf: asOf,

		CurrentRatio: internalshared.SafeDiv(currentAssets, currentLiabilities),
		QuickRatio:   internalshared.SafeDiv(currentAssets.Sub(inventory), currentLiabilities),
		CashRatio:    internalshared.SafeDiv(cash, currentLiabilities),

		GrossMargin:    internalshared.SafeDiv(is.GrossProfit, revenue),
		NetMargin:      internalshared.SafeDiv(is.NetIncome, revenue),
		ReturnOnAssets: internalshared.SafeDiv(is.NetIncome, bs.TotalAssets),
		ReturnOnEquity: internalshared.SafeDiv(is.NetIncome, bs.TotalEquity),

		DebtToAssets: internalshared.SafeDiv(bs.TotalLiabilities, bs.TotalAssets),
		DebtToEquity: internalshared.SafeDiv(bs.TotalLiabilities, bs.TotalEquity),
		EquityRatio:  internalshared.SafeDiv(bs.TotalEquity, bs.TotalAssets),

		AssetTurnover:       internalshared.SafeDiv(revenue, bs.TotalAssets),
		InventoryTurnover:   internalshared.SafeDiv(cogs, inventory),
		ReceivablesTurnover: internalshared.SafeDiv(revenue, receivables),
	}
}

func sectionPrefixTotal(section StatementSection, prefix string) decimal.Decimal {
	total := decimal.Zero
	for _, line := range section.Lines {
		if hasPrefix(line.Code, prefix) {
			total = total.Add(line.Amount)
		}
	}
	return total
}
