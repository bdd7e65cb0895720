package statements

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tavola-erp/tavola-erp/internal/ledger/accounts"
)

// StatementKind enumerates derived report kinds.
type StatementKind string

const (
	KindBalanceSheet    StatementKind = "BALANCE_SHEET"
	KindIncomeStatement StatementKind = "INCOME_STATEMENT"
	KindCashFlow        StatementKind = "CASH_FLOW"
)

// Chart code conventions used to bucket accounts. The seeded restaurant chart
// follows these prefixes; accounts outside them fall into the catch-all
// bucket of their class rather than disappearing from the report.
const (
	prefixCash         = "110" // cash and bank accounts
	prefixReceivables  = "112"
	prefixFixedAsset   = "12"
	prefixInventory    = "13"
	prefixLongTermLiab = "22"
	prefixCOGS         = "51"
	prefixDepreciation = "529"
)

// Snapshot is one cached derived report. At most one row exists per
// (tenant, kind, fiscalYear, periodKey); regeneration overwrites in place.
type Snapshot struct {
	ID          int64         `json:"id"`
	TenantID    int64         `json:"tenant_id"`
	Kind        StatementKind `json:"kind"`
	FiscalYear  int           `json:"fiscal_year"`
	PeriodKey   string        `json:"period_key"`
	GeneratedAt time.Time     `json:"generated_at"`
	Payload     []byte        `json:"payload"`
}

// AccountActivity pairs an account with its aggregated debit/credit turnover
// for the report window.
type AccountActivity struct {
	Account accounts.Account
	Debit   decimal.Decimal
	Credit  decimal.Decimal
}

// SignedBalance is the account's conventional signed balance over the window.
func (a AccountActivity) SignedBalance() decimal.Decimal {
	return accounts.SignedBalance(a.Account.NormalBalance, a.Debit, a.Credit)
}

func hasPrefix(code, prefix string) bool {
	return strings.HasPrefix(code, prefix)
}

// StatementLine is one account row inside a statement section.
type StatementLine struct {
	AccountID int64           `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	// PercentOfTotal is the share of total assets (balance sheet) expressed
	// as a 0-100 percentage.
	PercentOfTotal decimal.Decimal `json:"percent_of_total"`
}

// StatementSection groups lines with a subtotal.
type StatementSection struct {
	Label string          `json:"label"`
	Lines []StatementLine `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// BalanceSheet is the point-in-time statement of financial position.
type BalanceSheet struct {
	AsOf                time.Time        `json:"as_of"`
	CurrentAssets       StatementSection `json:"current_assets"`
	FixedAssets         StatementSection `json:"fixed_assets"`
	CurrentLiabilities  StatementSection `json:"current_liabilities"`
	LongTermLiabilities StatementSection `json:"long_term_liabilities"`
	Equity              StatementSection `json:"equity"`
	TotalAssets         decimal.Decimal  `json:"total_assets"`
	TotalLiabilities    decimal.Decimal  `json:"total_liabilities"`
	TotalEquity         decimal.Decimal  `json:"total_equity"`
	// AccountingIdentityGap surfaces totalAssets - (liabilities + equity) as a
	// diagnostic; a well-formed ledger keeps it at zero.
	AccountingIdentityGap decimal.Decimal `json:"accounting_identity_gap"`
}

// IncomeStatement is the period activity statement.
type IncomeStatement struct {
	StartDate         time.Time        `json:"start_date"`
	EndDate           time.Time        `json:"end_date"`
	Revenue           StatementSection `json:"revenue"`
	CostOfGoodsSold   StatementSection `json:"cost_of_goods_sold"`
	OperatingExpenses StatementSection `json:"operating_expenses"`
	GrossProfit       decimal.Decimal  `json:"gross_profit"`
	TotalExpenses     decimal.Decimal  `json:"total_expenses"`
	NetIncome         decimal.Decimal  `json:"net_income"`
}

// CashFlowStatement is the indirect-method cash flow for a period.
type CashFlowStatement struct {
	StartDate           time.Time       `json:"start_date"`
	EndDate             time.Time       `json:"end_date"`
	NetIncome           decimal.Decimal `json:"net_income"`
	DepreciationAddback decimal.Decimal `json:"depreciation_addback"`
	OperatingCashFlow   decimal.Decimal `json:"operating_cash_flow"`
	InvestingCashFlow   decimal.Decimal `json:"investing_cash_flow"`
	FinancingCashFlow   decimal.Decimal `json:"financing_cash_flow"`
	NetCashFlow         decimal.Decimal `json:"net_cash_flow"`
	BeginningCash       decimal.Decimal `json:"beginning_cash"`
	EndingCash          decimal.Decimal `json:"ending_cash"`
	// Discrepancy is netCashFlow - (endingCash - beginningCash). A nonzero
	// value means a cash-affecting entry the model does not classify; it is
	// reported, never hidden.
	Discrepancy  decimal.Decimal `json:"discrepancy"`
	IsConsistent bool            `json:"is_consistent"`
}

// FinancialRatios is derived from the balance sheet and income statement.
// Every ratio with a zero denominator resolves to zero.
type FinancialRatios struct {
	AsOf time.Time `json:"as_of"`

	CurrentRatio decimal.Decimal `json:"current_ratio"`
	QuickRatio   decimal.Decimal `json:"quick_ratio"`
	CashRatio    decimal.Decimal `json:"cash_ratio"`

	GrossMargin    decimal.Decimal `json:"gross_margin"`
	NetMargin      decimal.Decimal `json:"net_margin"`
	ReturnOnAssets decimal.Decimal `json:"return_on_assets"`
	ReturnOnEquity decimal.Decimal `json:"return_on_equity"`

	DebtToAssets decimal.Decimal `json:"debt_to_assets"`
	DebtToEquity decimal.Decimal `json:"debt_to_equity"`
	EquityRatio  decimal.Decimal `json:"equity_ratio"`

	AssetTurnover       decimal.Decimal `json:"asset_turnover"`
	InventoryTurnover   decimal.Decimal `json:"inventory_turnover"`
	ReceivablesTurnover decimal.Decimal `json:"receivables_turnover"`
}
