package posbridge

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tavola-erp/tavola-erp/internal/ledger/journals"
)

// PaymentMethod determines which asset account receives the sale's debit leg.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentCard     PaymentMethod = "CARD"
	PaymentTransfer PaymentMethod = "TRANSFER"
	PaymentCredit   PaymentMethod = "CREDIT"
)

// RecipeIngredient is one costed component of a menu item's recipe, as read
// from the ordering collaborator.
type RecipeIngredient struct {
	IngredientID int64           `json:"ingredient_id"`
	Name         string          `json:"name"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
}

// OrderItem is one sold line of a completed order with its resolved recipe.
type OrderItem struct {
	MenuItemID  int64              `json:"menu_item_id"`
	Name        string             `json:"name"`
	Quantity    decimal.Decimal    `json:"quantity"`
	UnitPrice   decimal.Decimal    `json:"unit_price"`
	Ingredients []RecipeIngredient `json:"ingredients,omitempty"`
}

// CompletedOrder is the read-only view of a fulfilled sale the bridge
// consumes. The ordering system owns the order; the bridge only derives
// postings from it.
type CompletedOrder struct {
	OrderID       uuid.UUID       `json:"order_id"`
	Number        string          `json:"number"`
	CompletedAt   time.Time       `json:"completed_at"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Total         decimal.Decimal `json:"total"`
	Items         []OrderItem     `json:"items"`
}

// TaxBreakdown is the structured result of tax computation over a subtotal.
type TaxBreakdown struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	VAT          decimal.Decimal `json:"vat"`
	IncomeTax    decimal.Decimal `json:"income_tax"`
	MunicipalTax decimal.Decimal `json:"municipal_tax"`
	TotalTax     decimal.Decimal `json:"total_tax"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
}

// IngredientCost is one ingredient's contribution to an item's COGS.
type IngredientCost struct {
	IngredientID int64           `json:"ingredient_id"`
	Name         string          `json:"name"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Total        decimal.Decimal `json:"total"`
}

// ItemCOGS is the cost breakdown for one order item.
type ItemCOGS struct {
	MenuItemID  int64            `json:"menu_item_id"`
	Name        string           `json:"name"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitCOGS    decimal.Decimal  `json:"unit_cogs"`
	Total       decimal.Decimal  `json:"total"`
	Ingredients []IngredientCost `json:"ingredients,omitempty"`
}

// OrderCOGS aggregates the recipe-based cost of a whole order.
type OrderCOGS struct {
	Total decimal.Decimal `json:"total"`
	Items []ItemCOGS      `json:"items"`
}

// PostStatus distinguishes a ledger posting from a deliberate skip.
type PostStatus string

const (
	PostStatusPosted PostStatus = "POSTED"
	// PostStatusSkipped means the chart of accounts could not support a
	// balanced entry. It is a reported outcome, not an error: the caller must
	// surface it, because silently dropping a financial posting is worse than
	// a visible gap.
	PostStatusSkipped PostStatus = "SKIPPED"
)

// PostResult is the typed outcome of a sale or refund posting attempt.
type PostResult struct {
	Status          PostStatus             `json:"status"`
	Entry           *journals.JournalEntry `json:"entry,omitempty"`
	MissingAccounts []string               `json:"missing_accounts,omitempty"`
	Reason          string                 `json:"reason,omitempty"`
}

// ItemProfitability is one menu item's aggregated performance in a period.
type ItemProfitability struct {
	MenuItemID     int64            `json:"menu_item_id"`
	Name           string           `json:"name"`
	QuantitySold   decimal.Decimal  `json:"quantity_sold"`
	Revenue        decimal.Decimal  `json:"revenue"`
	COGS           decimal.Decimal  `json:"cogs"`
	Profit         decimal.Decimal  `json:"profit"`
	Margin         decimal.Decimal  `json:"margin"`
	TopIngredients []IngredientCost `json:"top_ingredients,omitempty"`
}

// ProfitabilityReport rolls completed orders up by menu item.
type ProfitabilityReport struct {
	StartDate    time.Time           `json:"start_date"`
	EndDate      time.Time           `json:"end_date"`
	TotalRevenue decimal.Decimal     `json:"total_revenue"`
	TotalCOGS    decimal.Decimal     `json:"total_cogs"`
	TotalProfit  decimal.Decimal     `json:"total_profit"`
	Items        []ItemProfitability `json:"items"`
}
