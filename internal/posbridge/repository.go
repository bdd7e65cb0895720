package posbridge

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ItemSalesRow is one menu item's aggregated sales over a period.
type ItemSalesRow struct {
	MenuItemID int64
	Name       string
	Quantity   decimal.Decimal
	Revenue    decimal.Decimal
	COGS       decimal.Decimal
}

// IngredientUsageRow is one ingredient's aggregated cost within a menu item
// over a period.
type IngredientUsageRow struct {
	MenuItemID   int64
	IngredientID int64
	Name         string
	Quantity     decimal.Decimal
	Cost         decimal.Decimal
}

// ProfitabilityRepository reads completed-order aggregates from the ordering
// tables. The bridge never writes to them.
type ProfitabilityRepository interface {
	ItemSales(ctx context.Context, tenantID int64, start, end time.Time) ([]ItemSalesRow, error)
	IngredientUsage(ctx context.Context, tenantID int64, start, end time.Time) ([]IngredientUsageRow, error)
}

type pgProfitabilityRepository struct {
	db *pgxpool.Pool
}

func NewProfitabilityRepository(db *pgxpool.Pool) ProfitabilityRepository {
	return &pgProfitabilityRepository{db: db}
}

func (r *pgProfitabilityRepository) ItemSales(ctx context.Context, tenantID int64, start, end time.Time) ([]ItemSalesRow, error) {
	const query = `
SELECT oi.menu_item_id,
       MAX(oi.name) AS name,
       COALESCE(SUM(oi.quantity), 0) AS quantity,
       COALESCE(SUM(oi.quantity * oi.unit_price), 0) AS revenue,
       COALESCE(SUM(oi.quantity * oi.unit_cogs), 0) AS cogs
FROM pos_order_items oi
JOIN pos_orders o ON o.id = oi.order_id
WHERE o.tenant_id = $1
  AND o.status = 'COMPLETED'
  AND o.completed_at >= $2
  AND o.completed_at < $3
GROUP BY oi.menu_item_id
ORDER BY revenue DESC`
	rows, err := r.db.Query(ctx, query, tenantID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ItemSalesRow
	for rows.Next() {
		var row ItemSalesRow
		if err := rows.Scan(&row.MenuItemID, &row.Name, &row.Quantity, &row.Revenue, &row.COGS); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *pgProfitabilityRepository) IngredientUsage(ctx context.Context, tenantID int64, start, end time.Time) ([]IngredientUsageRow, error) {
	const query = `
SELECT oi.menu_item_id,
       ing.ingredient_id,
       MAX(ing.name) AS name,
       COALESCE(SUM(ing.quantity), 0) AS quantity,
       COALESCE(SUM(ing.quantity * ing.unit_cost), 0) AS cost
FROM pos_order_item_ingredients ing
JOIN pos_order_items oi ON oi.id = ing.order_item_id
JOIN pos_orders o ON o.id = oi.order_id
WHERE o.tenant_id = $1
  AND o.status = 'COMPLETED'
  AND o.completed_at >= $2
  AND o.completed_at < $3
GROUP BY oi.menu_item_id, ing.ingredient_id
ORDER BY oi.menu_item_id, cost DESC`
	rows, err := r.db.Query(ctx, query, tenantID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []IngredientUsageRow
	for rows.Next() {
		var row IngredientUsageRow
		if err := rows.Scan(&row.MenuItemID, &row.IngredientID, &row.Name, &row.Quantity, &row.Cost); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
