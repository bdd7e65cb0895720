package posbridge

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	internalshared "github.com/tavola-erp/tavola-erp/internal/shared"
)

const topIngredientCount = 3

// ProfitabilityReport aggregates completed orders by menu item, attaching the
// costliest ingredients of each item for menu-engineering review.
func (s *Service) ProfitabilityReport(ctx context.Context, tenantID int64, start, end time.Time) (ProfitabilityReport, error) {
	sales, err := s.reporter.ItemSales(ctx, tenantID, start, end)
	if err != nil {
		return ProfitabilityReport{}, fmt.Errorf("load item sales: %w", err)
	}
	usage, err := s.reporter.IngredientUsage(ctx, tenantID, start, end)
	if err != nil {
		return ProfitabilityReport{}, fmt.Errorf("load ingredient usage: %w", err)
	}

	byItem := make(map[int64][]IngredientCost)
	for _, row := range usage {
		avgCost := internalshared.SafeDiv(row.Cost, row.Quantity)
		byItem[row.MenuItemID] = append(byItem[row.MenuItemID], IngredientCost{
			IngredientID: row.IngredientID,
			Name:         row.Name,
			Quantity:     row.Quantity,
			UnitCost:     avgCost,
			Total:        row.Cost,
		})
	}

	report := ProfitabilityReport{
		StartDate:    start,
		EndDate:      end,
		TotalRevenue: decimal.Zero,
		TotalCOGS:    decimal.Zero,
		TotalProfit:  decimal.Zero,
	}
	for _, row := range sales {
		profit := row.Revenue.Sub(row.COGS)
		item := ItemProfitability{
			MenuItemID:     row.MenuItemID,
			Name:           row.Name,
			QuantitySold:   row.Quantity,
			Revenue:        row.Revenue,
			COGS:           row.COGS,
			Profit:         profit,
			Margin:         internalshared.SafeDiv(profit.Mul(decimal.NewFromInt(100)), row.Revenue).Round(2),
			TopIngredients: topIngredients(byItem[row.MenuItemID]),
		}
		report.Items = append(report.Items, item)
		report.TotalRevenue = report.TotalRevenue.Add(row.Revenue)
		report.TotalCOGS = report.TotalCOGS.Add(row.COGS)
	}
	report.TotalProfit = report.TotalRevenue.Sub(report.TotalCOGS)

	sort.SliceStable(report.Items, func(i, j int) bool {
		return report.Items[i].Profit.GreaterThan(report.Items[j].Profit)
	})
	return report, nil
}

func topIngredients(costs []IngredientCost) []IngredientCost {
	sort.SliceStable(costs, func(i, j int) bool {
		return costs[i].Total.GreaterThan(costs[j].Total)
	})
	if len(costs) > topIngredientCount {
		costs = costs[:topIngredientCount]
	}
	return costs
}
