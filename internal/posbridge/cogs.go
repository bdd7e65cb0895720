package posbridge

import (
	"github.com/shopspring/decimal"

	internalshared "github.com/tavola-erp/tavola-erp/internal/shared"
)

// ComputeOrderCOGS derives the recipe-based cost of every item in an order:
// per item, COGS = sum(ingredient.quantity * ingredient.unitCost) * quantity
// sold. The per-ingredient breakdown feeds both the journal posting and
// profitability reporting.
func ComputeOrderCOGS(items []OrderItem) OrderCOGS {
	out := OrderCOGS{Total: decimal.Zero, Items: make([]ItemCOGS, 0, len(items))}
	for _, item := range items {
		unitCOGS := decimal.Zero
		ingredients := make([]IngredientCost, 0, len(item.Ingredients))
		for _, ing := range item.Ingredients {
			cost := ing.Quantity.Mul(ing.UnitCost)
			unitCOGS = unitCOGS.Add(cost)
			ingredients = append(ingredients, IngredientCost{
				IngredientID: ing.IngredientID,
				Name:         ing.Name,
				Quantity:     ing.Quantity.Mul(item.Quantity),
				UnitCost:     ing.UnitCost,
				Total:        internalshared.RoundMoney(cost.Mul(item.Quantity)),
			})
		}
		itemTotal := internalshared.RoundMoney(unitCOGS.Mul(item.Quantity))
		out.Items = append(out.Items, ItemCOGS{
			MenuItemID:  item.MenuItemID,
			Name:        item.Name,
			Quantity:    item.Quantity,
			UnitCOGS:    internalshared.RoundMoney(unitCOGS),
			Total:       itemTotal,
			Ingredients: ingredients,
		})
		out.Total = out.Total.Add(itemTotal)
	}
	return out
}
