package posbridge

import (
	"github.com/shopspring/decimal"

	internalshared "github.com/tavola-erp/tavola-erp/internal/shared"
)

var percent = decimal.NewFromInt(100)

// CalculateTax computes the tax breakdown for a subtotal. Rates are
// percentages (9 means 9%). Pure arithmetic, no side effects; each component
// is rounded to a minor currency unit independently so the breakdown sums to
// the reported total.
func CalculateTax(subtotal, vatRate, incomeTaxRate, municipalTaxRate decimal.Decimal) TaxBreakdown {
	vat := internalshared.RoundMoney(subtotal.Mul(vatRate).Div(percent))
	incomeTax := internalshared.RoundMoney(subtotal.Mul(incomeTaxRate).Div(percent))
	municipalTax := internalshared.RoundMoney(subtotal.Mul(municipalTaxRate).Div(percent))
	totalTax := vat.Add(incomeTax).Add(municipalTax)
	return TaxBreakdown{
		Subtotal:     subtotal,
		VAT:          vat,
		IncomeTax:    incomeTax,
		MunicipalTax: municipalTax,
		TotalTax:     totalTax,
		GrandTotal:   subtotal.Add(totalTax),
	}
}
