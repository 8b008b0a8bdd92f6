// Package pricing derives invoice totals from line items and a client's
// markup percentage. Every function here is pure: the invoice creation
// service and the draft preview call the same code, so a preview always
// matches the persisted invoice for the same inputs.
package pricing

import "github.com/shopspring/decimal"

// InputScale caps the decimal places of quantities, unit prices and markup
// percentages. Derived amounts then carry at most 3*InputScale+2 places,
// the scale of the amount columns.
const InputScale = 4

var hundred = decimal.NewFromInt(100)

// WithinScale reports whether d has no more than InputScale decimal places.
func WithinScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(InputScale))
}

// Line is the minimal shape the calculator needs from a line item.
type Line struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// Quote is the full set of derived totals for one invoice.
type Quote struct {
	Subtotal         decimal.Decimal `json:"subtotal"`
	MarkupPercentage decimal.Decimal `json:"markup_percentage"`
	HasMarkup        bool            `json:"has_markup"`
	MarkupAmount     decimal.Decimal `json:"markup_amount"`
	GrandTotal       decimal.Decimal `json:"grand_total"`
}

// LineTotal returns quantity * unitPrice.
func LineTotal(line Line) decimal.Decimal {
	return line.Quantity.Mul(line.UnitPrice)
}

// Subtotal sums LineTotal over lines. An empty slice yields zero.
func Subtotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(LineTotal(line))
	}
	return total
}

// MarkupAmount returns subtotal * percentage / 100.
func MarkupAmount(subtotal, percentage decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(percentage).Div(hundred)
}

// GrandTotal returns subtotal + markup.
func GrandTotal(subtotal, markup decimal.Decimal) decimal.Decimal {
	return subtotal.Add(markup)
}

// Compute builds a Quote. A nil percentage means no client is selected:
// the markup is zero and the grand total equals the subtotal.
func Compute(lines []Line, percentage *decimal.Decimal) Quote {
	subtotal := Subtotal(lines)
	quote := Quote{
		Subtotal:         subtotal,
		MarkupPercentage: decimal.Zero,
		MarkupAmount:     decimal.Zero,
	}
	if percentage != nil {
		quote.HasMarkup = true
		quote.MarkupPercentage = *percentage
		quote.MarkupAmount = MarkupAmount(subtotal, *percentage)
	}
	quote.GrandTotal = GrandTotal(quote.Subtotal, quote.MarkupAmount)
	return quote
}
