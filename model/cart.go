package model

import (
	"github.com/shopspring/decimal"
)

// CartLine is one product held in a customer's cart. The product name is
// refreshed from the catalog whenever the line is read.
type CartLine struct {
	CustomerID  int64           `json:"customer_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// LineTotal is the live-priced subtotal of the line.
func (l CartLine) LineTotal() int64 {
	return LineTotal(l.UnitPrice, l.Quantity)
}

// PriceQuote is a cart line priced at the moment a purchase begins.
type PriceQuote struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   int64           `json:"line_total"`
}

// NewPriceQuote prices qty units of a product at unitPrice.
func NewPriceQuote(productID int64, name string, qty int, unitPrice decimal.Decimal) PriceQuote {
	return PriceQuote{
		ProductID:   productID,
		ProductName: name,
		Quantity:    qty,
		UnitPrice:   unitPrice,
		LineTotal:   LineTotal(unitPrice, qty),
	}
}

// LineTotal multiplies a unit price by a quantity and truncates toward zero
// to whole currency units.
func LineTotal(unitPrice decimal.Decimal, qty int) int64 {
	return LineAmount(unitPrice, qty).IntPart()
}

// LineAmount is LineTotal before conversion to int64, for callers summing
// many lines that need to detect totals outside the int64 range.
func LineAmount(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty))).Truncate(0)
}

// Product is a catalog entry as shown when browsing.
type Product struct {
	ID       int64           `json:"id"`
	Category string          `json:"category"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Origin   string          `json:"origin"`
}
