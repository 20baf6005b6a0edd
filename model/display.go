package model

// DisplayIndex maps the short numbers shown next to cart lines (1..N) to the
// product they refer to. It belongs to one listing and is replaced by the next.
type DisplayIndex struct {
	CustomerID int64   `json:"customer_id"`
	Products   []int64 `json:"products"`
}

// NewDisplayIndex numbers lines in the order given.
func NewDisplayIndex(customerID int64, lines []CartLine) *DisplayIndex {
	products := make([]int64, 0, len(lines))
	for _, l := range lines {
		products = append(products, l.ProductID)
	}
	return &DisplayIndex{CustomerID: customerID, Products: products}
}

// Lookup returns the product shown as number n.
func (d *DisplayIndex) Lookup(n int) (int64, bool) {
	if d == nil || n < 1 || n > len(d.Products) {
		return 0, false
	}
	return d.Products[n-1], true
}

// Len is the number of entries.
func (d *DisplayIndex) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Products)
}
