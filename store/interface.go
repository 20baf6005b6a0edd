package store

import "context"

// Store is the persistence boundary for the cart purchase flow: catalog price
// lookups, the cart lines of each customer and the customer balance.
type Store interface {
	ListProducts(ctx context.Context) ([]ProductRow, error)
	UnitPrice(ctx context.Context, productID int64) (ProductRow, error)

	CartLines(ctx context.Context, customerID int64) ([]CartRow, error)
	AddToCart(ctx context.Context, customerID, productID int64, qty int) error
	RemoveLine(ctx context.Context, customerID, productID int64) (int64, error)
	SetQuantity(ctx context.Context, customerID, productID int64, qty int) (int64, error)
	ClearCart(ctx context.Context, customerID int64) (int64, error)

	Account(ctx context.Context, customerID int64) (AccountRow, error)
	AccountByLogin(ctx context.Context, loginID string) (AccountRow, error)
	Charge(ctx context.Context, customerID, amount int64) (AccountRow, error)

	// CommitPurchase debits amount from the customer's balance and deletes
	// exactly the given cart lines in one transaction. It returns the balance
	// after the debit.
	CommitPurchase(ctx context.Context, customerID, amount int64, lines []PurchaseLine) (int64, error)

	Close() error
}
