package store

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientStock returned when the cart would hold more units than the catalog has.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInsufficientFunds returned when the locked balance cannot cover a purchase.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrStaleCart returned when cart lines changed between quoting and commit.
	ErrStaleCart = errors.New("cart changed since quote")
	// ErrLineMissing matches *MissingLineError.
	ErrLineMissing = errors.New("cart line missing")
	// ErrChargeOverflow returned when a charge would push balance or total charge past the int64 range.
	ErrChargeOverflow = errors.New("charge overflows balance")
)

// InsufficientFundsError carries the locked balance that could not cover a
// purchase. It matches ErrInsufficientFunds.
type InsufficientFundsError struct {
	Balance int64
	Amount  int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("balance %d cannot cover %d", e.Balance, e.Amount)
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// Shortfall is the amount missing from the balance.
func (e *InsufficientFundsError) Shortfall() int64 {
	return e.Amount - e.Balance
}

// MissingLineError reports a purchase line that was no longer in the cart at commit time.
type MissingLineError struct {
	ProductID int64
}

func (e *MissingLineError) Error() string {
	return fmt.Sprintf("product %d is no longer in the cart", e.ProductID)
}

func (e *MissingLineError) Is(target error) bool {
	return target == ErrLineMissing
}
