package service

import (
	"fmt"
	"strings"
)

// Kind classifies every failure the service reports.
type Kind int

const (
	KindEmptyPurchase Kind = iota + 1
	KindInsufficientFunds
	KindLineNotInCart
	KindInvalidQuantity
	KindUserCancelled
	KindPersistenceFailure
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindEmptyPurchase:
		return "EmptyPurchase"
	case KindInsufficientFunds:
		return "InsufficientFunds"
	case KindLineNotInCart:
		return "LineNotInCart"
	case KindInvalidQuantity:
		return "InvalidQuantity"
	case KindUserCancelled:
		return "UserCancelled"
	case KindPersistenceFailure:
		return "PersistenceFailure"
	case KindNotFound:
		return "NotFound"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is returned by every ServiceInterface method. ProductID is set for
// LineNotInCart, Shortfall for InsufficientFunds. State is the purchase state
// the run ended in; it is StateIdle for errors outside a purchase.
type Error struct {
	Kind      Kind
	Message   string
	ProductID int64
	Shortfall int64
	State     State
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// works regardless of details.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrEmptyPurchase      = &Error{Kind: KindEmptyPurchase}
	ErrInsufficientFunds  = &Error{Kind: KindInsufficientFunds}
	ErrLineNotInCart      = &Error{Kind: KindLineNotInCart}
	ErrInvalidQuantity    = &Error{Kind: KindInvalidQuantity}
	ErrUserCancelled      = &Error{Kind: KindUserCancelled}
	ErrPersistenceFailure = &Error{Kind: KindPersistenceFailure}
	ErrNotFound           = &Error{Kind: KindNotFound}
)

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func persistence(msg string, err error) *Error {
	return newError(KindPersistenceFailure, msg, err)
}

func lineNotInCart(productID int64, err error) *Error {
	return &Error{
		Kind:      KindLineNotInCart,
		Message:   fmt.Sprintf("product %d is not in the cart", productID),
		ProductID: productID,
		Err:       err,
	}
}

func insufficientFunds(shortfall int64, err error) *Error {
	return &Error{
		Kind:      KindInsufficientFunds,
		Message:   fmt.Sprintf("balance is short by %d", shortfall),
		Shortfall: shortfall,
		Err:       err,
	}
}
