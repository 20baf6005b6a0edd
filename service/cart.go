package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"minishop/model"
	"minishop/session"
	"minishop/store"

	"github.com/shopspring/decimal"
)

// CartLineView is a cart line as listed, with its display number.
type CartLineView struct {
	No int `json:"no"`
	model.CartLine
	LineTotal int64 `json:"line_total"`
}

type Listing struct {
	Lines []CartLineView      `json:"lines"`
	Total int64               `json:"total"`
	Index *model.DisplayIndex `json:"-"`
}

func (s *Service) cartLines(ctx context.Context, customerID int64) ([]model.CartLine, error) {
	rows, err := s.store.CartLines(ctx, customerID)
	if err != nil {
		return nil, err
	}
	lines := make([]model.CartLine, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, model.CartLine{
			CustomerID:  customerID,
			ProductID:   r.ProductID,
			ProductName: r.ProductName,
			Quantity:    r.Quantity,
			UnitPrice:   r.Price,
		})
	}
	return lines, nil
}

// ListCart lists the cart at live prices and numbers the lines 1..N. The new
// numbering replaces the one held by the session.
func (s *Service) ListCart(ctx context.Context, sess *session.Session) (Listing, error) {
	lines, err := s.cartLines(ctx, sess.CustomerID)
	if err != nil {
		return Listing{}, persistence("failed to read cart", err)
	}

	idx := model.NewDisplayIndex(sess.CustomerID, lines)
	sess.Index = idx

	out := Listing{Lines: make([]CartLineView, 0, len(lines)), Index: idx}
	total := decimal.Zero
	for i, l := range lines {
		out.Lines = append(out.Lines, CartLineView{No: i + 1, CartLine: l, LineTotal: l.LineTotal()})
		total = total.Add(model.LineAmount(l.UnitPrice, l.Quantity))
	}
	out.Total = total.IntPart()
	return out, nil
}

// ResolveDisplayNumber maps a number from the session's last listing to a
// product, and only if that product is still in the cart.
func (s *Service) ResolveDisplayNumber(ctx context.Context, sess *session.Session, n int) (int64, error) {
	if sess.Index == nil || sess.Index.CustomerID != sess.CustomerID {
		return 0, newError(KindNotFound, "list the cart first", nil)
	}
	productID, ok := sess.Index.Lookup(n)
	if !ok {
		return 0, newError(KindNotFound, fmt.Sprintf("no line numbered %d", n), nil)
	}

	rows, err := s.store.CartLines(ctx, sess.CustomerID)
	if err != nil {
		return 0, persistence("failed to read cart", err)
	}
	for _, r := range rows {
		if r.ProductID == productID {
			return productID, nil
		}
	}
	return 0, newError(KindNotFound, fmt.Sprintf("line %d is no longer in the cart", n), nil)
}

func (s *Service) AddToCart(ctx context.Context, sess *session.Session, productID int64, qty int) error {
	if qty < 1 {
		return newError(KindInvalidQuantity, fmt.Sprintf("quantity must be at least 1, got %d", qty), nil)
	}
	err := s.store.AddToCart(ctx, sess.CustomerID, productID, qty)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrInsufficientStock):
		return newError(KindInvalidQuantity, "not enough stock", err)
	case errors.Is(err, sql.ErrNoRows):
		return newError(KindNotFound, fmt.Sprintf("product %d does not exist", productID), err)
	default:
		return persistence("failed to add to cart", err)
	}
	s.metrics.ObserveCartMutation("add")
	s.log.Debug().Int64("customer_id", sess.CustomerID).Int64("product_id", productID).Int("qty", qty).Msg("added to cart")
	return nil
}

func (s *Service) RemoveLine(ctx context.Context, sess *session.Session, productID int64) (int64, error) {
	n, err := s.store.RemoveLine(ctx, sess.CustomerID, productID)
	if err != nil {
		return 0, persistence("failed to remove line", err)
	}
	s.metrics.ObserveCartMutation("remove")
	return n, nil
}

func (s *Service) SetQuantity(ctx context.Context, sess *session.Session, productID int64, qty int) (int64, error) {
	if qty < 1 {
		return 0, newError(KindInvalidQuantity, fmt.Sprintf("quantity must be at least 1, got %d", qty), nil)
	}
	n, err := s.store.SetQuantity(ctx, sess.CustomerID, productID, qty)
	if err != nil {
		return 0, persistence("failed to change quantity", err)
	}
	s.metrics.ObserveCartMutation("set_quantity")
	return n, nil
}

// Clear empties the cart. The session's numbering is dropped with it.
func (s *Service) Clear(ctx context.Context, sess *session.Session) (int64, error) {
	n, err := s.store.ClearCart(ctx, sess.CustomerID)
	if err != nil {
		return 0, persistence("failed to clear cart", err)
	}
	sess.Index = nil
	s.metrics.ObserveCartMutation("clear")
	return n, nil
}
