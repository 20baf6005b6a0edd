package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"minishop/model"
	"minishop/store"

	"github.com/shopspring/decimal"
)

// memStore is an in-memory store.Store whose CommitPurchase is all or nothing,
// like the Postgres transaction.
type memStore struct {
	mu       sync.Mutex
	products map[int64]store.ProductRow
	carts    map[int64]map[int64]int
	accounts map[int64]store.AccountRow

	// commitErr makes CommitPurchase fail after its checks, with nothing applied.
	commitErr error
	commits   int
}

var _ store.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		products: map[int64]store.ProductRow{},
		carts:    map[int64]map[int64]int{},
		accounts: map[int64]store.AccountRow{},
	}
}

func (m *memStore) addProduct(id int64, name, price string, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id] = store.ProductRow{ID: id, Name: name, Price: decimal.RequireFromString(price), Stock: stock}
}

func (m *memStore) setPrice(id int64, price string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.products[id]
	p.Price = decimal.RequireFromString(price)
	m.products[id] = p
}

func (m *memStore) addAccount(id, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[id] = store.AccountRow{ID: id, LoginID: fmt.Sprintf("user%d", id), Balance: balance, Grade: string(model.GradeBronze)}
}

func (m *memStore) setBalance(id, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.accounts[id]
	a.Balance = balance
	m.accounts[id] = a
}

func (m *memStore) balance(id int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[id].Balance
}

// cart returns a copy of the customer's product -> quantity map.
func (m *memStore) cart(customerID int64) map[int64]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int64]int{}
	for k, v := range m.carts[customerID] {
		out[k] = v
	}
	return out
}

func (m *memStore) ListProducts(context.Context) ([]store.ProductRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.ProductRow, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UnitPrice(_ context.Context, productID int64) (store.ProductRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return store.ProductRow{}, sql.ErrNoRows
	}
	return p, nil
}

func (m *memStore) CartLines(_ context.Context, customerID int64) ([]store.CartRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.CartRow{}
	for id, qty := range m.carts[customerID] {
		p := m.products[id]
		out = append(out, store.CartRow{ProductID: id, ProductName: p.Name, Quantity: qty, Price: p.Price})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductName != out[j].ProductName {
			return out[i].ProductName > out[j].ProductName
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

func (m *memStore) AddToCart(_ context.Context, customerID, productID int64, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return sql.ErrNoRows
	}
	if m.carts[customerID] == nil {
		m.carts[customerID] = map[int64]int{}
	}
	if m.carts[customerID][productID]+qty > p.Stock {
		return store.ErrInsufficientStock
	}
	m.carts[customerID][productID] += qty
	return nil
}

func (m *memStore) RemoveLine(_ context.Context, customerID, productID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[customerID][productID]; !ok {
		return 0, nil
	}
	delete(m.carts[customerID], productID)
	return 1, nil
}

func (m *memStore) SetQuantity(_ context.Context, customerID, productID int64, qty int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[customerID][productID]; !ok {
		return 0, nil
	}
	m.carts[customerID][productID] = qty
	return 1, nil
}

func (m *memStore) ClearCart(_ context.Context, customerID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.carts[customerID]))
	delete(m.carts, customerID)
	return n, nil
}

func (m *memStore) Account(_ context.Context, customerID int64) (store.AccountRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[customerID]
	if !ok {
		return store.AccountRow{}, sql.ErrNoRows
	}
	return a, nil
}

func (m *memStore) AccountByLogin(_ context.Context, loginID string) (store.AccountRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.LoginID == loginID {
			return a, nil
		}
	}
	return store.AccountRow{}, sql.ErrNoRows
}

func (m *memStore) Charge(_ context.Context, customerID, amount int64) (store.AccountRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[customerID]
	if !ok {
		return store.AccountRow{}, sql.ErrNoRows
	}
	if a.Balance > math.MaxInt64-amount || a.TotalCharge > math.MaxInt64-amount {
		return store.AccountRow{}, store.ErrChargeOverflow
	}
	a.Balance += amount
	a.TotalCharge += amount
	a.Grade = string(model.GradeFor(a.TotalCharge))
	m.accounts[customerID] = a
	return a, nil
}

func (m *memStore) CommitPurchase(ctx context.Context, customerID, amount int64, lines []store.PurchaseLine) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(lines) == 0 {
		return 0, errors.New("no cart lines to purchase")
	}
	a, ok := m.accounts[customerID]
	if !ok {
		return 0, sql.ErrNoRows
	}
	if a.Balance < amount {
		return 0, &store.InsufficientFundsError{Balance: a.Balance, Amount: amount}
	}
	cart := m.carts[customerID]
	for _, l := range lines {
		qty, ok := cart[l.ProductID]
		if !ok {
			return 0, &store.MissingLineError{ProductID: l.ProductID}
		}
		if qty != l.Quantity {
			return 0, store.ErrStaleCart
		}
	}
	if m.commitErr != nil {
		return 0, m.commitErr
	}

	a.Balance -= amount
	m.accounts[customerID] = a
	for _, l := range lines {
		delete(cart, l.ProductID)
	}
	m.commits++
	return a.Balance, nil
}

func (m *memStore) Close() error { return nil }
