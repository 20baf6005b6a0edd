package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// ProductRow, CartRow, AccountRow etc are simple structs representing DB rows
type ProductRow struct {
	ID       int64
	Category string
	Name     string
	Price    decimal.Decimal
	Stock    int
	Origin   string
}

type CartRow struct {
	ProductID   int64
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

type AccountRow struct {
	ID           int64
	LoginID      string
	PasswordHash string
	NickName     string
	Balance      int64
	TotalCharge  int64
	Grade        string
}

// PurchaseLine is a cart line as it was quoted; CommitPurchase requires the
// cart to still hold exactly this quantity.
type PurchaseLine struct {
	ProductID int64
	Quantity  int
}

// PostgresStore is a Store backed by Postgres and has in-process locks
type PostgresStore struct {
	DB *sql.DB

	// per-customer mutexes to avoid concurrent goroutines in this process
	// racing on the same cart. Keys are customer id -> *sync.Mutex
	locks sync.Map
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(conn *sql.DB) *PostgresStore {
	return &PostgresStore{DB: conn}
}

func (s *PostgresStore) Close() error { return s.DB.Close() }

// helper: acquire per-customer lock (process-local). Returns unlock func.
func (s *PostgresStore) lockForUser(customerID int64) func() {
	if v, ok := s.locks.Load(customerID); ok {
		m := v.(*sync.Mutex)
		m.Lock()
		return m.Unlock
	}

	m := &sync.Mutex{}
	actual, _ := s.locks.LoadOrStore(customerID, m)
	mtx := actual.(*sync.Mutex)
	mtx.Lock()
	return mtx.Unlock
}

// CartLines returns the customer's lines joined with the current catalog name and price.
func (s *PostgresStore) CartLines(ctx context.Context, customerID int64) ([]CartRow, error) {
	rows, err := s.DB.QueryContext(ctx, queryCartLines, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cart lines: %w", err)
	}
	defer rows.Close()

	out := []CartRow{}
	for rows.Next() {
		var c CartRow
		if err := rows.Scan(&c.ProductID, &c.ProductName, &c.Quantity, &c.Price); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cart lines: %w", err)
	}
	return out, nil
}

// AddToCart adds qty units of a product, incrementing an existing line. The
// product row is locked so the stock check and the upsert see the same stock.
func (s *PostgresStore) AddToCart(ctx context.Context, customerID, productID int64, qty int) error {
	if qty <= 0 {
		return errors.New("quantity must be > 0")
	}

	unlock := s.lockForUser(customerID)
	defer unlock()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var stock int
	if err := tx.QueryRowContext(ctx, queryLockProductStock, productID).Scan(&stock); err != nil {
		return fmt.Errorf("failed to lock product %d: %w", productID, err)
	}

	var inCart int
	err = tx.QueryRowContext(ctx, queryCartQuantity, customerID, productID).Scan(&inCart)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read cart quantity: %w", err)
	}

	if inCart+qty > stock {
		return fmt.Errorf("product %d: stock %d, in cart %d, requested %d: %w", productID, stock, inCart, qty, ErrInsufficientStock)
	}

	if _, err := tx.ExecContext(ctx, queryUpsertCartLine, customerID, productID, qty); err != nil {
		return fmt.Errorf("failed to upsert cart line: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RemoveLine deletes one line and reports how many rows went away (0 or 1).
func (s *PostgresStore) RemoveLine(ctx context.Context, customerID, productID int64) (int64, error) {
	unlock := s.lockForUser(customerID)
	defer unlock()

	res, err := s.DB.ExecContext(ctx, queryDeleteCartLine, customerID, productID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cart line: %w", err)
	}
	return res.RowsAffected()
}

// SetQuantity overwrites the quantity of an existing line.
func (s *PostgresStore) SetQuantity(ctx context.Context, customerID, productID int64, qty int) (int64, error) {
	if qty <= 0 {
		return 0, errors.New("quantity must be > 0")
	}

	unlock := s.lockForUser(customerID)
	defer unlock()

	res, err := s.DB.ExecContext(ctx, queryUpdateCartQuantity, customerID, productID, qty)
	if err != nil {
		return 0, fmt.Errorf("failed to update cart quantity: %w", err)
	}
	return res.RowsAffected()
}

// ClearCart deletes every line of the customer's cart.
func (s *PostgresStore) ClearCart(ctx context.Context, customerID int64) (int64, error) {
	unlock := s.lockForUser(customerID)
	defer unlock()

	res, err := s.DB.ExecContext(ctx, queryClearCart, customerID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}
	return res.RowsAffected()
}
