package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// CommitPurchase runs the balance debit and the cart line removal in one
// transaction. The customer row is locked first, then the cart lines, so a
// concurrent purchase for the same customer waits and then sees the debited
// balance. Any failure rolls the whole transaction back.
func (s *PostgresStore) CommitPurchase(ctx context.Context, customerID, amount int64, lines []PurchaseLine) (int64, error) {
	if len(lines) == 0 {
		return 0, errors.New("no cart lines to purchase")
	}
	if amount < 0 {
		return 0, fmt.Errorf("purchase amount must be >= 0, got %d", amount)
	}

	unlock := s.lockForUser(customerID)
	defer unlock()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var balance int64
	if err := tx.QueryRowContext(ctx, queryLockBalance, customerID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to lock customer %d: %w", customerID, err)
	}
	if balance < amount {
		return 0, &InsufficientFundsError{Balance: balance, Amount: amount}
	}

	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}

	locked, err := lockPurchaseLines(ctx, tx, customerID, ids)
	if err != nil {
		return 0, err
	}
	for _, l := range lines {
		qty, ok := locked[l.ProductID]
		if !ok {
			return 0, &MissingLineError{ProductID: l.ProductID}
		}
		if qty != l.Quantity {
			return 0, fmt.Errorf("product %d: quantity %d, quoted %d: %w", l.ProductID, qty, l.Quantity, ErrStaleCart)
		}
	}

	var after int64
	err = tx.QueryRowContext(ctx, queryDebitBalance, customerID, amount).Scan(&after)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &InsufficientFundsError{Balance: balance, Amount: amount}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to debit balance: %w", err)
	}

	res, err := tx.ExecContext(ctx, queryDeletePurchasedLines, customerID, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to delete purchased lines: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted lines: %w", err)
	}
	if removed != int64(len(lines)) {
		return 0, fmt.Errorf("deleted %d of %d lines: %w", removed, len(lines), ErrStaleCart)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit purchase: %w", err)
	}
	return after, nil
}

func lockPurchaseLines(ctx context.Context, tx *sql.Tx, customerID int64, ids []int64) (map[int64]int, error) {
	rows, err := tx.QueryContext(ctx, queryLockPurchaseLines, customerID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to lock cart lines: %w", err)
	}
	defer rows.Close()

	locked := make(map[int64]int, len(ids))
	for rows.Next() {
		var productID int64
		var qty int
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		locked[productID] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cart lines: %w", err)
	}
	return locked, nil
}
