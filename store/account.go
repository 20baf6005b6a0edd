package store

import (
	"context"
	"fmt"
	"math"

	"minishop/model"
)

func (s *PostgresStore) Account(ctx context.Context, customerID int64) (AccountRow, error) {
	a, err := scanAccount(s.DB.QueryRowContext(ctx, queryAccount, customerID))
	if err != nil {
		return AccountRow{}, fmt.Errorf("failed to read customer %d: %w", customerID, err)
	}
	return a, nil
}

func (s *PostgresStore) AccountByLogin(ctx context.Context, loginID string) (AccountRow, error) {
	a, err := scanAccount(s.DB.QueryRowContext(ctx, queryAccountByLogin, loginID))
	if err != nil {
		return AccountRow{}, fmt.Errorf("failed to read customer %q: %w", loginID, err)
	}
	return a, nil
}

// Charge adds amount to the balance and to the cumulative charge, and
// recomputes the grade from the new cumulative charge, all in one transaction.
func (s *PostgresStore) Charge(ctx context.Context, customerID, amount int64) (AccountRow, error) {
	if amount <= 0 {
		return AccountRow{}, fmt.Errorf("charge amount must be > 0, got %d", amount)
	}

	unlock := s.lockForUser(customerID)
	defer unlock()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return AccountRow{}, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	a, err := scanAccount(tx.QueryRowContext(ctx, queryLockAccount, customerID))
	if err != nil {
		return AccountRow{}, fmt.Errorf("failed to lock customer %d: %w", customerID, err)
	}

	if a.Balance > math.MaxInt64-amount || a.TotalCharge > math.MaxInt64-amount {
		return AccountRow{}, fmt.Errorf("customer %d, charge %d: %w", customerID, amount, ErrChargeOverflow)
	}

	a.Balance += amount
	a.TotalCharge += amount
	a.Grade = string(model.GradeFor(a.TotalCharge))

	if _, err := tx.ExecContext(ctx, queryChargeAccount, customerID, a.Balance, a.TotalCharge, a.Grade); err != nil {
		return AccountRow{}, fmt.Errorf("failed to update balance: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return AccountRow{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return a, nil
}

func scanAccount(r rowScanner) (AccountRow, error) {
	var a AccountRow
	err := r.Scan(&a.ID, &a.LoginID, &a.PasswordHash, &a.NickName, &a.Balance, &a.TotalCharge, &a.Grade)
	return a, err
}
