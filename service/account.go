package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"minishop/model"
	"minishop/session"
	"minishop/store"

	"golang.org/x/crypto/bcrypt"
)

// Login checks the password against the stored bcrypt hash and opens a
// session. An unknown login id and a wrong password both give NotFound.
func (s *Service) Login(ctx context.Context, loginID, password string) (*session.Session, error) {
	row, err := s.store.AccountByLogin(ctx, loginID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newError(KindNotFound, "unknown login id or password", nil)
	}
	if err != nil {
		return nil, persistence("failed to read customer", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)); err != nil {
		s.log.Debug().Str("login_id", loginID).Msg("password mismatch")
		return nil, newError(KindNotFound, "unknown login id or password", nil)
	}
	s.log.Info().Int64("customer_id", row.ID).Msg("logged in")
	return session.New(row.ID, row.LoginID, row.NickName), nil
}

func (s *Service) Account(ctx context.Context, sess *session.Session) (model.Account, error) {
	row, err := s.store.Account(ctx, sess.CustomerID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, newError(KindNotFound, fmt.Sprintf("customer %d does not exist", sess.CustomerID), err)
	}
	if err != nil {
		return model.Account{}, persistence("failed to read account", err)
	}
	return toAccount(row), nil
}

// Charge tops up the balance. Amounts below the configured minimum are rejected.
func (s *Service) Charge(ctx context.Context, sess *session.Session, amount int64) (model.Account, error) {
	if amount < s.minCharge {
		return model.Account{}, newError(KindInvalidQuantity, fmt.Sprintf("charge must be at least %d", s.minCharge), nil)
	}
	row, err := s.store.Charge(ctx, sess.CustomerID, amount)
	if errors.Is(err, store.ErrChargeOverflow) {
		return model.Account{}, newError(KindInvalidQuantity, "charge amount is too large", err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, newError(KindNotFound, fmt.Sprintf("customer %d does not exist", sess.CustomerID), err)
	}
	if err != nil {
		return model.Account{}, persistence("failed to charge balance", err)
	}
	s.metrics.ObserveCharge(amount)
	s.log.Info().Int64("customer_id", sess.CustomerID).Int64("amount", amount).Str("grade", row.Grade).Msg("balance charged")
	return toAccount(row), nil
}

func toAccount(r store.AccountRow) model.Account {
	return model.Account{
		CustomerID:  r.ID,
		LoginID:     r.LoginID,
		NickName:    r.NickName,
		Balance:     r.Balance,
		TotalCharge: r.TotalCharge,
		Grade:       model.Grade(r.Grade),
	}
}
