package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"minishop/model"
	"minishop/session"
	"minishop/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type Mode string

const (
	ModeAll      Mode = "all"
	ModeSelected Mode = "selected"
)

// State is the position of one purchase run. A run starts Idle and ends in
// Aborted, Committed or RolledBack.
type State int

const (
	StateIdle State = iota
	StateQuoted
	StateAborted
	StateConfirmed
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateQuoted:
		return "Quoted"
	case StateAborted:
		return "Aborted"
	case StateConfirmed:
		return "Confirmed"
	case StateCommitted:
		return "Committed"
	case StateRolledBack:
		return "RolledBack"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Quote is the live-priced total of the lines a purchase targets.
type Quote struct {
	CustomerID   int64              `json:"customer_id"`
	Mode         Mode               `json:"mode"`
	Lines        []model.PriceQuote `json:"lines"`
	Total        int64              `json:"total"`
	Balance      int64              `json:"balance"`
	BalanceAfter int64              `json:"balance_after"`
}

type Receipt struct {
	PurchaseID    string             `json:"purchase_id"`
	Mode          Mode               `json:"mode"`
	Lines         []model.PriceQuote `json:"lines"`
	Total         int64              `json:"total"`
	BalanceBefore int64              `json:"balance_before"`
	BalanceAfter  int64              `json:"balance_after"`
	State         State              `json:"state"`
	CommittedAt   time.Time          `json:"committed_at"`
}

// Confirmer asks the customer to accept a quote. Declining, or failing to
// answer, cancels the purchase before anything is written.
type Confirmer interface {
	Confirm(ctx context.Context, q Quote) (bool, error)
}

type ConfirmFunc func(ctx context.Context, q Quote) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, q Quote) (bool, error) { return f(ctx, q) }

// AlwaysConfirm accepts every quote.
var AlwaysConfirm = ConfirmFunc(func(context.Context, Quote) (bool, error) { return true, nil })

// purchase is a single run of the purchase protocol.
type purchase struct {
	svc   *Service
	sess  *session.Session
	mode  Mode
	id    string
	state State
	quote Quote
	log   zerolog.Logger
}

func (s *Service) newPurchase(sess *session.Session, mode Mode) *purchase {
	id := uuid.NewString()
	return &purchase{
		svc:  s,
		sess: sess,
		mode: mode,
		id:   id,
		log: s.log.With().
			Str("purchase_id", id).
			Int64("customer_id", sess.CustomerID).
			Str("mode", string(mode)).
			Logger(),
	}
}

func (p *purchase) fail(to State, err *Error) *Error {
	p.state = to
	err.State = to
	p.svc.metrics.ObserveAbort(string(p.mode), err.Kind.String())
	p.log.Info().Str("state", to.String()).Str("kind", err.Kind.String()).Err(err.Err).Msg(err.Message)
	return err
}

// PurchaseAll buys every line in the cart.
func (s *Service) PurchaseAll(ctx context.Context, sess *session.Session, c Confirmer) (Receipt, error) {
	return s.newPurchase(sess, ModeAll).run(ctx, nil, c)
}

// PurchaseSelected buys only the given products. Every id must be in the cart;
// if any is missing nothing is bought.
func (s *Service) PurchaseSelected(ctx context.Context, sess *session.Session, productIDs []int64, c Confirmer) (Receipt, error) {
	if len(productIDs) == 0 {
		p := s.newPurchase(sess, ModeSelected)
		return Receipt{}, p.fail(StateAborted, newError(KindEmptyPurchase, "no lines selected", nil))
	}
	return s.newPurchase(sess, ModeSelected).run(ctx, productIDs, c)
}

// Quote prices the target lines and checks the balance without buying. A nil
// or empty productIDs quotes the whole cart.
func (s *Service) Quote(ctx context.Context, sess *session.Session, productIDs []int64) (Quote, error) {
	mode := ModeAll
	if len(productIDs) > 0 {
		mode = ModeSelected
	}
	p := s.newPurchase(sess, mode)
	if err := p.price(ctx, productIDs); err != nil {
		return Quote{}, err
	}
	if err := p.checkFunds(); err != nil {
		return p.quote, err
	}
	return p.quote, nil
}

func (p *purchase) run(ctx context.Context, productIDs []int64, c Confirmer) (Receipt, error) {
	if err := p.price(ctx, productIDs); err != nil {
		return Receipt{}, err
	}
	if err := p.checkFunds(); err != nil {
		return Receipt{}, err
	}
	if err := p.confirm(ctx, c); err != nil {
		return Receipt{}, err
	}
	return p.commit(ctx)
}

// price reads the cart and the current unit price of each target line.
func (p *purchase) price(ctx context.Context, productIDs []int64) *Error {
	lines, err := p.svc.cartLines(ctx, p.sess.CustomerID)
	if err != nil {
		return p.fail(StateAborted, persistence("failed to read cart", err))
	}

	targets := lines
	if p.mode == ModeSelected {
		var serr *Error
		if targets, serr = selectLines(lines, productIDs); serr != nil {
			return p.fail(StateAborted, serr)
		}
	}
	if len(targets) == 0 {
		return p.fail(StateAborted, newError(KindEmptyPurchase, "the cart is empty", nil))
	}

	quotes := make([]model.PriceQuote, 0, len(targets))
	total := decimal.Zero
	for _, l := range targets {
		row, err := p.svc.store.UnitPrice(ctx, l.ProductID)
		if errors.Is(err, sql.ErrNoRows) {
			return p.fail(StateAborted, lineNotInCart(l.ProductID, err))
		}
		if err != nil {
			return p.fail(StateAborted, persistence("failed to read unit price", err))
		}
		quotes = append(quotes, model.NewPriceQuote(l.ProductID, row.Name, l.Quantity, row.Price))
		total = total.Add(model.LineAmount(row.Price, l.Quantity))
	}
	if total.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return p.fail(StateAborted, newError(KindInvalidQuantity, "purchase total is out of range", nil))
	}

	acct, err := p.svc.store.Account(ctx, p.sess.CustomerID)
	if err != nil {
		return p.fail(StateAborted, persistence("failed to read balance", err))
	}

	p.quote = Quote{
		CustomerID:   p.sess.CustomerID,
		Mode:         p.mode,
		Lines:        quotes,
		Total:        total.IntPart(),
		Balance:      acct.Balance,
		BalanceAfter: acct.Balance - total.IntPart(),
	}
	p.state = StateQuoted
	p.log.Debug().Int64("total", p.quote.Total).Int("lines", len(quotes)).Msg("quoted")
	return nil
}

// selectLines returns the cart lines for productIDs, in cart order.
// Duplicate ids count once.
func selectLines(lines []model.CartLine, productIDs []int64) ([]model.CartLine, *Error) {
	inCart := make(map[int64]bool, len(lines))
	for _, l := range lines {
		inCart[l.ProductID] = true
	}
	want := make(map[int64]bool, len(productIDs))
	for _, id := range productIDs {
		if !inCart[id] {
			return nil, lineNotInCart(id, nil)
		}
		want[id] = true
	}
	out := make([]model.CartLine, 0, len(want))
	for _, l := range lines {
		if want[l.ProductID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (p *purchase) checkFunds() *Error {
	if p.quote.Balance < p.quote.Total {
		return p.fail(StateAborted, insufficientFunds(p.quote.Total-p.quote.Balance, nil))
	}
	return nil
}

func (p *purchase) confirm(ctx context.Context, c Confirmer) *Error {
	if c == nil {
		return p.fail(StateAborted, newError(KindUserCancelled, "no confirmation", nil))
	}
	ok, err := c.Confirm(ctx, p.quote)
	if err != nil {
		return p.fail(StateAborted, newError(KindUserCancelled, "confirmation failed", err))
	}
	if !ok {
		return p.fail(StateAborted, newError(KindUserCancelled, "purchase declined", nil))
	}
	p.state = StateConfirmed
	return nil
}

// commit debits the balance and removes the quoted lines in one store
// transaction. It runs to completion even if ctx is cancelled.
func (p *purchase) commit(ctx context.Context) (Receipt, error) {
	ctx = context.WithoutCancel(ctx)

	lines := make([]store.PurchaseLine, 0, len(p.quote.Lines))
	for _, l := range p.quote.Lines {
		lines = append(lines, store.PurchaseLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	start := time.Now()
	after, err := p.svc.store.CommitPurchase(ctx, p.sess.CustomerID, p.quote.Total, lines)
	if err != nil {
		return Receipt{}, p.fail(StateRolledBack, p.commitError(err))
	}
	took := time.Since(start)

	p.state = StateCommitted
	p.svc.metrics.ObserveCommit(string(p.mode), p.quote.Total, took)
	p.log.Info().Int64("total", p.quote.Total).Int64("balance", after).Dur("took", took).Msg("purchase committed")

	return Receipt{
		PurchaseID:    p.id,
		Mode:          p.mode,
		Lines:         p.quote.Lines,
		Total:         p.quote.Total,
		BalanceBefore: after + p.quote.Total,
		BalanceAfter:  after,
		State:         StateCommitted,
		CommittedAt:   time.Now().UTC(),
	}, nil
}

func (p *purchase) commitError(err error) *Error {
	var missing *store.MissingLineError
	var funds *store.InsufficientFundsError
	switch {
	case errors.As(err, &funds):
		// the balance dropped after the quote; the store reports the balance it locked
		return insufficientFunds(funds.Shortfall(), err)
	case errors.Is(err, store.ErrInsufficientFunds):
		return insufficientFunds(0, err)
	case errors.As(err, &missing):
		return lineNotInCart(missing.ProductID, err)
	default:
		return persistence("purchase was rolled back", err)
	}
}
