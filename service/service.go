package service

import (
	"context"

	"minishop/logx"
	"minishop/metrics"
	"minishop/model"
	"minishop/session"
	"minishop/store"

	"github.com/rs/zerolog"
)

type ServiceInterface interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	ListCart(ctx context.Context, sess *session.Session) (Listing, error)
	ResolveDisplayNumber(ctx context.Context, sess *session.Session, n int) (int64, error)
	AddToCart(ctx context.Context, sess *session.Session, productID int64, qty int) error
	RemoveLine(ctx context.Context, sess *session.Session, productID int64) (int64, error)
	SetQuantity(ctx context.Context, sess *session.Session, productID int64, qty int) (int64, error)
	Clear(ctx context.Context, sess *session.Session) (int64, error)

	Quote(ctx context.Context, sess *session.Session, productIDs []int64) (Quote, error)
	PurchaseAll(ctx context.Context, sess *session.Session, c Confirmer) (Receipt, error)
	PurchaseSelected(ctx context.Context, sess *session.Session, productIDs []int64, c Confirmer) (Receipt, error)

	Login(ctx context.Context, loginID, password string) (*session.Session, error)
	Account(ctx context.Context, sess *session.Session) (model.Account, error)
	Charge(ctx context.Context, sess *session.Session, amount int64) (model.Account, error)
}

type Service struct {
	store     store.Store
	metrics   *metrics.Registry
	minCharge int64
	log       zerolog.Logger
}

var _ ServiceInterface = (*Service)(nil)

type Option func(*Service)

// WithMetrics records purchases and cart mutations in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Service) { s.metrics = reg }
}

// WithMinCharge sets the smallest amount Charge accepts.
func WithMinCharge(amount int64) Option {
	return func(s *Service) { s.minCharge = amount }
}

func NewService(s store.Store, opts ...Option) *Service {
	svc := &Service{
		store:     s,
		minCharge: 1000,
		log:       logx.Component("service"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *Service) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, persistence("failed to list products", err)
	}
	out := make([]model.Product, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Product{
			ID:       r.ID,
			Category: r.Category,
			Name:     r.Name,
			Price:    r.Price,
			Stock:    r.Stock,
			Origin:   r.Origin,
		})
	}
	return out, nil
}
